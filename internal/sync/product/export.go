package product

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ExportToShopify creates a Shopify product per ERP template from the
// prepared variants and stores the ids Shopify returned.
func ExportToShopify(ctx context.Context, c *connector.Connector) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ExportToShopify")
	defer logger.Info("End ExportToShopify")

	variants, err := mapping.ListUnexported(c.DB, c.Name)
	if err != nil {
		return 0, err
	}
	if len(variants) == 0 {
		return 0, ErrNothingToExport
	}

	var templates []int
	byTemplate := map[int][]*mapping.Variant{}
	for _, v := range variants {
		if _, ok := byTemplate[v.ErpTemplateID]; !ok {
			templates = append(templates, v.ErpTemplateID)
		}
		byTemplate[v.ErpTemplateID] = append(byTemplate[v.ErpTemplateID], v)
	}

	book, err := c.NewLogBook(logbook.TYPE_EXPORT, logbook.MODEL_PRODUCT)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	var exported int
	for _, templateID := range templates {
		group := byTemplate[templateID]
		p := newShopifyProduct(ctx, c, group)
		created, err := c.Shopify.ProductCreate(ctx, p)
		if err != nil {
			logger.Errorf("failed to export template %d: %v", templateID, err)
			if err := book.Add(c.DB, logbook.Entry{
				Message: fmt.Sprintf("Product %s not exported to Shopify: %v", p.Title, err),
				ResID:   templateID,
			}); err != nil {
				return exported, err
			}
			continue
		}
		bySKU := map[string]*models.Variant{}
		for i := range created.Variants {
			bySKU[created.Variants[i].SKU] = &created.Variants[i]
		}
		for _, v := range group {
			sv, ok := bySKU[v.DefaultCode]
			if !ok {
				continue
			}
			v.ShopifyProductID = created.ID
			v.ShopifyVariantID = sv.ID
			v.InventoryItemID = sv.InventoryItemID
			v.Price = sv.Price.String()
			v.Exported = true
			if err := v.Save(c.DB); err != nil {
				return exported, err
			}
			exported++
		}
	}
	return exported, nil
}

func newShopifyProduct(ctx context.Context, c *connector.Connector, group []*mapping.Variant) *models.Product {
	logger := logging.GetLogger()
	first := group[0]
	p := &models.Product{
		Title:    first.TemplateName,
		BodyHTML: first.Description,
		Status:   "draft",
	}
	if len(group) > 1 {
		p.Options = []models.Option{{Name: "Title"}}
	}
	for _, v := range group {
		price, err := decimal.NewFromString(v.Price)
		if err != nil {
			price = decimal.Zero
			if erpProduct, err := c.ERP.FindProduct(ctx, "default_code", v.DefaultCode); err == nil && erpProduct != nil {
				price = erpProduct.ListPrice
			} else if err != nil {
				logger.Errorf("failed to read price of %s: %v", v.DefaultCode, err)
			}
		}
		sv := models.Variant{
			SKU:                 v.DefaultCode,
			Barcode:             v.Barcode,
			Price:               price,
			InventoryManagement: "shopify",
			RequiresShipping:    true,
			Taxable:             true,
		}
		if len(group) > 1 {
			sv.Option1 = v.Title
		}
		p.Variants = append(p.Variants, sv)
	}
	return p
}

// SetPrice stores a fixed price of a product in the instance pricelist.
func SetPrice(ctx context.Context, c *connector.Connector, productID int, minQty, price decimal.Decimal) error {
	if c.Instance.PricelistID == 0 {
		return errors.Errorf("instance %s has no pricelist", c.Name)
	}
	if err := c.ERP.SetFixedPrice(ctx, c.Instance.PricelistID, productID, minQty, price); err != nil {
		return errors.Wrapf(err, "failed to set price of product %d", productID)
	}
	return nil
}

// SyncPrices copies the Shopify price of every linked variant into the
// instance pricelist.
func SyncPrices(ctx context.Context, c *connector.Connector) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start SyncPrices")
	defer logger.Info("End SyncPrices")

	stocked, err := mapping.ListStocked(c.DB, c.Name)
	if err != nil {
		return 0, err
	}
	var count int
	for productID, variants := range stocked {
		price, err := decimal.NewFromString(variants[0].Price)
		if err != nil {
			continue
		}
		if err := SetPrice(ctx, c, productID, decimal.Zero, price); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
