package product

import (
	"context"
	"fmt"
	"strings"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

// matchField returns the ERP field and the variant value products are matched on.
func matchField(c *connector.Connector, v *models.Variant) (string, string) {
	if c.Instance.SyncProductWith == config.SYNC_WITH_BARCODE {
		return "barcode", strings.TrimSpace(v.Barcode)
	}
	return "default_code", strings.TrimSpace(v.SKU)
}

func GetVariantNotation(p *models.Product, v *models.Variant) string {
	return fmt.Sprintf("Product: %s, ID: %d, Variant: %s, ID: %d, SKU: %s, Barcode: %s", p.Title, p.ID, v.Title, v.ID, v.SKU, v.Barcode)
}

// HandlerOneStage classifies every variant of a Shopify product.
func HandlerOneStage(ctx context.Context, c *connector.Connector, p *models.Product, skipExisting bool) ([]VariantSync, error) {
	logger := logging.GetLogger()
	logger.Debug("Start product.HandlerOneStage")
	defer logger.Debug("End product.HandlerOneStage")

	variantsSync := make([]VariantSync, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		logger.Debugf("Variant: %s", GetVariantNotation(p, v))

		if skipExisting {
			existing, err := mapping.FindVariant(c.DB, c.Name, v.ID)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ErpProductID != 0 {
				logger.Debug("Variant is mapped already")
				variantsSync = append(variantsSync, VariantSync{Variant: v, Product: p, StatusSync: ALREADY_MAPPED})
				continue
			}
		}

		field, value := matchField(c, v)
		if value == "" {
			variantsSync = append(variantsSync, VariantSync{Variant: v, Product: p, StatusSync: NO_CODE})
			continue
		}
		found, err := c.ERP.FindProduct(ctx, field, value)
		if err != nil {
			return nil, errors.Wrap(err, "failed in FindProduct")
		}
		switch {
		case found != nil:
			variantsSync = append(variantsSync, VariantSync{Variant: v, Product: p, ErpProduct: found, StatusSync: LINKED})
		case c.Instance.AutoImportProduct:
			variantsSync = append(variantsSync, VariantSync{Variant: v, Product: p, StatusSync: NEED_CREATE})
		default:
			variantsSync = append(variantsSync, VariantSync{Variant: v, Product: p, StatusSync: NOT_FOUND})
		}
	}
	return variantsSync, nil
}

// HandlerTwoStage runs the handler of every status. It returns the number of
// variants left unlinked.
func HandlerTwoStage(ctx context.Context, c *connector.Connector, variantsSync []VariantSync, book *logbook.LogBook) (int, error) {
	logger := logging.GetLogger()
	logger.Debug("Start product.HandlerTwoStage")
	defer logger.Debug("End product.HandlerTwoStage")

	var failed int
	for i := range variantsSync {
		vs := &variantsSync[i]
		var err error
		switch vs.StatusSync {
		case ALREADY_MAPPED:
			continue
		case LINKED:
			err = HandlerLinked(c, vs)
		case NEED_CREATE:
			err = HandlerNeedCreate(ctx, c, vs)
		case NOT_FOUND:
			failed++
			err = book.Add(c.DB, logbook.Entry{
				Model:       logbook.MODEL_PRODUCT,
				Message:     fmt.Sprintf("Product %s not found in Odoo for Shopify variant %d of %s", vs.SKU, vs.ID, vs.Product.Title),
				DefaultCode: vs.SKU,
			})
		case NO_CODE:
			failed++
			err = book.Add(c.DB, logbook.Entry{
				Model:   logbook.MODEL_PRODUCT,
				Message: fmt.Sprintf("Variant %d of %s has no %s to match an Odoo product", vs.ID, vs.Product.Title, c.Instance.SyncProductWith),
			})
		}
		if err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func HandlerLinked(c *connector.Connector, vs *VariantSync) error {
	existing, err := mapping.FindVariant(c.DB, c.Name, vs.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &mapping.Variant{Instance: c.Name}
	}
	existing.ShopifyProductID = vs.Product.ID
	existing.ShopifyVariantID = vs.ID
	existing.InventoryItemID = vs.InventoryItemID
	existing.DefaultCode = vs.SKU
	existing.Barcode = vs.Barcode
	existing.TemplateName = vs.Product.Title
	existing.Title = vs.Title
	existing.Description = vs.Product.BodyHTML
	existing.Price = vs.Price.String()
	existing.ErpTemplateID = vs.ErpProduct.TemplateID
	existing.ErpProductID = vs.ErpProduct.ID
	existing.ErpCategoryID = vs.ErpProduct.CategoryID
	existing.Exported = true
	return existing.Save(c.DB)
}

func HandlerNeedCreate(ctx context.Context, c *connector.Connector, vs *VariantSync) error {
	logger := logging.GetLogger()
	name := vs.Product.Title
	if vs.Title != "" && vs.Title != "Default Title" {
		name = fmt.Sprintf("%s (%s)", vs.Product.Title, vs.Title)
	}
	created, err := c.ERP.CreateProduct(ctx, &erp.NewProduct{
		Name:        name,
		DefaultCode: strings.TrimSpace(vs.SKU),
		Barcode:     strings.TrimSpace(vs.Barcode),
		Description: vs.Product.BodyHTML,
		Type:        erp.PRODUCT_STORABLE,
		Price:       vs.Price,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create product for variant %d", vs.ID)
	}
	logger.Infof("Product %s created in Odoo, id=%d", name, created.ID)
	vs.ErpProduct = created
	return HandlerLinked(c, vs)
}
