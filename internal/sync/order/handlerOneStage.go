package order

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/sync/product"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

const DATE_LAYOUT = "2006-01-02 15:04:05"

func GetOrderNotation(o *models.Order) string {
	return fmt.Sprintf("Order: %s, ID: %d, Number: %d, Financial: %s, Fulfillment: %s, Source: %s",
		o.Name, o.ID, o.OrderNumber, o.FinancialStatus, o.FulfillmentStatus, o.SourceName)
}

// HandlerOneStage classifies the orders. Products missing locally are synced
// from Shopify once per product before an order is declared mismatched.
func HandlerOneStage(ctx context.Context, c *connector.Connector, ordersSync []OrderSync, book *logbook.LogBook) {
	logger := logging.GetLogger()
	logger.Debug("Start order.HandlerOneStage")
	defer logger.Debug("End order.HandlerOneStage")

	synced := map[int64]bool{}
	for i := range ordersSync {
		item := &ordersSync[i]
		logger.Debug("--------------------------------------")
		logger.Debugf("%s", GetOrderNotation(item.Order))

		status, message, saleOrderID, err := classify(ctx, c, item.Order, synced, book)
		if err != nil {
			logger.Errorf("failed to classify order %s: %v", item.Name, err)
			item.StatusSync = ERROR
			item.Message = fmt.Sprintf("Order %s not imported: %v", item.Name, err)
			continue
		}
		logger.Debugf("Order %s: %s", item.Name, status)
		item.StatusSync = status
		item.Message = message
		item.SaleOrderID = saleOrderID
	}
}

func classify(ctx context.Context, c *connector.Connector, o *models.Order, synced map[int64]bool, book *logbook.LogBook) (string, string, int, error) {
	if after := c.Instance.ImportAfterDate(); !after.IsZero() && o.CreatedAt.UTC().Before(after) {
		return SKIP_DATE, fmt.Sprintf(MSG_SKIP_DATE, o.Name, after.Format(DATE_LAYOUT)), 0, nil
	}

	existing, err := mapping.FindOrder(c.DB, c.Name, o.ID)
	if err != nil {
		return "", "", 0, err
	}
	if existing != nil && existing.OrderNumber == fmt.Sprint(o.OrderNumber) {
		return EXISTS, "", existing.SaleOrderID, nil
	}
	saleOrderID, err := c.ERP.FindSaleOrderByRef(ctx, c.Instance.CompanyID, o.Name)
	if err != nil {
		return "", "", 0, errors.Wrap(err, "failed in FindSaleOrderByRef")
	}
	if saleOrderID != 0 {
		return EXISTS, "", saleOrderID, nil
	}

	if o.IsPOS() {
		if o.Customer == nil && c.Instance.DefaultPOSCustomerID == 0 {
			return CUSTOMER_MISSING, fmt.Sprintf(MSG_POS_CUSTOMER, c.Name), 0, nil
		}
	} else if o.Customer == nil && o.BillingAddress == nil && o.ShippingAddress == nil {
		return CUSTOMER_MISSING, fmt.Sprintf(MSG_NO_CUSTOMER, o.Name), 0, nil
	}

	for _, li := range o.LineItems {
		switch {
		case li.GiftCard:
			if c.Instance.GiftCardProductID == 0 {
				return MISMATCH, fmt.Sprintf(MSG_NO_GIFT_CARD, c.Name, o.Name), 0, nil
			}
		case li.ProductID == 0:
			if customProduct(c, &li) == 0 {
				return MISMATCH, fmt.Sprintf(MSG_NO_CUSTOM_PRODUCT, c.Name, o.Name), 0, nil
			}
		default:
			v, err := findVariant(c, &li)
			if err != nil {
				return "", "", 0, err
			}
			if (v == nil || v.ErpProductID == 0) && !synced[li.ProductID] {
				synced[li.ProductID] = true
				if _, err := product.SyncProductByID(ctx, c, li.ProductID, book); err != nil {
					logging.GetLogger().Errorf("failed to sync product %d: %v", li.ProductID, err)
				}
				if v, err = findVariant(c, &li); err != nil {
					return "", "", 0, err
				}
			}
			if v == nil || v.ErpProductID == 0 {
				return MISMATCH, fmt.Sprintf(MSG_PRODUCT_MISMATCH, li.SKU, li.Title, o.Name), 0, nil
			}
		}
	}
	return NEED_CREATE, "", 0, nil
}

// findVariant looks a line's variant up by id, then by sku.
func findVariant(c *connector.Connector, li *models.LineItem) (*mapping.Variant, error) {
	if li.VariantID != 0 {
		v, err := mapping.FindVariant(c.DB, c.Name, li.VariantID)
		if err != nil || (v != nil && v.ErpProductID != 0) {
			return v, err
		}
	}
	if li.SKU == "" {
		return nil, nil
	}
	return mapping.FindVariantByCode(c.DB, c.Name, li.SKU)
}

// customProduct is the ERP product of a line without a Shopify product.
func customProduct(c *connector.Connector, li *models.LineItem) int {
	if li.RequiresShipping {
		return c.Instance.CustomStorableProductID
	}
	return c.Instance.CustomServiceProductID
}
