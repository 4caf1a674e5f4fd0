package order

import (
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/shopifyapi/models"
)

const (
	SKIP_DATE        = "SKIP_DATE"        // Skip - created before ImportOrderAfterDate
	EXISTS           = "EXISTS"           // Done - imported before
	CUSTOMER_MISSING = "CUSTOMER_MISSING" // Fail - no customer to bill
	MISMATCH         = "MISMATCH"         // Fail - a line has no ERP product
	NEED_CREATE      = "NEED_CREATE"      // Create the sale order
	ERROR            = "ERROR"            // Fail - classification itself failed
)

// IMPORT_DAYS is the default look-back of an order import.
const IMPORT_DAYS = 3

// OVERLAP_DAYS is how far the next import window reaches back past the last one.
const OVERLAP_DAYS = 2

const (
	MSG_SKIP_DATE           = "Order %s is not imported in Odoo due to configuration mismatch. Order is created before %s"
	MSG_POS_CUSTOMER        = "Default POS Customer is not set. Please set Default POS Customer in instance %s."
	MSG_NO_CUSTOMER         = "Customer details are not available in %s Order."
	MSG_PRODUCT_MISMATCH    = "Product [%s][%s] not found for Order %s"
	MSG_NO_GIFT_CARD        = "Gift card product is not set in instance %s, Order %s not imported."
	MSG_NO_CUSTOM_PRODUCT   = "Custom line product is not set in instance %s, Order %s not imported."
	MSG_NO_DISCOUNT_PRODUCT = "Discount product is not set in instance %s, Order %s not imported."
	MSG_NO_SHIPPING_PRODUCT = "Shipping product is not set in instance %s, Order %s not imported."
	MSG_NO_WORKFLOW         = "Configuration missing in Odoo while importing Shopify Order(%s) and id (%s)"
	MSG_FAILED_REFERENCES   = "Your order has not been imported for Shopify Order Reference : %s"
	MSG_ORDERS_NOT_FOUND    = "Orders are not found for ids: %s"
	MSG_CANNOT_CANCEL       = "System can not cancel the order %s as one of the Delivery Order related to it is in the 'Done' status."
	MSG_NO_INVOICE          = "Order %s has been refunded in Shopify but has no invoice in Odoo. Create the credit note manually."
	MSG_INVOICE_NOT_POSTED  = "Order %s has been refunded in Shopify but its invoice is not posted. Post it and create the credit note manually."
	MSG_PARTIAL_REFUND      = "Order %s is partially refunded in Shopify (%s of %s). Create the credit note manually."
	MSG_NOT_ENOUGH_STOCK    = "There is not enough stock to complete Delivery for order [%s]"
	MSG_REFUND_REASON       = "Refunded from shopify"
)

type OrderSync struct {
	*models.Order
	// Line is the queue line the order came from, nil on direct imports.
	Line        *queue.Line
	Queue       *queue.Queue
	StatusSync  string
	Message     string
	SaleOrderID int
	// LineState is the resulting queue line state.
	LineState string
}
