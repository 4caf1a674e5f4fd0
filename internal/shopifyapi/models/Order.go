package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FULFILLMENT_STATUS_FULFILLED = "fulfilled"
	FULFILLMENT_STATUS_PARTIAL   = "partial"

	FINANCIAL_STATUS_REFUNDED = "refunded"

	SOURCE_POS = "pos"

	NO_PAYMENT_GATEWAY = "no_payment_gateway"
)

type Order struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	OrderNumber         int64           `json:"order_number"`
	Email               string          `json:"email"`
	Phone               string          `json:"phone"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	CancelledAt         *time.Time      `json:"cancelled_at"`
	CancelReason        string          `json:"cancel_reason"`
	ClosedAt            *time.Time      `json:"closed_at"`
	Currency            string          `json:"currency"`
	FinancialStatus     string          `json:"financial_status"`
	FulfillmentStatus   string          `json:"fulfillment_status"`
	SourceName          string          `json:"source_name"`
	Gateway             string          `json:"gateway"`
	PaymentGatewayNames []string        `json:"payment_gateway_names"`
	Note                string          `json:"note"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	SubtotalPrice       decimal.Decimal `json:"subtotal_price"`
	TotalDiscounts      decimal.Decimal `json:"total_discounts"`
	TotalTax            decimal.Decimal `json:"total_tax"`
	TaxesIncluded       bool            `json:"taxes_included"`
	LocationID          int64           `json:"location_id"`
	Customer            *Customer       `json:"customer"`
	BillingAddress      *Address        `json:"billing_address"`
	ShippingAddress     *Address        `json:"shipping_address"`
	LineItems           []LineItem      `json:"line_items"`
	ShippingLines       []ShippingLine  `json:"shipping_lines"`
	TaxLines            []TaxLine       `json:"tax_lines"`
	Refunds             []Refund        `json:"refunds"`
	Fulfillments        []Fulfillment   `json:"fulfillments"`
}

type LineItem struct {
	ID                  int64                `json:"id"`
	VariantID           int64                `json:"variant_id"`
	ProductID           int64                `json:"product_id"`
	Title               string               `json:"title"`
	Name                string               `json:"name"`
	VariantTitle        string               `json:"variant_title"`
	SKU                 string               `json:"sku"`
	Quantity            int                  `json:"quantity"`
	Price               decimal.Decimal      `json:"price"`
	GiftCard            bool                 `json:"gift_card"`
	Taxable             bool                 `json:"taxable"`
	RequiresShipping    bool                 `json:"requires_shipping"`
	FulfillableQuantity int                  `json:"fulfillable_quantity"`
	FulfillmentStatus   string               `json:"fulfillment_status"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

type ShippingLine struct {
	ID                  int64                `json:"id"`
	Code                string               `json:"code"`
	Title               string               `json:"title"`
	Source              string               `json:"source"`
	Price               decimal.Decimal      `json:"price"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

type TaxLine struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Rate  decimal.Decimal `json:"rate"`
}

type DiscountAllocation struct {
	Amount decimal.Decimal `json:"amount"`
}

// DiscountTotal is the sum of the discount allocations.
func DiscountTotal(allocations []DiscountAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}

type Refund struct {
	ID           int64         `json:"id"`
	Note         string        `json:"note"`
	CreatedAt    time.Time     `json:"created_at"`
	Transactions []Transaction `json:"transactions"`
}

type Transaction struct {
	ID      int64           `json:"id"`
	Kind    string          `json:"kind"`
	Status  string          `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Gateway string          `json:"gateway"`
}

type Risk struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	Recommendation string          `json:"recommendation"`
	Message        string          `json:"message"`
	Score          decimal.Decimal `json:"score"`
	Source         string          `json:"source"`
	Display        bool            `json:"display"`
}

// IsPOS reports orders created at a point of sale.
func (o *Order) IsPOS() bool {
	return o.SourceName == SOURCE_POS
}

// PaymentGateway returns the gateway used for workflow lookup.
func (o *Order) PaymentGateway() string {
	if len(o.PaymentGatewayNames) > 0 && o.PaymentGatewayNames[0] != "" {
		return o.PaymentGatewayNames[0]
	}
	if o.Gateway != "" {
		return o.Gateway
	}
	return NO_PAYMENT_GATEWAY
}

// IsCancelled reports orders cancelled in Shopify.
func (o *Order) IsCancelled() bool {
	return o.CancelledAt != nil && o.CancelReason != ""
}

// RefundedAmount sums successful refund transactions.
func (o *Order) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		if len(r.Transactions) == 0 {
			continue
		}
		tx := r.Transactions[0]
		if tx.Kind == "refund" && tx.Status == "success" {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// RefundNote returns the note of the first refund that has one.
func (o *Order) RefundNote() string {
	for _, r := range o.Refunds {
		if r.Note != "" {
			return r.Note
		}
	}
	return ""
}
