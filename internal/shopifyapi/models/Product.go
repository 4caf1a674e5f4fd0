package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Handle      string     `json:"handle,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Options     []Option   `json:"options,omitempty"`
	Variants    []Variant  `json:"variants"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}

type Variant struct {
	ID                  int64           `json:"id,omitempty"`
	ProductID           int64           `json:"product_id,omitempty"`
	Title               string          `json:"title,omitempty"`
	SKU                 string          `json:"sku"`
	Barcode             string          `json:"barcode,omitempty"`
	Price               decimal.Decimal `json:"price"`
	InventoryItemID     int64           `json:"inventory_item_id,omitempty"`
	InventoryManagement string          `json:"inventory_management,omitempty"`
	InventoryPolicy     string          `json:"inventory_policy,omitempty"`
	RequiresShipping    bool            `json:"requires_shipping"`
	Taxable             bool            `json:"taxable"`
	Option1             string          `json:"option1,omitempty"`
	Option2             string          `json:"option2,omitempty"`
	Option3             string          `json:"option3,omitempty"`
}
