// Package erp is the connector's view of the ERP: the records it reads and
// the business methods it triggers, expressed in connector terms.
package erp

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PARTNER_CONTACT  = "contact"
	PARTNER_INVOICE  = "invoice"
	PARTNER_DELIVERY = "delivery"

	PRODUCT_STORABLE = "product"
	PRODUCT_SERVICE  = "service"

	ORDER_DRAFT  = "draft"
	ORDER_SENT   = "sent"
	ORDER_SALE   = "sale"
	ORDER_DONE   = "done"
	ORDER_CANCEL = "cancel"

	MOVE_POSTED    = "posted"
	MOVE_INVOICE   = "out_invoice"
	MOVE_REFUND    = "out_refund"
	PICKING_DONE   = "done"
	PICKING_CANCEL = "cancel"
	USAGE_CUSTOMER = "customer"
)

type Partner struct {
	ID          int
	ParentID    int
	Type        string
	Name        string
	Email       string
	Phone       string
	Street      string
	Street2     string
	City        string
	Zip         string
	CountryCode string
	StateCode   string
	StateName   string
}

type Product struct {
	ID           int
	TemplateID   int
	TemplateName string
	Name         string
	DefaultCode  string
	Barcode      string
	Description  string
	CategoryID   int
	Type         string
	ListPrice    decimal.Decimal
}

type NewProduct struct {
	Name        string
	DefaultCode string
	Barcode     string
	Description string
	Type        string
	Price       decimal.Decimal
}

type Tax struct {
	Name         string
	Amount       decimal.Decimal
	PriceInclude bool
	CompanyID    int
}

type SaleOrderLine struct {
	ProductID int
	Name      string
	Quantity  decimal.Decimal
	PriceUnit decimal.Decimal
	// TaxIDs nil keeps the ERP default taxes, an empty slice clears them.
	TaxIDs     []int
	IsDelivery bool
}

type SaleOrder struct {
	Name              string
	CompanyID         int
	PartnerID         int
	PartnerInvoiceID  int
	PartnerShippingID int
	WarehouseID       int
	PricelistID       int
	TeamID            int
	CarrierID         int
	DateOrder         time.Time
	ClientOrderRef    string
	Note              string
	PickingPolicy     string
	Lines             []SaleOrderLine
}

type SaleOrderInfo struct {
	ID          int
	Name        string
	State       string
	AmountTotal decimal.Decimal
	WarehouseID int
	PickingIDs  []int
	InvoiceIDs  []int
}

type Invoice struct {
	ID           int
	State        string
	MoveType     string
	PaymentState string
	AmountTotal  decimal.Decimal
}

type Move struct {
	ID         int
	ProductID  int
	SaleLineID int
	Quantity   decimal.Decimal
	State      string
}

type Picking struct {
	ID          int
	Name        string
	State       string
	SaleOrderID int
	DestUsage   string
	TrackingRef string
	CarrierName string
	Moves       []Move
}

type InventoryLine struct {
	ProductID int
	Quantity  decimal.Decimal
}

type ERP interface {
	FindPartnerByEmail(ctx context.Context, email string) (int, error)
	CreatePartner(ctx context.Context, p *Partner) (int, error)
	FindOrCreateAddress(ctx context.Context, p *Partner) (int, error)

	FindProduct(ctx context.Context, field, value string) (*Product, error)
	CreateProduct(ctx context.Context, p *NewProduct) (*Product, error)
	ExportableProducts(ctx context.Context) ([]*Product, error)

	FindSaleOrderByRef(ctx context.Context, companyID int, ref string) (int, error)
	CreateSaleOrder(ctx context.Context, o *SaleOrder) (int, []int, error)
	GetSaleOrder(ctx context.Context, ID int) (*SaleOrderInfo, error)
	ConfirmSaleOrder(ctx context.Context, ID int) error
	CancelSaleOrder(ctx context.Context, ID int) error

	FindOrCreateTax(ctx context.Context, t *Tax) (int, error)
	CompanyName(ctx context.Context, ID int) (string, error)
	FindPricelist(ctx context.Context, currency string, companyID int) (int, error)
	SetFixedPrice(ctx context.Context, pricelistID, productID int, minQty, price decimal.Decimal) error
	FindOrCreateCarrier(ctx context.Context, code, name string, productID, companyID int) (int, error)

	CreateInvoices(ctx context.Context, orderID int) ([]int, error)
	PostInvoices(ctx context.Context, IDs []int) error
	RegisterPayment(ctx context.Context, invoiceIDs []int, journalID int) error
	GetInvoices(ctx context.Context, IDs []int) ([]*Invoice, error)
	ReverseInvoices(ctx context.Context, IDs []int, reason string) error

	GetPickings(ctx context.Context, IDs []int) ([]*Picking, error)
	DoneCustomerPickings(ctx context.Context, saleOrderIDs []int) ([]*Picking, error)
	ValidatePickings(ctx context.Context, IDs []int) error

	ProductsMovedSince(ctx context.Context, since time.Time) ([]int, error)
	ProductQuantities(ctx context.Context, productIDs, warehouseIDs []int, field string) (map[int]decimal.Decimal, error)
	WarehouseStockLocation(ctx context.Context, warehouseID int) (int, error)
	ApplyInventory(ctx context.Context, locationID int, lines []InventoryLine, validate bool) error
}
