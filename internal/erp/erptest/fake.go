// Package erptest provides an in-memory ERP for tests.
package erptest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ShopifyWithOdoo/internal/erp"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Order struct {
	erp.SaleOrder
	Info    erp.SaleOrderInfo
	LineIDs []int
}

type PriceKey struct {
	PricelistID int
	ProductID   int
	MinQty      string
}

type Fake struct {
	mu   sync.Mutex
	next int

	Partners   map[int]*erp.Partner
	Products   map[int]*erp.Product
	Orders     map[int]*Order
	Taxes      map[int]*erp.Tax
	Companies  map[int]string
	Pricelists map[string]int
	Prices     map[PriceKey]decimal.Decimal
	Carriers   map[string]int
	Invoices   map[int]*erp.Invoice
	Pickings   map[int]*erp.Picking

	// StockLocations maps warehouse ids to their stock location.
	StockLocations map[int]int
	// Quantities are per product and warehouse.
	Quantities map[int]map[int]decimal.Decimal
	Moved      []int
	Inventory  map[int][]erp.InventoryLine
	Applied    map[int]bool

	Payments []int
	Reversed []string

	// ValidateErr makes ValidatePickings fail.
	ValidateErr error
}

func New() *Fake {
	return &Fake{
		next:           100,
		Partners:       map[int]*erp.Partner{},
		Products:       map[int]*erp.Product{},
		Orders:         map[int]*Order{},
		Taxes:          map[int]*erp.Tax{},
		Companies:      map[int]string{1: "My Company"},
		Pricelists:     map[string]int{},
		Prices:         map[PriceKey]decimal.Decimal{},
		Carriers:       map[string]int{},
		Invoices:       map[int]*erp.Invoice{},
		Pickings:       map[int]*erp.Picking{},
		StockLocations: map[int]int{},
		Quantities:     map[int]map[int]decimal.Decimal{},
		Inventory:      map[int][]erp.InventoryLine{},
		Applied:        map[int]bool{},
	}
}

var _ erp.ERP = (*Fake)(nil)

func (f *Fake) id() int {
	f.next++
	return f.next
}

// AddProduct registers a product and returns its id.
func (f *Fake) AddProduct(p erp.Product) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		p.ID = f.id()
	}
	if p.TemplateID == 0 {
		p.TemplateID = f.id()
	}
	if p.Type == "" {
		p.Type = erp.PRODUCT_STORABLE
	}
	f.Products[p.ID] = &p
	return p.ID
}

// SetQuantity sets the stock of a product in a warehouse.
func (f *Fake) SetQuantity(productID, warehouseID int, qty decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Quantities[productID] == nil {
		f.Quantities[productID] = map[int]decimal.Decimal{}
	}
	f.Quantities[productID][warehouseID] = qty
}

func (f *Fake) FindPartnerByEmail(ctx context.Context, email string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email == "" {
		return 0, nil
	}
	for _, id := range f.sortedPartnerIDs() {
		p := f.Partners[id]
		if p.ParentID == 0 && strings.EqualFold(p.Email, email) {
			return id, nil
		}
	}
	return 0, nil
}

func (f *Fake) sortedPartnerIDs() []int {
	ids := make([]int, 0, len(f.Partners))
	for id := range f.Partners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (f *Fake) CreatePartner(ctx context.Context, p *erp.Partner) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	c.ID = f.id()
	if c.Type == "" {
		c.Type = erp.PARTNER_CONTACT
	}
	f.Partners[c.ID] = &c
	return c.ID, nil
}

func (f *Fake) FindOrCreateAddress(ctx context.Context, p *erp.Partner) (int, error) {
	f.mu.Lock()
	for _, id := range f.sortedPartnerIDs() {
		c := f.Partners[id]
		if c.ParentID == p.ParentID && c.Type == p.Type && strings.EqualFold(c.Name, p.Name) &&
			c.Street == p.Street && c.Street2 == p.Street2 && c.Zip == p.Zip && c.City == p.City {
			f.mu.Unlock()
			return id, nil
		}
	}
	f.mu.Unlock()
	return f.CreatePartner(ctx, p)
}

func (f *Fake) FindProduct(ctx context.Context, field, value string) (*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == "" {
		return nil, nil
	}
	ids := make([]int, 0, len(f.Products))
	for id := range f.Products {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p := f.Products[id]
		switch field {
		case "default_code":
			if p.DefaultCode == value {
				return p, nil
			}
		case "barcode":
			if p.Barcode == value {
				return p, nil
			}
		default:
			return nil, errors.Errorf("unknown product field %s", field)
		}
	}
	return nil, nil
}

func (f *Fake) CreateProduct(ctx context.Context, p *erp.NewProduct) (*erp.Product, error) {
	id := f.AddProduct(erp.Product{
		Name:         p.Name,
		TemplateName: p.Name,
		DefaultCode:  p.DefaultCode,
		Barcode:      p.Barcode,
		Description:  p.Description,
		Type:         p.Type,
		ListPrice:    p.Price,
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Products[id], nil
}

func (f *Fake) ExportableProducts(ctx context.Context) ([]*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*erp.Product
	for _, p := range f.Products {
		if p.DefaultCode != "" {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *Fake) FindSaleOrderByRef(ctx context.Context, companyID int, ref string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.Orders {
		if o.CompanyID == companyID && o.ClientOrderRef == ref {
			return id, nil
		}
	}
	return 0, nil
}

func (f *Fake) CreateSaleOrder(ctx context.Context, so *erp.SaleOrder) (int, []int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if so.PartnerID == 0 {
		return 0, nil, errors.New("partner_id is required")
	}
	o := &Order{SaleOrder: *so}
	o.Info.ID = f.id()
	o.Info.Name = so.Name
	if o.Info.Name == "" {
		o.Info.Name = fmt.Sprintf("S%05d", o.Info.ID)
	}
	o.Info.State = erp.ORDER_DRAFT
	o.Info.WarehouseID = so.WarehouseID
	total := decimal.Zero
	for _, line := range so.Lines {
		if _, ok := f.Products[line.ProductID]; !ok {
			return 0, nil, errors.Errorf("product %d does not exist", line.ProductID)
		}
		o.LineIDs = append(o.LineIDs, f.id())
		total = total.Add(line.Quantity.Mul(line.PriceUnit))
	}
	o.Info.AmountTotal = total
	f.Orders[o.Info.ID] = o
	return o.Info.ID, append([]int(nil), o.LineIDs...), nil
}

func (f *Fake) GetSaleOrder(ctx context.Context, ID int) (*erp.SaleOrderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[ID]
	if !ok {
		return nil, errors.Errorf("sale.order %d not found", ID)
	}
	info := o.Info
	info.PickingIDs = append([]int(nil), o.Info.PickingIDs...)
	info.InvoiceIDs = append([]int(nil), o.Info.InvoiceIDs...)
	return &info, nil
}

// ConfirmSaleOrder creates one customer picking for the storable lines. Like
// Odoo it refuses orders that are no longer quotations.
func (f *Fake) ConfirmSaleOrder(ctx context.Context, ID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[ID]
	if !ok {
		return errors.Errorf("sale.order %d not found", ID)
	}
	if o.Info.State != erp.ORDER_DRAFT && o.Info.State != erp.ORDER_SENT {
		return errors.Errorf("sale.order %d is in state %s and cannot be confirmed", ID, o.Info.State)
	}
	o.Info.State = erp.ORDER_SALE
	picking := &erp.Picking{ID: f.id(), State: "assigned", SaleOrderID: ID, DestUsage: erp.USAGE_CUSTOMER}
	picking.Name = fmt.Sprintf("WH/OUT/%05d", picking.ID)
	for i, line := range o.Lines {
		if p := f.Products[line.ProductID]; p == nil || p.Type == erp.PRODUCT_SERVICE {
			continue
		}
		picking.Moves = append(picking.Moves, erp.Move{ID: f.id(), ProductID: line.ProductID, SaleLineID: o.LineIDs[i], State: "assigned"})
	}
	if len(picking.Moves) > 0 {
		f.Pickings[picking.ID] = picking
		o.Info.PickingIDs = append(o.Info.PickingIDs, picking.ID)
	}
	return nil
}

func (f *Fake) CancelSaleOrder(ctx context.Context, ID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[ID]
	if !ok {
		return errors.Errorf("sale.order %d not found", ID)
	}
	o.Info.State = erp.ORDER_CANCEL
	for _, pid := range o.Info.PickingIDs {
		if p := f.Pickings[pid]; p.State != erp.PICKING_DONE {
			p.State = erp.PICKING_CANCEL
		}
	}
	return nil
}

func (f *Fake) FindOrCreateTax(ctx context.Context, t *erp.Tax) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, tax := range f.Taxes {
		if tax.Name == t.Name && tax.Amount.Equal(t.Amount) && tax.PriceInclude == t.PriceInclude && tax.CompanyID == t.CompanyID {
			return id, nil
		}
	}
	id := f.id()
	c := *t
	f.Taxes[id] = &c
	return id, nil
}

func (f *Fake) CompanyName(ctx context.Context, ID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.Companies[ID]
	if !ok {
		return "", errors.Errorf("res.company %d not found", ID)
	}
	return name, nil
}

func (f *Fake) FindPricelist(ctx context.Context, currency string, companyID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pricelists[currency], nil
}

func (f *Fake) SetFixedPrice(ctx context.Context, pricelistID, productID int, minQty, price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prices[PriceKey{PricelistID: pricelistID, ProductID: productID, MinQty: minQty.String()}] = price
	return nil
}

func (f *Fake) FindOrCreateCarrier(ctx context.Context, code, name string, productID, companyID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range []string{strings.ToLower(code), strings.ToLower(name)} {
		if id, ok := f.Carriers[key]; ok {
			return id, nil
		}
	}
	id := f.id()
	f.Carriers[strings.ToLower(name)] = id
	return id, nil
}

func (f *Fake) CreateInvoices(ctx context.Context, orderID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[orderID]
	if !ok {
		return nil, errors.Errorf("sale.order %d not found", orderID)
	}
	if o.Info.State != erp.ORDER_SALE && o.Info.State != erp.ORDER_DONE {
		return nil, errors.New("order is not confirmed")
	}
	inv := &erp.Invoice{ID: f.id(), State: "draft", MoveType: erp.MOVE_INVOICE, PaymentState: "not_paid", AmountTotal: o.Info.AmountTotal}
	f.Invoices[inv.ID] = inv
	o.Info.InvoiceIDs = append(o.Info.InvoiceIDs, inv.ID)
	return []int{inv.ID}, nil
}

func (f *Fake) PostInvoices(ctx context.Context, IDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range IDs {
		if inv, ok := f.Invoices[id]; ok {
			inv.State = erp.MOVE_POSTED
		}
	}
	return nil
}

func (f *Fake) RegisterPayment(ctx context.Context, invoiceIDs []int, journalID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range invoiceIDs {
		inv, ok := f.Invoices[id]
		if !ok || inv.State != erp.MOVE_POSTED {
			return errors.Errorf("invoice %d is not posted", id)
		}
		inv.PaymentState = "paid"
		f.Payments = append(f.Payments, id)
	}
	return nil
}

func (f *Fake) GetInvoices(ctx context.Context, IDs []int) ([]*erp.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*erp.Invoice
	for _, id := range IDs {
		if inv, ok := f.Invoices[id]; ok {
			c := *inv
			result = append(result, &c)
		}
	}
	return result, nil
}

// ReverseInvoices adds a posted credit note to every order owning a reversed invoice.
func (f *Fake) ReverseInvoices(ctx context.Context, IDs []int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reversed = append(f.Reversed, reason)
	for _, id := range IDs {
		inv, ok := f.Invoices[id]
		if !ok {
			return errors.Errorf("invoice %d not found", id)
		}
		refund := &erp.Invoice{ID: f.id(), State: erp.MOVE_POSTED, MoveType: erp.MOVE_REFUND, PaymentState: "not_paid", AmountTotal: inv.AmountTotal}
		f.Invoices[refund.ID] = refund
		for _, o := range f.Orders {
			for _, invID := range o.Info.InvoiceIDs {
				if invID == id {
					o.Info.InvoiceIDs = append(o.Info.InvoiceIDs, refund.ID)
					break
				}
			}
		}
	}
	return nil
}

func (f *Fake) GetPickings(ctx context.Context, IDs []int) ([]*erp.Picking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*erp.Picking
	for _, id := range IDs {
		if p, ok := f.Pickings[id]; ok {
			c := *p
			c.Moves = append([]erp.Move(nil), p.Moves...)
			result = append(result, &c)
		}
	}
	return result, nil
}

func (f *Fake) DoneCustomerPickings(ctx context.Context, saleOrderIDs []int) ([]*erp.Picking, error) {
	f.mu.Lock()
	wanted := map[int]bool{}
	for _, id := range saleOrderIDs {
		wanted[id] = true
	}
	var IDs []int
	for id, p := range f.Pickings {
		if wanted[p.SaleOrderID] && p.State == erp.PICKING_DONE && p.DestUsage == erp.USAGE_CUSTOMER {
			IDs = append(IDs, id)
		}
	}
	f.mu.Unlock()
	sort.Ints(IDs)
	return f.GetPickings(ctx, IDs)
}

// ValidatePickings marks the pickings done with the ordered quantities.
func (f *Fake) ValidatePickings(ctx context.Context, IDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ValidateErr != nil {
		return f.ValidateErr
	}
	for _, id := range IDs {
		p, ok := f.Pickings[id]
		if !ok || p.State == erp.PICKING_DONE || p.State == erp.PICKING_CANCEL {
			continue
		}
		o := f.Orders[p.SaleOrderID]
		for i := range p.Moves {
			p.Moves[i].State = erp.PICKING_DONE
			if o == nil {
				continue
			}
			for j, lineID := range o.LineIDs {
				if lineID == p.Moves[i].SaleLineID {
					p.Moves[i].Quantity = o.Lines[j].Quantity
				}
			}
		}
		p.State = erp.PICKING_DONE
	}
	return nil
}

// DeliverOrder validates every open picking of an order as a warehouse user would.
func (f *Fake) DeliverOrder(orderID int, trackingRef string) {
	f.mu.Lock()
	o := f.Orders[orderID]
	IDs := append([]int(nil), o.Info.PickingIDs...)
	for _, id := range IDs {
		f.Pickings[id].TrackingRef = trackingRef
	}
	f.mu.Unlock()
	_ = f.ValidatePickings(context.Background(), IDs)
}

func (f *Fake) ProductsMovedSince(ctx context.Context, since time.Time) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Moved...), nil
}

func (f *Fake) ProductQuantities(ctx context.Context, productIDs, warehouseIDs []int, field string) (map[int]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := map[int]decimal.Decimal{}
	for _, productID := range productIDs {
		total := decimal.Zero
		for _, warehouseID := range warehouseIDs {
			total = total.Add(f.Quantities[productID][warehouseID])
		}
		result[productID] = total
	}
	return result, nil
}

func (f *Fake) WarehouseStockLocation(ctx context.Context, warehouseID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.StockLocations[warehouseID]
	if !ok {
		return 0, errors.Errorf("warehouse %d has no stock location", warehouseID)
	}
	return id, nil
}

func (f *Fake) ApplyInventory(ctx context.Context, locationID int, lines []erp.InventoryLine, validate bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inventory[locationID] = append(f.Inventory[locationID], lines...)
	if validate {
		f.Applied[locationID] = true
	}
	return nil
}
