package erp

import (
	"context"

	"ShopifyWithOdoo/internal/odooapi"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func (o *Odoo) FindSaleOrderByRef(ctx context.Context, companyID int, ref string) (int, error) {
	id, err := o.client.SearchFirstId(ctx, "sale.order", []any{
		[]any{"client_order_ref", "=", ref},
		[]any{"company_id", "=", companyID},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to search sale.order by ref %s", ref)
	}
	return id, nil
}

func saleOrderValues(so *SaleOrder) map[string]any {
	values := map[string]any{
		"company_id":          so.CompanyID,
		"partner_id":          so.PartnerID,
		"partner_invoice_id":  so.PartnerInvoiceID,
		"partner_shipping_id": so.PartnerShippingID,
		"warehouse_id":        so.WarehouseID,
		"date_order":          odooapi.FormatTime(so.DateOrder),
		"client_order_ref":    so.ClientOrderRef,
		"note":                so.Note,
		"picking_policy":      so.PickingPolicy,
	}
	if so.Name != "" {
		values["name"] = so.Name
	}
	if so.PricelistID != 0 {
		values["pricelist_id"] = so.PricelistID
	}
	if so.TeamID != 0 {
		values["team_id"] = so.TeamID
	}
	if so.CarrierID != 0 {
		values["carrier_id"] = so.CarrierID
	}
	if so.PickingPolicy == "" {
		values["picking_policy"] = "direct"
	}

	lines := make([]any, 0, len(so.Lines))
	for i, line := range so.Lines {
		lineValues := map[string]any{
			"sequence":        10 + i,
			"product_id":      line.ProductID,
			"name":            line.Name,
			"product_uom_qty": line.Quantity.InexactFloat64(),
			"price_unit":      line.PriceUnit.InexactFloat64(),
		}
		if line.TaxIDs != nil {
			lineValues["tax_id"] = []any{odooapi.Command.Set(line.TaxIDs)}
		}
		if line.IsDelivery {
			lineValues["is_delivery"] = true
		}
		lines = append(lines, odooapi.Command.Create(lineValues))
	}
	values["order_line"] = lines
	return values
}

// CreateSaleOrder returns the order id and the line ids in the order of so.Lines.
func (o *Odoo) CreateSaleOrder(ctx context.Context, so *SaleOrder) (int, []int, error) {
	logger := logging.GetLogger()
	id, err := o.client.Create(ctx, "sale.order", saleOrderValues(so), nil)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "failed to create sale.order %s", so.ClientOrderRef)
	}
	logger.Debugf("Sale order %s created, id=%d", so.ClientOrderRef, id)

	var lines []struct {
		ID int `json:"id"`
	}
	err = o.client.SearchReadInto(ctx, "sale.order.line", []any{[]any{"order_id", "=", id}}, []string{"id"}, 0, "sequence,id", &lines)
	if err != nil {
		return id, nil, errors.Wrap(err, "failed to read sale.order.line")
	}
	if len(lines) != len(so.Lines) {
		return id, nil, errors.Errorf("sale order %d has %d lines, %d sent", id, len(lines), len(so.Lines))
	}
	lineIDs := make([]int, len(lines))
	for i, l := range lines {
		lineIDs[i] = l.ID
	}
	return id, lineIDs, nil
}

type saleOrderRecord struct {
	ID          int              `json:"id"`
	Name        odooapi.String   `json:"name"`
	State       odooapi.String   `json:"state"`
	AmountTotal odooapi.Decimal  `json:"amount_total"`
	WarehouseID odooapi.Many2One `json:"warehouse_id"`
	PickingIDs  []int            `json:"picking_ids"`
	InvoiceIDs  []int            `json:"invoice_ids"`
}

func (o *Odoo) GetSaleOrder(ctx context.Context, ID int) (*SaleOrderInfo, error) {
	var records []saleOrderRecord
	err := o.client.Read(ctx, "sale.order", []int{ID},
		[]string{"name", "state", "amount_total", "warehouse_id", "picking_ids", "invoice_ids"}, &records)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sale.order %d", ID)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("sale.order %d not found", ID)
	}
	r := records[0]
	return &SaleOrderInfo{
		ID:          r.ID,
		Name:        string(r.Name),
		State:       string(r.State),
		AmountTotal: r.AmountTotal.Decimal,
		WarehouseID: r.WarehouseID.ID,
		PickingIDs:  r.PickingIDs,
		InvoiceIDs:  r.InvoiceIDs,
	}, nil
}

func (o *Odoo) ConfirmSaleOrder(ctx context.Context, ID int) error {
	return o.client.Call(ctx, "sale.order", "action_confirm", []any{[]int{ID}}, nil, nil)
}

func (o *Odoo) CancelSaleOrder(ctx context.Context, ID int) error {
	return o.client.Call(ctx, "sale.order", "action_cancel", []any{[]int{ID}},
		map[string]any{"context": map[string]any{"disable_cancel_warning": true}}, nil)
}

func (o *Odoo) FindOrCreateTax(ctx context.Context, t *Tax) (int, error) {
	amount := t.Amount.InexactFloat64()
	id, created, err := o.client.FindFirstOrCreate(ctx, "account.tax", []any{
		[]any{"name", "=", t.Name},
		[]any{"amount", "=", amount},
		[]any{"price_include", "=", t.PriceInclude},
		[]any{"type_tax_use", "=", "sale"},
		[]any{"company_id", "=", t.CompanyID},
	}, map[string]any{
		"name":          t.Name,
		"description":   t.Name,
		"amount":        amount,
		"amount_type":   "percent",
		"price_include": t.PriceInclude,
		"type_tax_use":  "sale",
		"company_id":    t.CompanyID,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed in FindOrCreateTax %s", t.Name)
	}
	if created {
		logging.GetLogger().Infof("Tax %s created, id=%d", t.Name, id)
	}
	return id, nil
}

func (o *Odoo) CompanyName(ctx context.Context, ID int) (string, error) {
	var records []struct {
		ID   int            `json:"id"`
		Name odooapi.String `json:"name"`
	}
	if err := o.client.Read(ctx, "res.company", []int{ID}, []string{"name"}, &records); err != nil {
		return "", errors.Wrapf(err, "failed to read res.company %d", ID)
	}
	if len(records) == 0 {
		return "", errors.Errorf("res.company %d not found", ID)
	}
	return string(records[0].Name), nil
}

func (o *Odoo) FindPricelist(ctx context.Context, currency string, companyID int) (int, error) {
	id, err := o.client.SearchFirstId(ctx, "product.pricelist", []any{
		[]any{"currency_id.name", "=", currency},
		[]any{"company_id", "in", []any{companyID, false}},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to search pricelist for %s", currency)
	}
	return id, nil
}

// SetFixedPrice creates or updates the fixed price rule of a variant.
func (o *Odoo) SetFixedPrice(ctx context.Context, pricelistID, productID int, minQty, price decimal.Decimal) error {
	domain := []any{
		[]any{"pricelist_id", "=", pricelistID},
		[]any{"product_id", "=", productID},
		[]any{"min_quantity", "=", minQty.InexactFloat64()},
		[]any{"applied_on", "=", "0_product_variant"},
	}
	id, err := o.client.SearchFirstId(ctx, "product.pricelist.item", domain)
	if err != nil {
		return errors.Wrap(err, "failed to search product.pricelist.item")
	}
	if id != 0 {
		return o.client.Write(ctx, "product.pricelist.item", id, map[string]any{"fixed_price": price.InexactFloat64()})
	}
	_, err = o.client.Create(ctx, "product.pricelist.item", map[string]any{
		"pricelist_id":  pricelistID,
		"product_id":    productID,
		"min_quantity":  minQty.InexactFloat64(),
		"applied_on":    "0_product_variant",
		"compute_price": "fixed",
		"fixed_price":   price.InexactFloat64(),
	}, nil)
	return err
}

func (o *Odoo) FindOrCreateCarrier(ctx context.Context, code, name string, productID, companyID int) (int, error) {
	domain := []any{[]any{"name", "=ilike", name}}
	if code != "" && code != name {
		domain = []any{"|", []any{"name", "=ilike", code}, []any{"name", "=ilike", name}}
	}
	id, _, err := o.client.FindFirstOrCreate(ctx, "delivery.carrier", domain, map[string]any{
		"name":          name,
		"product_id":    productID,
		"delivery_type": "fixed",
		"company_id":    companyID,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed in FindOrCreateCarrier %s", name)
	}
	return id, nil
}

func activeContext(model string, IDs []int) map[string]any {
	c := map[string]any{"active_model": model, "active_ids": IDs}
	if len(IDs) > 0 {
		c["active_id"] = IDs[0]
	}
	return c
}

// CreateInvoices invoices the delivered quantities and returns the new invoice ids.
func (o *Odoo) CreateInvoices(ctx context.Context, orderID int) ([]int, error) {
	before, err := o.GetSaleOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	kwargs := map[string]any{"context": activeContext("sale.order", []int{orderID})}
	wizardID, err := o.client.Create(ctx, "sale.advance.payment.inv", map[string]any{"advance_payment_method": "delivered"}, kwargs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sale.advance.payment.inv")
	}
	if err := o.client.Call(ctx, "sale.advance.payment.inv", "create_invoices", []any{[]int{wizardID}}, kwargs, nil); err != nil {
		return nil, err
	}
	after, err := o.GetSaleOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	known := make(map[int]bool, len(before.InvoiceIDs))
	for _, id := range before.InvoiceIDs {
		known[id] = true
	}
	var created []int
	for _, id := range after.InvoiceIDs {
		if !known[id] {
			created = append(created, id)
		}
	}
	return created, nil
}

func (o *Odoo) PostInvoices(ctx context.Context, IDs []int) error {
	if len(IDs) == 0 {
		return nil
	}
	return o.client.Call(ctx, "account.move", "action_post", []any{IDs}, nil, nil)
}

func (o *Odoo) RegisterPayment(ctx context.Context, invoiceIDs []int, journalID int) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	kwargs := map[string]any{"context": activeContext("account.move", invoiceIDs)}
	values := map[string]any{}
	if journalID != 0 {
		values["journal_id"] = journalID
	}
	wizardID, err := o.client.Create(ctx, "account.payment.register", values, kwargs)
	if err != nil {
		return errors.Wrap(err, "failed to create account.payment.register")
	}
	return o.client.Call(ctx, "account.payment.register", "action_create_payments", []any{[]int{wizardID}}, kwargs, nil)
}

type invoiceRecord struct {
	ID           int             `json:"id"`
	State        odooapi.String  `json:"state"`
	MoveType     odooapi.String  `json:"move_type"`
	PaymentState odooapi.String  `json:"payment_state"`
	AmountTotal  odooapi.Decimal `json:"amount_total"`
}

func (o *Odoo) GetInvoices(ctx context.Context, IDs []int) ([]*Invoice, error) {
	if len(IDs) == 0 {
		return nil, nil
	}
	var records []invoiceRecord
	if err := o.client.Read(ctx, "account.move", IDs, []string{"state", "move_type", "payment_state", "amount_total"}, &records); err != nil {
		return nil, errors.Wrap(err, "failed to read account.move")
	}
	invoices := make([]*Invoice, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, &Invoice{
			ID:           r.ID,
			State:        string(r.State),
			MoveType:     string(r.MoveType),
			PaymentState: string(r.PaymentState),
			AmountTotal:  r.AmountTotal.Decimal,
		})
	}
	return invoices, nil
}

// ReverseInvoices creates credit notes for the posted invoices.
func (o *Odoo) ReverseInvoices(ctx context.Context, IDs []int, reason string) error {
	if len(IDs) == 0 {
		return nil
	}
	kwargs := map[string]any{"context": activeContext("account.move", IDs)}
	wizardID, err := o.client.Create(ctx, "account.move.reversal", map[string]any{
		"move_ids": []any{odooapi.Command.Set(IDs)},
		"reason":   reason,
	}, kwargs)
	if err != nil {
		return errors.Wrap(err, "failed to create account.move.reversal")
	}
	return o.client.Call(ctx, "account.move.reversal", "reverse_moves", []any{[]int{wizardID}}, kwargs, nil)
}
