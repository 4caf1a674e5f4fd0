package order

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/sync/customer"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const RISK_ACCEPT = "accept"

// saleLine is an ERP order line and the link stored for it.
type saleLine struct {
	erp.SaleOrderLine
	link mapping.OrderLine
}

// CreateSaleOrder creates the ERP sale order of a Shopify order and stores
// the order and line links.
func CreateSaleOrder(ctx context.Context, c *connector.Connector, o *models.Order) (*mapping.Order, error) {
	logger := logging.GetLogger()

	workflow, ok := c.Config.Workflow(c.Name, o.PaymentGateway(), o.FinancialStatus)
	if !ok {
		return nil, &BusinessError{Message: fmt.Sprintf(MSG_NO_WORKFLOW, o.Name, fmt.Sprint(o.ID))}
	}

	partnerID, invoiceID, shippingID, err := partners(ctx, c, o)
	if err != nil {
		return nil, err
	}

	so := &erp.SaleOrder{
		Name:              orderName(c.Instance, o),
		CompanyID:         c.Instance.CompanyID,
		PartnerID:         partnerID,
		PartnerInvoiceID:  invoiceID,
		PartnerShippingID: shippingID,
		WarehouseID:       c.Instance.WarehouseID,
		PricelistID:       c.Instance.PricelistID,
		TeamID:            c.Instance.SalesTeamID,
		DateOrder:         o.CreatedAt.UTC(),
		ClientOrderRef:    o.Name,
		Note:              o.Note,
		PickingPolicy:     workflow.PickingPolicy,
	}
	if o.LocationID != 0 {
		if warehouseID := c.WarehouseOfLocation(o.LocationID); warehouseID != 0 {
			so.WarehouseID = warehouseID
		}
	}
	if o.Currency != "" {
		pricelistID, err := c.ERP.FindPricelist(ctx, o.Currency, c.Instance.CompanyID)
		if err != nil {
			return nil, errors.Wrap(err, "failed in FindPricelist")
		}
		if pricelistID != 0 {
			so.PricelistID = pricelistID
		}
	}

	lines, carrierID, err := saleLines(ctx, c, o)
	if err != nil {
		return nil, err
	}
	so.CarrierID = carrierID
	for _, l := range lines {
		so.Lines = append(so.Lines, l.SaleOrderLine)
	}

	saleOrderID, lineIDs, err := c.ERP.CreateSaleOrder(ctx, so)
	if err != nil {
		return nil, errors.Wrapf(err, "failed in CreateSaleOrder %s", o.Name)
	}
	logger.Infof("Order %s created as sale order %d", o.Name, saleOrderID)

	risky, err := isRisky(ctx, c, o)
	if err != nil {
		logger.Errorf("failed to read risks of order %s: %v", o.Name, err)
	}

	m := &mapping.Order{
		Instance:          c.Name,
		ShopifyOrderID:    o.ID,
		OrderNumber:       fmt.Sprint(o.OrderNumber),
		Name:              o.Name,
		SaleOrderID:       saleOrderID,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		IsRisky:           risky,
		IsPOS:             o.IsPOS(),
	}
	if o.LocationID != 0 {
		m.LocationID = sql.NullInt64{Int64: o.LocationID, Valid: true}
	}
	if err := m.Save(c.DB); err != nil {
		return nil, err
	}
	links := make([]*mapping.OrderLine, 0, len(lines))
	for i := range lines {
		if i < len(lineIDs) {
			lines[i].link.SaleOrderLineID = lineIDs[i]
		}
		links = append(links, &lines[i].link)
	}
	if err := m.SaveLines(c.DB, links); err != nil {
		return nil, err
	}
	return m, nil
}

func orderName(instance *config.Instance, o *models.Order) string {
	if instance.UseDefaultSequence {
		return ""
	}
	if instance.OrderPrefix != "" {
		return fmt.Sprintf("%s_%s", instance.OrderPrefix, o.Name)
	}
	return o.Name
}

// partners returns the contact, invoice and delivery partners of an order.
func partners(ctx context.Context, c *connector.Connector, o *models.Order) (int, int, int, error) {
	if o.IsPOS() && o.Customer == nil {
		id := c.Instance.DefaultPOSCustomerID
		return id, id, id, nil
	}

	var partnerID int
	var err error
	if o.Customer != nil {
		cust := *o.Customer
		if cust.Email == "" {
			cust.Email = o.Email
		}
		partnerID, err = customer.SyncCustomer(ctx, c, &cust)
	} else {
		partnerID, err = partnerFromAddress(ctx, c, o)
	}
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "failed in SyncCustomer")
	}
	if o.IsPOS() {
		return partnerID, partnerID, partnerID, nil
	}

	var invoiceID, shippingID int
	if o.BillingAddress != nil {
		if invoiceID, err = customer.Address(ctx, c, partnerID, erp.PARTNER_INVOICE, o.BillingAddress); err != nil {
			return 0, 0, 0, err
		}
	}
	if o.ShippingAddress != nil {
		if shippingID, err = customer.Address(ctx, c, partnerID, erp.PARTNER_DELIVERY, o.ShippingAddress); err != nil {
			return 0, 0, 0, err
		}
	}
	switch {
	case invoiceID == 0 && shippingID == 0:
		invoiceID, shippingID = partnerID, partnerID
	case invoiceID == 0:
		invoiceID = shippingID
	case shippingID == 0:
		shippingID = invoiceID
	}
	return partnerID, invoiceID, shippingID, nil
}

// partnerFromAddress finds or creates the contact of an order placed without a customer.
func partnerFromAddress(ctx context.Context, c *connector.Connector, o *models.Order) (int, error) {
	id, err := c.ERP.FindPartnerByEmail(ctx, o.Email)
	if err != nil || id != 0 {
		return id, err
	}
	a := o.BillingAddress
	if a == nil {
		a = o.ShippingAddress
	}
	p := &erp.Partner{Name: a.FullName(), Email: o.Email, Phone: o.Phone}
	if p.Name == "" {
		p.Name = o.Email
	}
	if p.Name == "" {
		p.Name = a.Company
	}
	return c.ERP.CreatePartner(ctx, p)
}

// saleLines builds product, discount and shipping lines. It returns the
// carrier of the first shipping line.
func saleLines(ctx context.Context, c *connector.Connector, o *models.Order) ([]saleLine, int, error) {
	var lines []saleLine
	createTax := c.Instance.ApplyTaxInOrder == config.TAX_CREATE_SHOPIFY

	for _, li := range o.LineItems {
		line := saleLine{
			SaleOrderLine: erp.SaleOrderLine{
				Name:      li.Name,
				Quantity:  decimal.NewFromInt(int64(li.Quantity)),
				PriceUnit: li.Price,
			},
			link: mapping.OrderLine{
				ShopifyLineID: sql.NullInt64{Int64: li.ID, Valid: li.ID != 0},
				IsGiftCard:    li.GiftCard,
			},
		}
		if line.Name == "" {
			line.Name = li.Title
		}
		switch {
		case li.GiftCard:
			line.ProductID = c.Instance.GiftCardProductID
			line.link.IsService = true
		case li.ProductID == 0:
			line.custom(c, &li)
		default:
			v, err := findVariant(c, &li)
			if err != nil {
				return nil, 0, err
			}
			if v == nil || v.ErpProductID == 0 {
				return nil, 0, &BusinessError{Message: fmt.Sprintf(MSG_PRODUCT_MISMATCH, li.SKU, li.Title, o.Name)}
			}
			line.ProductID = v.ErpProductID
		}
		if createTax {
			var err error
			taxLines := li.TaxLines
			if len(taxLines) == 0 && li.Taxable {
				taxLines = o.TaxLines
			}
			if !li.Taxable {
				taxLines = nil
			}
			if line.TaxIDs, err = taxes(ctx, c, taxLines, o.TaxesIncluded); err != nil {
				return nil, 0, err
			}
		}
		lines = append(lines, line)

		if discount := models.DiscountTotal(li.DiscountAllocations); o.TotalDiscounts.IsPositive() && discount.IsPositive() {
			d, err := discountLine(c, o, li.Title, discount, line.TaxIDs)
			if err != nil {
				return nil, 0, err
			}
			lines = append(lines, d)
		}
	}

	var carrierID int
	for _, sl := range o.ShippingLines {
		if c.Instance.ShippingProductID == 0 {
			return nil, 0, &BusinessError{Message: fmt.Sprintf(MSG_NO_SHIPPING_PRODUCT, c.Name, o.Name)}
		}
		if carrierID == 0 {
			id, err := c.ERP.FindOrCreateCarrier(ctx, sl.Code, sl.Title, c.Instance.ShippingProductID, c.Instance.CompanyID)
			if err != nil {
				return nil, 0, errors.Wrap(err, "failed in FindOrCreateCarrier")
			}
			carrierID = id
		}
		line := saleLine{
			SaleOrderLine: erp.SaleOrderLine{
				ProductID:  c.Instance.ShippingProductID,
				Name:       sl.Title,
				Quantity:   decimal.NewFromInt(1),
				PriceUnit:  sl.Price,
				IsDelivery: true,
			},
			link: mapping.OrderLine{IsDelivery: true, IsService: true},
		}
		switch {
		case createTax:
			var err error
			if line.TaxIDs, err = taxes(ctx, c, sl.TaxLines, o.TaxesIncluded); err != nil {
				return nil, 0, err
			}
		case len(sl.TaxLines) == 0:
			line.TaxIDs = []int{}
		}
		lines = append(lines, line)

		if discount := models.DiscountTotal(sl.DiscountAllocations); discount.IsPositive() {
			d, err := discountLine(c, o, sl.Title, discount, line.TaxIDs)
			if err != nil {
				return nil, 0, err
			}
			lines = append(lines, d)
		}
	}
	return lines, carrierID, nil
}

// custom fills the product of a custom line, one without a Shopify product.
func (l *saleLine) custom(c *connector.Connector, li *models.LineItem) {
	l.ProductID = customProduct(c, li)
	l.link.IsService = !li.RequiresShipping
}

func discountLine(c *connector.Connector, o *models.Order, title string, amount decimal.Decimal, taxIDs []int) (saleLine, error) {
	if c.Instance.DiscountProductID == 0 {
		return saleLine{}, &BusinessError{Message: fmt.Sprintf(MSG_NO_DISCOUNT_PRODUCT, c.Name, o.Name)}
	}
	if taxIDs == nil && c.Instance.ApplyTaxInOrder == config.TAX_CREATE_SHOPIFY {
		taxIDs = []int{}
	}
	return saleLine{
		SaleOrderLine: erp.SaleOrderLine{
			ProductID: c.Instance.DiscountProductID,
			Name:      "Discount for " + title,
			Quantity:  decimal.NewFromInt(1),
			PriceUnit: amount.Neg(),
			TaxIDs:    taxIDs,
		},
		link: mapping.OrderLine{IsService: true},
	}, nil
}

// TaxName is the ERP name of a Shopify tax line, e.g. "VAT_(20.0 % excluded)_My Company".
func TaxName(t models.TaxLine, included bool, company string) string {
	kind := "excluded"
	if included {
		kind = "included"
	}
	rate := t.Rate.Mul(decimal.NewFromInt(100)).String()
	if !strings.Contains(rate, ".") {
		rate += ".0"
	}
	return fmt.Sprintf("%s_(%s %% %s)_%s", t.Title, rate, kind, company)
}

// taxes maps tax lines to ERP taxes; no tax lines means no taxes.
func taxes(ctx context.Context, c *connector.Connector, taxLines []models.TaxLine, included bool) ([]int, error) {
	ids := []int{}
	if len(taxLines) == 0 {
		return ids, nil
	}
	company, err := c.ERP.CompanyName(ctx, c.Instance.CompanyID)
	if err != nil {
		return nil, errors.Wrap(err, "failed in CompanyName")
	}
	for _, t := range taxLines {
		id, err := c.ERP.FindOrCreateTax(ctx, &erp.Tax{
			Name:         TaxName(t, included, company),
			Amount:       t.Rate.Mul(decimal.NewFromInt(100)),
			PriceInclude: included,
			CompanyID:    c.Instance.CompanyID,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed in FindOrCreateTax %s", t.Title)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func isRisky(ctx context.Context, c *connector.Connector, o *models.Order) (bool, error) {
	risks, err := c.Shopify.OrderRisks(ctx, o.ID)
	if err != nil {
		return false, errors.Wrap(err, "failed in OrderRisks")
	}
	for _, r := range risks {
		if r.Recommendation != RISK_ACCEPT {
			return true, nil
		}
	}
	return false, nil
}

// ProcessWorkflow confirms, delivers, invoices and pays the sale order as the
// workflow of the order's gateway says. Risky orders stay in draft.
func ProcessWorkflow(ctx context.Context, c *connector.Connector, o *models.Order, m *mapping.Order) error {
	logger := logging.GetLogger()

	if m.IsRisky {
		logger.Infof("Order %s is risky, sale order %d left in draft", o.Name, m.SaleOrderID)
		return nil
	}
	workflow, ok := c.Config.Workflow(c.Name, o.PaymentGateway(), o.FinancialStatus)
	if !ok {
		return nil
	}

	if o.FulfillmentStatus == models.FULFILLMENT_STATUS_FULFILLED {
		if err := DeliverSaleOrder(ctx, c, m.SaleOrderID); err != nil {
			return err
		}
	} else if workflow.ValidateOrder {
		info, err := c.ERP.GetSaleOrder(ctx, m.SaleOrderID)
		if err != nil {
			return errors.Wrap(err, "failed in GetSaleOrder")
		}
		if err := confirmQuotation(ctx, c, info); err != nil {
			return err
		}
	}

	if !workflow.CreateInvoice {
		return nil
	}
	invoiceIDs, err := c.ERP.CreateInvoices(ctx, m.SaleOrderID)
	if err != nil {
		return errors.Wrap(err, "failed in CreateInvoices")
	}
	if len(invoiceIDs) == 0 {
		return nil
	}
	if err := c.ERP.PostInvoices(ctx, invoiceIDs); err != nil {
		return errors.Wrap(err, "failed in PostInvoices")
	}
	if workflow.RegisterPayment {
		if err := c.ERP.RegisterPayment(ctx, invoiceIDs, workflow.JournalID); err != nil {
			return errors.Wrap(err, "failed in RegisterPayment")
		}
	}
	return nil
}

// DeliverSaleOrder confirms the sale order and validates its open customer pickings.
func DeliverSaleOrder(ctx context.Context, c *connector.Connector, saleOrderID int) error {
	info, err := c.ERP.GetSaleOrder(ctx, saleOrderID)
	if err != nil {
		return errors.Wrap(err, "failed in GetSaleOrder")
	}
	if info.State == erp.ORDER_DRAFT || info.State == erp.ORDER_SENT {
		if err := confirmQuotation(ctx, c, info); err != nil {
			return err
		}
		// confirmation creates the pickings
		if info, err = c.ERP.GetSaleOrder(ctx, saleOrderID); err != nil {
			return errors.Wrap(err, "failed in GetSaleOrder")
		}
	}
	pickings, err := c.ERP.GetPickings(ctx, info.PickingIDs)
	if err != nil {
		return errors.Wrap(err, "failed in GetPickings")
	}
	var open []int
	for _, p := range pickings {
		if p.DestUsage == erp.USAGE_CUSTOMER && p.State != erp.PICKING_DONE && p.State != erp.PICKING_CANCEL {
			open = append(open, p.ID)
		}
	}
	if len(open) == 0 {
		return nil
	}
	if err := c.ERP.ValidatePickings(ctx, open); err != nil {
		return errors.Wrap(err, "failed in ValidatePickings")
	}
	return nil
}

// confirmQuotation confirms a sale order still in draft or sent. Odoo rejects
// action_confirm on any other state.
func confirmQuotation(ctx context.Context, c *connector.Connector, info *erp.SaleOrderInfo) error {
	if info.State != erp.ORDER_DRAFT && info.State != erp.ORDER_SENT {
		return nil
	}
	if err := c.ERP.ConfirmSaleOrder(ctx, info.ID); err != nil {
		return errors.Wrap(err, "failed in ConfirmSaleOrder")
	}
	return nil
}
