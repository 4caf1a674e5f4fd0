package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ShopifyWithOdoo/internal/connector/connectortest"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// linkedShirt maps Shopify variant 5001 to a new ERP product.
func linkedShirt(t *testing.T, env *connectortest.Env) int {
	productID := env.Odoo.AddProduct(erp.Product{Name: "Shirt S", DefaultCode: "SHIRT-S"})
	v := &mapping.Variant{Instance: "main", ShopifyProductID: 500, ShopifyVariantID: 5001, DefaultCode: "SHIRT-S", ErpProductID: productID, Exported: true}
	require.NoError(t, v.Save(env.DB))
	return productID
}

func newOrder(gateway, financialStatus string) *models.Order {
	address := &models.Address{FirstName: "Jane", LastName: "Roe", Address1: "1 Main St", City: "Springfield", Zip: "12345", CountryCode: "US"}
	return &models.Order{
		ID:              1,
		Name:            "#1001",
		OrderNumber:     1001,
		Email:           "jane@example.com",
		CreatedAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
		Currency:        "USD",
		FinancialStatus: financialStatus,
		Gateway:         gateway,
		Customer:        &models.Customer{ID: 42, Email: "jane@example.com", FirstName: "Jane", LastName: "Roe"},
		BillingAddress:  address,
		ShippingAddress: address,
		LineItems: []models.LineItem{{
			ID: 11, VariantID: 5001, ProductID: 500, Title: "Shirt", Name: "Shirt - S", SKU: "SHIRT-S",
			Quantity: 2, Price: dec("19.90"), Taxable: true, RequiresShipping: true,
			TaxLines: []models.TaxLine{{Title: "VAT", Rate: dec("0.2"), Price: dec("7.96")}},
		}},
		ShippingLines: []models.ShippingLine{{Code: "standard", Title: "Standard", Price: dec("5")}},
	}
}

func logMessages(t *testing.T, env *connectortest.Env) []string {
	var messages []string
	require.NoError(t, env.DB.Select(&messages, "SELECT Message FROM LogLine ORDER BY ID"))
	return messages
}

func saleOrderOf(t *testing.T, env *connectortest.Env, shopifyOrderID int64) *mapping.Order {
	m, err := mapping.FindOrder(env.DB, "main", shopifyOrderID)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestImportOrdersCreatesAndPays(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	shirtID := linkedShirt(t, env)
	env.Fake.AddOrder(newOrder("manual", "paid"))

	require.NoError(t, ImportOrders(ctx, env.Connector, time.Time{}, time.Time{}))

	m := saleOrderOf(t, env, 1)
	Assert.Equal("1001", m.OrderNumber)
	Assert.False(m.IsRisky)
	so := env.Odoo.Orders[m.SaleOrderID]
	require.NotNil(t, so)
	Assert.Equal("Shopify_#1001", so.Name)
	Assert.Equal("#1001", so.ClientOrderRef)
	Assert.Equal(erp.ORDER_SALE, so.Info.State)
	Assert.NotZero(so.CarrierID)
	Assert.NotEqual(so.PartnerID, so.PartnerInvoiceID)
	Assert.Equal(1, so.WarehouseID)

	require.Len(t, so.Lines, 2)
	Assert.Equal(shirtID, so.Lines[0].ProductID)
	Assert.True(dec("2").Equal(so.Lines[0].Quantity))
	require.Len(t, so.Lines[0].TaxIDs, 1)
	Assert.Equal("VAT_(20.0 % excluded)_My Company", env.Odoo.Taxes[so.Lines[0].TaxIDs[0]].Name)
	Assert.True(so.Lines[1].IsDelivery)
	Assert.NotNil(so.Lines[1].TaxIDs)
	Assert.Empty(so.Lines[1].TaxIDs)

	Assert.Len(env.Odoo.Payments, 1)
	Assert.Empty(*env.Sent)
	Assert.Empty(logMessages(t, env))

	links, err := m.Lines(env.DB)
	require.NoError(t, err)
	require.Len(t, links, 2)
	Assert.Equal(int64(11), links[0].ShopifyLineID.Int64)
	Assert.True(links[1].IsDelivery)

	last, err := database.GetDate(env.DB, "main", database.LAST_DATE_ORDER_IMPORT)
	require.NoError(t, err)
	Assert.WithinDuration(time.Now().AddDate(0, 0, -OVERLAP_DAYS), last, time.Minute)

	require.NoError(t, ImportOrders(ctx, env.Connector, time.Time{}, time.Time{}))
	Assert.Len(env.Odoo.Orders, 1)
	Assert.NotEmpty(env.Fake.Queries[len(env.Fake.Queries)-1].Get("updated_at_min"))
}

func TestImportShippedOrders(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	shipped := newOrder("manual", "paid")
	shipped.FulfillmentStatus = models.FULFILLMENT_STATUS_FULFILLED
	env.Fake.AddOrder(shipped)
	other := newOrder("manual", "paid")
	other.ID, other.Name, other.OrderNumber = 2, "#1002", 1002
	env.Fake.AddOrder(other)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	queues, err := ImportShippedOrders(context.Background(), env.Connector, from, to)
	require.NoError(t, err)

	query := env.Fake.Queries[len(env.Fake.Queries)-1]
	Assert.Equal(STATUS_SHIPPED, query.Get("fulfillment_status"))
	Assert.Equal("any", query.Get("status"))
	require.Len(t, queues, 1)
	Assert.Equal(queue.CREATED_BY_IMPORT, queues[0].CreatedBy)
	Assert.Equal(queue.KIND_ORDER, queues[0].Kind)
	lines, err := queues[0].Lines(env.DB)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	Assert.Equal(int64(1), lines[0].RemoteID)
	Assert.Equal(queue.LINE_DRAFT, lines[0].State)
	Assert.Empty(env.Odoo.Orders)

	last, err := database.GetDate(env.DB, "main", database.LAST_SHIPPED_ORDER_IMPORT)
	require.NoError(t, err)
	Assert.True(to.AddDate(0, 0, -OVERLAP_DAYS).Equal(last), "last shipped import %s", last)
	unshipped, err := database.GetDate(env.DB, "main", database.LAST_DATE_ORDER_IMPORT)
	require.NoError(t, err)
	Assert.True(unshipped.IsZero())
}

func TestConcurrentImportsCreateOneSaleOrder(t *testing.T) {
	env := connectortest.New(t)
	linkedShirt(t, env)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ImportOrder(context.Background(), env.Connector, newOrder("manual", "paid"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, env.Odoo.Orders, 1)
	assert.Len(t, env.Odoo.Payments, 1)
}

func TestImportOrderDiscountAndIncludedTax(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	linkedShirt(t, env)
	o := newOrder("manual", "pending")
	o.TaxesIncluded = true
	o.TotalDiscounts = dec("5")
	o.LineItems[0].DiscountAllocations = []models.DiscountAllocation{{Amount: dec("5")}}
	o.ShippingLines[0].TaxLines = []models.TaxLine{{Title: "VAT", Rate: dec("0.2"), Price: dec("0.83")}}

	require.NoError(t, ImportOrder(context.Background(), env.Connector, o))

	so := env.Odoo.Orders[saleOrderOf(t, env, 1).SaleOrderID]
	require.Len(t, so.Lines, 3)
	discount := so.Lines[1]
	Assert.Equal(901, discount.ProductID)
	Assert.Equal("Discount for Shirt", discount.Name)
	Assert.True(dec("-5").Equal(discount.PriceUnit))
	Assert.Equal(so.Lines[0].TaxIDs, discount.TaxIDs)
	Assert.Equal("VAT_(20.0 % included)_My Company", env.Odoo.Taxes[discount.TaxIDs[0]].Name)
	Assert.Equal(so.Lines[0].TaxIDs, so.Lines[2].TaxIDs)
	Assert.Equal(erp.ORDER_SALE, so.Info.State)
	Assert.Empty(env.Odoo.Payments)
}

func TestImportOrderCustomAndGiftCardLines(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	o := newOrder("manual", "paid")
	o.LineItems = []models.LineItem{
		{ID: 21, Title: "Engraving", Quantity: 1, Price: dec("3")},
		{ID: 22, Title: "Frame", Quantity: 1, Price: dec("10"), RequiresShipping: true},
		{ID: 23, Title: "Gift card", Quantity: 1, Price: dec("25"), GiftCard: true},
	}
	o.ShippingLines = nil

	require.NoError(t, ImportOrder(context.Background(), env.Connector, o))

	m := saleOrderOf(t, env, 1)
	so := env.Odoo.Orders[m.SaleOrderID]
	require.Len(t, so.Lines, 3)
	Assert.Equal(904, so.Lines[0].ProductID)
	Assert.Equal(905, so.Lines[1].ProductID)
	Assert.Equal(903, so.Lines[2].ProductID)

	links, err := m.Lines(env.DB)
	require.NoError(t, err)
	Assert.True(links[0].IsService)
	Assert.False(links[1].IsService)
	Assert.True(links[2].IsGiftCard)
}

func TestImportOrderWithoutWorkflowFails(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	linkedShirt(t, env)
	env.Fake.AddOrder(newOrder("stripe", "paid"))

	require.NoError(t, ImportOrders(context.Background(), env.Connector, time.Time{}, time.Time{}))

	Assert.Empty(env.Odoo.Orders)
	Assert.Equal([]string{fmt.Sprintf(MSG_NO_WORKFLOW, "#1001", "1")}, logMessages(t, env))
	require.Len(t, *env.Sent, 1)
	Assert.Contains((*env.Sent)[0], fmt.Sprintf(MSG_FAILED_REFERENCES, "#1001"))
}

func TestImportOrderProductMismatch(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	env.Fake.AddOrder(newOrder("manual", "paid"))

	q, err := ImportOrdersByIDs(context.Background(), env.Connector, "1")
	require.NoError(t, err)

	Assert.Equal(queue.STATE_FAILED, q.State)
	Assert.Empty(env.Odoo.Orders)
	Assert.Contains(logMessages(t, env), fmt.Sprintf(MSG_PRODUCT_MISMATCH, "SHIRT-S", "Shirt", "#1001"))
}

func TestImportOrderSyncsMissingProduct(t *testing.T) {
	env := connectortest.New(t)
	env.Odoo.AddProduct(erp.Product{Name: "Shirt S", DefaultCode: "SHIRT-S"})
	env.Fake.AddProduct(&models.Product{ID: 500, Title: "Shirt", Variants: []models.Variant{
		{ID: 5001, ProductID: 500, Title: "S", SKU: "SHIRT-S", Price: dec("19.90")},
	}})

	require.NoError(t, ImportOrder(context.Background(), env.Connector, newOrder("manual", "paid")))
	saleOrderOf(t, env, 1)
}

func TestImportOrderSkipDate(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	linkedShirt(t, env)
	env.Instance.ImportOrderAfterDate = "2099-01-01"
	env.Fake.AddOrder(newOrder("manual", "paid"))

	q, err := ImportOrdersByIDs(context.Background(), env.Connector, "1")
	require.NoError(t, err)

	Assert.Equal(queue.STATE_COMPLETED, q.State)
	lines, err := q.Lines(env.DB)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	Assert.Equal(queue.LINE_CANCEL, lines[0].State)
	Assert.Equal([]string{fmt.Sprintf(MSG_SKIP_DATE, "#1001", "2099-01-01 00:00:00")}, logMessages(t, env))
}

func TestImportOrdersByIDsLogsMissing(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	linkedShirt(t, env)
	env.Fake.AddOrder(newOrder("manual", "paid"))

	q, err := ImportOrdersByIDs(context.Background(), env.Connector, "1, 2")
	require.NoError(t, err)

	Assert.Equal(queue.STATE_COMPLETED, q.State)
	Assert.True(q.LogBookID.Valid)
	Assert.Equal([]string{fmt.Sprintf(MSG_ORDERS_NOT_FOUND, "2")}, logMessages(t, env))
	lines, err := q.Lines(env.DB)
	require.NoError(t, err)
	Assert.Equal(int64(saleOrderOf(t, env, 1).SaleOrderID), lines[0].ErpID.Int64)
}

func TestRiskyOrderStaysDraft(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	linkedShirt(t, env)
	env.Fake.Risks[1] = []*models.Risk{{Recommendation: "accept"}, {Recommendation: "investigate"}}

	require.NoError(t, ImportOrder(context.Background(), env.Connector, newOrder("manual", "paid")))

	m := saleOrderOf(t, env, 1)
	Assert.True(m.IsRisky)
	Assert.Equal(erp.ORDER_DRAFT, env.Odoo.Orders[m.SaleOrderID].Info.State)
	Assert.Empty(env.Odoo.Payments)
}

func TestImportFulfilledOrderDelivers(t *testing.T) {
	env := connectortest.New(t)
	linkedShirt(t, env)
	o := newOrder("manual", "paid")
	o.FulfillmentStatus = models.FULFILLMENT_STATUS_FULFILLED

	require.NoError(t, ImportOrder(context.Background(), env.Connector, o))

	so := env.Odoo.Orders[saleOrderOf(t, env, 1).SaleOrderID]
	require.Len(t, so.Info.PickingIDs, 1)
	assert.Equal(t, erp.PICKING_DONE, env.Odoo.Pickings[so.Info.PickingIDs[0]].State)
	assert.Len(t, env.Odoo.Payments, 1)
}

func TestDeliverSaleOrderSkipsConfirmedOrder(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	linkedShirt(t, env)
	require.NoError(t, ImportOrder(ctx, env.Connector, newOrder("manual", "pending")))
	m := saleOrderOf(t, env, 1)
	so := env.Odoo.Orders[m.SaleOrderID]
	require.Equal(t, erp.ORDER_SALE, so.Info.State)
	require.Error(t, env.Odoo.ConfirmSaleOrder(ctx, m.SaleOrderID))

	require.NoError(t, DeliverSaleOrder(ctx, env.Connector, m.SaleOrderID))

	require.Len(t, so.Info.PickingIDs, 1)
	Assert.Equal(erp.PICKING_DONE, env.Odoo.Pickings[so.Info.PickingIDs[0]].State)

	o := newOrder("manual", "pending")
	o.FulfillmentStatus = models.FULFILLMENT_STATUS_FULFILLED
	line := processUpdate(t, env, o)
	Assert.Equal(queue.LINE_DONE, line.State)
	Assert.Empty(logMessages(t, env))
}

func TestDeliverSaleOrderConfirmsQuotation(t *testing.T) {
	env := connectortest.New(t)
	ctx := context.Background()
	linkedShirt(t, env)
	env.Fake.Risks[1] = []*models.Risk{{Recommendation: "investigate"}}
	require.NoError(t, ImportOrder(ctx, env.Connector, newOrder("manual", "paid")))
	m := saleOrderOf(t, env, 1)

	require.NoError(t, DeliverSaleOrder(ctx, env.Connector, m.SaleOrderID))

	so := env.Odoo.Orders[m.SaleOrderID]
	assert.Equal(t, erp.ORDER_SALE, so.Info.State)
	require.Len(t, so.Info.PickingIDs, 1)
	assert.Equal(t, erp.PICKING_DONE, env.Odoo.Pickings[so.Info.PickingIDs[0]].State)
}

func TestProcessQueueStoresEachLineWhenHandled(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	linkedShirt(t, env)
	second := newOrder("manual", "paid")
	second.ID, second.Name, second.OrderNumber = 2, "#1002", 1002
	second.Customer, second.BillingAddress, second.ShippingAddress = nil, nil, nil

	q, err := queue.Create(env.DB, "main", queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
	require.NoError(t, err)
	_, err = AddLine(env.Connector, q, newOrder("manual", "paid"))
	require.NoError(t, err)
	_, err = AddLine(env.Connector, q, second)
	require.NoError(t, err)
	// the log line of the second order can no longer be written
	env.DB.MustExec("DROP TABLE LogLine")

	require.Error(t, ProcessQueue(ctx, env.Connector, q))

	lines, err := q.Lines(env.DB)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	Assert.Equal(queue.LINE_DONE, lines[0].State)
	Assert.Equal(int64(saleOrderOf(t, env, 1).SaleOrderID), lines[0].ErpID.Int64)
	Assert.Equal(queue.LINE_FAILED, lines[1].State)
}

// processUpdate runs a webhook update of o through the webhook order queue.
func processUpdate(t *testing.T, env *connectortest.Env, o *models.Order) *queue.Line {
	line, err := QueueOrderUpdate(context.Background(), env.Connector, o)
	require.NoError(t, err)
	q, err := queue.Get(env.DB, line.QueueID)
	require.NoError(t, err)
	require.NoError(t, ProcessQueue(context.Background(), env.Connector, q))
	lines, err := q.Lines(env.DB)
	require.NoError(t, err)
	for _, l := range lines {
		if l.ID == line.ID {
			return l
		}
	}
	t.Fatalf("line %d not found", line.ID)
	return nil
}

func TestUpdateOrder(t *testing.T) {
	cancelled := time.Now()
	refund := func(amount string) []models.Refund {
		return []models.Refund{{Transactions: []models.Transaction{{Kind: "refund", Status: "success", Amount: dec(amount)}}}}
	}

	tests := []struct {
		name      string
		financial string
		deliver   bool
		noStock   bool
		update    func(o *models.Order)
		state     string
		message   string
		check     func(t *testing.T, env *connectortest.Env, m *mapping.Order)
	}{
		{
			name:      "cancel",
			financial: "pending",
			update: func(o *models.Order) {
				o.CancelReason = "customer"
				o.CancelledAt = &cancelled
			},
			state: queue.LINE_DONE,
			check: func(t *testing.T, env *connectortest.Env, m *mapping.Order) {
				assert.Equal(t, erp.ORDER_CANCEL, env.Odoo.Orders[m.SaleOrderID].Info.State)
				assert.True(t, m.CanceledInShopify)
			},
		},
		{
			name:      "cancel after delivery",
			financial: "pending",
			deliver:   true,
			update: func(o *models.Order) {
				o.CancelReason = "customer"
				o.CancelledAt = &cancelled
			},
			state:   queue.LINE_FAILED,
			message: fmt.Sprintf(MSG_CANNOT_CANCEL, "#1001"),
		},
		{
			name:      "full refund",
			financial: "paid",
			update: func(o *models.Order) {
				o.FinancialStatus = models.FINANCIAL_STATUS_REFUNDED
				o.Refunds = refund("44.80")
			},
			state: queue.LINE_DONE,
			check: func(t *testing.T, env *connectortest.Env, m *mapping.Order) {
				assert.Equal(t, []string{MSG_REFUND_REASON}, env.Odoo.Reversed)
				assert.Equal(t, models.FINANCIAL_STATUS_REFUNDED, m.FinancialStatus)
			},
		},
		{
			name:      "partial refund",
			financial: "paid",
			update: func(o *models.Order) {
				o.FinancialStatus = models.FINANCIAL_STATUS_REFUNDED
				o.Refunds = refund("10")
			},
			state:   queue.LINE_FAILED,
			message: fmt.Sprintf(MSG_PARTIAL_REFUND, "#1001", "10.00", "44.80"),
		},
		{
			name:      "refund without invoice",
			financial: "pending",
			update: func(o *models.Order) {
				o.FinancialStatus = models.FINANCIAL_STATUS_REFUNDED
				o.Refunds = refund("44.80")
			},
			state:   queue.LINE_FAILED,
			message: fmt.Sprintf(MSG_NO_INVOICE, "#1001"),
		},
		{
			name:      "fulfilled",
			financial: "pending",
			update: func(o *models.Order) {
				o.FulfillmentStatus = models.FULFILLMENT_STATUS_FULFILLED
			},
			state: queue.LINE_DONE,
			check: func(t *testing.T, env *connectortest.Env, m *mapping.Order) {
				so := env.Odoo.Orders[m.SaleOrderID]
				assert.Equal(t, erp.PICKING_DONE, env.Odoo.Pickings[so.Info.PickingIDs[0]].State)
			},
		},
		{
			name:      "fulfilled without stock",
			financial: "pending",
			noStock:   true,
			update: func(o *models.Order) {
				o.FulfillmentStatus = models.FULFILLMENT_STATUS_FULFILLED
			},
			state:   queue.LINE_FAILED,
			message: fmt.Sprintf(MSG_NOT_ENOUGH_STOCK, "#1001"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := connectortest.New(t)
			linkedShirt(t, env)
			require.NoError(t, ImportOrder(context.Background(), env.Connector, newOrder("manual", tt.financial)))
			m := saleOrderOf(t, env, 1)
			if tt.deliver {
				env.Odoo.DeliverOrder(m.SaleOrderID, "")
			}
			if tt.noStock {
				env.Odoo.ValidateErr = errors.New("not enough stock")
			}

			updated := newOrder("manual", tt.financial)
			tt.update(updated)
			line := processUpdate(t, env, updated)

			assert.Equal(t, tt.state, line.State)
			if tt.message != "" {
				assert.Contains(t, logMessages(t, env), tt.message)
			}
			if tt.check != nil {
				tt.check(t, env, saleOrderOf(t, env, 1))
			}
		})
	}
}

func TestUpdateOrderImportsUnknownOrder(t *testing.T) {
	env := connectortest.New(t)
	linkedShirt(t, env)

	line := processUpdate(t, env, newOrder("manual", "paid"))

	assert.Equal(t, queue.LINE_DONE, line.State)
	assert.Equal(t, int64(saleOrderOf(t, env, 1).SaleOrderID), line.ErpID.Int64)
}

func TestUpdateOrderStatusExportsFulfillment(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	linkedShirt(t, env)
	o := newOrder("manual", "pending")
	o.LocationID = 555
	env.Fake.AddOrder(o)
	require.NoError(t, ImportOrder(ctx, env.Connector, o))
	m := saleOrderOf(t, env, 1)
	Assert.Equal(3, env.Odoo.Orders[m.SaleOrderID].WarehouseID)

	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))
	Assert.Empty(env.Fake.Fulfillments)

	env.Odoo.DeliverOrder(m.SaleOrderID, "TRK1, TRK1,TRK2")
	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))

	require.Len(t, env.Fake.Fulfillments[1], 1)
	f := env.Fake.Fulfillments[1][0]
	Assert.Equal(int64(555), f.LocationID)
	Assert.Equal([]string{"TRK1", "TRK2"}, f.TrackingNumbers)
	Assert.Equal([]models.FulfillmentLine{{ID: 11, Quantity: 2}}, f.LineItems)

	so := env.Odoo.Orders[m.SaleOrderID]
	pm, err := mapping.GetPicking(env.DB, "main", so.Info.PickingIDs[0], m.SaleOrderID)
	require.NoError(t, err)
	Assert.True(pm.UpdatedInShopify)
	Assert.Equal(f.ID, pm.FulfillmentID.Int64)

	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))
	Assert.Len(env.Fake.Fulfillments[1], 1)
	Assert.Empty(env.Fake.Closed)

	so.Info.State = erp.ORDER_DONE
	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))
	Assert.Equal([]int64{1}, env.Fake.Closed)
	Assert.True(saleOrderOf(t, env, 1).ClosedAt.Valid)
}

func TestUpdateOrderStatusFailures(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	linkedShirt(t, env)
	o := newOrder("manual", "pending")
	env.Fake.AddOrder(o)
	require.NoError(t, ImportOrder(ctx, env.Connector, o))
	m := saleOrderOf(t, env, 1)
	env.Odoo.DeliverOrder(m.SaleOrderID, "TRK1")

	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))
	Assert.Equal([]string{fmt.Sprintf(MSG_NO_PRIMARY, "main")}, logMessages(t, env))

	primary := &mapping.Location{Instance: "main", ShopifyLocationID: 777, Name: "Main", IsPrimary: true, Active: true}
	require.NoError(t, primary.Save(env.DB))
	env.Fake.FulfillmentErr = errors.New("boom")
	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))

	so := env.Odoo.Orders[m.SaleOrderID]
	pm, err := mapping.GetPicking(env.DB, "main", so.Info.PickingIDs[0], m.SaleOrderID)
	require.NoError(t, err)
	Assert.True(pm.ManualAction)
	Assert.Len(logMessages(t, env), 2)

	env.Fake.FulfillmentErr = nil
	require.NoError(t, UpdateOrderStatus(ctx, env.Connector))
	Assert.Empty(env.Fake.Fulfillments)
}

func TestTaxName(t *testing.T) {
	Assert := assert.New(t)
	Assert.Equal("VAT_(20.0 % excluded)_My Company", TaxName(models.TaxLine{Title: "VAT", Rate: dec("0.2")}, false, "My Company"))
	Assert.Equal("GST_(7.5 % included)_Shop B", TaxName(models.TaxLine{Title: "GST", Rate: dec("0.075")}, true, "Shop B"))
	Assert.Equal("Zero_(0.0 % excluded)_My Company", TaxName(models.TaxLine{Title: "Zero", Rate: dec("0")}, false, "My Company"))
}

func TestImportOrderNamesTaxAfterCompany(t *testing.T) {
	env := connectortest.New(t)
	linkedShirt(t, env)
	env.Odoo.Companies[1] = "Acme EU"

	require.NoError(t, ImportOrder(context.Background(), env.Connector, newOrder("manual", "paid")))

	so := env.Odoo.Orders[saleOrderOf(t, env, 1).SaleOrderID]
	require.Len(t, so.Lines[0].TaxIDs, 1)
	tax := env.Odoo.Taxes[so.Lines[0].TaxIDs[0]]
	assert.Equal(t, "VAT_(20.0 % excluded)_Acme EU", tax.Name)
	assert.Equal(t, 1, tax.CompanyID)
}

func TestTrackingNumbers(t *testing.T) {
	Assert := assert.New(t)
	Assert.Nil(trackingNumbers(""))
	Assert.Equal([]string{"A", "B"}, trackingNumbers("A, B,A"))
}
