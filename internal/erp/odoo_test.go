package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ShopifyWithOdoo/internal/odooapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}

// newOdoo serves execute_kw calls from replies keyed by "model.method".
func newOdoo(t *testing.T, replies map[string]string) (*Odoo, *[]rpcCall) {
	var calls []rpcCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Params struct {
				Args []any `json:"args"`
			} `json:"params"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := req.Params.Args
		call := rpcCall{Model: a[3].(string), Method: a[4].(string), Args: a[5].([]any), Kwargs: a[6].(map[string]any)}
		calls = append(calls, call)
		result, ok := replies[call.Model+"."+call.Method]
		if !ok {
			result = "true"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
	t.Cleanup(srv.Close)
	return NewOdoo(odooapi.NewClient(srv.URL, "db", 2, "pwd", 5*time.Second)), &calls
}

func TestCreateSaleOrder(t *testing.T) {
	Assert := assert.New(t)
	o, calls := newOdoo(t, map[string]string{
		"sale.order.create":           `[15]`,
		"sale.order.line.search_read": `[{"id":101},{"id":102}]`,
	})

	id, lineIDs, err := o.CreateSaleOrder(context.Background(), &SaleOrder{
		Name:           "Shopify_#1001",
		CompanyID:      1,
		PartnerID:      7,
		WarehouseID:    1,
		DateOrder:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ClientOrderRef: "#1001",
		Lines: []SaleOrderLine{
			{ProductID: 3, Name: "Shirt", Quantity: decimal.NewFromInt(2), PriceUnit: decimal.RequireFromString("10.50"), TaxIDs: []int{4}},
			{ProductID: 9, Name: "Shipping", Quantity: decimal.NewFromInt(1), PriceUnit: decimal.NewFromInt(5), IsDelivery: true},
		},
	})
	require.NoError(t, err)
	Assert.Equal(15, id)
	Assert.Equal([]int{101, 102}, lineIDs)

	create := (*calls)[0]
	values := create.Args[0].([]any)[0].(map[string]any)
	Assert.Equal("Shopify_#1001", values["name"])
	Assert.Equal("2024-01-02 03:04:05", values["date_order"])
	Assert.Equal("direct", values["picking_policy"])
	Assert.NotContains(values, "pricelist_id")

	lines := values["order_line"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].([]any)[2].(map[string]any)
	Assert.Equal(10.5, first["price_unit"])
	Assert.Equal([]any{[]any{float64(6), float64(0), []any{float64(4)}}}, first["tax_id"])
	second := lines[1].([]any)[2].(map[string]any)
	Assert.NotContains(second, "tax_id")
	Assert.Equal(true, second["is_delivery"])

	Assert.Equal("sequence,id", (*calls)[1].Kwargs["order"])
}

func TestCreateSaleOrderLineCountMismatch(t *testing.T) {
	o, _ := newOdoo(t, map[string]string{
		"sale.order.create":           `[15]`,
		"sale.order.line.search_read": `[{"id":101}]`,
	})
	_, _, err := o.CreateSaleOrder(context.Background(), &SaleOrder{Lines: make([]SaleOrderLine, 2)})
	assert.ErrorContains(t, err, "has 1 lines, 2 sent")
}

func TestValidatePickings(t *testing.T) {
	Assert := assert.New(t)
	o, calls := newOdoo(t, map[string]string{
		"stock.picking.read":  `[{"id":5,"name":"WH/OUT/00005","state":"done","sale_id":[15,"S1"],"location_dest_id":[9,"Customers"],"carrier_tracking_ref":false,"carrier_id":false,"move_ids":[]}]`,
		"stock.location.read": `[{"id":9,"usage":"customer"}]`,
	})
	// the first read reports done, so nothing is validated
	require.NoError(t, o.ValidatePickings(context.Background(), []int{5}))
	for _, c := range *calls {
		Assert.NotEqual("button_validate", c.Method)
	}
}

func TestValidatePickingsStillAssigned(t *testing.T) {
	o, calls := newOdoo(t, map[string]string{
		"stock.picking.read":  `[{"id":5,"name":"WH/OUT/00005","state":"assigned","sale_id":[15,"S1"],"location_dest_id":[9,"Customers"],"carrier_tracking_ref":false,"carrier_id":false,"move_ids":[]}]`,
		"stock.location.read": `[{"id":9,"usage":"customer"}]`,
	})
	err := o.ValidatePickings(context.Background(), []int{5})
	assert.ErrorContains(t, err, "is in state assigned")

	var methods []string
	for _, c := range *calls {
		if c.Model == "stock.picking" && c.Method != "read" {
			methods = append(methods, c.Method)
		}
	}
	assert.Equal(t, []string{"action_assign", "action_set_quantities_to_reservation", "button_validate"}, methods)
}

func TestGetPickingsMoves(t *testing.T) {
	Assert := assert.New(t)
	o, _ := newOdoo(t, map[string]string{
		"stock.picking.read":  `[{"id":5,"name":"WH/OUT/00005","state":"done","sale_id":[15,"S1"],"location_dest_id":[9,"Customers"],"carrier_tracking_ref":"1Z999","carrier_id":[2,"UPS"],"move_ids":[70,71]}]`,
		"stock.location.read": `[{"id":9,"usage":"customer"}]`,
		"stock.move.read":     `[{"id":70,"product_id":[3,"Shirt"],"sale_line_id":[101,"l"],"quantity_done":2.0,"state":"done"},{"id":71,"product_id":[4,"Hat"],"sale_line_id":false,"quantity_done":1.0,"state":"done"}]`,
	})
	pickings, err := o.GetPickings(context.Background(), []int{5})
	require.NoError(t, err)
	require.Len(t, pickings, 1)
	p := pickings[0]
	Assert.Equal(USAGE_CUSTOMER, p.DestUsage)
	Assert.Equal("1Z999", p.TrackingRef)
	Assert.Equal("UPS", p.CarrierName)
	require.Len(t, p.Moves, 2)
	Assert.Equal(101, p.Moves[0].SaleLineID)
	Assert.Equal(0, p.Moves[1].SaleLineID)
	Assert.True(p.Moves[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestApplyInventory(t *testing.T) {
	Assert := assert.New(t)
	o, calls := newOdoo(t, map[string]string{
		"stock.quant.search": `[]`,
		"stock.quant.create": `[31]`,
	})
	err := o.ApplyInventory(context.Background(), 8, []InventoryLine{{ProductID: 3, Quantity: decimal.NewFromInt(-4)}}, true)
	require.NoError(t, err)

	create := (*calls)[1]
	Assert.Equal("create", create.Method)
	values := create.Args[0].([]any)[0].(map[string]any)
	Assert.Equal(float64(0), values["inventory_quantity"])
	Assert.Equal(true, create.Kwargs["context"].(map[string]any)["inventory_mode"])
	Assert.Equal("action_apply_inventory", (*calls)[2].Method)
}

func TestProductQuantitiesSumsWarehouses(t *testing.T) {
	o, _ := newOdoo(t, map[string]string{
		"product.product.read": `[{"id":3,"free_qty":2.5},{"id":4,"free_qty":0}]`,
	})
	qty, err := o.ProductQuantities(context.Background(), []int{3, 4}, []int{1, 2}, "free_qty")
	require.NoError(t, err)
	assert.Equal(t, "5", qty[3].String())
	assert.True(t, qty[4].IsZero())
}

func TestCreateInvoicesReturnsNewOnes(t *testing.T) {
	replies := map[string]string{
		"sale.order.read":                 `[{"id":15,"name":"S1","state":"sale","amount_total":10,"warehouse_id":[1,"WH"],"picking_ids":[],"invoice_ids":[40]}]`,
		"sale.advance.payment.inv.create": `[3]`,
	}
	o, calls := newOdoo(t, replies)
	// the order reads the same invoices before and after the wizard
	invoices, err := o.CreateInvoices(context.Background(), 15)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	var wizard rpcCall
	for _, c := range *calls {
		if c.Method == "create_invoices" {
			wizard = c
		}
	}
	ctx := wizard.Kwargs["context"].(map[string]any)
	assert.Equal(t, "sale.order", ctx["active_model"])
	assert.Equal(t, []any{float64(15)}, ctx["active_ids"])
}

func TestFindPartnerByEmailMatchesLiterally(t *testing.T) {
	Assert := assert.New(t)
	o, calls := newOdoo(t, map[string]string{"res.partner.search": `[7]`})

	id, err := o.FindPartnerByEmail(context.Background(), `jane_roe%1\x@example.com`)
	require.NoError(t, err)

	Assert.Equal(7, id)
	require.Len(t, *calls, 1)
	domain := (*calls)[0].Args[0].([]any)
	Assert.Equal([]any{"email", "=ilike", `jane\_roe\%1\\x@example.com`}, domain[0])
}

func TestCompanyName(t *testing.T) {
	o, calls := newOdoo(t, map[string]string{"res.company.read": `[{"id":1,"name":"Acme EU"}]`})

	name, err := o.CompanyName(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Acme EU", name)
	assert.Equal(t, "read", (*calls)[0].Method)
}
