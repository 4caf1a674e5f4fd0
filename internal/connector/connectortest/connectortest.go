// Package connectortest wires a connector over in-memory fakes.
package connectortest

import (
	"testing"

	"ShopifyWithOdoo/internal/cache"
	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/erp/erptest"
	"ShopifyWithOdoo/internal/shopifyapi/shopifytest"
	"ShopifyWithOdoo/internal/telegram"
	"github.com/stretchr/testify/require"
)

const Config = `
[ODOO]
URL = https://erp.example.com
DB = test
UserID = 2
Password = secret

[INSTANCE "main"]
Host = example.myshopify.com
AccessToken = token
SharedSecret = hush
CompanyID = 1
WarehouseID = 1
OrderPrefix = Shopify
DiscountProductID = 901
ShippingProductID = 902
GiftCardProductID = 903
CustomServiceProductID = 904
CustomStorableProductID = 905
Active = true

[WORKFLOW "manual:paid"]
ValidateOrder = true
CreateInvoice = true
RegisterPayment = true
JournalID = 7

[WORKFLOW "manual:pending"]
ValidateOrder = true

[LOCATION "main:555"]
WarehouseForOrder = 3
ExportStockWarehouse = 3
ImportStockWarehouse = 3
`

type Env struct {
	*connector.Connector
	Fake *shopifytest.Fake
	Odoo *erptest.Fake
	// Sent collects the operator notifications.
	Sent *[]string
}

// New returns a connector of instance "main" over fresh fakes and an
// in-memory database. The ERP fake knows the products configured above.
func New(t *testing.T) *Env {
	t.Helper()
	cfg, err := config.LoadString(Config)
	require.NoError(t, err)
	instance, _ := cfg.Instance("main")

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache.NewCacheShop(0)
	fake := shopifytest.New()
	odoo := erptest.New()
	odoo.AddProduct(erptestProduct(901, "Discount", "service"))
	odoo.AddProduct(erptestProduct(902, "Shipping", "service"))
	odoo.AddProduct(erptestProduct(903, "Gift Card", "service"))
	odoo.AddProduct(erptestProduct(904, "Custom Service", "service"))
	odoo.AddProduct(erptestProduct(905, "Custom Product", "product"))
	odoo.StockLocations[1] = 11
	odoo.StockLocations[3] = 33

	var sent []string
	reset := telegram.SetSender(func(text string) error {
		sent = append(sent, text)
		return nil
	})
	t.Cleanup(reset)

	return &Env{
		Connector: connector.New(cfg, instance, db, fake, odoo),
		Fake:      fake,
		Odoo:      odoo,
		Sent:      &sent,
	}
}

func erptestProduct(id int, name, productType string) erp.Product {
	return erp.Product{ID: id, Name: name, TemplateName: name, Type: productType}
}
