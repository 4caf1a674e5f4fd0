package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[ODOO]
URL = https://erp.example.com
DB = test
UserID = 2
Password = secret

[INSTANCE "main"]
Host = example.myshopify.com
AccessToken = token
SharedSecret = secret
CompanyID = 1
WarehouseID = 1
ImportOrderStatus = unshipped
ImportOrderStatus = partial
ImportOrderAfterDate = 2024-01-01

[WORKFLOW "manual:paid"]
ValidateOrder = true

[WORKFLOW "main:manual:paid"]
ValidateOrder = true
CreateInvoice = true

[LOCATION "main:555"]
WarehouseForOrder = 3
ExportStockWarehouse = 3
ExportStockWarehouse = 4
`

func TestLoadString(t *testing.T) {
	Assert := assert.New(t)

	c, err := LoadString(testConfig)
	require.NoError(t, err)

	i, ok := c.Instance("main")
	require.True(t, ok)
	Assert.Equal("main", i.Name)
	Assert.Equal(2, i.RPS)
	Assert.Equal(TAX_CREATE_SHOPIFY, i.ApplyTaxInOrder)
	Assert.Equal(SYNC_WITH_SKU, i.SyncProductWith)
	Assert.Equal([]string{"unshipped", "partial"}, i.ImportOrderStatus)
	Assert.Equal(2024, i.ImportAfterDate().Year())
	Assert.Equal(7, c.SCHEDULER.DaysToKeep)
}

func TestWorkflow(t *testing.T) {
	Assert := assert.New(t)
	c, err := LoadString(testConfig)
	require.NoError(t, err)

	w, ok := c.Workflow("main", "manual", "paid")
	Assert.True(ok)
	Assert.True(w.CreateInvoice)

	w, ok = c.Workflow("other", "manual", "paid")
	Assert.True(ok)
	Assert.False(w.CreateInvoice)

	_, ok = c.Workflow("main", "paypal", "paid")
	Assert.False(ok)
}

func TestLocationsOf(t *testing.T) {
	c, err := LoadString(testConfig)
	require.NoError(t, err)

	locations := c.LocationsOf("main")
	require.Len(t, locations, 1)
	assert.Equal(t, []int{3, 4}, locations[555].ExportStockWarehouse)
	assert.Empty(t, c.LocationsOf("other"))
}

func TestValidateInstance(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(i *Instance)
	}{
		{"missing host", func(i *Instance) { i.Host = "" }},
		{"bad tax mode", func(i *Instance) { i.ApplyTaxInOrder = "vat" }},
		{"bad stock type", func(i *Instance) { i.FixStockType = "half" }},
		{"bad date", func(i *Instance) { i.ImportOrderAfterDate = "not a date" }},
		{"zero rps", func(i *Instance) { i.RPS = 0 }},
		{"shipped import status", func(i *Instance) { i.ImportOrderStatus = []string{IMPORT_UNSHIPPED, "shipped"} }},
		{"unknown import status", func(i *Instance) { i.ImportOrderStatus = []string{"any"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadString(testConfig)
			require.NoError(t, err)
			i := c.INSTANCE["main"]
			tt.mutate(i)
			assert.Error(t, i.Validate())
		})
	}
}

func TestValidateImportOrderStatus(t *testing.T) {
	c, err := LoadString(testConfig)
	require.NoError(t, err)
	i := c.INSTANCE["main"]
	i.ImportOrderStatus = []string{IMPORT_UNSHIPPED, IMPORT_PARTIAL}
	assert.NoError(t, i.Validate())
}

func TestLoadStringInvalid(t *testing.T) {
	_, err := LoadString("[ODOO]\nURL = https://erp.example.com\n")
	assert.Error(t, err)

	_, err = LoadString(testConfig + "\n[LOCATION \"broken\"]\nWarehouseForOrder = 1\n")
	assert.Error(t, err)
}
