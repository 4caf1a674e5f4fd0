package mapping

import (
	"database/sql"
	"testing"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOrderMap(t *testing.T) {
	Assert := assert.New(t)
	db := openDB(t)

	o, err := FindOrder(db, "main", 450789469)
	require.NoError(t, err)
	Assert.Nil(o)

	o = &Order{Instance: "main", ShopifyOrderID: 450789469, OrderNumber: "1001", Name: "#1001", SaleOrderID: 12}
	require.NoError(t, o.Save(db))
	Assert.NotZero(o.ID)

	o.FulfillmentStatus = "fulfilled"
	o.IsRisky = true
	require.NoError(t, o.Save(db))

	stored, err := FindOrder(db, "main", 450789469)
	require.NoError(t, err)
	require.NotNil(t, stored)
	Assert.Equal(o.ID, stored.ID)
	Assert.Equal("fulfilled", stored.FulfillmentStatus)
	Assert.True(stored.IsRisky)

	bySale, err := FindOrderBySaleOrder(db, "main", 12)
	require.NoError(t, err)
	Assert.Equal(o.ID, bySale.ID)

	lines := []*OrderLine{
		{SaleOrderLineID: 1, ShopifyLineID: sql.NullInt64{Int64: 466157049, Valid: true}},
		{SaleOrderLineID: 2, IsDelivery: true},
	}
	require.NoError(t, o.SaveLines(db, lines))
	require.NoError(t, o.SaveLines(db, lines))
	got, err := o.Lines(db)
	require.NoError(t, err)
	require.Len(t, got, 2)
	Assert.Equal(int64(466157049), got[0].ShopifyLineID.Int64)
	Assert.True(got[1].IsDelivery)

	open, err := ListOpenOrders(db, "main")
	require.NoError(t, err)
	Assert.Len(open, 1)
	o.CanceledInShopify = true
	require.NoError(t, o.Save(db))
	open, err = ListOpenOrders(db, "main")
	require.NoError(t, err)
	Assert.Empty(open)
}

func TestPickingMap(t *testing.T) {
	db := openDB(t)

	p, err := GetPicking(db, "main", 31, 12)
	require.NoError(t, err)
	assert.False(t, p.Settled())

	p.UpdatedInShopify = true
	p.FulfillmentID = sql.NullInt64{Int64: 255858046, Valid: true}
	require.NoError(t, p.Save(db))

	p2, err := GetPicking(db, "main", 32, 12)
	require.NoError(t, err)
	require.NoError(t, p2.Save(db))

	settled, err := SettledPickingIDs(db, "main")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{31: true}, settled)

	stored, err := GetPicking(db, "main", 31, 0)
	require.NoError(t, err)
	assert.True(t, stored.Settled())
	assert.Equal(t, int64(255858046), stored.FulfillmentID.Int64)
}

func TestVariantMap(t *testing.T) {
	Assert := assert.New(t)
	db := openDB(t)

	v := &Variant{Instance: "main", DefaultCode: "IPOD-1", ErpProductID: 5, ErpTemplateID: 3}
	require.NoError(t, v.Save(db))

	unexported, err := ListUnexported(db, "main")
	require.NoError(t, err)
	Assert.Len(unexported, 1)

	v.ShopifyVariantID = 808950810
	v.ShopifyProductID = 632910392
	v.InventoryItemID = 39072856
	v.Exported = true
	require.NoError(t, v.Save(db))

	byID, err := FindVariant(db, "main", 808950810)
	require.NoError(t, err)
	Assert.Equal(v.ID, byID.ID)

	byCode, err := FindVariantByCode(db, "main", "IPOD-1")
	require.NoError(t, err)
	Assert.Equal(v.ID, byCode.ID)

	none, err := FindVariantByCode(db, "main", "")
	require.NoError(t, err)
	Assert.Nil(none)

	byItem, err := FindVariantByInventoryItem(db, "main", 39072856)
	require.NoError(t, err)
	Assert.Equal(5, byItem.ErpProductID)

	byProduct, err := FindVariantByErpProduct(db, "main", 5)
	require.NoError(t, err)
	Assert.Equal(v.ID, byProduct.ID)

	stocked, err := ListStocked(db, "main")
	require.NoError(t, err)
	Assert.Len(stocked[5], 1)
}

func TestCustomerAndLocation(t *testing.T) {
	db := openDB(t)

	id, err := FindCustomer(db, "main", 207119551)
	require.NoError(t, err)
	assert.Zero(t, id)
	require.NoError(t, SaveCustomer(db, "main", 207119551, 44))
	require.NoError(t, SaveCustomer(db, "main", 207119551, 45))
	id, err = FindCustomer(db, "main", 207119551)
	require.NoError(t, err)
	assert.Equal(t, 45, id)

	primary, err := PrimaryLocation(db, "main")
	require.NoError(t, err)
	assert.Nil(t, primary)

	require.NoError(t, (&Location{Instance: "main", ShopifyLocationID: 1, Name: "Shop", Active: true}).Save(db))
	require.NoError(t, (&Location{Instance: "main", ShopifyLocationID: 2, Name: "Warehouse", IsPrimary: true, Active: true}).Save(db))
	primary, err = PrimaryLocation(db, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(2), primary.ShopifyLocationID)

	all, err := ListLocations(db, "main")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
