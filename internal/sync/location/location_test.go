package location

import (
	"context"
	"testing"

	"ShopifyWithOdoo/internal/connector/connectortest"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLocations(t *testing.T) {
	Assert := assert.New(t)
	env := connectortest.New(t)
	ctx := context.Background()
	env.Fake.Shop.PrimaryLocationID = 555
	env.Fake.Locations = []*models.Location{
		{ID: 555, Name: "Warehouse", Active: true},
		{ID: 777, Name: "Shop floor", Active: true},
		{ID: 888, Name: "Closed", Active: false},
	}

	imported, err := ImportLocations(ctx, env.Connector)
	require.NoError(t, err)
	Assert.Len(imported, 3)

	primary, err := mapping.PrimaryLocation(env.DB, "main")
	require.NoError(t, err)
	require.NotNil(t, primary)
	Assert.Equal(int64(555), primary.ShopifyLocationID)

	active, err := mapping.ListLocations(env.DB, "main")
	require.NoError(t, err)
	Assert.Len(active, 2)

	state, err := database.GetState(env.DB, "main", database.PRIMARY_LOCATION)
	require.NoError(t, err)
	Assert.Equal("555", state)

	env.Fake.Shop.PrimaryLocationID = 777
	_, err = ImportLocations(ctx, env.Connector)
	require.NoError(t, err)
	primary, err = mapping.PrimaryLocation(env.DB, "main")
	require.NoError(t, err)
	Assert.Equal(int64(777), primary.ShopifyLocationID)
}
