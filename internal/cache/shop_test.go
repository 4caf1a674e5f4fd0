package cache

import (
	"context"
	"testing"
	"time"

	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/shopifytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheShopKeepsEntryUntilTTL(t *testing.T) {
	Assert := assert.New(t)
	c := NewCacheShop(time.Hour)
	fake := shopifytest.New()
	fake.Shop.IanaTimezone = "Europe/Berlin"

	s, err := c.Get(context.Background(), "main", fake)
	require.NoError(t, err)
	Assert.Equal("Europe/Berlin", s.IanaTimezone)

	fake.Shop = &models.Shop{IanaTimezone: "America/New_York"}
	s, err = c.Get(context.Background(), "main", fake)
	require.NoError(t, err)
	Assert.Equal("Europe/Berlin", s.IanaTimezone)

	c.Delete("main")
	s, err = c.Get(context.Background(), "main", fake)
	require.NoError(t, err)
	Assert.Equal("America/New_York", s.IanaTimezone)
}

func TestCacheShopRefreshesOutdated(t *testing.T) {
	c := NewCacheShop(0)
	fake := shopifytest.New()
	c.Set("main", &models.Shop{IanaTimezone: "Asia/Tokyo"})

	s, err := c.Get(context.Background(), "main", fake)
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.IanaTimezone)
}
