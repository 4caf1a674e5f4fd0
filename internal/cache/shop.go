package cache

import (
	"context"
	"sync"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

type CacheShop interface {
	Get(ctx context.Context, instance string, api shopifyapi.ShopifyAPI) (*models.Shop, error)
	Set(instance string, shop *models.Shop)
	Delete(instance string)
}

var cacheShopGlobal shops

type shops struct {
	mu    sync.Mutex
	ttl   time.Duration
	shops map[string]*shop
}

type shop struct {
	shop       *models.Shop
	timeUpdate time.Time
}

// Get returns the cached shop of an instance, asking Shopify when the entry
// is missing or older than the cache ttl.
func (c *shops) Get(ctx context.Context, instance string, api shopifyapi.ShopifyAPI) (*models.Shop, error) {
	logger := logging.GetLogger()
	logger.Debug("Start CacheShop Get")
	defer logger.Debug("End CacheShop Get")

	c.mu.Lock()
	cached, ok := c.shops[instance]
	ttl := c.ttl
	c.mu.Unlock()

	if ok && time.Since(cached.timeUpdate) <= ttl {
		logger.Debugf("Shop of %s found in cache", instance)
		return cached.shop, nil
	}

	logger.Debugf("Shop of %s is not cached or outdated, request Shopify", instance)
	s, err := api.ShopGet(ctx)
	if err != nil {
		if ok {
			logger.Errorf("failed to refresh shop of %s, cached one used: %v", instance, err)
			return cached.shop, nil
		}
		return nil, errors.Wrapf(err, "failed in ShopGet for instance %s", instance)
	}
	c.Set(instance, s)
	return s, nil
}

func (c *shops) Set(instance string, s *models.Shop) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shops[instance] = &shop{shop: s, timeUpdate: time.Now()}
}

func (c *shops) Delete(instance string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.shops, instance)
}

// NewCacheShop resets the global cache with the given ttl.
func NewCacheShop(ttl time.Duration) CacheShop {
	cacheShopGlobal.mu.Lock()
	defer cacheShopGlobal.mu.Unlock()
	cacheShopGlobal.ttl = ttl
	cacheShopGlobal.shops = make(map[string]*shop)
	return &cacheShopGlobal
}

func GetCacheShop() CacheShop {
	return &cacheShopGlobal
}

// InitFromConfig applies the CACHE.TimeUpdate ttl.
func InitFromConfig(cfg *config.Config) CacheShop {
	return NewCacheShop(time.Duration(cfg.CACHE.TimeUpdate) * time.Second)
}

func init() {
	NewCacheShop(time.Hour)
}
