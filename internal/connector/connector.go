// Package connector bundles what every sync operation of one instance needs.
package connector

import (
	"context"
	"time"

	"ShopifyWithOdoo/internal/cache"
	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/odooapi"
	"ShopifyWithOdoo/internal/rabbitmq"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Connector struct {
	Name     string
	Config   *config.Config
	Instance *config.Instance
	DB       *sqlx.DB
	Shopify  shopifyapi.ShopifyAPI
	ERP      erp.ERP
	// Publisher is nil when RABBITMQ is disabled.
	Publisher rabbitmq.Publisher
}

func New(cfg *config.Config, instance *config.Instance, db *sqlx.DB, shopify shopifyapi.ShopifyAPI, e erp.ERP) *Connector {
	return &Connector{
		Name:     instance.Name,
		Config:   cfg,
		Instance: instance,
		DB:       db,
		Shopify:  shopify,
		ERP:      e,
	}
}

// Get builds the connector of a configured instance with the process-wide clients.
func Get(cfg *config.Config, db *sqlx.DB, name string) (*Connector, error) {
	instance, ok := cfg.Instance(name)
	if !ok {
		return nil, errors.Errorf("instance %s is not configured", name)
	}
	api := shopifyapi.GetAPI(name)
	if api == nil {
		api = shopifyapi.NewAPI(instance)
	}
	c := New(cfg, instance, db, api, erp.NewOdoo(odooapi.GetClient()))
	if cfg.RABBITMQ.Enabled {
		c.Publisher = rabbitmq.NewPublisher(cfg.RABBITMQ.URL, cfg.RABBITMQ.Exchange)
	}
	return c, nil
}

// StoreLocation is the time zone of the shop, remembered in SyncState so a
// Shopify outage falls back to the last known zone.
func (c *Connector) StoreLocation(ctx context.Context) (*time.Location, error) {
	logger := logging.GetLogger()

	var zone string
	shop, err := cache.GetCacheShop().Get(ctx, c.Name, c.Shopify)
	if err == nil && shop.IanaTimezone != "" {
		zone = shop.IanaTimezone
		stored, _ := database.GetState(c.DB, c.Name, database.STORE_TIME_ZONE)
		if stored != zone {
			if err := database.SetState(c.DB, c.Name, database.STORE_TIME_ZONE, zone); err != nil {
				return nil, err
			}
		}
	} else {
		if err != nil {
			logger.Errorf("failed to read shop of %s: %v", c.Name, err)
		}
		zone, err = database.GetState(c.DB, c.Name, database.STORE_TIME_ZONE)
		if err != nil {
			return nil, err
		}
	}
	if zone == "" {
		return time.UTC, nil
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown store time zone %s", zone)
	}
	return location, nil
}

// WarehouseOfLocation is the warehouse orders of a Shopify location go to.
func (c *Connector) WarehouseOfLocation(locationID int64) int {
	if locationID != 0 {
		if l, ok := c.Config.LocationsOf(c.Name)[locationID]; ok && l.WarehouseForOrder != 0 {
			return l.WarehouseForOrder
		}
	}
	return c.Instance.WarehouseID
}

func (c *Connector) NewLogBook(logType, model string) (*logbook.LogBook, error) {
	book, err := logbook.Create(c.DB, c.Name, logType, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed in logbook.Create")
	}
	return book, nil
}

// FinishLogBook drops an empty log book, otherwise links it to q when given.
func (c *Connector) FinishLogBook(book *logbook.LogBook, q *queue.Queue) error {
	deleted, err := book.DeleteIfEmpty(c.DB)
	if err != nil {
		return err
	}
	if deleted || q == nil || q.LogBookID.Valid {
		return nil
	}
	return q.SetLogBook(c.DB, book.ID)
}

// QueueLogBook returns the log book of q, a new import book when q has none.
func (c *Connector) QueueLogBook(q *queue.Queue, model string) (*logbook.LogBook, error) {
	if q.LogBookID.Valid {
		book, err := logbook.Get(c.DB, int(q.LogBookID.Int64))
		if err == nil {
			return book, nil
		}
		logging.GetLogger().Errorf("log book of queue %s is gone: %v", q.Name, err)
	}
	return c.NewLogBook(logbook.TYPE_IMPORT, model)
}
