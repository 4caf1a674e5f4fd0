// Package location mirrors the Shopify locations of an instance.
package location

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/cache"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

// ImportLocations stores the Shopify locations and marks the primary one.
// Warehouse links stay in the LOCATION config sections.
func ImportLocations(ctx context.Context, c *connector.Connector) ([]*mapping.Location, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportLocations")
	defer logger.Info("End ImportLocations")

	shop, err := cache.GetCacheShop().Get(ctx, c.Name, c.Shopify)
	if err != nil {
		return nil, errors.Wrap(err, "failed in GetCacheShop().Get")
	}
	locations, err := c.Shopify.LocationList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed in LocationList")
	}

	mapped := c.Config.LocationsOf(c.Name)
	result := make([]*mapping.Location, 0, len(locations))
	for _, l := range locations {
		m := &mapping.Location{
			Instance:          c.Name,
			ShopifyLocationID: l.ID,
			Name:              l.Name,
			IsPrimary:         l.ID == shop.PrimaryLocationID,
			Active:            l.Active,
		}
		if err := m.Save(c.DB); err != nil {
			return result, err
		}
		if _, ok := mapped[l.ID]; !ok && l.Active {
			logger.Infof("Location %s (%d) of %s is not linked to a warehouse", l.Name, l.ID, c.Name)
		}
		result = append(result, m)
	}
	if shop.PrimaryLocationID != 0 {
		err := database.SetState(c.DB, c.Name, database.PRIMARY_LOCATION, fmt.Sprint(shop.PrimaryLocationID))
		if err != nil {
			return result, err
		}
	}
	logger.Infof("%d locations imported", len(result))
	return result, nil
}
