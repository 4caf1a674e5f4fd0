package shopifyapi

import (
	"context"
	"net/http"

	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"github.com/pkg/errors"
)

func (s *shopifyapi) LocationList(ctx context.Context) ([]*models.Location, error) {
	var out struct {
		Locations []*models.Location `json:"locations"`
	}
	if _, err := s.do(ctx, http.MethodGet, "locations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

func (s *shopifyapi) InventoryLevelListEach(ctx context.Context, fn func([]*models.InventoryLevel) error, opts ...options.Option) error {
	return listEach[models.InventoryLevel](ctx, s, "inventory_levels", "inventory_levels", buildParams(opts), fn)
}

func (s *shopifyapi) InventoryLevelSet(ctx context.Context, locationID, inventoryItemID int64, available int) (*models.InventoryLevel, error) {
	body := map[string]interface{}{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	var out struct {
		InventoryLevel *models.InventoryLevel `json:"inventory_level"`
	}
	if _, err := s.do(ctx, http.MethodPost, "inventory_levels/set", nil, body, &out); err != nil {
		return nil, err
	}
	if out.InventoryLevel == nil {
		return nil, errors.New("empty inventory level in response")
	}
	return out.InventoryLevel, nil
}
