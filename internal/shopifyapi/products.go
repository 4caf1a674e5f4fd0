package shopifyapi

import (
	"context"
	"fmt"
	"net/http"

	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

func (s *shopifyapi) ProductListEach(ctx context.Context, fn func([]*models.Product) error, opts ...options.Option) error {
	return listEach[models.Product](ctx, s, "products", "products", buildParams(opts), fn)
}

func (s *shopifyapi) ProductGet(ctx context.Context, ID int64) (*models.Product, error) {
	var out struct {
		Product *models.Product `json:"product"`
	}
	endpoint := fmt.Sprintf("products/%d", ID)
	if _, err := s.do(ctx, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, errors.Errorf("empty product in response, endpoint:%s", endpoint)
	}
	return out.Product, nil
}

func (s *shopifyapi) ProductCreate(ctx context.Context, p *models.Product) (*models.Product, error) {
	logger := logging.GetLogger()
	logger.Debug("ProductCreate:>Start")
	defer logger.Debug("ProductCreate:>End")

	if p.Title == "" {
		return nil, errors.New("product title is empty")
	}
	var out struct {
		Product *models.Product `json:"product"`
	}
	if _, err := s.do(ctx, http.MethodPost, "products", nil, map[string]*models.Product{"product": p}, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, errors.New("empty product in response")
	}
	return out.Product, nil
}
