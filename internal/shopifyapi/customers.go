package shopifyapi

import (
	"context"

	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
)

func (s *shopifyapi) CustomerListEach(ctx context.Context, fn func([]*models.Customer) error, opts ...options.Option) error {
	return listEach[models.Customer](ctx, s, "customers", "customers", buildParams(opts), fn)
}
