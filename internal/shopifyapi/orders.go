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

// OrderList returns one page of orders and the cursor of the next one.
func (s *shopifyapi) OrderList(ctx context.Context, opts ...options.Option) ([]*models.Order, string, error) {
	logger := logging.GetLogger()
	logger.Debug("OrderList:>Start")
	defer logger.Debug("OrderList:>End")

	var out struct {
		Orders []*models.Order `json:"orders"`
	}
	header, err := s.do(ctx, http.MethodGet, "orders", buildParams(opts), nil, &out)
	if err != nil {
		return nil, "", err
	}
	return out.Orders, NextPageInfo(header.Get("Link")), nil
}

func (s *shopifyapi) OrderListEach(ctx context.Context, fn func([]*models.Order) error, opts ...options.Option) error {
	logger := logging.GetLogger()
	logger.Debug("OrderListEach:>Start")
	defer logger.Debug("OrderListEach:>End")

	return listEach[models.Order](ctx, s, "orders", "orders", buildParams(opts), fn)
}

func (s *shopifyapi) OrderGet(ctx context.Context, ID int64) (*models.Order, error) {
	var out struct {
		Order *models.Order `json:"order"`
	}
	endpoint := fmt.Sprintf("orders/%d", ID)
	if _, err := s.do(ctx, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, errors.Errorf("empty order in response, endpoint:%s", endpoint)
	}
	return out.Order, nil
}

func (s *shopifyapi) OrderRisks(ctx context.Context, ID int64) ([]*models.Risk, error) {
	var out struct {
		Risks []*models.Risk `json:"risks"`
	}
	if _, err := s.do(ctx, http.MethodGet, fmt.Sprintf("orders/%d/risks", ID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Risks, nil
}

func (s *shopifyapi) OrderClose(ctx context.Context, ID int64) (*models.Order, error) {
	var out struct {
		Order *models.Order `json:"order"`
	}
	if _, err := s.do(ctx, http.MethodPost, fmt.Sprintf("orders/%d/close", ID), nil, map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return out.Order, nil
}

func (s *shopifyapi) FulfillmentCreate(ctx context.Context, orderID int64, f *models.Fulfillment) (*models.Fulfillment, error) {
	logger := logging.GetLogger()
	logger.Debug("FulfillmentCreate:>Start")
	defer logger.Debug("FulfillmentCreate:>End")

	if len(f.LineItems) == 0 {
		return nil, errors.New("fulfillment without line items")
	}
	body := map[string]*models.Fulfillment{"fulfillment": f}
	var out struct {
		Fulfillment *models.Fulfillment `json:"fulfillment"`
	}
	if _, err := s.do(ctx, http.MethodPost, fmt.Sprintf("orders/%d/fulfillments", orderID), nil, body, &out); err != nil {
		return nil, err
	}
	if out.Fulfillment == nil {
		return nil, errors.New("empty fulfillment in response")
	}
	return out.Fulfillment, nil
}
