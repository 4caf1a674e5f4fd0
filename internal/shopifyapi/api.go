package shopifyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/shopifyapi/client"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/net"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// PAGE_LIMIT is the largest page Shopify returns.
const PAGE_LIMIT = 250

// RetryAfter is how long a request waits before its single retry on 429.
var RetryAfter = 5 * time.Second

type ShopifyAPI interface {
	ShopGet(ctx context.Context) (*models.Shop, error)

	OrderList(ctx context.Context, opts ...options.Option) ([]*models.Order, string, error)
	OrderListEach(ctx context.Context, fn func([]*models.Order) error, opts ...options.Option) error
	OrderGet(ctx context.Context, ID int64) (*models.Order, error)
	OrderRisks(ctx context.Context, ID int64) ([]*models.Risk, error)
	OrderClose(ctx context.Context, ID int64) (*models.Order, error)
	FulfillmentCreate(ctx context.Context, orderID int64, f *models.Fulfillment) (*models.Fulfillment, error)

	CustomerListEach(ctx context.Context, fn func([]*models.Customer) error, opts ...options.Option) error

	ProductListEach(ctx context.Context, fn func([]*models.Product) error, opts ...options.Option) error
	ProductGet(ctx context.Context, ID int64) (*models.Product, error)
	ProductCreate(ctx context.Context, p *models.Product) (*models.Product, error)

	LocationList(ctx context.Context) ([]*models.Location, error)
	InventoryLevelListEach(ctx context.Context, fn func([]*models.InventoryLevel) error, opts ...options.Option) error
	InventoryLevelSet(ctx context.Context, locationID, inventoryItemID int64, available int) (*models.InventoryLevel, error)
}

var (
	apisMu sync.Mutex
	apis   = map[string]ShopifyAPI{}
)

type shopifyapi struct {
	host    string
	api     client.Client
	limiter *rate.Limiter
}

// NewAPI creates the client of an instance and registers it for GetAPI.
func NewAPI(instance *config.Instance) ShopifyAPI {
	logger := logging.GetLogger()
	logger.Infof("Init Shopify API for instance %s, host %s", instance.Name, instance.Host)

	sender := net.NewSender(instance.Host, instance.ApiVersion, instance.AccessToken, 60*time.Second)
	api := NewAPIWithSender(instance.Host, instance.RPS, sender)

	apisMu.Lock()
	apis[instance.Name] = api
	apisMu.Unlock()
	return api
}

// NewAPIWithSender builds a client over any Sender; tests pass a SenderMock.
func NewAPIWithSender(host string, rps int, sender client.Sender) ShopifyAPI {
	if rps <= 0 {
		rps = 2
	}
	return &shopifyapi{
		host:    host,
		api:     client.NewClient(sender),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// GetAPI returns the client registered for an instance, nil when none.
func GetAPI(instance string) ShopifyAPI {
	apisMu.Lock()
	defer apisMu.Unlock()
	return apis[instance]
}

// CheckRPS waits for the request budget of the store.
func (s *shopifyapi) CheckRPS(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

func (s *shopifyapi) send(method, endpoint string, params url.Values, body interface{}) (*http.Response, error) {
	switch method {
	case http.MethodPost:
		return s.api.Post(endpoint, params, body)
	case http.MethodPut:
		return s.api.Put(endpoint, body)
	case http.MethodDelete:
		return s.api.Delete(endpoint, params)
	default:
		return s.api.Get(endpoint, params)
	}
}

// do sends one request, retries it once after RetryAfter on HTTP 429 and
// decodes a 2xx body into out. The response header is returned for pagination.
func (s *shopifyapi) do(ctx context.Context, method, endpoint string, params url.Values, body, out interface{}) (http.Header, error) {
	logger := logging.GetLogger()
	logger.Debugf("%s %s %v", method, endpoint, params)

	for attempt := 0; ; attempt++ {
		if err := s.CheckRPS(ctx); err != nil {
			return nil, errors.Wrap(err, "failed in CheckRPS")
		}

		r, err := s.send(method, endpoint, params, body)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to send request to Shopify API, endpoint:%s", endpoint)
		}
		bodyBytes, err := io.ReadAll(r.Body)
		if errClose := r.Body.Close(); errClose != nil {
			logger.Errorf("failed Body.Close()")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed io.ReadAll(r.Body), endpoint:%s", endpoint)
		}
		logger.Debug(string(bodyBytes))

		if r.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			logger.Infof("Too Many Requests, endpoint:%s, retry in %s", endpoint, RetryAfter)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RetryAfter):
			}
			continue
		}

		if r.StatusCode < 200 || r.StatusCode > 299 {
			errorShopify := &models.ErrorShopify{StatusCode: r.StatusCode}
			if len(bodyBytes) > 0 {
				if err := json.Unmarshal(bodyBytes, errorShopify); err != nil {
					errorShopify.Message = string(bodyBytes)
				}
			}
			if errorShopify.Message == "" && len(errorShopify.Errors) == 0 {
				errorShopify.Message = http.StatusText(r.StatusCode)
			}
			return nil, errorShopify
		}

		if out != nil && len(bodyBytes) > 0 {
			if err := json.Unmarshal(bodyBytes, out); err != nil {
				return nil, errors.Wrapf(err, "failed json.Unmarshal(), endpoint:%s", endpoint)
			}
		}
		return r.Header, nil
	}
}

func buildParams(opts []options.Option) url.Values {
	params := url.Values{}
	Option := new(options.OptionStruct)
	for _, field := range opts {
		field(Option)
		params.Set(Option.Key, Option.Value)
	}
	return params
}

// listEach follows the page_info cursor of a list endpoint and hands every
// page to fn. After the first page only limit, fields and page_info may be sent.
func listEach[T any](ctx context.Context, s *shopifyapi, endpoint, key string, params url.Values, fn func([]*T) error) error {
	logger := logging.GetLogger()
	if params.Get("limit") == "" {
		params.Set("limit", fmt.Sprint(PAGE_LIMIT))
	}
	page := 1
	for {
		out := map[string][]*T{}
		header, err := s.do(ctx, http.MethodGet, endpoint, params, nil, &out)
		if err != nil {
			return errors.Wrapf(err, "failed to load page %d of %s", page, endpoint)
		}
		if items := out[key]; len(items) > 0 {
			if err := fn(items); err != nil {
				return err
			}
		}
		next := NextPageInfo(header.Get("Link"))
		if next == "" {
			return nil
		}
		logger.Debugf("Page load:%d, next page_info %s", page, next)
		nextParams := url.Values{}
		nextParams.Set("limit", params.Get("limit"))
		if fields := params.Get("fields"); fields != "" {
			nextParams.Set("fields", fields)
		}
		nextParams.Set("page_info", next)
		params = nextParams
		page++
	}
}

func (s *shopifyapi) ShopGet(ctx context.Context) (*models.Shop, error) {
	logger := logging.GetLogger()
	logger.Debug("ShopGet:>Start")
	defer logger.Debug("ShopGet:>End")

	var out struct {
		Shop *models.Shop `json:"shop"`
	}
	if _, err := s.do(ctx, http.MethodGet, "shop", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Shop == nil {
		return nil, errors.New("empty shop in response")
	}
	return out.Shop, nil
}
