// Package shopifytest provides an in-memory ShopifyAPI for tests.
package shopifytest

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"github.com/pkg/errors"
)

type Fake struct {
	mu sync.Mutex

	Shop      *models.Shop
	Orders    map[int64]*models.Order
	Risks     map[int64][]*models.Risk
	Customers []*models.Customer
	Products  map[int64]*models.Product
	Locations []*models.Location
	Levels    []*models.InventoryLevel

	// FulfillmentErr is returned by FulfillmentCreate when set.
	FulfillmentErr error

	Fulfillments map[int64][]*models.Fulfillment
	Closed       []int64
	LevelsSet    []models.InventoryLevel
	Created      []*models.Product
	Queries      []url.Values

	nextID int64
}

func New() *Fake {
	return &Fake{
		Shop:         &models.Shop{ID: 1, Name: "Test shop", Currency: "USD", IanaTimezone: "UTC"},
		Orders:       map[int64]*models.Order{},
		Risks:        map[int64][]*models.Risk{},
		Products:     map[int64]*models.Product{},
		Fulfillments: map[int64][]*models.Fulfillment{},
		nextID:       9000000,
	}
}

func (f *Fake) AddOrder(o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Orders[o.ID] = o
}

func (f *Fake) AddProduct(p *models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Products[p.ID] = p
}

func params(opts []options.Option) url.Values {
	v := url.Values{}
	o := new(options.OptionStruct)
	for _, field := range opts {
		field(o)
		v.Set(o.Key, o.Value)
	}
	return v
}

func idFilter(v url.Values) map[int64]bool {
	raw := v.Get("ids")
	if raw == "" {
		return nil
	}
	ids := map[int64]bool{}
	for _, s := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

func (f *Fake) ShopGet(ctx context.Context) (*models.Shop, error) {
	return f.Shop, nil
}

func (f *Fake) OrderList(ctx context.Context, opts ...options.Option) ([]*models.Order, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := params(opts)
	f.Queries = append(f.Queries, v)
	ids := idFilter(v)
	status := v.Get("fulfillment_status")

	var result []*models.Order
	for _, o := range f.Orders {
		if ids != nil && !ids[o.ID] {
			continue
		}
		if status != "" && status != "any" && !matchFulfillmentStatus(o, status) {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, "", nil
}

func matchFulfillmentStatus(o *models.Order, status string) bool {
	switch status {
	case "shipped":
		return o.FulfillmentStatus == models.FULFILLMENT_STATUS_FULFILLED
	case "unshipped":
		return o.FulfillmentStatus == ""
	default:
		return o.FulfillmentStatus == status
	}
}

func (f *Fake) OrderListEach(ctx context.Context, fn func([]*models.Order) error, opts ...options.Option) error {
	orders, _, err := f.OrderList(ctx, opts...)
	if err != nil || len(orders) == 0 {
		return err
	}
	return fn(orders)
}

func (f *Fake) OrderGet(ctx context.Context, ID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[ID]
	if !ok {
		return nil, &models.ErrorShopify{StatusCode: 404, Message: "Not Found"}
	}
	return o, nil
}

func (f *Fake) OrderRisks(ctx context.Context, ID int64) ([]*models.Risk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Risks[ID], nil
}

func (f *Fake) OrderClose(ctx context.Context, ID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = append(f.Closed, ID)
	return f.Orders[ID], nil
}

func (f *Fake) FulfillmentCreate(ctx context.Context, orderID int64, ful *models.Fulfillment) (*models.Fulfillment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FulfillmentErr != nil {
		return nil, f.FulfillmentErr
	}
	if len(ful.LineItems) == 0 {
		return nil, errors.New("fulfillment without line items")
	}
	f.nextID++
	created := *ful
	created.ID = f.nextID
	created.OrderID = orderID
	f.Fulfillments[orderID] = append(f.Fulfillments[orderID], &created)
	return &created, nil
}

func (f *Fake) CustomerListEach(ctx context.Context, fn func([]*models.Customer) error, opts ...options.Option) error {
	f.mu.Lock()
	f.Queries = append(f.Queries, params(opts))
	customers := append([]*models.Customer(nil), f.Customers...)
	f.mu.Unlock()
	if len(customers) == 0 {
		return nil
	}
	return fn(customers)
}

func (f *Fake) ProductListEach(ctx context.Context, fn func([]*models.Product) error, opts ...options.Option) error {
	f.mu.Lock()
	v := params(opts)
	f.Queries = append(f.Queries, v)
	ids := idFilter(v)
	var products []*models.Product
	for _, p := range f.Products {
		if ids != nil && !ids[p.ID] {
			continue
		}
		products = append(products, p)
	}
	f.mu.Unlock()
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	if len(products) == 0 {
		return nil
	}
	return fn(products)
}

func (f *Fake) ProductGet(ctx context.Context, ID int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Products[ID]
	if !ok {
		return nil, &models.ErrorShopify{StatusCode: 404, Message: "Not Found"}
	}
	return p, nil
}

func (f *Fake) ProductCreate(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *p
	created.ID = f.nextID
	created.Variants = nil
	for _, v := range p.Variants {
		f.nextID++
		v.ID = f.nextID
		v.ProductID = created.ID
		f.nextID++
		v.InventoryItemID = f.nextID
		created.Variants = append(created.Variants, v)
	}
	f.Products[created.ID] = &created
	f.Created = append(f.Created, &created)
	return &created, nil
}

func (f *Fake) LocationList(ctx context.Context) ([]*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Locations, nil
}

func (f *Fake) InventoryLevelListEach(ctx context.Context, fn func([]*models.InventoryLevel) error, opts ...options.Option) error {
	f.mu.Lock()
	v := params(opts)
	f.Queries = append(f.Queries, v)
	var levels []*models.InventoryLevel
	for _, l := range f.Levels {
		if loc := v.Get("location_ids"); loc != "" && loc != strconv.FormatInt(l.LocationID, 10) {
			continue
		}
		levels = append(levels, l)
	}
	f.mu.Unlock()
	if len(levels) == 0 {
		return nil
	}
	return fn(levels)
}

func (f *Fake) InventoryLevelSet(ctx context.Context, locationID, inventoryItemID int64, available int) (*models.InventoryLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := available
	level := models.InventoryLevel{LocationID: locationID, InventoryItemID: inventoryItemID, Available: &a}
	f.LevelsSet = append(f.LevelsSet, level)
	return &level, nil
}
