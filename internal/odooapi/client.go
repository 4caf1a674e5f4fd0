package odooapi

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

type Client struct {
	url      string
	db       string
	uid      int
	password string
	http     *resty.Client

	mu      sync.RWMutex
	context map[string]any
	id      atomic.Int64
}

type rpcRequest struct {
	JsonRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      int64          `json:"id"`
	Params  map[string]any `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *ErrorOdoo      `json:"error"`
}

var (
	clientOnce sync.Once
	client     *Client
)

// NewClient talks to <url>/jsonrpc as the given user.
func NewClient(url, db string, uid int, password string, timeout time.Duration) *Client {
	return &Client{
		url:      strings.TrimRight(url, "/") + "/jsonrpc",
		db:       db,
		uid:      uid,
		password: password,
		http:     resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		context:  map[string]any{},
	}
}

// GetClient returns the process-wide client built from the ODOO section.
func GetClient() *Client {
	clientOnce.Do(func() {
		cfg := config.GetConfig()
		logger := logging.GetLogger()
		logger.Infof("Init Odoo client %s, db %s", cfg.ODOO.URL, cfg.ODOO.DB)
		client = NewClient(cfg.ODOO.URL, cfg.ODOO.DB, cfg.ODOO.UserID, cfg.ODOO.Password,
			time.Duration(cfg.ODOO.Timeout)*time.Second)
	})
	return client
}

// GlobalContext merges values into the context sent with every call and
// returns a func restoring the previous one.
func (c *Client) GlobalContext(values map[string]any) (reset func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.context
	next := maps.Clone(previous)
	maps.Copy(next, values)
	c.context = next
	return func() {
		c.mu.Lock()
		c.context = previous
		c.mu.Unlock()
	}
}

func (c *Client) globalContext() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.context)
}

func (c *Client) jsonRpc(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	logger := logging.GetLogger()

	body := rpcRequest{
		JsonRPC: "2.0",
		Method:  "call",
		ID:      c.id.Add(1),
		Params: map[string]any{
			"service": service,
			"method":  method,
			"args":    append([]any{c.db, c.uid, c.password}, args...),
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return nil, errors.Wrap(err, "request error during Odoo JSON-RPC call")
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("non-200 response from Odoo JSON-RPC call: [%s] %s", resp.Status(), resp.String())
	}
	// decoded whatever the Content-Type says
	out := new(rpcResponse)
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, errors.Wrapf(err, "invalid response from Odoo JSON-RPC call: %s", resp.String())
	}
	if out.Error != nil {
		logger.Debugf("Odoo error: %s", out.Error.Data.Debug)
		return nil, out.Error
	}
	if out.Result == nil {
		return nil, errors.Errorf("result not found in response from Odoo JSON-RPC call: %s", resp.String())
	}
	return out.Result, nil
}

// ExecuteKw calls model.method(*args, **kwargs) with the global context
// merged under any context given in kwargs.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	logger := logging.GetLogger()
	if args == nil {
		args = []any{}
	}
	kw := map[string]any{}
	maps.Copy(kw, kwargs)
	callContext := c.globalContext()
	if local, ok := kw["context"].(map[string]any); ok {
		maps.Copy(callContext, local)
	}
	kw["context"] = callContext

	logger.Debugf("execute_kw %s.%s", model, method)
	return c.jsonRpc(ctx, "object", "execute_kw", []any{model, method, args, kw})
}

// Call runs a model method and decodes its result into out when out is not nil.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	result, err := c.ExecuteKw(ctx, model, method, args, kwargs)
	if err != nil {
		return errors.Wrapf(err, "failed in %s.%s", model, method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return errors.Wrapf(err, "invalid result of %s.%s", model, method)
	}
	return nil
}

// SearchReadInto decodes search_read records into out, a pointer to a slice.
func (c *Client) SearchReadInto(ctx context.Context, model string, domain []any, fields []string, limit int, order string, out any) error {
	if domain == nil {
		domain = []any{}
	}
	kwargs := map[string]any{
		"domain": domain,
		"fields": fields,
		"limit":  limit,
	}
	if order != "" {
		kwargs["order"] = order
	}
	return c.Call(ctx, model, "search_read", nil, kwargs, out)
}

func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit int) ([]map[string]any, error) {
	var records []map[string]any
	if err := c.SearchReadInto(ctx, model, domain, fields, limit, "", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) SearchCount(ctx context.Context, model string, domain []any) (int, error) {
	var count int
	if err := c.Call(ctx, model, "search_count", []any{domain}, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SearchReadOne fails unless exactly one record matches.
func (c *Client) SearchReadOne(ctx context.Context, model string, domain []any, fields []string) (map[string]any, error) {
	records, err := c.SearchRead(ctx, model, domain, fields, 2)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, errors.Errorf("search expected exactly 1 result, %d received", len(records))
	}
	return records[0], nil
}

// Read decodes the given records into out, a pointer to a slice.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string, out any) error {
	return c.Call(ctx, model, "read", []any{ids}, map[string]any{"fields": fields}, out)
}

func (c *Client) SearchIds(ctx context.Context, model string, domain []any, limit int) ([]int, error) {
	kwargs := map[string]any{}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	var ids []int
	if err := c.Call(ctx, model, "search", []any{domain}, kwargs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SearchFirstId returns 0 when nothing matches.
func (c *Client) SearchFirstId(ctx context.Context, model string, domain []any) (int, error) {
	ids, err := c.SearchIds(ctx, model, domain, 1)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

func (c *Client) CreateMulti(ctx context.Context, model string, data []map[string]any, kwargs map[string]any) ([]int, error) {
	var ids []int
	if err := c.Call(ctx, model, "create", []any{data}, kwargs, &ids); err != nil {
		return nil, err
	}
	if len(ids) != len(data) {
		return nil, errors.Errorf("invalid result from create, expected %d ids, got %d", len(data), len(ids))
	}
	return ids, nil
}

func (c *Client) Create(ctx context.Context, model string, data map[string]any, kwargs map[string]any) (int, error) {
	ids, err := c.CreateMulti(ctx, model, []map[string]any{data}, kwargs)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (c *Client) WriteMulti(ctx context.Context, model string, ids []int, data map[string]any) error {
	var ok bool
	if err := c.Call(ctx, model, "write", []any{ids, data}, nil, &ok); err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("write on %s %v returned false", model, ids)
	}
	return nil
}

func (c *Client) Write(ctx context.Context, model string, id int, data map[string]any) error {
	return c.WriteMulti(ctx, model, []int{id}, data)
}

func (c *Client) Unlink(ctx context.Context, model string, ids []int) error {
	return c.Call(ctx, model, "unlink", []any{ids}, nil, nil)
}

// FindFirstOrCreate returns the first record matching domain or creates one from data.
func (c *Client) FindFirstOrCreate(ctx context.Context, model string, domain []any, data map[string]any) (id int, created bool, err error) {
	id, err = c.SearchFirstId(ctx, model, domain)
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to search %s", model)
	}
	if id != 0 {
		return id, false, nil
	}
	id, err = c.Create(ctx, model, data, nil)
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to create %s", model)
	}
	return id, true, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("%s db=%s uid=%d", c.url, c.db, c.uid)
}
