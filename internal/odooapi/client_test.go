package odooapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedCall struct {
	Service string
	Method  string
	Args    []any
}

func newTestServer(t *testing.T, reply func(call capturedCall) string) (*Client, *[]capturedCall) {
	var calls []capturedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jsonrpc", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			Params struct {
				Service string `json:"service"`
				Method  string `json:"method"`
				Args    []any  `json:"args"`
			} `json:"params"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		call := capturedCall{Service: req.Params.Service, Method: req.Params.Method, Args: req.Params.Args}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply(call))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "odoo", 2, "secret", 5*time.Second), &calls
}

func TestExecuteKwEnvelope(t *testing.T) {
	Assert := assert.New(t)
	c, calls := newTestServer(t, func(call capturedCall) string {
		return `{"jsonrpc":"2.0","id":1,"result":[{"id":7,"name":"Azure","parent_id":false,"country_id":[233,"United States"]}]}`
	})

	reset := c.GlobalContext(map[string]any{"lang": "en_US"})
	defer reset()

	var partners []struct {
		ID        int      `json:"id"`
		Name      String   `json:"name"`
		ParentID  Many2One `json:"parent_id"`
		CountryID Many2One `json:"country_id"`
	}
	err := c.SearchReadInto(context.Background(), "res.partner", []any{[]any{"email", "=ilike", "a@b.c"}}, []string{"name"}, 1, "", &partners)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	Assert.Equal("object", call.Service)
	Assert.Equal("execute_kw", call.Method)
	Assert.Equal([]any{"odoo", float64(2), "secret", "res.partner", "search_read", []any{}}, call.Args[:6])
	kwargs := call.Args[6].(map[string]any)
	Assert.Equal(map[string]any{"lang": "en_US"}, kwargs["context"])
	Assert.Equal(float64(1), kwargs["limit"])

	require.Len(t, partners, 1)
	Assert.Equal(7, partners[0].ID)
	Assert.Equal(String("Azure"), partners[0].Name)
	Assert.Equal(0, partners[0].ParentID.ID)
	Assert.Equal(Many2One{ID: 233, Name: "United States"}, partners[0].CountryID)
}

func TestGlobalContextReset(t *testing.T) {
	Assert := assert.New(t)
	c := NewClient("http://localhost", "odoo", 2, "secret", time.Second)
	reset := c.GlobalContext(map[string]any{"allowed_company_ids": []int{1}})
	Assert.Contains(c.globalContext(), "allowed_company_ids")
	reset()
	Assert.Empty(c.globalContext())
}

func TestErrorOdoo(t *testing.T) {
	Assert := assert.New(t)
	c, _ := newTestServer(t, func(call capturedCall) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.UserError","message":"You can not delete a posted entry.","debug":"Traceback"}}}`
	})

	err := c.Unlink(context.Background(), "account.move", []int{3})
	require.Error(t, err)
	var errOdoo *ErrorOdoo
	Assert.ErrorAs(err, &errOdoo)
	Assert.Equal("You can not delete a posted entry.", errOdoo.Data.Message)
	Assert.Contains(err.Error(), "account.move.unlink")
}

func TestCreateAndWrite(t *testing.T) {
	Assert := assert.New(t)
	c, calls := newTestServer(t, func(call capturedCall) string {
		switch call.Args[4] {
		case "create":
			return `{"jsonrpc":"2.0","id":1,"result":[41]}`
		case "write":
			return `{"jsonrpc":"2.0","id":2,"result":true}`
		case "search":
			return `{"jsonrpc":"2.0","id":3,"result":[]}`
		}
		return `{"jsonrpc":"2.0","id":4,"result":false}`
	})
	ctx := context.Background()

	id, created, err := c.FindFirstOrCreate(ctx, "delivery.carrier", []any{[]any{"name", "=", "UPS"}}, map[string]any{"name": "UPS"})
	require.NoError(t, err)
	Assert.Equal(41, id)
	Assert.True(created)

	err = c.Write(ctx, "sale.order", 41, map[string]any{"note": "x", "order_line": []any{Command.Create(map[string]any{"name": "l"})}})
	require.NoError(t, err)
	Assert.Len(*calls, 3)

	err = c.Call(ctx, "sale.order", "action_confirm", []any{[]int{41}}, nil, nil)
	Assert.NoError(err)
}

func TestNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "odoo", 2, "secret", time.Second)
	_, err := c.SearchCount(context.Background(), "res.partner", []any{})
	assert.ErrorContains(t, err, "non-200 response")
}

func TestResponseWithoutJSONContentType(t *testing.T) {
	Assert := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":3}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "odoo", 2, "secret", time.Second)

	count, err := c.SearchCount(context.Background(), "res.partner", []any{})
	require.NoError(t, err)
	Assert.Equal(3, count)
}

func TestInvalidResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "odoo", 2, "secret", time.Second)
	_, err := c.SearchCount(context.Background(), "res.partner", []any{})
	assert.ErrorContains(t, err, "invalid response from Odoo JSON-RPC call")
}

func TestCommand(t *testing.T) {
	Assert := assert.New(t)
	Assert.Equal([]any{0, 0, map[string]any{"a": 1}}, Command.Create(map[string]any{"a": 1}))
	Assert.Equal([]any{1, 5, map[string]any{"a": 1}}, Command.Update(5, map[string]any{"a": 1}))
	Assert.Equal([]any{4, 5, 0}, Command.Link(5))
	Assert.Equal([]any{5, 0, 0}, Command.Clear())
	Assert.Equal([]any{6, 0, []int{1, 2}}, Command.Set([]int{1, 2}))
}

func TestDatetime(t *testing.T) {
	var d struct {
		At Datetime `json:"at"`
		No Datetime `json:"no"`
		Am Decimal  `json:"am"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2024-03-01 10:20:30","no":false,"am":12.5}`), &d))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), d.At.Time)
	assert.True(t, d.No.IsZero())
	assert.Equal(t, "12.5", d.Am.String())
	assert.Equal(t, "2024-03-01 10:20:30", FormatTime(d.At.Time))
}
