package net // import "ShopifyWithOdoo/internal/shopifyapi/net"

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ShopifyWithOdoo/internal/shopifyapi/request"
	"github.com/go-resty/resty/v2"
)

// Sender provides HTTP Requests to the Shopify Admin REST API
type Sender struct {
	baseURL string
	client  *resty.Client
}

func NewSender(host, apiVersion, accessToken string, timeout time.Duration) *Sender {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("X-Shopify-Access-Token", accessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Sender{
		baseURL: fmt.Sprintf("https://%s/admin/api/%s/", host, apiVersion),
		client:  c,
	}
}

// URL of an endpoint like "orders" or "orders/450789469/risks"
func (s *Sender) URL(endpoint string) string {
	return s.baseURL + strings.TrimPrefix(endpoint, "/") + ".json"
}

// Send method sends requests to Shopify API. The body of the response is left unread.
func (s *Sender) Send(req request.Request) (resp *http.Response, err error) {
	r := s.client.R().SetDoNotParseResponse(true)
	if req.Values != nil {
		r.SetQueryParamsFromValues(req.Values)
	}
	if req.Body != nil && (req.Method == http.MethodPost || req.Method == http.MethodPut) {
		r.SetBody(req.Body)
	}
	res, err := r.Execute(req.Method, s.URL(req.Endpoint))
	if err != nil {
		return nil, err
	}
	return res.RawResponse, nil
}
