package client // import "ShopifyWithOdoo/internal/shopifyapi/client"

import (
	"net/http"
	"net/url"

	"ShopifyWithOdoo/internal/shopifyapi/request"
)

// Client is upper level class which delegate all work to Sender
type Client struct {
	sender Sender
}

func NewClient(sender Sender) Client {
	return Client{sender: sender}
}

// Get Method loads data from Endpoint with specified parameters
func (c *Client) Get(endpoint string, parameters url.Values) (*http.Response, error) {
	return c.sender.Send(request.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Values:   parameters,
	})
}

// Post Method usually creates new instances
func (c *Client) Post(endpoint string, parameters url.Values, body interface{}) (*http.Response, error) {
	return c.sender.Send(request.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Values:   parameters,
		Body:     body,
	})
}

// Put Method usually update existing instances
func (c *Client) Put(endpoint string, body interface{}) (*http.Response, error) {
	return c.sender.Send(request.Request{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Body:     body,
	})
}

// Delete Method usually removes existing instances
func (c *Client) Delete(endpoint string, parameters url.Values) (*http.Response, error) {
	return c.sender.Send(request.Request{
		Method:   http.MethodDelete,
		Endpoint: endpoint,
		Values:   parameters,
	})
}
