package client // import "ShopifyWithOdoo/internal/shopifyapi/client"

import (
	"net/http"

	"ShopifyWithOdoo/internal/shopifyapi/request"
)

// Sender interface
type Sender interface {
	Send(req request.Request) (resp *http.Response, err error)
}
