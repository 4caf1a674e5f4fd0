package models

import (
	"encoding/json"
	"fmt"
)

// ErrorShopify is the error payload of a non-2xx response.
type ErrorShopify struct {
	StatusCode int             `json:"-"`
	Errors     json.RawMessage `json:"errors"`
	Message    string          `json:"error"`
}

func (e *ErrorShopify) Error() string {
	msg := e.Message
	if len(e.Errors) > 0 {
		var s string
		if err := json.Unmarshal(e.Errors, &s); err == nil {
			msg = s
		} else {
			msg = string(e.Errors)
		}
	}
	return fmt.Sprintf("status:%d; errors:%s;", e.StatusCode, msg)
}
