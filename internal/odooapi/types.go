package odooapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DATE_LAYOUT = "2006-01-02 15:04:05"

// ErrorOdoo is the "error" member of a JSON-RPC response.
type ErrorOdoo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Debug   string `json:"debug"`
	} `json:"data"`
}

func (e *ErrorOdoo) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("odoo error %d: %s: %s", e.Code, e.Data.Name, e.Data.Message)
	}
	return fmt.Sprintf("odoo error %d: %s", e.Code, e.Message)
}

var jsonFalse = []byte("false")

func isFalse(b []byte) bool {
	b = bytes.TrimSpace(b)
	return bytes.Equal(b, jsonFalse) || bytes.Equal(b, []byte("null"))
}

// Many2One reads [id, "display name"] pairs; false becomes the zero value.
type Many2One struct {
	ID   int
	Name string
}

func (m *Many2One) UnmarshalJSON(b []byte) error {
	if isFalse(b) {
		*m = Many2One{}
		return nil
	}
	var pair []any
	if err := json.Unmarshal(b, &pair); err != nil {
		var id int
		if errID := json.Unmarshal(b, &id); errID != nil {
			return errors.Wrapf(err, "invalid many2one %s", string(b))
		}
		*m = Many2One{ID: id}
		return nil
	}
	if len(pair) > 0 {
		if id, ok := pair[0].(float64); ok {
			m.ID = int(id)
		}
	}
	if len(pair) > 1 {
		m.Name, _ = pair[1].(string)
	}
	return nil
}

// String reads char and text fields, which come back as false when empty.
type String string

func (s *String) UnmarshalJSON(b []byte) error {
	if isFalse(b) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = String(v)
	return nil
}

// Decimal reads float fields into a decimal.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	if isFalse(b) {
		d.Decimal = decimal.Zero
		return nil
	}
	return d.Decimal.UnmarshalJSON(b)
}

// Datetime reads "2006-01-02 15:04:05" UTC values.
type Datetime struct {
	time.Time
}

func (d *Datetime) UnmarshalJSON(b []byte) error {
	if isFalse(b) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation(DATE_LAYOUT, s, time.UTC)
	if err != nil {
		return errors.Wrapf(err, "invalid datetime %s", s)
	}
	d.Time = t
	return nil
}

// FormatTime renders t the way the ORM stores datetimes.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DATE_LAYOUT)
}
