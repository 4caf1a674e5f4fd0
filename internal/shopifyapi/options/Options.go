package options

import (
	"strconv"
	"strings"
	"time"
)

// DATE_LAYOUT is the format of the *_min / *_max filters.
const DATE_LAYOUT = "2006-01-02T15:04:05-0700"

type OptionStruct struct {
	Key   string
	Value string
}

type Option func(*OptionStruct)

func Limit(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "limit"
		f.Value = strconv.Itoa(value)
	}
}

func PageInfo(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "page_info"
		f.Value = value
	}
}

// Status of orders: open, closed, cancelled, any
func Status(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "status"
		f.Value = value
	}
}

// FulfillmentStatus of orders: shipped, partial, unshipped, any, unfulfilled
func FulfillmentStatus(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "fulfillment_status"
		f.Value = value
	}
}

func FinancialStatus(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "financial_status"
		f.Value = value
	}
}

func UpdatedAtMin(value time.Time) Option {
	return func(f *OptionStruct) {
		f.Key = "updated_at_min"
		f.Value = value.Format(DATE_LAYOUT)
	}
}

func UpdatedAtMax(value time.Time) Option {
	return func(f *OptionStruct) {
		f.Key = "updated_at_max"
		f.Value = value.Format(DATE_LAYOUT)
	}
}

func CreatedAtMin(value time.Time) Option {
	return func(f *OptionStruct) {
		f.Key = "created_at_min"
		f.Value = value.Format(DATE_LAYOUT)
	}
}

func IDs(values []int64) Option {
	return func(f *OptionStruct) {
		f.Key = "ids"
		f.Value = joinInt64(values)
	}
}

func LocationIDs(values []int64) Option {
	return func(f *OptionStruct) {
		f.Key = "location_ids"
		f.Value = joinInt64(values)
	}
}

func InventoryItemIDs(values []int64) Option {
	return func(f *OptionStruct) {
		f.Key = "inventory_item_ids"
		f.Value = joinInt64(values)
	}
}

func Fields(values ...string) Option {
	return func(f *OptionStruct) {
		f.Key = "fields"
		f.Value = strings.Join(values, ",")
	}
}

func joinInt64(values []int64) string {
	s := make([]string, 0, len(values))
	for _, v := range values {
		s = append(s, strconv.FormatInt(v, 10))
	}
	return strings.Join(s, ",")
}
