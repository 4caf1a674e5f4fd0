package models

import "time"

type Fulfillment struct {
	ID              int64             `json:"id,omitempty"`
	OrderID         int64             `json:"order_id,omitempty"`
	Status          string            `json:"status,omitempty"`
	LocationID      int64             `json:"location_id"`
	TrackingNumbers []string          `json:"tracking_numbers,omitempty"`
	TrackingUrls    []string          `json:"tracking_urls,omitempty"`
	TrackingCompany string            `json:"tracking_company,omitempty"`
	NotifyCustomer  bool              `json:"notify_customer"`
	LineItems       []FulfillmentLine `json:"line_items"`
	CreatedAt       *time.Time        `json:"created_at,omitempty"`
}

type FulfillmentLine struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}
