package models

import "time"

type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Legacy      bool   `json:"legacy"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

type InventoryLevel struct {
	InventoryItemID int64      `json:"inventory_item_id"`
	LocationID      int64      `json:"location_id"`
	Available       *int       `json:"available"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type Shop struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Domain            string `json:"domain"`
	MyshopifyDomain   string `json:"myshopify_domain"`
	Currency          string `json:"currency"`
	IanaTimezone      string `json:"iana_timezone"`
	PrimaryLocationID int64  `json:"primary_location_id"`
	PlanName          string `json:"plan_name"`
}
