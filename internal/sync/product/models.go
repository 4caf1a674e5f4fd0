package product

import (
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
)

const (
	ALREADY_MAPPED = "ALREADY_MAPPED" // Skip - variant linked before and SkipExisting is on
	LINKED         = "LINKED"         // Save mapping - ERP product found by sku or barcode
	NEED_CREATE    = "NEED_CREATE"    // Create in ERP - not found, AutoImportProduct is on
	NOT_FOUND      = "NOT_FOUND"      // Log - not found in ERP
	NO_CODE        = "NO_CODE"        // Log - variant without sku or barcode to match on
)

// PRODUCT_CHUNK is the number of products per import queue.
const PRODUCT_CHUNK = 250

type VariantSync struct {
	*models.Variant
	Product    *models.Product
	ErpProduct *erp.Product
	StatusSync string
}

// lineData is what a product queue line carries.
type lineData struct {
	SkipExisting bool            `json:"skip_existing"`
	Product      *models.Product `json:"product"`
}
