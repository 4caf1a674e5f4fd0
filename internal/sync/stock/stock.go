// Package stock moves quantities between ERP warehouses and Shopify locations.
package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// EXPORT_DAYS is the look-back of the first stock export.
const EXPORT_DAYS = 30

// INVENTORY_CHUNK is the number of lines per inventory adjustment.
const INVENTORY_CHUNK = 100

// target is a Shopify location and the ERP warehouses feeding it.
type target struct {
	LocationID int64
	Warehouses []int
}

// FixQuantity caps the exported quantity as configured. Quantities below one
// are exported unchanged.
func FixQuantity(instance *config.Instance, actual int) int {
	if actual < 1 {
		return actual
	}
	switch instance.FixStockType {
	case config.FIX_STOCK_FIX:
		if instance.FixStockValue < actual {
			return instance.FixStockValue
		}
	case config.FIX_STOCK_PERCENTAGE:
		if capped := actual * instance.FixStockValue / 100; capped < actual {
			return capped
		}
	}
	return actual
}

// exportTargets are the mapped locations with export warehouses, or the
// primary location fed by the instance warehouse when nothing is mapped.
func exportTargets(c *connector.Connector) ([]target, error) {
	var targets []target
	for id, l := range c.Config.LocationsOf(c.Name) {
		if len(l.ExportStockWarehouse) > 0 {
			targets = append(targets, target{LocationID: id, Warehouses: l.ExportStockWarehouse})
		}
	}
	if len(targets) == 0 {
		primary, err := mapping.PrimaryLocation(c.DB, c.Name)
		if err != nil {
			return nil, err
		}
		if primary != nil {
			targets = append(targets, target{LocationID: primary.ShopifyLocationID, Warehouses: []int{c.Instance.WarehouseID}})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].LocationID < targets[j].LocationID })
	return targets, nil
}

// ExportStock sets the Shopify inventory level of every mapped variant whose
// product moved since the given date (the last export when zero). It returns
// the number of levels set.
func ExportStock(ctx context.Context, c *connector.Connector, since time.Time) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ExportStock")
	defer logger.Info("End ExportStock")

	var err error
	if since.IsZero() {
		if since, err = database.GetDate(c.DB, c.Name, database.LAST_DATE_UPDATE_STOCK); err != nil {
			return 0, err
		}
	}
	started := database.Now()
	if since.IsZero() {
		since = started.AddDate(0, 0, -EXPORT_DAYS)
	}

	moved, err := c.ERP.ProductsMovedSince(ctx, since)
	if err != nil {
		return 0, errors.Wrap(err, "failed in ProductsMovedSince")
	}
	stocked, err := mapping.ListStocked(c.DB, c.Name)
	if err != nil {
		return 0, err
	}
	var productIDs []int
	for _, id := range moved {
		if _, ok := stocked[id]; ok {
			productIDs = append(productIDs, id)
		}
	}
	sort.Ints(productIDs)
	if len(productIDs) == 0 {
		logger.Info("No product to export stock")
		return 0, database.SetDate(c.DB, c.Name, database.LAST_DATE_UPDATE_STOCK, started)
	}

	targets, err := exportTargets(c)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, errors.Errorf("no Shopify location to export stock of instance %s, import locations first", c.Name)
	}

	book, err := c.NewLogBook(logbook.TYPE_EXPORT, logbook.MODEL_STOCK)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	var count int
	for _, t := range targets {
		quantities, err := c.ERP.ProductQuantities(ctx, productIDs, t.Warehouses, c.Instance.StockField)
		if err != nil {
			return count, errors.Wrap(err, "failed in ProductQuantities")
		}
		for _, productID := range productIDs {
			qty := FixQuantity(c.Instance, int(quantities[productID].IntPart()))
			for _, v := range stocked[productID] {
				if _, err := c.Shopify.InventoryLevelSet(ctx, t.LocationID, v.InventoryItemID, qty); err != nil {
					logger.Errorf("failed to set stock of %s at %d: %v", v.DefaultCode, t.LocationID, err)
					_ = book.Add(c.DB, logbook.Entry{
						Model:       logbook.MODEL_STOCK,
						Message:     fmt.Sprintf("Stock of %s not exported to location %d: %v", v.DefaultCode, t.LocationID, err),
						DefaultCode: v.DefaultCode,
						ResID:       productID,
					})
					continue
				}
				count++
			}
		}
	}
	logger.Infof("%d inventory levels exported", count)
	return count, database.SetDate(c.DB, c.Name, database.LAST_DATE_UPDATE_STOCK, started)
}

// ImportStock adjusts the ERP inventory of every mapped location's import
// warehouse to the Shopify levels. It returns the number of lines applied.
func ImportStock(ctx context.Context, c *connector.Connector) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportStock")
	defer logger.Info("End ImportStock")

	book, err := c.NewLogBook(logbook.TYPE_IMPORT, logbook.MODEL_STOCK)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	locations := c.Config.LocationsOf(c.Name)
	locationIDs := make([]int64, 0, len(locations))
	for id, l := range locations {
		if l.ImportStockWarehouse != 0 {
			locationIDs = append(locationIDs, id)
		}
	}
	sort.Slice(locationIDs, func(i, j int) bool { return locationIDs[i] < locationIDs[j] })

	var count int
	for _, locationID := range locationIDs {
		warehouseID := locations[locationID].ImportStockWarehouse
		lines, err := inventoryLines(ctx, c, locationID, book)
		if err != nil {
			return count, err
		}
		if len(lines) == 0 {
			continue
		}
		stockLocationID, err := c.ERP.WarehouseStockLocation(ctx, warehouseID)
		if err != nil {
			return count, errors.Wrap(err, "failed in WarehouseStockLocation")
		}
		for start := 0; start < len(lines); start += INVENTORY_CHUNK {
			end := start + INVENTORY_CHUNK
			if end > len(lines) {
				end = len(lines)
			}
			if err := c.ERP.ApplyInventory(ctx, stockLocationID, lines[start:end], c.Instance.AutoValidateInventory); err != nil {
				return count, errors.Wrap(err, "failed in ApplyInventory")
			}
			count += end - start
		}
	}
	return count, nil
}

// inventoryLines reads the levels of one location as inventory lines of
// mapped products.
func inventoryLines(ctx context.Context, c *connector.Connector, locationID int64, book *logbook.LogBook) ([]erp.InventoryLine, error) {
	var lines []erp.InventoryLine
	err := c.Shopify.InventoryLevelListEach(ctx, func(page []*models.InventoryLevel) error {
		for _, level := range page {
			v, err := mapping.FindVariantByInventoryItem(c.DB, c.Name, level.InventoryItemID)
			if err != nil {
				return err
			}
			if v == nil || v.ErpProductID == 0 {
				if err := book.Add(c.DB, logbook.Entry{
					Model:   logbook.MODEL_STOCK,
					Message: fmt.Sprintf("Inventory item %d of location %d has no Odoo product", level.InventoryItemID, locationID),
				}); err != nil {
					return err
				}
				continue
			}
			qty := 0
			if level.Available != nil && *level.Available > 0 {
				qty = *level.Available
			}
			lines = append(lines, erp.InventoryLine{ProductID: v.ErpProductID, Quantity: decimal.NewFromInt(int64(qty))})
		}
		return nil
	}, options.LocationIDs([]int64{locationID}), options.Limit(shopifyapi.PAGE_LIMIT))
	if err != nil {
		return nil, errors.Wrap(err, "failed in InventoryLevelListEach")
	}
	return lines, nil
}
