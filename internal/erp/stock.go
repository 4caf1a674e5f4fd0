package erp

import (
	"context"
	"time"

	"ShopifyWithOdoo/internal/odooapi"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type pickingRecord struct {
	ID             int              `json:"id"`
	Name           odooapi.String   `json:"name"`
	State          odooapi.String   `json:"state"`
	SaleID         odooapi.Many2One `json:"sale_id"`
	LocationDestID odooapi.Many2One `json:"location_dest_id"`
	TrackingRef    odooapi.String   `json:"carrier_tracking_ref"`
	CarrierID      odooapi.Many2One `json:"carrier_id"`
	MoveIDs        []int            `json:"move_ids"`
}

type moveRecord struct {
	ID         int              `json:"id"`
	ProductID  odooapi.Many2One `json:"product_id"`
	SaleLineID odooapi.Many2One `json:"sale_line_id"`
	Quantity   odooapi.Decimal  `json:"quantity_done"`
	State      odooapi.String   `json:"state"`
}

type locationRecord struct {
	ID    int            `json:"id"`
	Usage odooapi.String `json:"usage"`
}

func (o *Odoo) GetPickings(ctx context.Context, IDs []int) ([]*Picking, error) {
	if len(IDs) == 0 {
		return nil, nil
	}
	var records []pickingRecord
	err := o.client.Read(ctx, "stock.picking", IDs,
		[]string{"name", "state", "sale_id", "location_dest_id", "carrier_tracking_ref", "carrier_id", "move_ids"}, &records)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stock.picking")
	}

	var moveIDs, locationIDs []int
	for _, r := range records {
		moveIDs = append(moveIDs, r.MoveIDs...)
		locationIDs = append(locationIDs, r.LocationDestID.ID)
	}

	var locations []locationRecord
	if err := o.client.Read(ctx, "stock.location", locationIDs, []string{"usage"}, &locations); err != nil {
		return nil, errors.Wrap(err, "failed to read stock.location")
	}
	usage := make(map[int]string, len(locations))
	for _, l := range locations {
		usage[l.ID] = string(l.Usage)
	}

	moves := map[int]Move{}
	if len(moveIDs) > 0 {
		var moveRecords []moveRecord
		if err := o.client.Read(ctx, "stock.move", moveIDs, []string{"product_id", "sale_line_id", "quantity_done", "state"}, &moveRecords); err != nil {
			return nil, errors.Wrap(err, "failed to read stock.move")
		}
		for _, m := range moveRecords {
			moves[m.ID] = Move{
				ID:         m.ID,
				ProductID:  m.ProductID.ID,
				SaleLineID: m.SaleLineID.ID,
				Quantity:   m.Quantity.Decimal,
				State:      string(m.State),
			}
		}
	}

	pickings := make([]*Picking, 0, len(records))
	for _, r := range records {
		p := &Picking{
			ID:          r.ID,
			Name:        string(r.Name),
			State:       string(r.State),
			SaleOrderID: r.SaleID.ID,
			DestUsage:   usage[r.LocationDestID.ID],
			TrackingRef: string(r.TrackingRef),
			CarrierName: r.CarrierID.Name,
		}
		for _, id := range r.MoveIDs {
			if m, ok := moves[id]; ok {
				p.Moves = append(p.Moves, m)
			}
		}
		pickings = append(pickings, p)
	}
	return pickings, nil
}

// DoneCustomerPickings lists done deliveries to customers of the given orders.
func (o *Odoo) DoneCustomerPickings(ctx context.Context, saleOrderIDs []int) ([]*Picking, error) {
	if len(saleOrderIDs) == 0 {
		return nil, nil
	}
	pickingIDs, err := o.client.SearchIds(ctx, "stock.picking", []any{
		[]any{"sale_id", "in", ids(saleOrderIDs)},
		[]any{"state", "=", PICKING_DONE},
		[]any{"location_dest_id.usage", "=", USAGE_CUSTOMER},
	}, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search stock.picking")
	}
	return o.GetPickings(ctx, pickingIDs)
}

// ValidatePickings reserves, sets quantities and validates the pickings,
// skipping backorder and immediate transfer wizards.
func (o *Odoo) ValidatePickings(ctx context.Context, IDs []int) error {
	logger := logging.GetLogger()
	pickings, err := o.GetPickings(ctx, IDs)
	if err != nil {
		return err
	}
	var open []int
	for _, p := range pickings {
		if p.State != PICKING_DONE && p.State != PICKING_CANCEL {
			open = append(open, p.ID)
		}
	}
	if len(open) == 0 {
		return nil
	}
	kwargs := map[string]any{"context": map[string]any{
		"skip_backorder":   true,
		"skip_immediate":   true,
		"skip_sms":         true,
		"cancel_backorder": true,
	}}
	if err := o.client.Call(ctx, "stock.picking", "action_assign", []any{open}, nil, nil); err != nil {
		return err
	}
	if err := o.client.Call(ctx, "stock.picking", "action_set_quantities_to_reservation", []any{open}, nil, nil); err != nil {
		return err
	}
	if err := o.client.Call(ctx, "stock.picking", "button_validate", []any{open}, kwargs, nil); err != nil {
		return err
	}

	pickings, err = o.GetPickings(ctx, open)
	if err != nil {
		return err
	}
	for _, p := range pickings {
		if p.State != PICKING_DONE {
			logger.Infof("Picking %s stays in state %s", p.Name, p.State)
			return errors.Errorf("picking %s is in state %s after validation", p.Name, p.State)
		}
	}
	return nil
}

// ProductsMovedSince lists products with reserved or done moves written after since.
func (o *Odoo) ProductsMovedSince(ctx context.Context, since time.Time) ([]int, error) {
	var moves []struct {
		ProductID odooapi.Many2One `json:"product_id"`
	}
	err := o.client.SearchReadInto(ctx, "stock.move", []any{
		[]any{"write_date", ">=", odooapi.FormatTime(since)},
		[]any{"state", "in", []any{"partially_available", "assigned", "done"}},
	}, []string{"product_id"}, 0, "", &moves)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search stock.move")
	}
	seen := map[int]bool{}
	var products []int
	for _, m := range moves {
		if m.ProductID.ID != 0 && !seen[m.ProductID.ID] {
			seen[m.ProductID.ID] = true
			products = append(products, m.ProductID.ID)
		}
	}
	return products, nil
}

// ProductQuantities sums field (free_qty or virtual_available) over the warehouses.
func (o *Odoo) ProductQuantities(ctx context.Context, productIDs, warehouseIDs []int, field string) (map[int]decimal.Decimal, error) {
	result := make(map[int]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	for _, warehouseID := range warehouseIDs {
		var records []map[string]any
		err := o.client.Call(ctx, "product.product", "read", []any{productIDs}, map[string]any{
			"fields":  []string{field},
			"context": map[string]any{"warehouse": warehouseID},
		}, &records)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s for warehouse %d", field, warehouseID)
		}
		for _, r := range records {
			id, _ := r["id"].(float64)
			qty, _ := r[field].(float64)
			result[int(id)] = result[int(id)].Add(decimal.NewFromFloat(qty))
		}
	}
	return result, nil
}

func (o *Odoo) WarehouseStockLocation(ctx context.Context, warehouseID int) (int, error) {
	var records []struct {
		LotStockID odooapi.Many2One `json:"lot_stock_id"`
	}
	if err := o.client.Read(ctx, "stock.warehouse", []int{warehouseID}, []string{"lot_stock_id"}, &records); err != nil {
		return 0, errors.Wrapf(err, "failed to read stock.warehouse %d", warehouseID)
	}
	if len(records) == 0 || records[0].LotStockID.ID == 0 {
		return 0, errors.Errorf("warehouse %d has no stock location", warehouseID)
	}
	return records[0].LotStockID.ID, nil
}

// ApplyInventory sets counted quantities on the quants of a location and
// applies them when validate is set.
func (o *Odoo) ApplyInventory(ctx context.Context, locationID int, lines []InventoryLine, validate bool) error {
	logger := logging.GetLogger()
	kwargs := map[string]any{"context": map[string]any{"inventory_mode": true}}
	quantIDs := make([]int, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity
		if qty.IsNegative() {
			qty = decimal.Zero
		}
		quantID, err := o.client.SearchFirstId(ctx, "stock.quant", []any{
			[]any{"product_id", "=", line.ProductID},
			[]any{"location_id", "=", locationID},
		})
		if err != nil {
			return errors.Wrap(err, "failed to search stock.quant")
		}
		if quantID != 0 {
			err = o.client.Call(ctx, "stock.quant", "write", []any{[]int{quantID}, map[string]any{"inventory_quantity": qty.InexactFloat64()}}, kwargs, nil)
		} else {
			quantID, err = o.client.Create(ctx, "stock.quant", map[string]any{
				"product_id":         line.ProductID,
				"location_id":        locationID,
				"inventory_quantity": qty.InexactFloat64(),
			}, kwargs)
		}
		if err != nil {
			return errors.Wrapf(err, "failed to set inventory of product %d", line.ProductID)
		}
		quantIDs = append(quantIDs, quantID)
	}
	logger.Debugf("Inventory set on %d quants of location %d", len(quantIDs), locationID)
	if !validate || len(quantIDs) == 0 {
		return nil
	}
	return o.client.Call(ctx, "stock.quant", "action_apply_inventory", []any{quantIDs}, nil, nil)
}
