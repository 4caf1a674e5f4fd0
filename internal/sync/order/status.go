package order

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

const (
	MSG_LINE_ID_MISSING    = "Order status could not be updated for order %s. Shopify line id is missing on an Odoo order line."
	MSG_NO_FULFILL_LINES   = "No order lines found for the update order shipping status for order [%s]"
	MSG_NO_PRIMARY         = "Primary Location not found for instance %s while update order shipping status."
	MSG_FULFILLMENT_FAILED = "Order(%s) status not updated due to some issue in fulfillment request/response: %v"
)

// UpdateOrderStatus posts a Shopify fulfillment for every done delivery of an
// imported order, then closes the orders done in the ERP.
func UpdateOrderStatus(ctx context.Context, c *connector.Connector) error {
	logger := logging.GetLogger()
	logger.Info("Start UpdateOrderStatus")
	defer logger.Info("End UpdateOrderStatus")

	orders, err := mapping.ListOpenOrders(c.DB, c.Name)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	bySaleOrder := make(map[int]*mapping.Order, len(orders))
	saleOrderIDs := make([]int, 0, len(orders))
	for _, m := range orders {
		bySaleOrder[m.SaleOrderID] = m
		saleOrderIDs = append(saleOrderIDs, m.SaleOrderID)
	}

	settled, err := mapping.SettledPickingIDs(c.DB, c.Name)
	if err != nil {
		return err
	}
	pickings, err := c.ERP.DoneCustomerPickings(ctx, saleOrderIDs)
	if err != nil {
		return errors.Wrap(err, "failed in DoneCustomerPickings")
	}

	book, err := c.NewLogBook(logbook.TYPE_EXPORT, logbook.MODEL_PICKING)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	for _, p := range pickings {
		if settled[p.ID] {
			continue
		}
		m := bySaleOrder[p.SaleOrderID]
		if m == nil {
			continue
		}
		if err := exportPicking(ctx, c, m, p, book); err != nil {
			return err
		}
	}

	return closeDoneOrders(ctx, c, orders)
}

// exportPicking posts the fulfillment of one done delivery.
func exportPicking(ctx context.Context, c *connector.Connector, m *mapping.Order, p *erp.Picking, book *logbook.LogBook) error {
	logger := logging.GetLogger()

	so, err := c.Shopify.OrderGet(ctx, m.ShopifyOrderID)
	if err != nil {
		logger.Errorf("failed to read order %s, picking %s skipped: %v", m.Name, p.Name, err)
		return nil
	}
	pm, err := mapping.GetPicking(c.DB, c.Name, p.ID, p.SaleOrderID)
	if err != nil {
		return err
	}
	if so.FulfillmentStatus == models.FULFILLMENT_STATUS_FULFILLED {
		pm.UpdatedInShopify = true
		return pm.Save(c.DB)
	}
	if so.IsCancelled() {
		pm.CancelledInShopify = true
		return pm.Save(c.DB)
	}

	links, err := m.Lines(c.DB)
	if err != nil {
		return err
	}
	bySaleLine := make(map[int]*mapping.OrderLine, len(links))
	for _, l := range links {
		if !l.IsService && !l.IsDelivery && !l.ShopifyLineID.Valid {
			return logPicking(c, book, m, fmt.Sprintf(MSG_LINE_ID_MISSING, m.Name))
		}
		bySaleLine[l.SaleOrderLineID] = l
	}

	quantities := map[int64]int{}
	for _, move := range p.Moves {
		l := bySaleLine[move.SaleLineID]
		if l == nil || !l.ShopifyLineID.Valid || !move.Quantity.IsPositive() {
			continue
		}
		quantities[l.ShopifyLineID.Int64] += int(move.Quantity.IntPart())
	}
	withServices := false
	if !m.IsServiceTrackingUpdated {
		for _, l := range links {
			if !l.IsService || l.IsDelivery || !l.ShopifyLineID.Valid {
				continue
			}
			if l.IsGiftCard && c.Instance.AutoFulfillGiftCardOrder {
				continue
			}
			if qty := fulfillableQuantity(so, l.ShopifyLineID.Int64); qty > 0 {
				quantities[l.ShopifyLineID.Int64] += qty
				withServices = true
			}
		}
	}
	if len(quantities) == 0 {
		return logPicking(c, book, m, fmt.Sprintf(MSG_NO_FULFILL_LINES, m.Name))
	}

	locationID, err := fulfillmentLocation(ctx, c, m)
	if err != nil {
		return err
	}
	if locationID == 0 {
		return logPicking(c, book, m, fmt.Sprintf(MSG_NO_PRIMARY, c.Name))
	}

	fulfillment := &models.Fulfillment{
		LocationID:      locationID,
		TrackingNumbers: trackingNumbers(p.TrackingRef),
		TrackingCompany: p.CarrierName,
		NotifyCustomer:  c.Instance.NotifyCustomer,
	}
	lineIDs := make([]int64, 0, len(quantities))
	for id := range quantities {
		lineIDs = append(lineIDs, id)
	}
	sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })
	for _, id := range lineIDs {
		fulfillment.LineItems = append(fulfillment.LineItems, models.FulfillmentLine{ID: id, Quantity: quantities[id]})
	}

	created, err := c.Shopify.FulfillmentCreate(ctx, m.ShopifyOrderID, fulfillment)
	if err != nil {
		logger.Errorf("failed to fulfill order %s picking %s: %v", m.Name, p.Name, err)
		if so.FulfillmentStatus == models.FULFILLMENT_STATUS_PARTIAL {
			pm.UpdatedInShopify = true
		} else {
			pm.ManualAction = true
		}
		if err := pm.Save(c.DB); err != nil {
			return err
		}
		m.IsServiceTrackingUpdated = false
		if err := m.Save(c.DB); err != nil {
			return err
		}
		return logPicking(c, book, m, fmt.Sprintf(MSG_FULFILLMENT_FAILED, m.Name, err))
	}

	logger.Infof("Order %s picking %s fulfilled as %d", m.Name, p.Name, created.ID)
	pm.UpdatedInShopify = true
	pm.FulfillmentID = sql.NullInt64{Int64: created.ID, Valid: true}
	if err := pm.Save(c.DB); err != nil {
		return err
	}
	if withServices {
		m.IsServiceTrackingUpdated = true
		return m.Save(c.DB)
	}
	return nil
}

func logPicking(c *connector.Connector, book *logbook.LogBook, m *mapping.Order, message string) error {
	return book.Add(c.DB, logbook.Entry{
		Model:    logbook.MODEL_PICKING,
		Message:  message,
		OrderRef: m.Name,
		ResID:    m.SaleOrderID,
	})
}

func fulfillableQuantity(o *models.Order, lineID int64) int {
	for _, li := range o.LineItems {
		if li.ID == lineID {
			if li.FulfillableQuantity > 0 {
				return li.FulfillableQuantity
			}
			return li.Quantity
		}
	}
	return 0
}

// fulfillmentLocation picks the order's location, then the location mapped to
// the order warehouse, then the primary location.
func fulfillmentLocation(ctx context.Context, c *connector.Connector, m *mapping.Order) (int64, error) {
	if m.LocationID.Valid && m.LocationID.Int64 != 0 {
		return m.LocationID.Int64, nil
	}
	info, err := c.ERP.GetSaleOrder(ctx, m.SaleOrderID)
	if err != nil {
		return 0, errors.Wrap(err, "failed in GetSaleOrder")
	}
	var mapped []int64
	for id, l := range c.Config.LocationsOf(c.Name) {
		if l.WarehouseForOrder == info.WarehouseID {
			mapped = append(mapped, id)
		}
	}
	if len(mapped) > 0 {
		sort.Slice(mapped, func(i, j int) bool { return mapped[i] < mapped[j] })
		return mapped[0], nil
	}
	primary, err := mapping.PrimaryLocation(c.DB, c.Name)
	if err != nil || primary == nil {
		return 0, err
	}
	return primary.ShopifyLocationID, nil
}

// trackingNumbers splits a tracking reference into unique numbers.
func trackingNumbers(ref string) []string {
	var result []string
	seen := map[string]bool{}
	for _, n := range strings.Split(ref, ",") {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}
	return result
}

// closeDoneOrders closes in Shopify the orders whose sale order is done.
func closeDoneOrders(ctx context.Context, c *connector.Connector, orders []*mapping.Order) error {
	logger := logging.GetLogger()
	for _, m := range orders {
		info, err := c.ERP.GetSaleOrder(ctx, m.SaleOrderID)
		if err != nil {
			logger.Errorf("failed to read sale order %d: %v", m.SaleOrderID, err)
			continue
		}
		if info.State != erp.ORDER_DONE {
			continue
		}
		if _, err := c.Shopify.OrderClose(ctx, m.ShopifyOrderID); err != nil {
			logger.Errorf("failed to close order %s: %v", m.Name, err)
			continue
		}
		m.ClosedAt = sql.NullTime{Time: database.Now(), Valid: true}
		if err := m.Save(c.DB); err != nil {
			return err
		}
	}
	return nil
}
