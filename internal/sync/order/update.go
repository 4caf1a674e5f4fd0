package order

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/erp"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

const (
	REFUND_NO_INVOICE = 0 // no customer invoice to reverse
	REFUND_DONE       = 1 // credit note created or already present
	REFUND_NOT_POSTED = 2 // invoice still in draft
	REFUND_PARTIAL    = 3 // refunded amount differs from the order total
)

// UpdateOrder applies a Shopify order change to its imported sale order.
// Orders never imported are imported as new.
func UpdateOrder(ctx context.Context, c *connector.Connector, item *OrderSync, book *logbook.LogBook) error {
	logger := logging.GetLogger()
	logger.Debugf("Update %s", GetOrderNotation(item.Order))

	m, err := mapping.FindOrder(c.DB, c.Name, item.ID)
	if err != nil {
		return err
	}
	if m == nil {
		items := []OrderSync{*item}
		HandlerOneStage(ctx, c, items, book)
		if err := HandlerTwoStage(ctx, c, items, book); err != nil {
			return err
		}
		*item = items[0]
		return nil
	}
	item.SaleOrderID = m.SaleOrderID

	o := item.Order
	switch {
	case o.CancelReason != "":
		item.Message, err = cancelOrder(ctx, c, o, m)
	case o.FinancialStatus == models.FINANCIAL_STATUS_REFUNDED:
		var code int
		code, item.Message, err = refundOrder(ctx, c, o, m)
		logger.Debugf("Refund of %s: %d", o.Name, code)
	case o.FulfillmentStatus == models.FULFILLMENT_STATUS_FULFILLED:
		if err = DeliverSaleOrder(ctx, c, m.SaleOrderID); err != nil {
			logger.Errorf("failed to deliver order %s: %v", o.Name, err)
			item.Message = fmt.Sprintf(MSG_NOT_ENOUGH_STOCK, o.Name)
			err = nil
		}
	}
	if err != nil {
		item.Message = fmt.Sprintf("Order %s not updated: %v", o.Name, err)
	}

	m.FinancialStatus = o.FinancialStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	if err := m.Save(c.DB); err != nil {
		return err
	}

	item.LineState = queue.LINE_DONE
	if item.Message != "" {
		item.LineState = queue.LINE_FAILED
		return book.Add(c.DB, logbook.Entry{
			Model:    logbook.MODEL_SALE_ORDER,
			Message:  item.Message,
			OrderRef: o.Name,
			ResID:    m.SaleOrderID,
		})
	}
	return nil
}

// cancelOrder cancels the sale order unless one of its deliveries is done.
func cancelOrder(ctx context.Context, c *connector.Connector, o *models.Order, m *mapping.Order) (string, error) {
	info, err := c.ERP.GetSaleOrder(ctx, m.SaleOrderID)
	if err != nil {
		return "", errors.Wrap(err, "failed in GetSaleOrder")
	}
	if info.State == erp.ORDER_CANCEL {
		return "", nil
	}
	pickings, err := c.ERP.GetPickings(ctx, info.PickingIDs)
	if err != nil {
		return "", errors.Wrap(err, "failed in GetPickings")
	}
	for _, p := range pickings {
		if p.State == erp.PICKING_DONE {
			return fmt.Sprintf(MSG_CANNOT_CANCEL, o.Name), nil
		}
	}
	if err := c.ERP.CancelSaleOrder(ctx, m.SaleOrderID); err != nil {
		return "", errors.Wrap(err, "failed in CancelSaleOrder")
	}
	m.CanceledInShopify = true
	return "", nil
}

// refundOrder reverses the posted invoices of a fully refunded order.
func refundOrder(ctx context.Context, c *connector.Connector, o *models.Order, m *mapping.Order) (int, string, error) {
	info, err := c.ERP.GetSaleOrder(ctx, m.SaleOrderID)
	if err != nil {
		return 0, "", errors.Wrap(err, "failed in GetSaleOrder")
	}
	invoices, err := c.ERP.GetInvoices(ctx, info.InvoiceIDs)
	if err != nil {
		return 0, "", errors.Wrap(err, "failed in GetInvoices")
	}

	var posted []int
	var customerInvoices int
	for _, inv := range invoices {
		switch inv.MoveType {
		case erp.MOVE_REFUND:
			return REFUND_DONE, "", nil
		case erp.MOVE_INVOICE:
			customerInvoices++
			if inv.State == erp.MOVE_POSTED {
				posted = append(posted, inv.ID)
			}
		}
	}
	if customerInvoices == 0 {
		return REFUND_NO_INVOICE, fmt.Sprintf(MSG_NO_INVOICE, o.Name), nil
	}
	if len(posted) < customerInvoices {
		return REFUND_NOT_POSTED, fmt.Sprintf(MSG_INVOICE_NOT_POSTED, o.Name), nil
	}

	refunded := o.RefundedAmount()
	if !refunded.Equal(info.AmountTotal) {
		return REFUND_PARTIAL, fmt.Sprintf(MSG_PARTIAL_REFUND, o.Name, refunded.StringFixed(2), info.AmountTotal.StringFixed(2)), nil
	}
	reason := o.RefundNote()
	if reason == "" {
		reason = MSG_REFUND_REASON
	}
	if err := c.ERP.ReverseInvoices(ctx, posted, reason); err != nil {
		return 0, "", errors.Wrap(err, "failed in ReverseInvoices")
	}
	return REFUND_DONE, "", nil
}
