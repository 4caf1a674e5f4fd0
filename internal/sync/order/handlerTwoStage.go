package order

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/pkg/logging"
)

// HandlerTwoStage runs the handler of every status and records the outcome
// in the log book and on the order. A queued order has its line state stored
// as soon as it is handled.
func HandlerTwoStage(ctx context.Context, c *connector.Connector, ordersSync []OrderSync, book *logbook.LogBook) error {
	logger := logging.GetLogger()
	logger.Debug("Start order.HandlerTwoStage")
	defer logger.Debug("End order.HandlerTwoStage")

	for i := range ordersSync {
		item := &ordersSync[i]
		switch item.StatusSync {
		case SKIP_DATE:
			item.LineState = queue.LINE_CANCEL
		case EXISTS:
			logger.Debugf("Order %s exists, sale order %d", item.Name, item.SaleOrderID)
			item.LineState = queue.LINE_DONE
		case CUSTOMER_MISSING, MISMATCH, ERROR:
			item.LineState = queue.LINE_FAILED
		case NEED_CREATE:
			HandlerNeedCreate(ctx, c, item)
		}
		if err := persistLine(c, item); err != nil {
			return err
		}
		if item.Message != "" {
			err := book.Add(c.DB, logbook.Entry{
				Model:    logbook.MODEL_SALE_ORDER,
				Message:  item.Message,
				OrderRef: item.Name,
				ResID:    item.SaleOrderID,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// HandlerNeedCreate creates the sale order and runs the auto workflow. A
// workflow failure is logged but the order stays imported.
func HandlerNeedCreate(ctx context.Context, c *connector.Connector, item *OrderSync) {
	logger := logging.GetLogger()

	m, err := CreateSaleOrder(ctx, c, item.Order)
	if err != nil {
		logger.Errorf("failed to create order %s: %v", item.Name, err)
		item.LineState = queue.LINE_FAILED
		item.Message = fmt.Sprintf("Order %s not imported: %v", item.Name, err)
		if businessErr, ok := err.(*BusinessError); ok {
			item.Message = businessErr.Message
		}
		return
	}
	item.SaleOrderID = m.SaleOrderID
	item.LineState = queue.LINE_DONE

	if err := ProcessWorkflow(ctx, c, item.Order, m); err != nil {
		logger.Errorf("failed workflow of order %s: %v", item.Name, err)
		item.Message = fmt.Sprintf("Order %s imported, workflow not completed: %v", item.Name, err)
	}
}

// persistLine stores the outcome of a queued order on its line.
func persistLine(c *connector.Connector, item *OrderSync) error {
	if item.Line == nil || item.Queue == nil {
		return nil
	}
	if item.LineState == "" {
		item.LineState = queue.LINE_FAILED
	}
	return item.Queue.SetLineState(c.DB, item.Line, item.LineState, item.SaleOrderID)
}

// BusinessError is a failure an operator fixes in the configuration.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}
