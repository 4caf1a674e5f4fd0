package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/internal/telegram"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

const STATUS_SHIPPED = "shipped"

// importLocks holds one mutex per instance name.
var importLocks sync.Map

// lockImport serializes the order imports of an instance: the webhook and
// the scheduler must not both create the same order.
func lockImport(c *connector.Connector) func() {
	v, _ := importLocks.LoadOrStore(c.Name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ImportOrders imports orders updated in the window [from, to] straight into
// the ERP. Zero bounds default to the last import and now.
func ImportOrders(ctx context.Context, c *connector.Connector, from, to time.Time) error {
	logger := logging.GetLogger()
	logger.Info("Start ImportOrders")
	defer logger.Info("End ImportOrders")

	from, to, err := window(c, database.LAST_DATE_ORDER_IMPORT, from, to)
	if err != nil {
		return err
	}
	storeLocation, err := c.StoreLocation(ctx)
	if err != nil {
		return err
	}
	book, err := c.NewLogBook(logbook.TYPE_IMPORT, logbook.MODEL_SALE_ORDER)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	var failed []string
	for _, status := range c.Instance.ImportOrderStatus {
		logger.Infof("Import %s orders of %s from %s to %s", status, c.Name, from.In(storeLocation).Format(options.DATE_LAYOUT), to.In(storeLocation).Format(options.DATE_LAYOUT))
		err := c.Shopify.OrderListEach(ctx, func(page []*models.Order) error {
			ordersSync := newOrdersSync(page)
			refs, err := importOrders(ctx, c, ordersSync, book)
			failed = append(failed, refs...)
			return err
		},
			options.Status("any"),
			options.FulfillmentStatus(status),
			options.UpdatedAtMin(from.In(storeLocation)),
			options.UpdatedAtMax(to.In(storeLocation)),
			options.Limit(shopifyapi.PAGE_LIMIT),
		)
		if err != nil {
			return errors.Wrap(err, "failed in OrderListEach")
		}
	}
	reportFailed(c, failed)
	return database.SetDate(c.DB, c.Name, database.LAST_DATE_ORDER_IMPORT, to.AddDate(0, 0, -OVERLAP_DAYS))
}

// ImportShippedOrders stores shipped orders of the window as order queue lines.
func ImportShippedOrders(ctx context.Context, c *connector.Connector, from, to time.Time) ([]*queue.Queue, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportShippedOrders")
	defer logger.Info("End ImportShippedOrders")

	from, to, err := window(c, database.LAST_SHIPPED_ORDER_IMPORT, from, to)
	if err != nil {
		return nil, err
	}
	storeLocation, err := c.StoreLocation(ctx)
	if err != nil {
		return nil, err
	}

	var queues []*queue.Queue
	err = c.Shopify.OrderListEach(ctx, func(page []*models.Order) error {
		q, err := queue.Create(c.DB, c.Name, queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
		if err != nil {
			return err
		}
		queues = append(queues, q)
		for _, o := range page {
			if _, err := AddLine(c, q, o); err != nil {
				return err
			}
		}
		return nil
	},
		options.Status("any"),
		options.FulfillmentStatus(STATUS_SHIPPED),
		options.UpdatedAtMin(from.In(storeLocation)),
		options.UpdatedAtMax(to.In(storeLocation)),
		options.Limit(shopifyapi.PAGE_LIMIT),
	)
	if err != nil {
		return queues, errors.Wrap(err, "failed in OrderListEach")
	}
	return queues, database.SetDate(c.DB, c.Name, database.LAST_SHIPPED_ORDER_IMPORT, to.AddDate(0, 0, -OVERLAP_DAYS))
}

// window resolves the import window of a run.
func window(c *connector.Connector, state string, from, to time.Time) (time.Time, time.Time, error) {
	now := database.Now()
	if from.IsZero() {
		last, err := database.GetDate(c.DB, c.Name, state)
		if err != nil {
			return from, to, err
		}
		from = last
	}
	if from.IsZero() {
		from = now.AddDate(0, 0, -IMPORT_DAYS)
	}
	if to.IsZero() {
		to = now
	}
	return from, to, nil
}

// ImportOrdersByIDs queues the orders of an operator supplied id list and
// processes the queue right away.
func ImportOrdersByIDs(ctx context.Context, c *connector.Connector, remoteIDs string) (*queue.Queue, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportOrdersByIDs")
	defer logger.Info("End ImportOrdersByIDs")

	IDs, err := connector.ParseRemoteIDs(remoteIDs)
	if err != nil {
		return nil, err
	}
	orders, _, err := c.Shopify.OrderList(ctx, options.IDs(IDs), options.Status("any"), options.Limit(shopifyapi.PAGE_LIMIT))
	if err != nil {
		return nil, errors.Wrap(err, "failed in OrderList")
	}

	q, err := queue.Create(c.DB, c.Name, queue.KIND_ORDER, queue.CREATED_BY_IMPORT)
	if err != nil {
		return nil, err
	}
	found := map[int64]bool{}
	for _, o := range orders {
		found[o.ID] = true
		if _, err := AddLine(c, q, o); err != nil {
			return q, err
		}
	}
	var missing []string
	for _, id := range IDs {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		book, err := c.QueueLogBook(q, logbook.MODEL_SALE_ORDER)
		if err != nil {
			return q, err
		}
		if err := book.AddMessage(c.DB, fmt.Sprintf(MSG_ORDERS_NOT_FOUND, strings.Join(missing, ","))); err != nil {
			return q, err
		}
		if err := q.SetLogBook(c.DB, book.ID); err != nil {
			return q, err
		}
	}
	return q, ProcessQueue(ctx, c, q)
}

// ImportOrder imports one order pushed by an orders/create webhook.
func ImportOrder(ctx context.Context, c *connector.Connector, o *models.Order) error {
	logger := logging.GetLogger()
	book, err := c.NewLogBook(logbook.TYPE_IMPORT, logbook.MODEL_SALE_ORDER)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, nil); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()
	failed, err := importOrders(ctx, c, newOrdersSync([]*models.Order{o}), book)
	reportFailed(c, failed)
	return err
}

// QueueOrderUpdate adds an orders/updated webhook payload to the draft
// webhook order queue.
func QueueOrderUpdate(ctx context.Context, c *connector.Connector, o *models.Order) (*queue.Line, error) {
	q, err := queue.DraftWebhookQueue(c.DB, c.Name, queue.KIND_ORDER)
	if err != nil {
		return nil, err
	}
	return AddLine(c, q, o)
}

func AddLine(c *connector.Connector, q *queue.Queue, o *models.Order) (*queue.Line, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal order %d", o.ID)
	}
	return q.AddLine(c.DB, o.ID, o.Name, string(data))
}

func newOrdersSync(orders []*models.Order) []OrderSync {
	ordersSync := make([]OrderSync, 0, len(orders))
	for _, o := range orders {
		ordersSync = append(ordersSync, OrderSync{Order: o})
	}
	return ordersSync
}

// importOrders runs both stages and returns the names of the failed orders.
func importOrders(ctx context.Context, c *connector.Connector, ordersSync []OrderSync, book *logbook.LogBook) ([]string, error) {
	defer lockImport(c)()
	HandlerOneStage(ctx, c, ordersSync, book)
	if err := HandlerTwoStage(ctx, c, ordersSync, book); err != nil {
		return nil, errors.Wrap(err, "failed in HandlerTwoStage()")
	}
	var failed []string
	for _, item := range ordersSync {
		if item.LineState == queue.LINE_FAILED {
			failed = append(failed, item.Name)
		}
	}
	return failed, nil
}

func reportFailed(c *connector.Connector, failed []string) {
	if len(failed) == 0 {
		return
	}
	telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("%s: "+MSG_FAILED_REFERENCES, c.Name, strings.Join(failed, ", ")))
}

// ProcessQueue imports the draft lines of an order queue. Lines of webhook
// queues update already imported orders.
func ProcessQueue(ctx context.Context, c *connector.Connector, q *queue.Queue) error {
	logger := logging.GetLogger()
	logger.Infof("Start order.ProcessQueue %s", q.Name)
	defer logger.Infof("End order.ProcessQueue %s", q.Name)
	defer lockImport(c)()

	lines, err := q.LinesByState(c.DB, queue.LINE_DRAFT)
	if err != nil {
		return err
	}
	book, err := c.QueueLogBook(q, logbook.MODEL_SALE_ORDER)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, q); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	var ordersSync []OrderSync
	for _, line := range lines {
		var o models.Order
		if err := json.Unmarshal([]byte(line.Data), &o); err != nil {
			_ = book.AddMessage(c.DB, fmt.Sprintf("Order queue line %d of %s has invalid data", line.ID, q.Name))
			if err := q.SetLineState(c.DB, line, queue.LINE_FAILED, 0); err != nil {
				return err
			}
			continue
		}
		ordersSync = append(ordersSync, OrderSync{Order: &o, Line: line, Queue: q})
	}

	if q.CreatedBy == queue.CREATED_BY_WEBHOOK {
		for i := range ordersSync {
			item := &ordersSync[i]
			if err := UpdateOrder(ctx, c, item, book); err != nil {
				logger.Errorf("failed to update order %s: %v", item.Name, err)
				item.LineState = queue.LINE_FAILED
			}
			if err := persistLine(c, item); err != nil {
				return err
			}
		}
	} else {
		HandlerOneStage(ctx, c, ordersSync, book)
		if err := HandlerTwoStage(ctx, c, ordersSync, book); err != nil {
			return errors.Wrap(err, "failed in HandlerTwoStage()")
		}
	}

	var failed []string
	for _, item := range ordersSync {
		if item.LineState == queue.LINE_FAILED {
			failed = append(failed, item.Name)
		}
	}
	reportFailed(c, failed)
	return nil
}
