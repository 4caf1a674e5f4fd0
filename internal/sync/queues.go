// Package sync runs the operations of a connected instance, on demand or from
// the service loop.
package sync

import (
	"context"
	"fmt"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/sync/customer"
	"ShopifyWithOdoo/internal/sync/order"
	"ShopifyWithOdoo/internal/sync/product"
	"ShopifyWithOdoo/internal/telegram"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

const MSG_ACTION_REQUIRED = "%s: queue %s is still %s after %d runs, please check its log book"

type processor func(ctx context.Context, c *connector.Connector, q *queue.Queue) error

// processors in the order queues are worked off: customers and products
// first so that order lines find their partners and variants.
var processors = []struct {
	Kind    string
	Process processor
}{
	{queue.KIND_CUSTOMER, customer.ProcessQueue},
	{queue.KIND_PRODUCT, product.ProcessQueue},
	{queue.KIND_ORDER, order.ProcessQueue},
}

// ProcessQueues processes the unfinished queues of an instance. It returns
// the number of queues processed.
func ProcessQueues(ctx context.Context, c *connector.Connector) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ProcessQueues")
	defer logger.Info("End ProcessQueues")

	var count int
	for _, p := range processors {
		queues, err := queue.ListByState(c.DB, c.Name, p.Kind, queue.STATE_DRAFT, queue.STATE_PARTIALLY_COMPLETED)
		if err != nil {
			return count, err
		}
		for _, q := range queues {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if err := p.Process(ctx, c, q); err != nil {
				logger.Errorf("failed to process queue %s: %v", q.Name, err)
			}
			count++
			raised, err := q.IncrementProcessCount(c.DB)
			if err != nil {
				return count, errors.Wrapf(err, "failed in IncrementProcessCount(%s)", q.Name)
			}
			if raised {
				telegram.SendMessageToTelegramWithLogError(fmt.Sprintf(MSG_ACTION_REQUIRED, c.Name, q.Name, q.State, q.ProcessCount))
			}
		}
	}
	return count, nil
}
