package product

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/shopifyapi/models"
	"ShopifyWithOdoo/internal/shopifyapi/options"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

// ImportProducts stores Shopify products updated since the given date (the
// last product import when zero) as product queue lines.
func ImportProducts(ctx context.Context, c *connector.Connector, since time.Time, skipExisting bool) ([]*queue.Queue, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportProducts")
	defer logger.Info("End ImportProducts")

	var err error
	if since.IsZero() {
		since, err = database.GetDate(c.DB, c.Name, database.LAST_DATE_PRODUCT_IMPORT)
		if err != nil {
			return nil, err
		}
	}
	opts := []options.Option{options.Limit(shopifyapi.PAGE_LIMIT)}
	if !since.IsZero() {
		opts = append(opts, options.UpdatedAtMin(since))
	}
	started := database.Now()

	var products []*models.Product
	err = c.Shopify.ProductListEach(ctx, func(page []*models.Product) error {
		products = append(products, page...)
		return nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed in ProductListEach")
	}

	queues, err := createQueues(c, products, skipExisting, queue.CREATED_BY_IMPORT)
	if err != nil {
		return queues, err
	}
	return queues, database.SetDate(c.DB, c.Name, database.LAST_DATE_PRODUCT_IMPORT, started)
}

// ImportProductsByIDs queues the products of an operator supplied id list.
func ImportProductsByIDs(ctx context.Context, c *connector.Connector, remoteIDs string, skipExisting bool) ([]*queue.Queue, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportProductsByIDs")
	defer logger.Info("End ImportProductsByIDs")

	IDs, err := connector.ParseRemoteIDs(remoteIDs)
	if err != nil {
		return nil, err
	}
	var products []*models.Product
	err = c.Shopify.ProductListEach(ctx, func(page []*models.Product) error {
		products = append(products, page...)
		return nil
	}, options.IDs(IDs), options.Limit(shopifyapi.PAGE_LIMIT))
	if err != nil {
		return nil, errors.Wrap(err, "failed in ProductListEach")
	}
	if len(products) < len(IDs) {
		found := map[int64]bool{}
		for _, p := range products {
			found[p.ID] = true
		}
		for _, id := range IDs {
			if !found[id] {
				logger.Infof("Product %d is not found in Shopify", id)
			}
		}
	}
	return createQueues(c, products, skipExisting, queue.CREATED_BY_IMPORT)
}

func createQueues(c *connector.Connector, products []*models.Product, skipExisting bool, createdBy string) ([]*queue.Queue, error) {
	var queues []*queue.Queue
	var q *queue.Queue
	for i, p := range products {
		if i%PRODUCT_CHUNK == 0 {
			var err error
			q, err = queue.Create(c.DB, c.Name, queue.KIND_PRODUCT, createdBy)
			if err != nil {
				return queues, err
			}
			queues = append(queues, q)
		}
		if _, err := AddLine(c, q, p, skipExisting); err != nil {
			return queues, err
		}
	}
	return queues, nil
}

// AddLine stores one product as a queue line.
func AddLine(c *connector.Connector, q *queue.Queue, p *models.Product, skipExisting bool) (*queue.Line, error) {
	data, err := json.Marshal(lineData{SkipExisting: skipExisting, Product: p})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal product %d", p.ID)
	}
	return q.AddLine(c.DB, p.ID, p.Title, string(data))
}

// SyncProduct links the variants of one Shopify product. It reports whether
// every variant ended up linked.
func SyncProduct(ctx context.Context, c *connector.Connector, p *models.Product, skipExisting bool, book *logbook.LogBook) (bool, error) {
	variantsSync, err := HandlerOneStage(ctx, c, p, skipExisting)
	if err != nil {
		return false, errors.Wrap(err, "failed in HandlerOneStage()")
	}
	failed, err := HandlerTwoStage(ctx, c, variantsSync, book)
	if err != nil {
		return false, errors.Wrap(err, "failed in HandlerTwoStage()")
	}
	return failed == 0, nil
}

// SyncProductByID fetches a product from Shopify and links its variants.
func SyncProductByID(ctx context.Context, c *connector.Connector, productID int64, book *logbook.LogBook) (bool, error) {
	p, err := c.Shopify.ProductGet(ctx, productID)
	if err != nil {
		return false, errors.Wrapf(err, "failed in ProductGet(%d)", productID)
	}
	return SyncProduct(ctx, c, p, false, book)
}

// ProcessQueue links the products of the draft lines of a product queue.
func ProcessQueue(ctx context.Context, c *connector.Connector, q *queue.Queue) error {
	logger := logging.GetLogger()
	logger.Infof("Start product.ProcessQueue %s", q.Name)
	defer logger.Infof("End product.ProcessQueue %s", q.Name)

	lines, err := q.LinesByState(c.DB, queue.LINE_DRAFT)
	if err != nil {
		return err
	}
	book, err := c.QueueLogBook(q, logbook.MODEL_PRODUCT)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.FinishLogBook(book, q); err != nil {
			logger.Errorf("failed in FinishLogBook: %v", err)
		}
	}()

	for _, line := range lines {
		var data lineData
		if err := json.Unmarshal([]byte(line.Data), &data); err != nil || data.Product == nil {
			_ = book.AddMessage(c.DB, fmt.Sprintf("Product queue line %d of %s has invalid data", line.ID, q.Name))
			if err := q.SetLineState(c.DB, line, queue.LINE_FAILED, 0); err != nil {
				return err
			}
			continue
		}
		ok, err := SyncProduct(ctx, c, data.Product, data.SkipExisting, book)
		if err != nil {
			logger.Errorf("failed to sync product %d: %v", data.Product.ID, err)
			_ = book.AddMessage(c.DB, fmt.Sprintf("Product %s (%d) not synced: %v", data.Product.Title, data.Product.ID, err))
			ok = false
		}
		state := queue.LINE_DONE
		if !ok {
			state = queue.LINE_FAILED
		}
		if err := q.SetLineState(c.DB, line, state, 0); err != nil {
			return err
		}
	}
	return nil
}
