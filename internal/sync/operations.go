package sync

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/sync/customer"
	"ShopifyWithOdoo/internal/sync/location"
	"ShopifyWithOdoo/internal/sync/order"
	"ShopifyWithOdoo/internal/sync/product"
	"ShopifyWithOdoo/internal/sync/stock"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

const (
	OP_IMPORT_UNSHIPPED_ORDERS     = "import_unshipped_orders"
	OP_IMPORT_SHIPPED_ORDERS       = "import_shipped_orders"
	OP_IMPORT_ORDERS_BY_REMOTE_IDS = "import_orders_by_remote_ids"
	OP_UPDATE_ORDER_STATUS         = "update_order_status"
	OP_IMPORT_CUSTOMERS            = "import_customers"
	OP_SYNC_PRODUCT                = "sync_product"
	OP_SYNC_PRODUCT_BY_REMOTE_IDS  = "sync_product_by_remote_ids"
	OP_EXPORT_STOCK                = "export_stock"
	OP_IMPORT_STOCK                = "import_stock"
	OP_IMPORT_LOCATION             = "import_location"
	OP_EXPORT_PRODUCTS_CSV         = "export_products_csv"
	OP_IMPORT_PRODUCTS_CSV         = "import_products_csv"
	OP_EXPORT_PRODUCTS             = "export_products"
	OP_SYNC_PRICES                 = "sync_prices"
	OP_PROCESS_QUEUES              = "process_queues"
	OP_CLEANUP                     = "cleanup"
)

// Operations lists every operation Run accepts.
var Operations = []string{
	OP_IMPORT_UNSHIPPED_ORDERS,
	OP_IMPORT_SHIPPED_ORDERS,
	OP_IMPORT_ORDERS_BY_REMOTE_IDS,
	OP_UPDATE_ORDER_STATUS,
	OP_IMPORT_CUSTOMERS,
	OP_SYNC_PRODUCT,
	OP_SYNC_PRODUCT_BY_REMOTE_IDS,
	OP_EXPORT_STOCK,
	OP_IMPORT_STOCK,
	OP_IMPORT_LOCATION,
	OP_EXPORT_PRODUCTS_CSV,
	OP_IMPORT_PRODUCTS_CSV,
	OP_EXPORT_PRODUCTS,
	OP_SYNC_PRICES,
	OP_PROCESS_QUEUES,
	OP_CLEANUP,
}

var ErrUnknownOperation = errors.New("unknown operation")

// Params are the optional arguments of an operation.
type Params struct {
	From         time.Time
	To           time.Time
	RemoteIDs    string
	SkipExisting bool
	// CSV is the uploaded file of import_products_csv.
	CSV io.Reader
}

type Result struct {
	Operation string   `json:"operation"`
	Instance  string   `json:"instance"`
	Message   string   `json:"message"`
	Count     int      `json:"count"`
	Queues    []string `json:"queues,omitempty"`
	File      string   `json:"file,omitempty"`
	LogBookID int      `json:"log_book_id,omitempty"`
}

// ParseParams reads from, to, remote_ids and skip_existing. Dates are accepted
// in any layout dateparse understands.
func ParseParams(values url.Values) (Params, error) {
	var p Params
	var err error
	if s := strings.TrimSpace(values.Get("from")); s != "" {
		if p.From, err = dateparse.ParseAny(s); err != nil {
			return p, errors.Wrapf(err, "invalid from date %q", s)
		}
	}
	if s := strings.TrimSpace(values.Get("to")); s != "" {
		if p.To, err = dateparse.ParseAny(s); err != nil {
			return p, errors.Wrapf(err, "invalid to date %q", s)
		}
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return p, errors.New("to date must not be before from date")
	}
	p.RemoteIDs = values.Get("remote_ids")
	if s := values.Get("skip_existing"); s != "" {
		if p.SkipExisting, err = strconv.ParseBool(s); err != nil {
			return p, errors.Wrapf(err, "invalid skip_existing %q", s)
		}
	}
	return p, nil
}

func queueNames(queues ...*queue.Queue) []string {
	names := make([]string, 0, len(queues))
	for _, q := range queues {
		if q != nil {
			names = append(names, q.Name)
		}
	}
	return names
}

// Run executes one operation for the instance of c.
func Run(ctx context.Context, c *connector.Connector, operation string, p Params) (*Result, error) {
	logger := logging.GetLogger()
	logger.Infof("Start operation %s of %s", operation, c.Name)
	defer logger.Infof("End operation %s of %s", operation, c.Name)

	r := &Result{Operation: operation, Instance: c.Name}
	switch operation {
	case OP_IMPORT_UNSHIPPED_ORDERS:
		if err := order.ImportOrders(ctx, c, p.From, p.To); err != nil {
			return nil, err
		}
		r.Message = "Orders imported"

	case OP_IMPORT_SHIPPED_ORDERS:
		queues, err := order.ImportShippedOrders(ctx, c, p.From, p.To)
		if err != nil {
			return nil, err
		}
		r.Queues = queueNames(queues...)
		r.Count = len(queues)
		r.Message = fmt.Sprintf("%d order queues created", len(queues))

	case OP_IMPORT_ORDERS_BY_REMOTE_IDS:
		q, err := order.ImportOrdersByIDs(ctx, c, p.RemoteIDs)
		if err != nil {
			return nil, err
		}
		r.Queues = queueNames(q)
		r.Count = 1
		r.Message = fmt.Sprintf("Order queue %s processed, state %s", q.Name, q.State)

	case OP_UPDATE_ORDER_STATUS:
		if err := order.UpdateOrderStatus(ctx, c); err != nil {
			return nil, err
		}
		r.Message = "Order status updated"

	case OP_IMPORT_CUSTOMERS:
		queues, err := customer.ImportCustomers(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Queues = queueNames(queues...)
		r.Count = len(queues)
		r.Message = fmt.Sprintf("%d customer queues created", len(queues))

	case OP_SYNC_PRODUCT:
		queues, err := product.ImportProducts(ctx, c, p.From, p.SkipExisting)
		if err != nil {
			return nil, err
		}
		r.Queues = queueNames(queues...)
		r.Count = len(queues)
		r.Message = fmt.Sprintf("%d product queues created", len(queues))

	case OP_SYNC_PRODUCT_BY_REMOTE_IDS:
		queues, err := product.ImportProductsByIDs(ctx, c, p.RemoteIDs, p.SkipExisting)
		if err != nil {
			return nil, err
		}
		for _, q := range queues {
			if err := product.ProcessQueue(ctx, c, q); err != nil {
				return nil, err
			}
		}
		r.Queues = queueNames(queues...)
		r.Count = len(queues)
		r.Message = fmt.Sprintf("%d product queues processed", len(queues))

	case OP_EXPORT_STOCK:
		count, err := stock.ExportStock(ctx, c, p.From)
		if err != nil {
			return nil, err
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d inventory levels exported", count)

	case OP_IMPORT_STOCK:
		count, err := stock.ImportStock(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d inventory lines applied", count)

	case OP_IMPORT_LOCATION:
		locations, err := location.ImportLocations(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Count = len(locations)
		r.Message = fmt.Sprintf("%d locations imported", len(locations))

	case OP_EXPORT_PRODUCTS_CSV:
		name, err := product.ExportCSVFile(ctx, c)
		if err != nil {
			return nil, err
		}
		r.File = name
		r.Message = fmt.Sprintf("Products exported to %s", name)

	case OP_IMPORT_PRODUCTS_CSV:
		if p.CSV == nil {
			return nil, errors.New("no csv file given")
		}
		book, count, err := product.ImportCSV(ctx, c, p.CSV)
		if err != nil {
			return nil, err
		}
		if book != nil {
			r.LogBookID = book.ID
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d products imported", count)

	case OP_EXPORT_PRODUCTS:
		count, err := product.ExportToShopify(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d products exported", count)

	case OP_SYNC_PRICES:
		count, err := product.SyncPrices(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d prices set", count)

	case OP_PROCESS_QUEUES:
		count, err := ProcessQueues(ctx, c)
		if err != nil {
			return nil, err
		}
		r.Count = count
		r.Message = fmt.Sprintf("%d queues processed", count)

	case OP_CLEANUP:
		deleted, err := Cleanup(c.DB, c.Config.SCHEDULER.DaysToKeep)
		if err != nil {
			return nil, err
		}
		r.Count = int(deleted.Queues + deleted.LogBooks + deleted.WebhookEvents)
		r.Message = fmt.Sprintf("%d queues, %d log books, %d webhook events deleted", deleted.Queues, deleted.LogBooks, deleted.WebhookEvents)

	default:
		return nil, errors.Wrap(ErrUnknownOperation, operation)
	}
	return r, nil
}
