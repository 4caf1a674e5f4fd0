package sync

import (
	"context"
	"fmt"
	"time"

	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/sync/order"
	"ShopifyWithOdoo/internal/sync/stock"
	"ShopifyWithOdoo/internal/telegram"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
)

// MAX_RESTARTS is how many times a panicking service loop is started again.
const MAX_RESTARTS = 3

// SyncServiceWithRecovered runs SyncService and starts it again after a
// panic, at most MAX_RESTARTS times.
func SyncServiceWithRecovered(ctx context.Context, db *sqlx.DB) {
	logger := logging.GetLogger()
	logger.Info("Start Service SyncServiceWithRecovered")
	defer logger.Info("End Service SyncServiceWithRecovered")

	index := 0 // restarts after a panic
	for {
		SyncService(ctx, db)
		if ctx.Err() != nil {
			return
		}
		index++
		if index == MAX_RESTARTS {
			break
		}
	}
	telegram.SendMessageToTelegramWithLogError("restart of SyncService() stopped")
}

// SyncService runs the scheduled operations of every active instance every
// SCHEDULER.Timeout minutes until ctx is done.
func SyncService(ctx context.Context, db *sqlx.DB) {
	logger := logging.GetLogger()
	logger.Info("Start Service SyncService")
	defer logger.Info("End Service SyncService")

	defer func() {
		if r := recover(); r != nil {
			telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("critical error, sync service will be restarted, error: %v", r))
		}
	}()

	cfg := config.GetConfig()
	for {
		timeStart := time.Now()
		RunScheduled(ctx, cfg, db)
		logger.Infof("Full cycle time: %s", time.Since(timeStart))

		logger.Infof("time sleep %d minuts", cfg.SCHEDULER.Timeout)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Minute * time.Duration(cfg.SCHEDULER.Timeout)):
		}
	}
}

// RunScheduled runs one cycle of the enabled scheduler toggles.
func RunScheduled(ctx context.Context, cfg *config.Config, db *sqlx.DB) {
	logger := logging.GetLogger()
	for _, name := range cfg.InstanceNames() {
		if ctx.Err() != nil {
			return
		}
		instance, _ := cfg.Instance(name)
		if !instance.Active {
			logger.Debugf("Instance %s is not active", name)
			continue
		}
		c, err := connector.Get(cfg, db, name)
		if err != nil {
			telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		runInstance(ctx, c)
	}

	if cfg.SCHEDULER.Cleanup {
		if _, err := Cleanup(db, cfg.SCHEDULER.DaysToKeep); err != nil {
			telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("Error in Cleanup: %v", err))
		}
	}
}

func runInstance(ctx context.Context, c *connector.Connector) {
	cfg := c.Config
	report := func(operation string, err error) {
		if err != nil {
			telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("%s: error in %s: \n%v\n", c.Name, operation, err))
		}
	}

	if cfg.SCHEDULER.ImportOrders {
		report(OP_IMPORT_UNSHIPPED_ORDERS, order.ImportOrders(ctx, c, time.Time{}, time.Time{}))
	}
	if cfg.SCHEDULER.ProcessQueues {
		_, err := ProcessQueues(ctx, c)
		report(OP_PROCESS_QUEUES, err)
	}
	if cfg.SCHEDULER.UpdateOrderStatus {
		report(OP_UPDATE_ORDER_STATUS, order.UpdateOrderStatus(ctx, c))
	}
	if cfg.SCHEDULER.ExportStock {
		count, err := stock.ExportStock(ctx, c, time.Time{})
		report(OP_EXPORT_STOCK, err)
		if err == nil && count > 0 && cfg.SCHEDULER.TelegramReport {
			telegram.SendMessageToTelegramWithLogError(fmt.Sprintf("%s: %d inventory levels exported", c.Name, count))
		}
	}
}
