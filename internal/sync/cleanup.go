package sync

import (
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/database/model/webhookevent"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
)

// DAYS_TO_KEEP is used when the configuration leaves it unset.
const DAYS_TO_KEEP = 7

type CleanupResult struct {
	Queues        int64
	LogBooks      int64
	WebhookEvents int64
}

// Cleanup deletes queues, log books and webhook events older than daysToKeep
// days. Records of every instance share the tables, so it runs once per
// service cycle, not per instance.
func Cleanup(db *sqlx.DB, daysToKeep int) (*CleanupResult, error) {
	logger := logging.GetLogger()
	logger.Info("Start Cleanup")
	defer logger.Info("End Cleanup")

	if daysToKeep <= 0 {
		daysToKeep = DAYS_TO_KEEP
	}
	before := database.Now().AddDate(0, 0, -daysToKeep)

	var result CleanupResult
	var err error
	if result.Queues, err = queue.DeleteOlderThan(db, before); err != nil {
		return nil, err
	}
	if result.LogBooks, err = logbook.DeleteOlderThan(db, before); err != nil {
		return nil, err
	}
	if result.WebhookEvents, err = webhookevent.DeleteOlderThan(db, before); err != nil {
		return nil, err
	}
	logger.Infof("Deleted %d queues, %d log books, %d webhook events created before %s",
		result.Queues, result.LogBooks, result.WebhookEvents, before.Format("2006-01-02"))
	return &result, nil
}
