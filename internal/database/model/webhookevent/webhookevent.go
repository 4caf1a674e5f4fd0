package webhookevent

import (
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type WebhookEvent struct {
	ID         int       `db:"ID"`
	WebhookID  string    `db:"WebhookID"`
	Instance   string    `db:"Instance"`
	Topic      string    `db:"Topic"`
	ReceivedAt time.Time `db:"ReceivedAt"`
}

// Register stores the delivery and reports false when the same webhook id was seen before.
func Register(db *sqlx.DB, webhookID, instance, topic string) (bool, error) {
	res, err := db.Exec(`INSERT INTO WebhookEvent (WebhookID, Instance, Topic, ReceivedAt) VALUES ($1, $2, $3, $4)
		ON CONFLICT (WebhookID) DO NOTHING`, webhookID, instance, topic, database.Now())
	if err != nil {
		return false, errors.Wrapf(err, "failed INSERT WebhookEvent %s", webhookID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed RowsAffected")
	}
	return n == 1, nil
}

// Forget removes a delivery so that Shopify's retry is processed again.
func Forget(db *sqlx.DB, webhookID string) error {
	if _, err := db.Exec("DELETE FROM WebhookEvent WHERE WebhookID=$1", webhookID); err != nil {
		return errors.Wrapf(err, "failed DELETE WebhookEvent %s", webhookID)
	}
	return nil
}

func DeleteOlderThan(db *sqlx.DB, before time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM WebhookEvent WHERE ReceivedAt < $1", before)
	if err != nil {
		return 0, errors.Wrap(err, "failed DELETE WebhookEvent")
	}
	return res.RowsAffected()
}
