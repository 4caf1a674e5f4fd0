package database

import (
	"database/sql"
	"fmt"
	"time"

	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SyncState names
const (
	LAST_DATE_ORDER_IMPORT    = "last_date_order_import"
	LAST_SHIPPED_ORDER_IMPORT = "last_shipped_order_import"
	LAST_DATE_CUSTOMER_IMPORT = "last_date_customer_import"
	LAST_DATE_UPDATE_STOCK    = "last_date_update_stock"
	LAST_DATE_PRODUCT_IMPORT  = "last_date_product_import"
	STORE_TIME_ZONE           = "store_time_zone"
	PRIMARY_LOCATION          = "primary_location"
	SYNC_STATE_DATE_LAYOUT    = time.RFC3339
	SEQUENCE_LOG_BOOK         = "LOG"
	SEQUENCE_ORDER_QUEUE      = "OQ"
	SEQUENCE_CUSTOMER_QUEUE   = "CQ"
	SEQUENCE_PRODUCT_QUEUE    = "PQ"
)

type Version struct {
	ID      int    `db:"ID"`
	Name    string `db:"Name"`
	Version int    `db:"Version"`
}

type SyncState struct {
	ID       int            `db:"ID"`
	Instance string         `db:"Instance"`
	Name     string         `db:"Name"`
	Value    sql.NullString `db:"Value"`
}

func SchemaVersion(db *sqlx.DB) (int, error) {
	var versions []Version
	err := db.Select(&versions, "SELECT * FROM Version WHERE Name='Schema'")
	if err != nil {
		return 0, errors.Wrap(err, "failed SELECT to dbsqlite")
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[0].Version, nil
}

// GetState returns the stored value, "" when it was never set.
func GetState(db *sqlx.DB, instance, name string) (string, error) {
	var states []SyncState
	query := "SELECT * FROM SyncState WHERE Instance=$1 AND Name=$2"
	if err := db.Select(&states, query, instance, name); err != nil {
		return "", errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s, %s)", query, instance, name)
	}
	if len(states) == 0 {
		return "", nil
	}
	return states[0].Value.String, nil
}

func SetState(db *sqlx.DB, instance, name, value string) error {
	logger := logging.GetLogger()
	query := `INSERT INTO SyncState (Instance, Name, Value) VALUES ($1, $2, $3)
		ON CONFLICT (Instance, Name) DO UPDATE SET Value=excluded.Value`
	if _, err := db.Exec(query, instance, name, value); err != nil {
		return errors.Wrapf(err, "failed UPSERT to dbsqlite; query:\n%s(%s, %s, %s)", query, instance, name, value)
	}
	logger.Debugf("SyncState %s/%s = %s", instance, name, value)
	return nil
}

// GetDate returns a stored date, zero time when it was never set.
func GetDate(db *sqlx.DB, instance, name string) (time.Time, error) {
	v, err := GetState(db, instance, name)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(SYNC_STATE_DATE_LAYOUT, v)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date in SyncState %s/%s", instance, name)
	}
	return t, nil
}

func SetDate(db *sqlx.DB, instance, name string, t time.Time) error {
	return SetState(db, instance, name, t.UTC().Format(SYNC_STATE_DATE_LAYOUT))
}

// NextSequence returns names like LOG/00001, unique per prefix.
func NextSequence(db *sqlx.DB, prefix string) (string, error) {
	var err error
	tx := db.MustBegin()
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT INTO Sequence (Name, Value) VALUES ($1, 1)
		ON CONFLICT (Name) DO UPDATE SET Value=Value+1`, prefix); err != nil {
		return "", errors.Wrapf(err, "failed to increment sequence %s", prefix)
	}
	var value int
	if err = tx.Get(&value, "SELECT Value FROM Sequence WHERE Name=$1", prefix); err != nil {
		return "", errors.Wrapf(err, "failed to read sequence %s", prefix)
	}
	if err = tx.Commit(); err != nil {
		return "", errors.Wrap(err, "failed to commit sequence")
	}
	return fmt.Sprintf("%s/%05d", prefix, value), nil
}
