package logbook

import (
	"database/sql"
	"time"

	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	TYPE_IMPORT = "import"
	TYPE_EXPORT = "export"
)

// models a log book or a log line refers to
const (
	MODEL_SALE_ORDER = "sale.order"
	MODEL_PARTNER    = "res.partner"
	MODEL_PRODUCT    = "product.product"
	MODEL_PICKING    = "stock.picking"
	MODEL_STOCK      = "stock.quant"
	MODEL_LOCATION   = "shopify.location"
)

type LogBook struct {
	ID        int            `db:"ID"`
	Name      string         `db:"Name"`
	Type      string         `db:"Type"`
	Instance  string         `db:"Instance"`
	Model     string         `db:"Model"`
	Message   sql.NullString `db:"Message"`
	CreatedAt time.Time      `db:"CreatedAt"`
}

type LogLine struct {
	ID          int            `db:"ID"`
	LogBookID   int            `db:"LogBookID"`
	Model       string         `db:"Model"`
	Message     string         `db:"Message"`
	OrderRef    sql.NullString `db:"OrderRef"`
	DefaultCode sql.NullString `db:"DefaultCode"`
	ResID       sql.NullInt64  `db:"ResID"`
	CreatedAt   time.Time      `db:"CreatedAt"`
}

func Create(db *sqlx.DB, instance, logType, model string) (*LogBook, error) {
	name, err := database.NextSequence(db, database.SEQUENCE_LOG_BOOK)
	if err != nil {
		return nil, errors.Wrap(err, "failed in NextSequence")
	}
	b := &LogBook{
		Name:      name,
		Type:      logType,
		Instance:  instance,
		Model:     model,
		CreatedAt: database.Now(),
	}
	query := `INSERT INTO LogBook (Name, Type, Instance, Model, Message, CreatedAt)
		VALUES (:Name, :Type, :Instance, :Model, :Message, :CreatedAt)`
	res, err := db.NamedExec(query, b)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, b)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed LastInsertId")
	}
	b.ID = int(id)
	return b, nil
}

func Get(db *sqlx.DB, id int) (*LogBook, error) {
	b := new(LogBook)
	if err := db.Get(b, "SELECT * FROM LogBook WHERE ID=$1", id); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT LogBook %d", id)
	}
	return b, nil
}

// Entry is what callers fill to describe one problem.
type Entry struct {
	Model       string
	Message     string
	OrderRef    string
	DefaultCode string
	ResID       int
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Add writes a log line and mirrors it to the process log.
func (b *LogBook) Add(db *sqlx.DB, e Entry) error {
	logger := logging.GetLogger()
	logger.Infof("%s: %s", b.Name, e.Message)

	if e.Model == "" {
		e.Model = b.Model
	}
	l := &LogLine{
		LogBookID:   b.ID,
		Model:       e.Model,
		Message:     e.Message,
		OrderRef:    nullString(e.OrderRef),
		DefaultCode: nullString(e.DefaultCode),
		ResID:       sql.NullInt64{Int64: int64(e.ResID), Valid: e.ResID != 0},
		CreatedAt:   database.Now(),
	}
	query := `INSERT INTO LogLine (LogBookID, Model, Message, OrderRef, DefaultCode, ResID, CreatedAt)
		VALUES (:LogBookID, :Model, :Message, :OrderRef, :DefaultCode, :ResID, :CreatedAt)`
	if _, err := db.NamedExec(query, l); err != nil {
		return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, l)
	}
	return nil
}

// AddMessage is Add for a plain message.
func (b *LogBook) AddMessage(db *sqlx.DB, message string) error {
	return b.Add(db, Entry{Message: message})
}

func (b *LogBook) Lines(db *sqlx.DB) ([]*LogLine, error) {
	var lines []*LogLine
	if err := db.Select(&lines, "SELECT * FROM LogLine WHERE LogBookID=$1 ORDER BY ID", b.ID); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT LogLine of %d", b.ID)
	}
	return lines, nil
}

// DeleteIfEmpty removes a log book nothing was written to. It reports whether the book was removed.
func (b *LogBook) DeleteIfEmpty(db *sqlx.DB) (bool, error) {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM LogLine WHERE LogBookID=$1", b.ID); err != nil {
		return false, errors.Wrapf(err, "failed to count lines of log book %d", b.ID)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := db.Exec("DELETE FROM LogBook WHERE ID=$1", b.ID); err != nil {
		return false, errors.Wrapf(err, "failed DELETE LogBook %d", b.ID)
	}
	return true, nil
}

// DeleteOlderThan removes log books and their lines created before the given time.
func DeleteOlderThan(db *sqlx.DB, before time.Time) (int64, error) {
	var err error
	tx := db.MustBegin()
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM LogLine WHERE LogBookID IN (SELECT ID FROM LogBook WHERE CreatedAt < $1)", before); err != nil {
		return 0, errors.Wrap(err, "failed DELETE LogLine")
	}
	res, err := tx.Exec("DELETE FROM LogBook WHERE CreatedAt < $1", before)
	if err != nil {
		return 0, errors.Wrap(err, "failed DELETE LogBook")
	}
	n, _ := res.RowsAffected()
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed Commit")
	}
	return n, nil
}
