package queue

import (
	"database/sql"
	"time"

	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	KIND_ORDER    = "order"
	KIND_CUSTOMER = "customer"
	KIND_PRODUCT  = "product"
)

const (
	CREATED_BY_IMPORT    = "import"
	CREATED_BY_WEBHOOK   = "webhook"
	CREATED_BY_SCHEDULER = "scheduled_action"
)

const (
	STATE_DRAFT               = "draft"
	STATE_PARTIALLY_COMPLETED = "partially_completed"
	STATE_COMPLETED           = "completed"
	STATE_FAILED              = "failed"
)

// line states
const (
	LINE_DRAFT  = "draft"
	LINE_FAILED = "failed"
	LINE_DONE   = "done"
	LINE_CANCEL = "cancel"
)

// MAX_PROCESS_COUNT is the number of runs after which an unfinished queue needs an operator.
const MAX_PROCESS_COUNT = 3

type Queue struct {
	ID              int           `db:"ID"`
	Name            string        `db:"Name"`
	Kind            string        `db:"Kind"`
	Instance        string        `db:"Instance"`
	State           string        `db:"State"`
	CreatedBy       string        `db:"CreatedBy"`
	LogBookID       sql.NullInt64 `db:"LogBookID"`
	ProcessCount    int           `db:"ProcessCount"`
	IsActionRequire bool          `db:"IsActionRequire"`
	CreatedAt       time.Time     `db:"CreatedAt"`
}

type Line struct {
	ID          int           `db:"ID"`
	QueueID     int           `db:"QueueID"`
	Kind        string        `db:"Kind"`
	Instance    string        `db:"Instance"`
	RemoteID    int64         `db:"RemoteID"`
	Name        string        `db:"Name"`
	Data        string        `db:"Data"`
	State       string        `db:"State"`
	ErpID       sql.NullInt64 `db:"ErpID"`
	ProcessedAt sql.NullTime  `db:"ProcessedAt"`
	CreatedAt   time.Time     `db:"CreatedAt"`
}

// Counts is the number of lines per state.
type Counts struct {
	Total  int `db:"Total"`
	Draft  int `db:"Draft"`
	Failed int `db:"Failed"`
	Done   int `db:"Done"`
	Cancel int `db:"Cancel"`
}

type QueueWithCounts struct {
	Queue
	Counts
}

func sequenceOf(kind string) string {
	switch kind {
	case KIND_CUSTOMER:
		return database.SEQUENCE_CUSTOMER_QUEUE
	case KIND_PRODUCT:
		return database.SEQUENCE_PRODUCT_QUEUE
	default:
		return database.SEQUENCE_ORDER_QUEUE
	}
}

// Create inserts a new draft queue.
func Create(db *sqlx.DB, instance, kind, createdBy string) (*Queue, error) {
	logger := logging.GetLogger()
	logger.Debug("Start queue.Create")
	defer logger.Debug("End queue.Create")

	name, err := database.NextSequence(db, sequenceOf(kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed in NextSequence")
	}
	q := &Queue{
		Name:      name,
		Kind:      kind,
		Instance:  instance,
		State:     STATE_DRAFT,
		CreatedBy: createdBy,
		CreatedAt: database.Now(),
	}
	query := `INSERT INTO Queue (Name, Kind, Instance, State, CreatedBy, ProcessCount, IsActionRequire, CreatedAt)
		VALUES (:Name, :Kind, :Instance, :State, :CreatedBy, 0, 0, :CreatedAt)`
	res, err := db.NamedExec(query, q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, q)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed LastInsertId")
	}
	q.ID = int(id)
	logger.Debugf("Queue %s created, kind %s, instance %s", q.Name, kind, instance)
	return q, nil
}

func Get(db *sqlx.DB, id int) (*Queue, error) {
	q := new(Queue)
	if err := db.Get(q, "SELECT * FROM Queue WHERE ID=$1", id); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT Queue %d", id)
	}
	return q, nil
}

// AddLine appends a draft line to the queue.
func (q *Queue) AddLine(db *sqlx.DB, remoteID int64, name, data string) (*Line, error) {
	l := &Line{
		QueueID:   q.ID,
		Kind:      q.Kind,
		Instance:  q.Instance,
		RemoteID:  remoteID,
		Name:      name,
		Data:      data,
		State:     LINE_DRAFT,
		CreatedAt: database.Now(),
	}
	query := `INSERT INTO QueueLine (QueueID, Kind, Instance, RemoteID, Name, Data, State, CreatedAt)
		VALUES (:QueueID, :Kind, :Instance, :RemoteID, :Name, :Data, :State, :CreatedAt)`
	res, err := db.NamedExec(query, l)
	if err != nil {
		return nil, errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%d)", query, remoteID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed LastInsertId")
	}
	l.ID = int(id)
	if err := q.RefreshState(db); err != nil {
		return nil, err
	}
	return l, nil
}

func (q *Queue) Lines(db *sqlx.DB) ([]*Line, error) {
	var lines []*Line
	if err := db.Select(&lines, "SELECT * FROM QueueLine WHERE QueueID=$1 ORDER BY ID", q.ID); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT QueueLine of queue %d", q.ID)
	}
	return lines, nil
}

func (q *Queue) LinesByState(db *sqlx.DB, states ...string) ([]*Line, error) {
	query, args, err := sqlx.In("SELECT * FROM QueueLine WHERE QueueID=? AND State IN (?) ORDER BY ID", q.ID, states)
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.In")
	}
	var lines []*Line
	if err := db.Select(&lines, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT QueueLine of queue %d", q.ID)
	}
	return lines, nil
}

func (q *Queue) Counts(db *sqlx.DB) (*Counts, error) {
	c := new(Counts)
	query := `SELECT COUNT(*) AS Total,
		COALESCE(SUM(State='draft'), 0) AS Draft,
		COALESCE(SUM(State='failed'), 0) AS Failed,
		COALESCE(SUM(State='done'), 0) AS Done,
		COALESCE(SUM(State='cancel'), 0) AS Cancel
		FROM QueueLine WHERE QueueID=$1`
	if err := db.Get(c, query, q.ID); err != nil {
		return nil, errors.Wrapf(err, "failed to count lines of queue %d", q.ID)
	}
	return c, nil
}

// ComputeState derives the queue state from its line counts.
func ComputeState(c Counts) string {
	switch {
	case c.Total == c.Done+c.Cancel:
		return STATE_COMPLETED
	case c.Total == c.Draft:
		return STATE_DRAFT
	case c.Total == c.Failed:
		return STATE_FAILED
	default:
		return STATE_PARTIALLY_COMPLETED
	}
}

func (q *Queue) RefreshState(db *sqlx.DB) error {
	c, err := q.Counts(db)
	if err != nil {
		return err
	}
	state := ComputeState(*c)
	if state == q.State {
		return nil
	}
	if _, err := db.Exec("UPDATE Queue SET State=$1 WHERE ID=$2", state, q.ID); err != nil {
		return errors.Wrapf(err, "failed UPDATE Queue %d state", q.ID)
	}
	q.State = state
	return nil
}

func (q *Queue) SetLogBook(db *sqlx.DB, logBookID int) error {
	if _, err := db.Exec("UPDATE Queue SET LogBookID=$1 WHERE ID=$2", logBookID, q.ID); err != nil {
		return errors.Wrapf(err, "failed UPDATE Queue %d log book", q.ID)
	}
	q.LogBookID = sql.NullInt64{Int64: int64(logBookID), Valid: true}
	return nil
}

// IncrementProcessCount records a processing run and flags the queue for an
// operator once it stays unfinished for MAX_PROCESS_COUNT runs. It reports
// whether the flag was raised by this call.
func (q *Queue) IncrementProcessCount(db *sqlx.DB) (bool, error) {
	q.ProcessCount++
	raise := !q.IsActionRequire && q.ProcessCount >= MAX_PROCESS_COUNT && q.State != STATE_COMPLETED
	if raise {
		q.IsActionRequire = true
	}
	_, err := db.Exec("UPDATE Queue SET ProcessCount=$1, IsActionRequire=$2 WHERE ID=$3", q.ProcessCount, q.IsActionRequire, q.ID)
	if err != nil {
		return false, errors.Wrapf(err, "failed UPDATE Queue %d process count", q.ID)
	}
	return raise, nil
}

// SetLineState stores the new line state and refreshes the queue state.
func (q *Queue) SetLineState(db *sqlx.DB, l *Line, state string, erpID int) error {
	l.State = state
	if erpID != 0 {
		l.ErpID = sql.NullInt64{Int64: int64(erpID), Valid: true}
	}
	if state == LINE_DONE || state == LINE_FAILED {
		l.ProcessedAt = sql.NullTime{Time: database.Now(), Valid: true}
	}
	_, err := db.NamedExec("UPDATE QueueLine SET State=:State, ErpID=:ErpID, ProcessedAt=:ProcessedAt WHERE ID=:ID", l)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE QueueLine %d", l.ID)
	}
	return q.RefreshState(db)
}

// ListByState returns the queues of an instance and kind in one of the given states, oldest first.
func ListByState(db *sqlx.DB, instance, kind string, states ...string) ([]*Queue, error) {
	query, args, err := sqlx.In("SELECT * FROM Queue WHERE Instance=? AND Kind=? AND State IN (?) ORDER BY ID", instance, kind, states)
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.In")
	}
	var queues []*Queue
	if err := db.Select(&queues, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed SELECT Queue")
	}
	return queues, nil
}

// DraftWebhookQueue returns the open queue collecting webhook lines, creating one when needed.
func DraftWebhookQueue(db *sqlx.DB, instance, kind string) (*Queue, error) {
	var queues []*Queue
	err := db.Select(&queues, "SELECT * FROM Queue WHERE Instance=$1 AND Kind=$2 AND CreatedBy=$3 AND State=$4 ORDER BY ID DESC LIMIT 1",
		instance, kind, CREATED_BY_WEBHOOK, STATE_DRAFT)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT Queue")
	}
	if len(queues) > 0 {
		return queues[0], nil
	}
	return Create(db, instance, kind, CREATED_BY_WEBHOOK)
}

func ListWithCounts(db *sqlx.DB, instance string) ([]*QueueWithCounts, error) {
	var queues []*Queue
	if err := db.Select(&queues, "SELECT * FROM Queue WHERE Instance=$1 ORDER BY ID DESC", instance); err != nil {
		return nil, errors.Wrap(err, "failed SELECT Queue")
	}
	result := make([]*QueueWithCounts, 0, len(queues))
	for _, q := range queues {
		c, err := q.Counts(db)
		if err != nil {
			return nil, err
		}
		result = append(result, &QueueWithCounts{Queue: *q, Counts: *c})
	}
	return result, nil
}

// DeleteOlderThan removes queues and their lines created before the given time.
func DeleteOlderThan(db *sqlx.DB, before time.Time) (int64, error) {
	logger := logging.GetLogger()
	logger.Debug("Start queue.DeleteOlderThan")
	defer logger.Debug("End queue.DeleteOlderThan")

	var err error
	tx := db.MustBegin()
	defer func() {
		if err != nil {
			if err := tx.Rollback(); err != nil {
				logger.Errorf("failed in Rollback(); %v", err)
			}
		}
	}()

	if _, err = tx.Exec("DELETE FROM QueueLine WHERE QueueID IN (SELECT ID FROM Queue WHERE CreatedAt < $1)", before); err != nil {
		return 0, errors.Wrap(err, "failed DELETE QueueLine")
	}
	res, err := tx.Exec("DELETE FROM Queue WHERE CreatedAt < $1", before)
	if err != nil {
		return 0, errors.Wrap(err, "failed DELETE Queue")
	}
	n, _ := res.RowsAffected()
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed Commit")
	}
	return n, nil
}
