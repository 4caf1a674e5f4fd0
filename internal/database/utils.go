package database

import (
	"os"
	"time"

	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

func Exists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

func CreateDB(dbname string) error {

	logger := logging.GetLogger()
	logger.Info("CreateDB:>Start")
	defer logger.Info("CreateDB:>End")

	logger.Info("CreateDB:>Creating ", dbname)

	db, err := sqlx.Open("sqlite3", dbname)
	if err != nil {
		return errors.Wrapf(err, "failed sqlx.Open(%s)", dbname)
	}
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Error(err)
		}
	}(db)

	if err := initSchema(db); err != nil {
		return err
	}
	logger.Info(dbname, " created")
	return nil
}

// Open connects to the database, creating it when the file does not exist yet.
func Open(dbname string) (*sqlx.DB, error) {
	logger := logging.GetLogger()

	if !Exists(dbname) {
		logger.Info(dbname, " not exist")
		if err := CreateDB(dbname); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Connect("sqlite3", dbname+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "failed sqlx.Connect(%s)", dbname)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	v, err := SchemaVersion(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if v != SCHEMA_VERSION {
		_ = db.Close()
		return nil, errors.Errorf("schema version %d of %s is not supported, expected %d", v, dbname, SCHEMA_VERSION)
	}
	return db, nil
}

// OpenMemory returns an initialised in-memory database.
func OpenMemory() (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.Connect(:memory:)")
	}
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initSchema(db *sqlx.DB) error {
	if _, err := db.Exec(DB_SCHEMA); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	if _, err := db.Exec("INSERT INTO Version (Name, Version) VALUES ('Schema', $1)", SCHEMA_VERSION); err != nil {
		return errors.Wrap(err, "failed to store schema version")
	}
	return nil
}

// Now is the timestamp stored in every datetime column.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
