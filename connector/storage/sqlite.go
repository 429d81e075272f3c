package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database persists what the connector learns about remote hosts.
type Database interface {
	ClientKeysStore
	Actors
	CrossPosts
	Open() error
	Close()
}

// sqliteDatabase is backed by a pure-go sqlite database through gorm
type sqliteDatabase struct {
	dsn   string
	db    *gorm.DB
	sqldb *sql.DB
}

// gormWriter sends gorm's complaints to the telemetry log.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	telemetry.Log("sqlite: "+format, args...)
}

// Open connects and creates missing tables. Opening twice reconnects.
func (s *sqliteDatabase) Open() error {
	s.Close()
	db, err := gorm.Open(sqlite.Open(s.dsn), &gorm.Config{
		Logger: logger.New(gormWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("opening sqlite [%s]: %w", s.dsn, err)
	}
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	s.db, s.sqldb = db, sqldb
	if err := db.AutoMigrate(&ClientKeys{}, &Actor{}, &CrossPost{}); err != nil {
		s.Close()
		return fmt.Errorf("migrating sqlite [%s]: %w", s.dsn, err)
	}
	return nil
}

func (s *sqliteDatabase) Close() {
	if s.sqldb != nil {
		s.sqldb.Close()
	}
	s.sqldb = nil
	s.db = nil
}

// NewDatabase returns an unopened database. dsn is a sqlite file
// name or dsn, e.g. "file::memory:?cache=shared".
func NewDatabase(dsn string) Database {
	return &sqliteDatabase{dsn: dsn}
}
