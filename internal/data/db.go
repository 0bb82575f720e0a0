package data

import (
	"fmt"
	"log/slog"
	"time"

	"nesta-import/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DBOptions describes how to reach the legacy database.
type DBOptions struct {
	Adapter  string
	DSN      string
	LogLevel string
}

// OpenDB opens the legacy database with the driver matching the adapter.
func OpenDB(opts DBOptions) (*gorm.DB, error) {
	adapter, err := config.NormalizeAdapter(opts.Adapter)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger:      NewGORMSlogLogger(nil, GORMLogLevel(opts.LogLevel), 200*time.Millisecond),
		PrepareStmt: false,
	}

	var db *gorm.DB
	switch adapter {
	case config.AdapterPostgres:
		slog.Info("Using Postgres DB")
		db, err = gorm.Open(postgres.Open(opts.DSN), gormConfig)
	case config.AdapterMySQL:
		slog.Info("Using MySQL DB")
		db, err = gorm.Open(mysql.Open(opts.DSN), gormConfig)
	default:
		slog.Info("Using SQLite DB", "path", opts.DSN)
		db, err = gorm.Open(sqlite.Open(opts.DSN), gormConfig)
		if err == nil {
			if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
				slog.Warn("Failed to set busy timeout for SQLite", "error", err)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", adapter, err)
	}

	return db, nil
}

// RegisterDBStats exposes the connection pool statistics of db on reg as
// go_sql_* metrics labelled db_name="legacy". Values are read at gather time.
func RegisterDBStats(reg prometheus.Registerer, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := reg.Register(collectors.NewDBStatsCollector(sqlDB, "legacy")); err != nil {
		return fmt.Errorf("failed to register database stats: %w", err)
	}
	return nil
}

// CloseDB releases the connection pool behind db.
func CloseDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to get database handle", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
