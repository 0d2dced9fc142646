package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const dbFileName = "brokerfit.db"

// PoolConfig holds connection pool limits
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DefaultPoolConfig suits a single SQLite file in WAL mode
var DefaultPoolConfig = PoolConfig{
	MaxOpenConns: 10,
	MaxIdleConns: 5,
	MaxLifetime:  5 * time.Minute,
}

// DB represents the database connection with pooling
type DB struct {
	*sqlx.DB
	pool PoolConfig
}

// NewDB opens (and migrates) the database file inside dataDir with the default pool
func NewDB(dataDir string) (*DB, error) {
	return NewDBWithPool(dataDir, DefaultPoolConfig)
}

// NewDBWithPool opens (and migrates) the database file inside dataDir
func NewDBWithPool(dataDir string, pool PoolConfig) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dbPath)

	sqlxDB, err := sqlx.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlxDB.Ping(); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlxDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlxDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlxDB.SetConnMaxLifetime(pool.MaxLifetime)

	database := &DB{DB: sqlxDB, pool: pool}

	if err := database.migrate(); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.MaxOpenConns,
		"max_idle_conns", pool.MaxIdleConns,
		"max_lifetime", pool.MaxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			assessment_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			vendor_name TEXT NOT NULL,
			overall_score REAL NOT NULL,
			payload TEXT NOT NULL, -- full snapshot as JSON
			finalized_at INTEGER NOT NULL -- unix nanoseconds, UTC
		)`,

		`CREATE TABLE IF NOT EXISTS snapshot_regions (
			snapshot_id TEXT NOT NULL,
			region TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, region),
			FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS snapshot_badges (
			snapshot_id TEXT NOT NULL,
			badge TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, badge),
			FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
		)`,

		// One public listing per vendor, pointing at its newest snapshot
		`CREATE TABLE IF NOT EXISTS listings (
			vendor_id TEXT PRIMARY KEY,
			snapshot_id TEXT NOT NULL,
			overall_score REAL NOT NULL,
			finalized_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_snapshots_assessment ON snapshots(assessment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_vendor ON snapshots(vendor_id, finalized_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_regions_region ON snapshot_regions(region)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_badges_badge ON snapshot_badges(badge)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_rank ON listings(overall_score DESC, finalized_at ASC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// Health pings the database within ctx
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]any {
	stats := db.Stats()

	return map[string]any{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": db.pool.MaxOpenConns,
		"max_idle_connections": db.pool.MaxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// IsTransient reports whether err is a lock conflict that may succeed on retry
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
