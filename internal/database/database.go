// package database opens the warm cache store: postgresql for shared deployments,
// sqlite for a single instance.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a GORM instance and, for postgresql, the pgx pool used for health checks.
type DB struct {
	Pool   *pgxpool.Pool
	GORM   *gorm.DB
	Driver string
}

// New opens the store for driver at dsn.
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch driver {
	case DriverPostgres:
		// 1. Initialize pgxpool
		config, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}

		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		// 2. Initialize GORM on the same URL
		gormDB, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		return &DB{Pool: pool, GORM: gormDB, Driver: driver}, nil

	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		gormDB, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db := &DB{GORM: gormDB, Driver: driver}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported cache driver %q", driver)
}

// ensureDir creates the parent directory of a file-backed sqlite dsn.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	return nil
}

// Close closes the pool and the underlying sql.DB.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if sqlDB, err := db.GORM.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
