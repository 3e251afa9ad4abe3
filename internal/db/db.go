// Package db provides the PostgreSQL Artifact Store: users, interviews,
// conversation turns, reports, breakdowns and per-interview leases.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jonathan/interview-coach/internal/db/migrations"
)

// DB is the Artifact Store backed by a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and pings it.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return db.migrate(ctx, goose.UpContext)
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.migrate(ctx, goose.DownContext)
}

func (db *DB) migrate(ctx context.Context, run func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error) error {
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := run(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
