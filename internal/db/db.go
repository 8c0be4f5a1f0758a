package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations runs database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS agents (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			wallet TEXT UNIQUE,
			service_type TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			reputation DOUBLE PRECISION NOT NULL DEFAULT 3.0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			jobs_completed BIGINT NOT NULL DEFAULT 0,
			total_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_agents_service_type ON agents(service_type) WHERE active;

		CREATE TABLE IF NOT EXISTS transaction_logs (
			id UUID PRIMARY KEY,
			channel_id UUID NOT NULL,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			state_nonce BIGINT NOT NULL,
			service_type TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (channel_id, state_nonce)
		);
		CREATE INDEX IF NOT EXISTS idx_transaction_logs_channel ON transaction_logs(channel_id);

		CREATE TABLE IF NOT EXISTS workflow_logs (
			id UUID PRIMARY KEY,
			payer_id TEXT NOT NULL,
			channel_id UUID,
			success BOOLEAN NOT NULL,
			steps_completed INT NOT NULL,
			total_cost DOUBLE PRECISION NOT NULL,
			total_duration_ms BIGINT NOT NULL,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}
