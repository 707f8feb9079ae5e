package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the escrow schema.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escrow_settings (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			owner_id TEXT NOT NULL,
			asset TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS escrow_counter (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			next_id BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS escrow_sessions (
			id BIGINT PRIMARY KEY,
			host_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			deadline TIMESTAMPTZ NOT NULL,
			voting_period_ns BIGINT NOT NULL,
			participant_count INT NOT NULL,
			channel_id TEXT NOT NULL DEFAULT '',
			finalized BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			outcome TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			last_reminded_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_escrow_sessions_open ON escrow_sessions(deadline) WHERE NOT finalized;
		CREATE TABLE IF NOT EXISTS escrow_participants (
			session_id BIGINT NOT NULL REFERENCES escrow_sessions(id),
			idx INT NOT NULL,
			user_id TEXT NOT NULL,
			deposited BOOLEAN NOT NULL DEFAULT FALSE,
			voted BOOLEAN NOT NULL DEFAULT FALSE,
			absence_votes INT NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, idx),
			UNIQUE (session_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_escrow_participants_user ON escrow_participants(user_id);
		CREATE TABLE IF NOT EXISTS escrow_events (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_escrow_events_session ON escrow_events(session_id, id);
		CREATE TABLE IF NOT EXISTS wallet_balances (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// inTx runs fn inside the transaction carried by ctx, or inside a new one
// when there is none.
func (db *DB) inTx(ctx context.Context, fn func(q querier) error) error {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(tx)
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
