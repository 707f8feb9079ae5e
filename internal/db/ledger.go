package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/susu3304/tozlow/internal/escrow"
)

// CustodyAccount holds every deposited stake until the session is finalized.
const CustodyAccount = "escrow:custody"

// mintAccount is the source recorded for wallet top-ups.
const mintAccount = "escrow:mint"

var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger moves balances between wallets. Inside Update it joins the
// session's transaction, so a failed payout rolls back earlier ones too.
type Ledger struct {
	db *DB
}

var _ escrow.Ledger = (*Ledger)(nil)

func (db *DB) Ledger() *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Pull(ctx context.Context, from escrow.Address, amount int64) error {
	return l.db.transfer(ctx, string(from), CustodyAccount, amount, "deposit")
}

func (l *Ledger) Push(ctx context.Context, to escrow.Address, amount int64) error {
	return l.db.transfer(ctx, CustodyAccount, string(to), amount, "payout")
}

func (db *DB) transfer(ctx context.Context, from, to string, amount int64, memo string) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if amount == 0 {
		return nil
	}
	return db.inTx(ctx, func(q querier) error {
		ct, err := q.Exec(ctx,
			`UPDATE wallet_balances SET balance = balance - $2, updated_at = CURRENT_TIMESTAMP
			 WHERE user_id = $1 AND balance >= $2`,
			from, amount,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrInsufficientFunds
		}
		return credit(ctx, q, from, to, amount, memo)
	})
}

func credit(ctx context.Context, q querier, from, to string, amount int64, memo string) error {
	if _, err := q.Exec(ctx,
		`INSERT INTO wallet_balances (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = wallet_balances.balance + EXCLUDED.balance, updated_at = CURRENT_TIMESTAMP`,
		to, amount,
	); err != nil {
		return err
	}
	_, err := q.Exec(ctx,
		`INSERT INTO ledger_entries (from_id, to_id, amount, memo) VALUES ($1, $2, $3, $4)`,
		from, to, amount, memo,
	)
	return err
}

// Credit tops up a wallet and returns the new balance.
func (db *DB) Credit(ctx context.Context, userID string, amount int64, memo string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	var balance int64
	err := db.inTx(ctx, func(q querier) error {
		if err := credit(ctx, q, mintAccount, userID, amount, memo); err != nil {
			return err
		}
		return q.QueryRow(ctx, `SELECT balance FROM wallet_balances WHERE user_id = $1`, userID).Scan(&balance)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Balance returns the wallet balance; unknown users have zero.
func (db *DB) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := db.pool.QueryRow(ctx, `SELECT balance FROM wallet_balances WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

type LedgerEntry struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
	Amount int64  `json:"amount"`
	Memo   string `json:"memo"`
}

// Entries returns the latest ledger entries touching the user.
func (db *DB) Entries(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT from_id, to_id, amount, memo FROM ledger_entries
		 WHERE from_id = $1 OR to_id = $1
		 ORDER BY id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Amount, &e.Memo); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
