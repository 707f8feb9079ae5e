package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/susu3304/tozlow/internal/escrow"
)

var _ escrow.Store = (*DB)(nil)

// Initialize stores the escrow owner and asset. It succeeds only once.
func (db *DB) Initialize(ctx context.Context, owner, asset escrow.Address) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO escrow_settings (id, owner_id, asset) VALUES (1, $1, $2)`,
		string(owner), string(asset),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return escrow.ErrAlreadyInitialized
		}
		return err
	}
	return nil
}

func (db *DB) Asset(ctx context.Context) (escrow.Address, error) {
	var asset string
	err := db.pool.QueryRow(ctx, `SELECT asset FROM escrow_settings WHERE id = 1`).Scan(&asset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return escrow.Address(asset), nil
}

// Create allocates the next session id and inserts the session, its
// participants and its queued events in one transaction.
func (db *DB) Create(ctx context.Context, st *escrow.State) (uint64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO escrow_counter (id, next_id) VALUES (1, 1)
		 ON CONFLICT (id) DO UPDATE SET next_id = escrow_counter.next_id + 1
		 RETURNING next_id - 1`,
	).Scan(&id); err != nil {
		return 0, err
	}
	st.SetID(uint64(id))

	if _, err := tx.Exec(ctx,
		`INSERT INTO escrow_sessions (id, host_id, amount, deadline, voting_period_ns, participant_count, channel_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, string(st.Host), st.Amount, st.Deadline, int64(st.VotingPeriod), st.ParticipantCount, st.ChannelID, st.CreatedAt,
	); err != nil {
		return 0, err
	}
	for idx, p := range st.Participants {
		if _, err := tx.Exec(ctx,
			`INSERT INTO escrow_participants (session_id, idx, user_id) VALUES ($1, $2, $3)`,
			id, idx, string(p),
		); err != nil {
			return 0, err
		}
	}
	if err := insertEvents(ctx, tx, st.Events()); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update locks the session row, runs fn and writes the result back. Ledger
// calls made by fn with the ctx it receives join the same transaction.
func (db *DB) Update(ctx context.Context, id uint64, fn func(ctx context.Context, st *escrow.State) error) error {
	ctx, err := escrow.EnterSession(ctx, id)
	if err != nil {
		return err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st, err := loadState(ctx, tx, id, true)
	if err != nil {
		return err
	}
	if err := fn(withTx(ctx, tx), st); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE escrow_sessions SET finalized = $2, active = $3, outcome = $4 WHERE id = $1`,
		int64(id), st.Finalized, st.Active, string(st.Outcome),
	); err != nil {
		return err
	}
	for _, p := range st.Participants {
		if _, err := tx.Exec(ctx,
			`UPDATE escrow_participants
			 SET deposited = $3, voted = $4, absence_votes = $5
			 WHERE session_id = $1 AND user_id = $2`,
			int64(id), string(p), st.Deposited[p], st.Voted[p], st.AbsenceVotes[p],
		); err != nil {
			return err
		}
	}
	if err := insertEvents(ctx, tx, st.Events()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (db *DB) Load(ctx context.Context, id uint64) (*escrow.State, error) {
	return loadState(ctx, db.pool, id, false)
}

func (db *DB) Count(ctx context.Context) (uint64, error) {
	var next int64
	err := db.pool.QueryRow(ctx, `SELECT next_id FROM escrow_counter WHERE id = 1`).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(next), nil
}

func loadState(ctx context.Context, q querier, id uint64, forUpdate bool) (*escrow.State, error) {
	query := `SELECT host_id, amount, deadline, voting_period_ns, participant_count, channel_id,
	                 finalized, active, outcome, created_at
	          FROM escrow_sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		s        escrow.Session
		host     string
		periodNs int64
		outcome  string
	)
	s.ID = id
	err := q.QueryRow(ctx, query, int64(id)).Scan(
		&host, &s.Amount, &s.Deadline, &periodNs, &s.ParticipantCount, &s.ChannelID,
		&s.Finalized, &s.Active, &outcome, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrSessionNotFound
		}
		return nil, err
	}
	s.Host = escrow.Address(host)
	s.VotingPeriod = time.Duration(periodNs)
	s.Outcome = escrow.Outcome(outcome)

	rows, err := q.Query(ctx,
		`SELECT user_id, deposited, voted, absence_votes
		 FROM escrow_participants WHERE session_id = $1 ORDER BY idx`,
		int64(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type row struct {
		user      string
		deposited bool
		voted     bool
		votes     int
	}
	var list []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.user, &r.deposited, &r.voted, &r.votes); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range list {
		s.Participants = append(s.Participants, escrow.Address(r.user))
	}
	st := escrow.NewState(s)
	for _, r := range list {
		a := escrow.Address(r.user)
		if r.deposited {
			st.Deposited[a] = true
		}
		if r.voted {
			st.Voted[a] = true
		}
		if r.votes > 0 {
			st.AbsenceVotes[a] = r.votes
		}
	}
	return st, nil
}

func insertEvents(ctx context.Context, q querier, events []escrow.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO escrow_events (session_id, kind, payload, created_at) VALUES ($1, $2, $3, $4)`,
			int64(ev.SessionID), string(ev.Kind), payload, ev.At,
		); err != nil {
			return err
		}
	}
	return nil
}

// SessionsByUser returns ids of sessions the user participates in, newest first.
func (db *DB) SessionsByUser(ctx context.Context, userID string, limit int) ([]uint64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT session_id FROM escrow_participants WHERE user_id = $1 ORDER BY session_id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, uint64(id))
	}
	return out, rows.Err()
}

// SessionEvents returns the event log of a session, oldest first.
func (db *DB) SessionEvents(ctx context.Context, sessionID uint64) ([]escrow.Event, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT payload FROM escrow_events WHERE session_id = $1 ORDER BY id`,
		int64(sessionID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []escrow.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev escrow.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
