package db

import (
	"context"
	"time"
)

type ReminderDue struct {
	SessionID uint64
	ChannelID string
	Deadline  time.Time
	Pending   []string
}

// DueDepositReminders returns open sessions whose deadline falls within
// `within` of now, that still miss deposits and were not reminded since
// now - every.
func (db *DB) DueDepositReminders(ctx context.Context, now time.Time, within, every time.Duration) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.channel_id, s.deadline, array_agg(p.user_id ORDER BY p.idx)
		 FROM escrow_sessions s
		 JOIN escrow_participants p ON p.session_id = s.id AND NOT p.deposited
		 WHERE NOT s.finalized
		   AND s.channel_id <> ''
		   AND s.deadline > $1 AND s.deadline <= $2
		   AND (s.last_reminded_at IS NULL OR s.last_reminded_at <= $3)
		 GROUP BY s.id, s.channel_id, s.deadline
		 ORDER BY s.deadline`,
		now, now.Add(within), now.Add(-every),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var (
			r  ReminderDue
			id int64
		)
		if err := rows.Scan(&id, &r.ChannelID, &r.Deadline, &r.Pending); err != nil {
			return nil, err
		}
		r.SessionID = uint64(id)
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent records when a deposit reminder was posted.
func (db *DB) MarkReminderSent(ctx context.Context, sessionID uint64, sentAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE escrow_sessions SET last_reminded_at = $2 WHERE id = $1`,
		int64(sessionID), sentAt,
	)
	return err
}

// FinalizableSessions returns open sessions whose voting window has closed.
func (db *DB) FinalizableSessions(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id FROM escrow_sessions
		 WHERE NOT finalized
		   AND deadline + (voting_period_ns / 1000) * INTERVAL '1 microsecond' <= $1
		 ORDER BY id
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}
