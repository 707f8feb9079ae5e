package escrow

import (
	"context"
	"time"
)

type EventKind string

const (
	EventSessionCreated EventKind = "session_created"
	EventDeposited      EventKind = "deposited"
	EventVoteCast       EventKind = "vote_cast"
	EventFinalized      EventKind = "finalized"
	EventRefunded       EventKind = "refunded"
)

// Event is an append-only record of a successful operation. It is attached
// to the call that produced it and is never authoritative state.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID uint64    `json:"session_id"`
	At        time.Time `json:"at"`

	Host             Address       `json:"host,omitempty"`
	Amount           int64         `json:"amount,omitempty"`
	Deadline         time.Time     `json:"deadline,omitempty"`
	VotingPeriod     time.Duration `json:"voting_period,omitempty"`
	ParticipantCount int           `json:"participant_count,omitempty"`

	Participant Address `json:"participant,omitempty"`
	Voter       Address `json:"voter,omitempty"`
	Absent      Address `json:"absent,omitempty"`

	Outcome           Outcome `json:"outcome,omitempty"`
	AbsenteeCount     int     `json:"absentee_count,omitempty"`
	RewardPerAttendee int64   `json:"reward_per_attendee,omitempty"`
}

// Notifier observes committed events. Notify is called after the operation
// has been persisted; its failures do not affect the operation.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }
