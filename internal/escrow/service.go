package escrow

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Service struct {
	store    Store
	ledger   Ledger
	now      Clock
	notifier Notifier
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(store Store, ledger Ledger, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier replaces the notifier. It must be called before the service
// is shared between goroutines.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateParams struct {
	Amount       int64
	Deadline     time.Time
	VotingPeriod time.Duration
	Participants []Address
	ChannelID    string
}

// CreateSession registers a new session hosted by host and returns its id.
// A deadline in the past is accepted.
func (s *Service) CreateSession(ctx context.Context, host Address, p CreateParams) (uint64, error) {
	n := len(p.Participants)
	if n < MinParticipants {
		return 0, ErrNotEnoughParticipants
	}
	if n > MaxParticipants {
		return 0, ErrTooManyParticipants
	}
	seen := make(map[Address]struct{}, n)
	for _, a := range p.Participants {
		if a == "" {
			return 0, ErrInvalidParticipant
		}
		if _, ok := seen[a]; ok {
			return 0, ErrDuplicateParticipant
		}
		seen[a] = struct{}{}
	}
	if p.Amount < 0 || p.Amount > math.MaxInt64/int64(n) {
		return 0, ErrInvalidAmount
	}
	if p.VotingPeriod < 0 {
		return 0, ErrInvalidVotingPeriod
	}

	now := s.now()
	st := newState(Session{
		Host:             host,
		Amount:           p.Amount,
		Deadline:         p.Deadline,
		VotingPeriod:     p.VotingPeriod,
		Participants:     append([]Address(nil), p.Participants...),
		ParticipantCount: n,
		ChannelID:        p.ChannelID,
		CreatedAt:        now,
	})
	st.Emit(Event{
		Kind:             EventSessionCreated,
		At:               now,
		Host:             host,
		Amount:           p.Amount,
		Deadline:         p.Deadline,
		VotingPeriod:     p.VotingPeriod,
		ParticipantCount: n,
	})

	id, err := s.store.Create(ctx, st)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	s.notify(ctx, st.Events())
	return id, nil
}

// Deposit pulls the stake from caller into custody. The session becomes
// active on the call that completes the last deposit.
func (s *Service) Deposit(ctx context.Context, id uint64, caller Address) error {
	var events []Event
	err := s.store.Update(ctx, id, func(ctx context.Context, st *State) error {
		now := s.now()
		if !now.Before(st.Deadline) {
			return ErrDeadlineReached
		}
		if st.Finalized {
			return ErrAlreadyFinalized
		}
		if !st.IsParticipant(caller) {
			return ErrNotParticipant
		}
		if st.Deposited[caller] {
			return ErrAlreadyDeposited
		}

		st.Deposited[caller] = true
		if st.AllDeposited() {
			st.Active = true
		}
		st.Emit(Event{Kind: EventDeposited, At: now, Participant: caller})

		if err := s.ledger.Pull(ctx, caller, st.Amount); err != nil {
			return transferFailed(err)
		}
		events = st.Events()
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, events)
	return nil
}

// CastVote records caller's accusation that accused did not attend. Votes
// are accepted in [deadline, deadline+voting period).
func (s *Service) CastVote(ctx context.Context, id uint64, caller, accused Address) error {
	var events []Event
	err := s.store.Update(ctx, id, func(ctx context.Context, st *State) error {
		now := s.now()
		if now.Before(st.Deadline) {
			return ErrVotingNotOpen
		}
		if !now.Before(st.VoteEnd()) {
			return ErrVotingClosed
		}
		if st.Finalized {
			return ErrAlreadyFinalized
		}
		if !st.Active {
			return ErrSessionNotActive
		}
		if !st.IsParticipant(caller) {
			return ErrNotParticipant
		}
		if !st.IsParticipant(accused) {
			return ErrInvalidAbsent
		}
		if caller == accused {
			return ErrCannotVoteSelf
		}
		if st.Voted[caller] {
			return ErrAlreadyVoted
		}

		st.Voted[caller] = true
		st.AbsenceVotes[accused]++
		st.Emit(Event{Kind: EventVoteCast, At: now, Voter: caller, Absent: accused})
		events = st.Events()
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, events)
	return nil
}

// FinalizeSession settles the session once its voting window has closed.
// Anyone may call it. The session is marked finalized before any payout is
// made; a failed payout aborts the whole call so it can be retried.
func (s *Service) FinalizeSession(ctx context.Context, id uint64) (*Settlement, error) {
	var (
		res    Settlement
		events []Event
	)
	err := s.store.Update(ctx, id, func(ctx context.Context, st *State) error {
		now := s.now()
		if now.Before(st.VoteEnd()) {
			return ErrVotingNotOpen
		}
		if st.Finalized {
			return ErrAlreadyFinalized
		}

		res = Settle(st)
		st.Finalized = true
		st.Outcome = res.Outcome
		if res.Outcome == OutcomeRefundedIncomplete {
			st.Emit(Event{Kind: EventRefunded, At: now, Outcome: res.Outcome})
		} else {
			st.Emit(Event{
				Kind:              EventFinalized,
				At:                now,
				Outcome:           res.Outcome,
				AbsenteeCount:     len(res.Absentees),
				RewardPerAttendee: res.RewardPerAttendee,
			})
		}

		for _, p := range res.Payouts {
			if err := s.ledger.Push(ctx, p.To, p.Amount); err != nil {
				return transferFailed(err)
			}
		}
		events = st.Events()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events)
	return &res, nil
}

func (s *Service) notify(ctx context.Context, events []Event) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		s.notifier.Notify(ctx, ev)
	}
}
