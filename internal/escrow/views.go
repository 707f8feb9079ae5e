package escrow

import (
	"context"
	"errors"
	"time"
)

// Session returns a snapshot of the session.
func (s *Service) Session(ctx context.Context, id uint64) (*State, error) {
	return s.store.Load(ctx, id)
}

// lookup loads a session for the zero-value accessors below: an unknown id
// yields (nil, nil) instead of an error.
func (s *Service) lookup(ctx context.Context, id uint64) (*State, error) {
	st, err := s.store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return st, err
}

// ParticipantAt returns the participant at index, or "" when out of range.
func (s *Service) ParticipantAt(ctx context.Context, id uint64, index int) (Address, error) {
	st, err := s.lookup(ctx, id)
	if err != nil || st == nil {
		return "", err
	}
	if index < 0 || index >= len(st.Participants) {
		return "", nil
	}
	return st.Participants[index], nil
}

func (s *Service) HasDeposited(ctx context.Context, id uint64, addr Address) (bool, error) {
	st, err := s.lookup(ctx, id)
	if err != nil || st == nil {
		return false, err
	}
	return st.Deposited[addr], nil
}

func (s *Service) HasVoted(ctx context.Context, id uint64, addr Address) (bool, error) {
	st, err := s.lookup(ctx, id)
	if err != nil || st == nil {
		return false, err
	}
	return st.Voted[addr], nil
}

func (s *Service) AbsenceVoteCount(ctx context.Context, id uint64, addr Address) (int, error) {
	st, err := s.lookup(ctx, id)
	if err != nil || st == nil {
		return 0, err
	}
	return st.AbsenceVotes[addr], nil
}

// VotingDeadline returns deadline + voting period, or the zero time for an
// unknown session.
func (s *Service) VotingDeadline(ctx context.Context, id uint64) (time.Time, error) {
	st, err := s.lookup(ctx, id)
	if err != nil || st == nil {
		return time.Time{}, err
	}
	return st.VoteEnd(), nil
}

func (s *Service) AssetAddress(ctx context.Context) (Address, error) {
	return s.store.Asset(ctx)
}

func (s *Service) SessionCount(ctx context.Context) (uint64, error) {
	return s.store.Count(ctx)
}

// Status derives the display status of a session at the service's current time.
func (s *Service) Status(ctx context.Context, id uint64) (Status, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return st.StatusAt(s.now()), nil
}

// Now returns the service's current time.
func (s *Service) Now() time.Time {
	return s.now()
}
