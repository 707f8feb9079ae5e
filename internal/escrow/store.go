package escrow

import (
	"context"
	"time"
)

// Store persists sessions. Implementations must give Update exclusive access
// to one session and must commit fn's mutations, its queued events and any
// ledger movements made with the ctx passed to fn atomically: either all of
// them or none.
type Store interface {
	// Initialize records the asset once. A second call returns ErrAlreadyInitialized.
	Initialize(ctx context.Context, owner, asset Address) error
	Asset(ctx context.Context) (Address, error)

	// Create assigns the next session id to st (via SetID) and persists it.
	Create(ctx context.Context, st *State) (uint64, error)
	Update(ctx context.Context, id uint64, fn func(ctx context.Context, st *State) error) error
	Load(ctx context.Context, id uint64) (*State, error)
	Count(ctx context.Context) (uint64, error)
}

// Ledger moves value between participants and escrow custody. Any error is
// treated as a failed transfer.
type Ledger interface {
	// Pull moves amount from the participant into custody.
	Pull(ctx context.Context, from Address, amount int64) error
	// Push moves amount from custody to the recipient.
	Push(ctx context.Context, to Address, amount int64) error
}

type Clock func() time.Time

type lockKey struct{}

// EnterSession marks ctx as holding exclusive access to session id. It fails
// with ErrReentrantCall when ctx already holds it, which happens when a
// ledger callback re-enters the engine for the session being updated.
func EnterSession(ctx context.Context, id uint64) (context.Context, error) {
	held, _ := ctx.Value(lockKey{}).(map[uint64]struct{})
	if _, ok := held[id]; ok {
		return ctx, ErrReentrantCall
	}
	next := make(map[uint64]struct{}, len(held)+1)
	for k := range held {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	return context.WithValue(ctx, lockKey{}, next), nil
}
