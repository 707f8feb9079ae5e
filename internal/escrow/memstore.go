package escrow

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process memory. Update runs fn on a copy
// of the state and keeps it only when fn succeeds. It does not roll back
// ledger movements; pair it with a ledger that has no side effects on
// failure, or with a test fake.
type MemoryStore struct {
	mu          sync.Mutex
	initialized bool
	owner       Address
	asset       Address
	sessions    []*memEntry
	events      []Event
}

type memEntry struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Initialize(ctx context.Context, owner, asset Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.owner = owner
	m.asset = asset
	return nil
}

func (m *MemoryStore) Asset(ctx context.Context) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asset, nil
}

func (m *MemoryStore) Create(ctx context.Context, st *State) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uint64(len(m.sessions))
	st.SetID(id)
	m.events = append(m.events, st.events...)
	cp := st.clone()
	m.sessions = append(m.sessions, &memEntry{state: cp})
	return id, nil
}

func (m *MemoryStore) entry(id uint64) (*memEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= uint64(len(m.sessions)) {
		return nil, ErrSessionNotFound
	}
	return m.sessions[id], nil
}

func (m *MemoryStore) Update(ctx context.Context, id uint64, fn func(ctx context.Context, st *State) error) error {
	ctx, err := EnterSession(ctx, id)
	if err != nil {
		return err
	}
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := e.state.clone()
	if err := fn(ctx, cp); err != nil {
		return err
	}

	m.mu.Lock()
	m.events = append(m.events, cp.events...)
	m.mu.Unlock()
	cp.events = nil
	e.state = cp
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id uint64) (*State, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone(), nil
}

func (m *MemoryStore) Count(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.sessions)), nil
}

// EventLog returns every event committed so far, oldest first.
func (m *MemoryStore) EventLog() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
