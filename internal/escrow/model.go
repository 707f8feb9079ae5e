package escrow

import "time"

const (
	MinParticipants = 3
	MaxParticipants = 5
)

// Address identifies a participant. In the bot it is a Discord user ID.
type Address string

// Outcome records which settlement branch finalized a session.
type Outcome string

const (
	OutcomeNone                 Outcome = ""
	OutcomeRefundedIncomplete   Outcome = "refunded_incomplete"
	OutcomeRefundedNoSettlement Outcome = "refunded_no_settlement"
	OutcomeSettled              Outcome = "settled"
)

type Session struct {
	ID               uint64        `json:"id"`
	Host             Address       `json:"host"`
	Amount           int64         `json:"amount"`
	Deadline         time.Time     `json:"deadline"`
	VotingPeriod     time.Duration `json:"voting_period"`
	Participants     []Address     `json:"participants"`
	Finalized        bool          `json:"finalized"`
	Active           bool          `json:"active"`
	ParticipantCount int           `json:"participant_count"`
	ChannelID        string        `json:"channel_id,omitempty"`
	Outcome          Outcome       `json:"outcome,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// VoteEnd is the first instant at which votes are no longer accepted.
func (s *Session) VoteEnd() time.Time {
	return s.Deadline.Add(s.VotingPeriod)
}

func (s *Session) IsParticipant(addr Address) bool {
	for _, p := range s.Participants {
		if p == addr {
			return true
		}
	}
	return false
}

// State is a session together with its per-participant records. Deposits,
// votes and absence tallies live in separate maps so records for the same
// address never collide.
type State struct {
	Session
	Deposited    map[Address]bool
	Voted        map[Address]bool
	AbsenceVotes map[Address]int

	events []Event
}

func newState(s Session) *State {
	return &State{
		Session:      s,
		Deposited:    make(map[Address]bool),
		Voted:        make(map[Address]bool),
		AbsenceVotes: make(map[Address]int),
	}
}

// NewState returns an empty State for s. Stores use it when loading rows.
func NewState(s Session) *State {
	return newState(s)
}

func (st *State) AllDeposited() bool {
	for _, p := range st.Participants {
		if !st.Deposited[p] {
			return false
		}
	}
	return true
}

// Emit queues an event; stores persist queued events together with the state.
func (st *State) Emit(ev Event) {
	ev.SessionID = st.ID
	st.events = append(st.events, ev)
}

// Events returns the events queued since the state was loaded.
func (st *State) Events() []Event {
	return st.events
}

// SetID assigns the session id and stamps it on queued events.
func (st *State) SetID(id uint64) {
	st.ID = id
	for i := range st.events {
		st.events[i].SessionID = id
	}
}

func (st *State) clone() *State {
	cp := &State{
		Session:      st.Session,
		Deposited:    make(map[Address]bool, len(st.Deposited)),
		Voted:        make(map[Address]bool, len(st.Voted)),
		AbsenceVotes: make(map[Address]int, len(st.AbsenceVotes)),
	}
	cp.Participants = append([]Address(nil), st.Participants...)
	for k, v := range st.Deposited {
		cp.Deposited[k] = v
	}
	for k, v := range st.Voted {
		cp.Voted[k] = v
	}
	for k, v := range st.AbsenceVotes {
		cp.AbsenceVotes[k] = v
	}
	return cp
}
