package escrow

import "time"

type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusActive       Status = "active"
	StatusVoting       Status = "voting"
	StatusVotingClosed Status = "voting-closed"
	StatusRefunded     Status = "refunded"
	StatusFinalized    Status = "finalized"
)

// StatusAt reports where the session stands at now. A session past its
// deadline without every deposit is voting-closed: votes are impossible and
// it only waits for finalize.
func (s *Session) StatusAt(now time.Time) Status {
	switch {
	case s.Finalized && s.Outcome == OutcomeSettled:
		return StatusFinalized
	case s.Finalized:
		return StatusRefunded
	case !now.Before(s.VoteEnd()):
		return StatusVotingClosed
	case !now.Before(s.Deadline) && s.Active:
		return StatusVoting
	case !now.Before(s.Deadline):
		return StatusVotingClosed
	case !s.Active:
		return StatusWaiting
	default:
		return StatusActive
	}
}

// Label is the Japanese text the bot shows for the status.
func (st Status) Label() string {
	switch st {
	case StatusWaiting:
		return "⏳ デポジット待ち"
	case StatusActive:
		return "🟢 成立"
	case StatusVoting:
		return "🗳️ 投票中"
	case StatusVotingClosed:
		return "🔒 投票終了"
	case StatusRefunded:
		return "💸 返金済み"
	case StatusFinalized:
		return "✅ 精算済み"
	}
	return string(st)
}
