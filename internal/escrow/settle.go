package escrow

type Payout struct {
	To     Address `json:"to"`
	Amount int64   `json:"amount"`
}

// Settlement is the classification and payout plan for a session whose
// voting window has closed.
type Settlement struct {
	Outcome           Outcome   `json:"outcome"`
	VoterCount        int       `json:"voter_count"`
	Threshold         int       `json:"threshold"`
	Attendees         []Address `json:"attendees"`
	Absentees         []Address `json:"absentees"`
	RewardPerAttendee int64     `json:"reward_per_attendee"`
	// Remainder is the part of the pool that integer division leaves in custody.
	Remainder int64    `json:"remainder"`
	Payouts   []Payout `json:"payouts"`
}

// Settle computes the settlement for st without touching it.
//
// If not every participant deposited, each depositor gets their stake back.
// Otherwise a participant who did not vote is absent, and a voter is absent
// when the accusations against them reach a majority of the voters. When
// nobody or everybody is absent all stakes are refunded; else the whole pool
// is split evenly between attendees, rounding down.
func Settle(st *State) Settlement {
	if !st.AllDeposited() {
		var out Settlement
		out.Outcome = OutcomeRefundedIncomplete
		for _, p := range st.Participants {
			if st.Deposited[p] {
				out.Payouts = append(out.Payouts, Payout{To: p, Amount: st.Amount})
			}
		}
		return out
	}

	out := Settlement{}
	for _, p := range st.Participants {
		if st.Voted[p] {
			out.VoterCount++
		}
	}
	out.Threshold = 1
	if out.VoterCount > 0 {
		out.Threshold = out.VoterCount/2 + 1
	}

	for _, p := range st.Participants {
		switch {
		case !st.Voted[p]:
			out.Absentees = append(out.Absentees, p)
		case st.AbsenceVotes[p] >= out.Threshold:
			out.Absentees = append(out.Absentees, p)
		default:
			out.Attendees = append(out.Attendees, p)
		}
	}

	if len(out.Absentees) == 0 || len(out.Attendees) == 0 {
		out.Outcome = OutcomeRefundedNoSettlement
		for _, p := range st.Participants {
			out.Payouts = append(out.Payouts, Payout{To: p, Amount: st.Amount})
		}
		return out
	}

	pool := st.Amount * int64(len(st.Participants))
	n := int64(len(out.Attendees))
	out.Outcome = OutcomeSettled
	out.RewardPerAttendee = pool / n
	out.Remainder = pool % n
	for _, p := range out.Attendees {
		out.Payouts = append(out.Payouts, Payout{To: p, Amount: out.RewardPerAttendee})
	}
	return out
}
