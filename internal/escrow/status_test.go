package escrow

import (
	"testing"
	"time"
)

func TestStatusAt(t *testing.T) {
	before := deadline.Add(-time.Minute)
	during := deadline.Add(time.Minute)
	after := deadline.Add(votingPeriod)

	tests := []struct {
		name    string
		session Session
		now     time.Time
		want    Status
	}{
		{"waiting for deposits", Session{}, before, StatusWaiting},
		{"all deposited", Session{Active: true}, before, StatusActive},
		{"voting", Session{Active: true}, during, StatusVoting},
		{"deadline passed without deposits", Session{}, during, StatusVotingClosed},
		{"window closed", Session{Active: true}, after, StatusVotingClosed},
		{"settled", Session{Finalized: true, Outcome: OutcomeSettled}, after, StatusFinalized},
		{"refunded", Session{Finalized: true, Outcome: OutcomeRefundedIncomplete}, after, StatusRefunded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.session
			s.Deadline = deadline
			s.VotingPeriod = votingPeriod
			if got := s.StatusAt(tt.now); got != tt.want {
				t.Errorf("StatusAt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(transferFailed(errTest)); got != ErrTransferFailed.Message {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errTest); got != "内部エラーが発生しました" {
		t.Errorf("Message(non escrow) = %q", got)
	}
	if KindOf(errTest) != "" {
		t.Errorf("KindOf(non escrow) = %q", KindOf(errTest))
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }
