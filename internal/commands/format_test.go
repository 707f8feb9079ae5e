package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/escrow"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   int64
		decimals int
		asset    string
		want     string
	}{
		{0, 0, "JPY", "0 JPY"},
		{1000, 0, "JPY", "1,000 JPY"},
		{999, 0, "", "999"},
		{1234567, 2, "USD", "12,345.67 USD"},
		{5, 2, "", "0.05"},
		{100, 2, "", "1.00"},
		{-1500, 0, "", "-1,500"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.amount, tt.decimals, tt.asset); got != tt.want {
			t.Errorf("FormatAmount(%d, %d, %q) = %q, want %q", tt.amount, tt.decimals, tt.asset, got, tt.want)
		}
	}
}

func TestParseDeadline(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2026-03-01 19:00",
		" 2026/03/01 19:00 ",
		"2026-03-01T19:00",
		"2026-03-01T19:00:00+09:00",
		"2026-03-01T10:00:00Z",
	} {
		got, err := ParseDeadline(in, JST)
		if err != nil {
			t.Errorf("ParseDeadline(%q) error = %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDeadline(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "tomorrow", "2026-13-01 19:00"} {
		if _, err := ParseDeadline(in, JST); err == nil {
			t.Errorf("ParseDeadline(%q) succeeded", in)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	cfg := &config.Config{AssetID: "JPY"}
	tests := []struct {
		name string
		ev   escrow.Event
		want string
	}{
		{"deposit", escrow.Event{Kind: escrow.EventDeposited, SessionID: 2, Participant: "42"}, "<@42>"},
		{"vote hides names", escrow.Event{Kind: escrow.EventVoteCast, SessionID: 2, Voter: "1", Absent: "3"}, "投票がありました"},
		{"settled", escrow.Event{Kind: escrow.EventFinalized, SessionID: 2, Outcome: escrow.OutcomeSettled, AbsenteeCount: 1, RewardPerAttendee: 1500}, "1,500 JPY"},
		{"no settlement", escrow.Event{Kind: escrow.EventFinalized, SessionID: 2, Outcome: escrow.OutcomeRefundedNoSettlement}, "全員に返金"},
		{"refunded", escrow.Event{Kind: escrow.EventRefunded, SessionID: 2}, "揃わなかった"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEvent(tt.ev, cfg)
			if !strings.Contains(got, tt.want) {
				t.Errorf("FormatEvent() = %q, want it to contain %q", got, tt.want)
			}
			if tt.ev.Kind == escrow.EventVoteCast && strings.Contains(got, "<@") {
				t.Errorf("vote announcement leaks a user: %q", got)
			}
		})
	}
}

func TestFormatSettlementRemainder(t *testing.T) {
	cfg := &config.Config{AssetID: "JPY"}
	res := &escrow.Settlement{
		Outcome:           escrow.OutcomeSettled,
		Attendees:         []escrow.Address{"1", "2", "3"},
		Absentees:         []escrow.Address{"4"},
		RewardPerAttendee: 133,
		Remainder:         1,
	}
	got := FormatSettlement(0, res, cfg)
	for _, want := range []string{"<@4>", "<@1> <@2> <@3>", "133 JPY", "端数 1 JPY"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatSettlement() = %q, missing %q", got, want)
		}
	}
}
