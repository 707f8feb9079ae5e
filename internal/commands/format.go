package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/escrow"
)

// JST is the zone deadlines without an offset are read in.
var JST = time.FixedZone("JST", 9*60*60)

var deadlineLayouts = []string{
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02T15:04",
}

// ParseDeadline accepts RFC3339 or "YYYY-MM-DD HH:MM" in loc.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q", s)
}

// FormatAmount renders an amount in the asset's smallest unit with
// thousands separators, e.g. 123456 with 2 decimals is "1,234.56".
func FormatAmount(amount int64, decimals int, asset string) string {
	neg := amount < 0
	u := uint64(amount)
	if neg {
		u = uint64(-amount)
	}
	digits := strconv.FormatUint(u, 10)

	var frac string
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		frac = digits[len(digits)-decimals:]
		digits = digits[:len(digits)-decimals]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if asset != "" {
		b.WriteByte(' ')
		b.WriteString(asset)
	}
	return b.String()
}

// FormatTime renders t as JST wall time.
func FormatTime(t time.Time) string {
	return t.In(JST).Format("2006-01-02 15:04")
}

func mention(a escrow.Address) string {
	return fmt.Sprintf("<@%s>", a)
}

func mentions(addrs []escrow.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = mention(a)
	}
	return strings.Join(parts, " ")
}

func amount(cfg *config.Config, v int64) string {
	return FormatAmount(v, cfg.AssetDecimals, cfg.AssetID)
}

// FormatSession is the /tozlow status view of a session.
func FormatSession(st *escrow.State, now time.Time, cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**セッション #%d** %s\n", st.ID, st.StatusAt(now).Label())
	fmt.Fprintf(&b, "金額: %s / 開催: %s / 投票締切: %s\n",
		amount(cfg, st.Amount), FormatTime(st.Deadline), FormatTime(st.VoteEnd()))
	for i, p := range st.Participants {
		fmt.Fprintf(&b, "%d. %s デポジット %s 投票 %s 欠席票 %d\n",
			i+1, mention(p), check(st.Deposited[p]), check(st.Voted[p]), st.AbsenceVotes[p])
	}
	return strings.TrimRight(b.String(), "\n")
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "⬜"
}

// FormatSettlement describes the result of finalizing a session.
func FormatSettlement(id uint64, res *escrow.Settlement, cfg *config.Config) string {
	switch res.Outcome {
	case escrow.OutcomeRefundedIncomplete:
		return fmt.Sprintf("💸 セッション #%d はデポジットが揃わなかったため、デポジット済みの参加者に返金しました", id)
	case escrow.OutcomeRefundedNoSettlement:
		return fmt.Sprintf("💸 セッション #%d は欠席者なし（または全員欠席）のため、全員に返金しました", id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ セッション #%d を精算しました\n", id)
	fmt.Fprintf(&b, "欠席: %s\n", mentions(res.Absentees))
	fmt.Fprintf(&b, "出席: %s（1人あたり %s）", mentions(res.Attendees), amount(cfg, res.RewardPerAttendee))
	if res.Remainder > 0 {
		fmt.Fprintf(&b, "\n端数 %s は保管口座に残ります", amount(cfg, res.Remainder))
	}
	return b.String()
}

// FormatEvent is the channel announcement for an event, or "" when the
// event is not announced.
func FormatEvent(ev escrow.Event, cfg *config.Config) string {
	switch ev.Kind {
	case escrow.EventSessionCreated:
		return fmt.Sprintf("🆕 セッション #%d が作成されました（%d人 / 各 %s / 開催 %s）\n`/tozlow deposit id:%d` でデポジットしてください",
			ev.SessionID, ev.ParticipantCount, amount(cfg, ev.Amount), FormatTime(ev.Deadline), ev.SessionID)
	case escrow.EventDeposited:
		return fmt.Sprintf("💰 %s がセッション #%d にデポジットしました", mention(ev.Participant), ev.SessionID)
	case escrow.EventVoteCast:
		// Voter and accused stay private.
		return fmt.Sprintf("🗳️ セッション #%d で投票がありました", ev.SessionID)
	case escrow.EventRefunded:
		return fmt.Sprintf("💸 セッション #%d はデポジットが揃わなかったため返金しました", ev.SessionID)
	case escrow.EventFinalized:
		if ev.Outcome == escrow.OutcomeRefundedNoSettlement {
			return fmt.Sprintf("💸 セッション #%d は欠席者なし（または全員欠席）のため全員に返金しました", ev.SessionID)
		}
		return fmt.Sprintf("✅ セッション #%d を精算しました（欠席 %d人 / 出席者1人あたり %s）",
			ev.SessionID, ev.AbsenteeCount, amount(cfg, ev.RewardPerAttendee))
	}
	return ""
}
