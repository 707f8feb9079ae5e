package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/escrow"
)

type nopLedger struct{}

func (nopLedger) Pull(ctx context.Context, from escrow.Address, amount int64) error { return nil }
func (nopLedger) Push(ctx context.Context, to escrow.Address, amount int64) error   { return nil }

type fakeAccounts struct {
	sessions map[string][]uint64
}

func (f *fakeAccounts) Balance(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeAccounts) SessionsByUser(ctx context.Context, userID string, limit int) ([]uint64, error) {
	return f.sessions[userID], nil
}

func intOpt(name string, v int64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func userOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func TestTozlowFlow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{}, escrow.WithClock(func() time.Time { return now }))
	cfg := &config.Config{AssetID: "JPY", DefaultVotingPeriod: time.Hour}
	accounts := &fakeAccounts{sessions: map[string][]uint64{"1": {0}}}
	ctx := context.Background()

	run := func(user string, sub *discordgo.ApplicationCommandInteractionDataOption) string {
		return runTozlow(ctx, svc, accounts, cfg, user, "chan", sub).text
	}
	expect := func(got, want string) {
		t.Helper()
		if !strings.Contains(got, want) {
			t.Errorf("reply = %q, want it to contain %q", got, want)
		}
	}

	expect(run("1", subcommand("create",
		intOpt("amount", 1000),
		strOpt("deadline", "2026-03-01 19:00"),
		userOpt("p1", "1"), userOpt("p2", "2"), userOpt("p3", "3"),
		intOpt("voting_minutes", 30),
	)), "セッション #0 を作成しました")

	st, err := svc.Session(ctx, 0)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC); !st.Deadline.Equal(want) || st.VotingPeriod != 30*time.Minute || st.ChannelID != "chan" {
		t.Fatalf("session = %+v", st.Session)
	}

	expect(run("9", subcommand("deposit", intOpt("id", 0))), "❌ このセッションの参加者ではありません")
	expect(run("1", subcommand("deposit", intOpt("id", 0))), "（1/3）")
	expect(run("2", subcommand("deposit", intOpt("id", 0))), "（2/3）")
	expect(run("3", subcommand("deposit", intOpt("id", 0))), "全員のデポジットが揃いました")
	expect(run("1", subcommand("vote", intOpt("id", 0), userOpt("user", "2"))), "❌ 投票期間はまだ始まっていません")

	now = time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	expect(run("1", subcommand("status", intOpt("id", 0))), "投票中")
	expect(run("1", subcommand("vote", intOpt("id", 0), userOpt("user", "1"))), "❌ 自分自身には投票できません")
	expect(run("1", subcommand("vote", intOpt("id", 0), userOpt("user", "3"))), "投票しました")
	expect(run("2", subcommand("vote", intOpt("id", 0), userOpt("user", "3"))), "投票しました")
	expect(run("1", subcommand("finalize", intOpt("id", 0))), "❌ 投票期間はまだ始まっていません")

	now = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	expect(run("2", subcommand("finalize", intOpt("id", 0))), "出席: <@1> <@2>（1人あたり 1,500 JPY）")
	expect(run("1", subcommand("list")), "#0 ✅ 精算済み")
	expect(run("5", subcommand("list")), "参加しているセッションはありません")
}

func TestTozlowCreateRejectsInput(t *testing.T) {
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{})
	cfg := &config.Config{DefaultVotingPeriod: time.Hour}
	ctx := context.Background()

	tests := []struct {
		name string
		opts []*discordgo.ApplicationCommandInteractionDataOption
		want string
	}{
		{"bad deadline", []*discordgo.ApplicationCommandInteractionDataOption{
			intOpt("amount", 1), strOpt("deadline", "someday"),
			userOpt("p1", "1"), userOpt("p2", "2"), userOpt("p3", "3"),
		}, "開催日時を読み取れませんでした"},
		{"too few", []*discordgo.ApplicationCommandInteractionDataOption{
			intOpt("amount", 1), strOpt("deadline", "2026-03-01 19:00"),
			userOpt("p1", "1"), userOpt("p2", "2"),
		}, "参加者は3人以上必要です"},
		{"duplicate", []*discordgo.ApplicationCommandInteractionDataOption{
			intOpt("amount", 1), strOpt("deadline", "2026-03-01 19:00"),
			userOpt("p1", "1"), userOpt("p2", "2"), userOpt("p3", "1"),
		}, "重複"},
		{"voting period overflow", []*discordgo.ApplicationCommandInteractionDataOption{
			intOpt("amount", 1), strOpt("deadline", "2026-03-01 19:00"),
			userOpt("p1", "1"), userOpt("p2", "2"), userOpt("p3", "3"),
			intOpt("voting_minutes", 1<<50),
		}, "投票期間が不正です"},
		{"missing amount", []*discordgo.ApplicationCommandInteractionDataOption{
			strOpt("deadline", "2026-03-01 19:00"),
		}, "amount と deadline の指定が必要です"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runTozlow(ctx, svc, &fakeAccounts{}, cfg, "1", "chan", subcommand("create", tt.opts...)).text
			if !strings.Contains(got, tt.want) {
				t.Errorf("reply = %q, want it to contain %q", got, tt.want)
			}
		})
	}
	if n, _ := svc.SessionCount(ctx); n != 0 {
		t.Errorf("SessionCount() = %d, want 0", n)
	}
}

func TestTozlowVoteReplyIsPrivate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{}, escrow.WithClock(func() time.Time { return now }))
	cfg := &config.Config{AssetID: "JPY", DefaultVotingPeriod: time.Hour}
	ctx := context.Background()

	run := func(user string, sub *discordgo.ApplicationCommandInteractionDataOption) reply {
		return runTozlow(ctx, svc, &fakeAccounts{}, cfg, user, "chan", sub)
	}

	run("1", subcommand("create",
		intOpt("amount", 100),
		strOpt("deadline", "2026-03-01 19:00"),
		userOpt("p1", "1"), userOpt("p2", "2"), userOpt("p3", "3"),
	))
	for _, u := range []string{"1", "2", "3"} {
		if r := run(u, subcommand("deposit", intOpt("id", 0))); r.ephemeral {
			t.Errorf("deposit reply for %s is ephemeral", u)
		}
	}

	tests := []struct {
		name  string
		at    time.Time
		voter string
	}{
		{"rejected before the deadline", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "1"},
		{"accepted in the window", time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC), "1"},
		{"rejected as a second vote", time.Date(2026, 3, 1, 10, 6, 0, 0, time.UTC), "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.at
			r := run(tt.voter, subcommand("vote", intOpt("id", 0), userOpt("user", "3")))
			if !r.ephemeral {
				t.Errorf("vote reply %q is posted to the channel", r.text)
			}
			if strings.Contains(r.text, "<@") {
				t.Errorf("vote reply %q names a user", r.text)
			}
		})
	}

	if n, _ := svc.AbsenceVoteCount(ctx, 0, "3"); n != 1 {
		t.Errorf("AbsenceVoteCount() = %d, want 1", n)
	}
}
