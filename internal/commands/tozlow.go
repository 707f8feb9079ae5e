package commands

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/escrow"
)

// Accounts is the wallet and history lookup the commands need.
type Accounts interface {
	Balance(ctx context.Context, userID string) (int64, error)
	SessionsByUser(ctx context.Context, userID string, limit int) ([]uint64, error)
}

func HandleTozlow(s *discordgo.Session, i *discordgo.InteractionCreate, svc *escrow.Service, accounts Accounts, cfg *config.Config) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}

	ctx := context.Background()
	r := runTozlow(ctx, svc, accounts, cfg, interactionUserID(i), i.ChannelID, data.Options[0])
	if r.ephemeral {
		respondEphemeral(s, i, r.text)
		return
	}
	respondText(s, i, r.text)
}

// reply is the answer to one subcommand. Ephemeral replies are shown only
// to the invoking user.
type reply struct {
	text      string
	ephemeral bool
}

func public(text string) reply {
	return reply{text: text}
}

func private(text string) reply {
	return reply{text: text, ephemeral: true}
}

func HandleWallet(s *discordgo.Session, i *discordgo.InteractionCreate, accounts Accounts, cfg *config.Config) {
	userID := interactionUserID(i)
	balance, err := accounts.Balance(context.Background(), userID)
	if err != nil {
		log.Printf("wallet: failed to load balance for %s: %v", userID, err)
		respondEphemeral(s, i, "残高の取得に失敗しました")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("💳 残高: %s", amount(cfg, balance)))
}

// runTozlow executes one /tozlow subcommand.
func runTozlow(ctx context.Context, svc *escrow.Service, accounts Accounts, cfg *config.Config, userID, channelID string, sub *discordgo.ApplicationCommandInteractionDataOption) reply {
	caller := escrow.Address(userID)

	switch sub.Name {
	case "create":
		return public(runCreate(ctx, svc, cfg, caller, channelID, sub.Options))
	case "vote":
		// Who voted and whom they named is never shown in the channel.
		return private(runVote(ctx, svc, caller, sub.Options))
	}
	return public(runPublic(ctx, svc, accounts, cfg, userID, sub))
}

func runVote(ctx context.Context, svc *escrow.Service, caller escrow.Address, opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	id, ok := sessionIDFrom(opts)
	if !ok {
		return "セッションIDが指定されていません"
	}
	absent := getUserOption(opts, "user")
	if absent == "" {
		return "ユーザーが指定されていません"
	}
	if err := svc.CastVote(ctx, id, caller, escrow.Address(absent)); err != nil {
		return failure(err)
	}
	return fmt.Sprintf("セッション #%d に投票しました（投票内容は公開されません）", id)
}

func runPublic(ctx context.Context, svc *escrow.Service, accounts Accounts, cfg *config.Config, userID string, sub *discordgo.ApplicationCommandInteractionDataOption) string {
	caller := escrow.Address(userID)

	switch sub.Name {
	case "deposit":
		id, ok := sessionIDFrom(sub.Options)
		if !ok {
			return "セッションIDが指定されていません"
		}
		if err := svc.Deposit(ctx, id, caller); err != nil {
			return failure(err)
		}
		st, err := svc.Session(ctx, id)
		if err != nil {
			return failure(err)
		}
		done := 0
		for _, p := range st.Participants {
			if st.Deposited[p] {
				done++
			}
		}
		msg := fmt.Sprintf("セッション #%d にデポジットしました（%d/%d）", id, done, st.ParticipantCount)
		if st.Active {
			msg += "\n全員のデポジットが揃いました！"
		}
		return msg
	case "finalize":
		id, ok := sessionIDFrom(sub.Options)
		if !ok {
			return "セッションIDが指定されていません"
		}
		res, err := svc.FinalizeSession(ctx, id)
		if err != nil {
			return failure(err)
		}
		return FormatSettlement(id, res, cfg)
	case "status":
		id, ok := sessionIDFrom(sub.Options)
		if !ok {
			return "セッションIDが指定されていません"
		}
		st, err := svc.Session(ctx, id)
		if err != nil {
			return failure(err)
		}
		return FormatSession(st, svc.Now(), cfg)
	case "list":
		ids, err := accounts.SessionsByUser(ctx, userID, 10)
		if err != nil {
			log.Printf("tozlow: failed to list sessions for %s: %v", userID, err)
			return "一覧の取得に失敗しました"
		}
		if len(ids) == 0 {
			return "参加しているセッションはありません"
		}
		now := svc.Now()
		var lines []string
		for _, id := range ids {
			st, err := svc.Session(ctx, id)
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("#%d %s 開催 %s / %s",
				id, st.StatusAt(now).Label(), FormatTime(st.Deadline), amount(cfg, st.Amount)))
		}
		return strings.Join(lines, "\n")
	}
	return "未知のサブコマンドです"
}

func runCreate(ctx context.Context, svc *escrow.Service, cfg *config.Config, host escrow.Address, channelID string, opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	amt := getIntOption(opts, "amount")
	deadlineText := getStringOption(opts, "deadline")
	if amt == nil || deadlineText == nil {
		return "amount と deadline の指定が必要です"
	}
	deadline, err := ParseDeadline(*deadlineText, JST)
	if err != nil {
		return "開催日時を読み取れませんでした（例: 2026-03-01 19:00）"
	}

	period := cfg.DefaultVotingPeriod
	if m := getIntOption(opts, "voting_minutes"); m != nil {
		if *m > math.MaxInt64/int64(time.Minute) {
			return failure(escrow.ErrInvalidVotingPeriod)
		}
		period = time.Duration(*m) * time.Minute
	}

	var participants []escrow.Address
	for _, name := range participantOptionNames {
		if id := getUserOption(opts, name); id != "" {
			participants = append(participants, escrow.Address(id))
		}
	}

	id, err := svc.CreateSession(ctx, host, escrow.CreateParams{
		Amount:       *amt,
		Deadline:     deadline,
		VotingPeriod: period,
		Participants: participants,
		ChannelID:    channelID,
	})
	if err != nil {
		return failure(err)
	}
	return fmt.Sprintf("セッション #%d を作成しました\n参加者: %s\n金額: %s / 開催: %s / 投票締切: %s",
		id, mentions(participants), amount(cfg, *amt), FormatTime(deadline), FormatTime(deadline.Add(period)))
}

func sessionIDFrom(opts []*discordgo.ApplicationCommandInteractionDataOption) (uint64, bool) {
	v := getIntOption(opts, "id")
	if v == nil || *v < 0 {
		return 0, false
	}
	return uint64(*v), true
}

func failure(err error) string {
	if escrow.KindOf(err) == "" {
		log.Printf("tozlow: %v", err)
	}
	return "❌ " + escrow.Message(err)
}
