package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tozlow/internal/commands"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/db"
	"github.com/susu3304/tozlow/internal/escrow"
)

const (
	remindWithin  = 24 * time.Hour
	remindEvery   = time.Hour
	finalizeBatch = 20
)

// Minimal session interface for sending channel messages.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type workerStore interface {
	DueDepositReminders(ctx context.Context, now time.Time, within, every time.Duration) ([]db.ReminderDue, error)
	MarkReminderSent(ctx context.Context, sessionID uint64, sentAt time.Time) error
	FinalizableSessions(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

type finalizer interface {
	FinalizeSession(ctx context.Context, id uint64) (*escrow.Settlement, error)
	Now() time.Time
}

// reminderWorker finalizes sessions whose voting window has closed and
// reminds pending depositors before the deadline.
type reminderWorker struct {
	db       workerStore
	escrow   finalizer
	session  messageSender
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration
}

func newReminderWorker(session messageSender, database workerStore, svc finalizer, cfg *config.Config) *reminderWorker {
	return &reminderWorker{
		db:       database,
		escrow:   svc,
		session:  session,
		stopChan: make(chan struct{}),
		interval: cfg.WorkerInterval,
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *reminderWorker) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *reminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context) {
	now := w.escrow.Now()
	w.finalizeDue(ctx, now)
	w.remindDeposits(ctx, now)
}

// finalizeDue settles closed sessions. The result is announced by the
// notifier; a failed payout leaves the session open for the next tick.
func (w *reminderWorker) finalizeDue(ctx context.Context, now time.Time) {
	ids, err := w.db.FinalizableSessions(ctx, now, finalizeBatch)
	if err != nil {
		log.Printf("worker: failed to load finalizable sessions: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := w.escrow.FinalizeSession(ctx, id); err != nil {
			if errors.Is(err, escrow.ErrAlreadyFinalized) {
				continue
			}
			log.Printf("worker: failed to finalize session %d: %v", id, err)
		}
	}
}

func (w *reminderWorker) remindDeposits(ctx context.Context, now time.Time) {
	targets, err := w.db.DueDepositReminders(ctx, now, remindWithin, remindEvery)
	if err != nil {
		log.Printf("reminder: failed to load due reminders: %v", err)
		return
	}

	for _, t := range targets {
		msg := reminderMessage(t, now)
		if err := sendWithRetry(ctx, w.session, t.ChannelID, msg); err != nil {
			// Left unmarked so the next tick tries again.
			log.Printf("reminder: failed to send message to channel %s: %v", t.ChannelID, err)
			continue
		}
		if err := w.db.MarkReminderSent(ctx, t.SessionID, now); err != nil {
			log.Printf("reminder: failed to mark reminder sent for session %d: %v", t.SessionID, err)
		}
	}
}

func reminderMessage(t db.ReminderDue, now time.Time) string {
	pending := make([]string, len(t.Pending))
	for i, id := range t.Pending {
		pending[i] = fmt.Sprintf("<@%s>", id)
	}
	left := t.Deadline.Sub(now).Round(time.Minute)
	return fmt.Sprintf("⏰ セッション #%d の開催（%s）まであと %s です\n未デポジット: %s\n`/tozlow deposit id:%d` でデポジットしてください\n\n※このメッセージは自動投稿です",
		t.SessionID, commands.FormatTime(t.Deadline), formatRemaining(left), strings.Join(pending, " "), t.SessionID)
}

func formatRemaining(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%d分", m)
	}
	return fmt.Sprintf("%d時間%d分", h, m)
}

func sendWithRetry(ctx context.Context, session messageSender, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
