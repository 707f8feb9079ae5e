package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/db"
	"github.com/susu3304/tozlow/internal/escrow"
)

type sentMessage struct {
	channelID, content string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentMessage{channelID, content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

type fakeWorkerStore struct {
	due         []db.ReminderDue
	finalizable []uint64
	marked      map[uint64]time.Time
}

func (f *fakeWorkerStore) DueDepositReminders(ctx context.Context, now time.Time, within, every time.Duration) ([]db.ReminderDue, error) {
	return f.due, nil
}

func (f *fakeWorkerStore) MarkReminderSent(ctx context.Context, sessionID uint64, sentAt time.Time) error {
	if f.marked == nil {
		f.marked = make(map[uint64]time.Time)
	}
	f.marked[sessionID] = sentAt
	return nil
}

func (f *fakeWorkerStore) FinalizableSessions(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	return f.finalizable, nil
}

type nopLedger struct{}

func (nopLedger) Pull(ctx context.Context, from escrow.Address, amount int64) error { return nil }
func (nopLedger) Push(ctx context.Context, to escrow.Address, amount int64) error   { return nil }

var testDeadline = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestWorkerFinalizesClosedSessions(t *testing.T) {
	now := testDeadline.Add(-2 * time.Hour)
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{}, escrow.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateSession(ctx, "1", escrow.CreateParams{
			Amount:       100,
			Deadline:     testDeadline,
			VotingPeriod: time.Hour,
			Participants: []escrow.Address{"1", "2", "3"},
		}); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}
	if err := svc.Deposit(ctx, 0, "1"); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if _, err := svc.FinalizeSession(ctx, 1); err == nil {
		t.Fatal("FinalizeSession() before the window closed succeeded")
	}

	now = testDeadline.Add(2 * time.Hour)
	if _, err := svc.FinalizeSession(ctx, 1); err != nil {
		t.Fatalf("FinalizeSession() error = %v", err)
	}

	store := &fakeWorkerStore{finalizable: []uint64{0, 1}}
	w := newReminderWorker(&fakeSender{}, store, svc, &config.Config{WorkerInterval: time.Minute})
	w.tick(ctx)

	st, err := svc.Session(ctx, 0)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !st.Finalized || st.Outcome != escrow.OutcomeRefundedIncomplete {
		t.Errorf("session 0 = finalized %v outcome %q", st.Finalized, st.Outcome)
	}
}

func TestWorkerSendsDepositReminders(t *testing.T) {
	now := testDeadline.Add(-90 * time.Minute)
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{}, escrow.WithClock(func() time.Time { return now }))
	store := &fakeWorkerStore{due: []db.ReminderDue{
		{SessionID: 4, ChannelID: "chan", Deadline: testDeadline, Pending: []string{"2", "3"}},
	}}
	sender := &fakeSender{}
	w := newReminderWorker(sender, store, svc, &config.Config{WorkerInterval: time.Minute})

	w.tick(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	for _, want := range []string{"#4", "<@2> <@3>", "1時間30分", "id:4"} {
		if !strings.Contains(msg.content, want) {
			t.Errorf("reminder %q missing %q", msg.content, want)
		}
	}
	if msg.channelID != "chan" {
		t.Errorf("channel = %q", msg.channelID)
	}
	if got := store.marked[4]; !got.Equal(now) {
		t.Errorf("marked at %v, want %v", got, now)
	}
}

func TestWorkerLeavesFailedReminderUnmarked(t *testing.T) {
	svc := escrow.NewService(escrow.NewMemoryStore(), nopLedger{})
	store := &fakeWorkerStore{due: []db.ReminderDue{
		{SessionID: 1, ChannelID: "chan", Deadline: time.Now().Add(time.Hour), Pending: []string{"2"}},
	}}
	sender := &fakeSender{err: errors.New("403 Forbidden")}
	w := newReminderWorker(sender, store, svc, &config.Config{WorkerInterval: time.Minute})

	w.tick(context.Background())

	if _, ok := store.marked[1]; ok {
		t.Error("failed reminder was marked as sent")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Minute, "45分"},
		{time.Hour, "1時間0分"},
		{23*time.Hour + 59*time.Minute, "23時間59分"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.d); got != tt.want {
			t.Errorf("formatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChannelNotifierPostsToSessionChannel(t *testing.T) {
	sender := &fakeSender{}
	store := escrow.NewMemoryStore()
	svc := escrow.NewService(store, nopLedger{}, escrow.WithClock(func() time.Time { return testDeadline.Add(-time.Hour) }))
	n := newChannelNotifier(sender, svc, &config.Config{AssetID: "JPY"})
	n.run = func(f func()) { f() }
	svc.SetNotifier(n)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "1", escrow.CreateParams{
		Amount:       1000,
		Deadline:     testDeadline,
		VotingPeriod: time.Hour,
		Participants: []escrow.Address{"1", "2", "3"},
		ChannelID:    "chan",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := svc.Deposit(ctx, id, "2"); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if err := svc.Deposit(ctx, id, "9"); err == nil {
		t.Fatal("Deposit() by outsider succeeded")
	}

	// Sessions without a channel stay quiet.
	if _, err := svc.CreateSession(ctx, "1", escrow.CreateParams{
		Amount:       1,
		Deadline:     testDeadline,
		Participants: []escrow.Address{"1", "2", "3"},
	}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want 2: %+v", len(sender.sent), sender.sent)
	}
	if !strings.Contains(sender.sent[0].content, "1,000 JPY") || !strings.Contains(sender.sent[1].content, "<@2>") {
		t.Errorf("messages = %+v", sender.sent)
	}
}
