package bot

import (
	"context"
	"log"

	"github.com/susu3304/tozlow/internal/commands"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/escrow"
)

type sessionLookup interface {
	Session(ctx context.Context, id uint64) (*escrow.State, error)
}

// channelNotifier announces committed escrow events in the session's channel.
type channelNotifier struct {
	session  messageSender
	sessions sessionLookup
	config   *config.Config
	// run schedules a send so Notify never blocks the caller.
	run func(func())
}

func newChannelNotifier(session messageSender, sessions sessionLookup, cfg *config.Config) *channelNotifier {
	return &channelNotifier{
		session:  session,
		sessions: sessions,
		config:   cfg,
		run:      func(f func()) { go f() },
	}
}

func (n *channelNotifier) Notify(ctx context.Context, ev escrow.Event) {
	msg := commands.FormatEvent(ev, n.config)
	if msg == "" {
		return
	}
	st, err := n.sessions.Session(ctx, ev.SessionID)
	if err != nil {
		log.Printf("notifier: failed to load session %d: %v", ev.SessionID, err)
		return
	}
	if st.ChannelID == "" {
		return
	}

	send := func() {
		if err := sendWithRetry(context.Background(), n.session, st.ChannelID, msg); err != nil {
			log.Printf("notifier: failed to post %s for session %d: %v", ev.Kind, ev.SessionID, err)
		}
	}
	n.run(send)
}
