package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/db"
	"github.com/susu3304/tozlow/internal/escrow"
)

type Bot struct {
	session *discordgo.Session
	db      *db.DB
	escrow  *escrow.Service
	config  *config.Config
	worker  *reminderWorker
}

func New(cfg *config.Config, database *db.DB, svc *escrow.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		db:      database,
		escrow:  svc,
		config:  cfg,
	}
	bot.worker = newReminderWorker(session, database, svc, cfg)
	svc.SetNotifier(newChannelNotifier(session, svc, cfg))

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.worker.start()
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.worker.stop()
	return b.session.Close()
}
