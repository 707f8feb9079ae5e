package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/susu3304/tozlow/internal/api"
	"github.com/susu3304/tozlow/internal/bot"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/db"
	"github.com/susu3304/tozlow/internal/escrow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Bind the asset once; later starts keep the stored one
	err = database.Initialize(context.Background(), db.CustodyAccount, escrow.Address(cfg.AssetID))
	if err != nil && !errors.Is(err, escrow.ErrAlreadyInitialized) {
		log.Fatalf("Failed to initialize escrow: %v", err)
	}
	asset, err := database.Asset(context.Background())
	if err != nil {
		log.Fatalf("Failed to read escrow asset: %v", err)
	}
	if string(asset) != cfg.AssetID {
		log.Printf("ASSET_ID=%s ignored, escrow is bound to %s", cfg.AssetID, asset)
		cfg.AssetID = string(asset)
	}

	svc := escrow.NewService(database, database.Ledger())

	// Initialize Discord bot
	discordBot, err := bot.New(cfg, database, svc)
	if err != nil {
		log.Fatalf("Failed to create discord bot: %v", err)
	}

	// Initialize API server
	apiServer := api.New(cfg, database, svc)

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		log.Fatalf("Failed to start discord bot: %v", err)
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
