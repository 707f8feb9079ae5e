package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string

	// Discord OAuth2
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Database
	DatabaseURL string

	// Web Server
	WebBind string

	// Session
	JWTSecret string

	// Escrow
	AssetID             string
	AssetDecimals       int
	AdminUserIDs        []string
	DefaultVotingPeriod time.Duration
	WorkerInterval      time.Duration
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:3000/api/auth/callback"),
		JWTSecret:           getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		AssetID:             getEnvDefault("ASSET_ID", "JPY"),
		AdminUserIDs:        splitList(os.Getenv("ADMIN_USER_IDS")),
	}

	var err error
	if cfg.AssetDecimals, err = strconv.Atoi(getEnvDefault("ASSET_DECIMALS", "0")); err != nil || cfg.AssetDecimals < 0 || cfg.AssetDecimals > 18 {
		return nil, fmt.Errorf("ASSET_DECIMALS must be an integer between 0 and 18")
	}
	if cfg.DefaultVotingPeriod, err = time.ParseDuration(getEnvDefault("DEFAULT_VOTING_PERIOD", "1h")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_VOTING_PERIOD: %w", err)
	}
	if cfg.WorkerInterval, err = time.ParseDuration(getEnvDefault("WORKER_INTERVAL", "1m")); err != nil || cfg.WorkerInterval <= 0 {
		return nil, fmt.Errorf("WORKER_INTERVAL must be a positive duration")
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DiscordClientID == "" {
		return nil, fmt.Errorf("DISCORD_CLIENT_ID is required")
	}
	if cfg.DiscordClientSecret == "" {
		return nil, fmt.Errorf("DISCORD_CLIENT_SECRET is required")
	}

	return cfg, nil
}

// IsAdmin reports whether the user may credit wallets.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
