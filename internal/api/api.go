package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/tozlow/internal/config"
	"github.com/susu3304/tozlow/internal/db"
	"github.com/susu3304/tozlow/internal/escrow"
	"golang.org/x/oauth2"
)

// Store is the part of the database the API reads besides the escrow
// service itself.
type Store interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, memo string) (int64, error)
	Entries(ctx context.Context, userID string, limit int) ([]db.LedgerEntry, error)
	SessionsByUser(ctx context.Context, userID string, limit int) ([]uint64, error)
	SessionEvents(ctx context.Context, sessionID uint64) ([]escrow.Event, error)
}

type API struct {
	router      *mux.Router
	db          Store
	escrow      *escrow.Service
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
}

func New(cfg *config.Config, database Store, svc *escrow.Service) *API {
	api := &API{
		router:    mux.NewRouter(),
		db:        database,
		escrow:    svc,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/stats", a.handleStats).Methods("GET")
	a.router.HandleFunc("/api/public/sessions/{id:[0-9]+}", a.handleGetSession).Methods("GET")
	a.router.HandleFunc("/api/public/sessions/{id:[0-9]+}/participants/{index:[0-9]+}", a.handleParticipantAt).Methods("GET")
	a.router.HandleFunc("/api/public/sessions/{id:[0-9]+}/events", a.handleSessionEvents).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/sessions", a.handleListSessions).Methods("GET")
	protected.HandleFunc("/sessions", a.handleCreateSession).Methods("POST")
	protected.HandleFunc("/sessions/{id:[0-9]+}/deposit", a.handleDeposit).Methods("POST")
	protected.HandleFunc("/sessions/{id:[0-9]+}/votes", a.handleCastVote).Methods("POST")
	protected.HandleFunc("/sessions/{id:[0-9]+}/finalize", a.handleFinalize).Methods("POST")
	protected.HandleFunc("/wallet", a.handleWallet).Methods("GET")
	protected.HandleFunc("/wallet/credit", a.handleCredit).Methods("POST")
}

func (a *API) Handler() http.Handler {
	// Setup CORS - allow all origins for development, restrict in production
	// Note: When AllowedOrigins is "*", AllowCredentials must be false for security
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, a.Handler())
}
