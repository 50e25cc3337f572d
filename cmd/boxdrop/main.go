package main

import (
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pickbox/boxdrop/internal/chain"
	"github.com/pickbox/boxdrop/internal/config"
	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/game"
	"github.com/pickbox/boxdrop/internal/payments"
	"github.com/pickbox/boxdrop/internal/version"
	"github.com/pickbox/boxdrop/internal/web/handlers"
	"github.com/pickbox/boxdrop/internal/web/middleware"
	"github.com/pickbox/boxdrop/internal/webhook"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	store := db.NewStore(database)

	// Process-wide singletons, injected everywhere below.
	oracle := chain.NewClient(cfg.RPCURL, cfg.RPCAPIKey)
	locks := game.NewFidLocks()
	roller := game.NewRoller(rand.New(rand.NewSource(time.Now().UnixNano())))
	economy := game.NewEconomy(store, roller, locks, cfg.DailyPicksBase, cfg.DailyPicksOG)
	intents := payments.NewIntents(store, cfg)
	settler := payments.NewSettler(store, oracle, locks, cfg)
	limiter := middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)

	// Public reads
	r.Get("/leaderboard", handlers.LeaderboardHandler(store))

	// Identity-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Get("/me", handlers.MeHandler(economy))
		r.Post("/my-rank", handlers.MyRankHandler(store))

		// Mutating routes go through admission control.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			r.Post("/pick", handlers.PickHandler(economy))
			r.Post("/pay/extra", handlers.PayExtraHandler(intents))
			r.Post("/pay/og", handlers.PayOGHandler(intents))
			r.Post("/pay/settle", handlers.SettleHandler(settler))
		})
	})

	// Signed provider callbacks
	if cfg.WebhookSecret != "" {
		r.Post("/webhook/payments", webhook.Handler(cfg.WebhookSecret, settler))
	} else {
		log.Printf("⚠️ WEBHOOK_SECRET unset, provider callbacks disabled")
	}

	log.Printf("🎁 boxdrop %s starting on http://%s", version.Version, cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
