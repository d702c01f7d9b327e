// Package main runs the tip layer HTTP server: the tipping orchestrator,
// its ledger and profile services, and the append-only tip log behind a
// REST API with Prometheus metrics.
package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/MicroTip-Network/tip_layer/internal/app"
	"github.com/MicroTip-Network/tip_layer/internal/app/auth"
	"github.com/MicroTip-Network/tip_layer/internal/app/events"
	"github.com/MicroTip-Network/tip_layer/internal/app/httpapi"
	"github.com/MicroTip-Network/tip_layer/internal/app/metrics"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage/postgres"
	"github.com/MicroTip-Network/tip_layer/internal/chain"
	"github.com/MicroTip-Network/tip_layer/internal/config"
	"github.com/MicroTip-Network/tip_layer/internal/middleware"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

func main() {
	// Optional .env for local development; ignore if absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("tipserver").WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithField("component", "tipserver")

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("Failed to connect to postgres")
			os.Exit(1)
		}
		defer db.Close()

		store := postgres.New(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			log.WithError(err).Error("Failed to ensure database schema")
			os.Exit(1)
		}
		stores = app.Stores{Balances: store, Profiles: store, TipLog: store}
		log.Info("Using postgres storage")
	} else {
		log.Info("Using in-memory storage")
	}

	deps := app.Dependencies{
		Custodial: cfg.Chain.Custodial,
		Auth:      auth.NewManager(cfg.Auth.Secret),
	}

	if cfg.Chain.RPCURL != "" {
		transferClient, err := chain.NewClient(chain.Config{
			RPCURL:  cfg.Chain.RPCURL,
			Timeout: cfg.Chain.Timeout,
		})
		if err != nil {
			log.WithError(err).Error("Failed to create transfer client")
			os.Exit(1)
		}
		deps.Transfer = transferClient
		log.WithField("rpc_url", cfg.Chain.RPCURL).Info("Transfer service configured")
	} else {
		log.Warn("No transfer service configured; transfers are accepted unconditionally")
		deps.Transfer = acceptAllTransfers{}
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		deps.Publisher = events.NewRedisPublisher(redisClient, cfg.Redis.Channel)
		log.WithField("channel", cfg.Redis.Channel).Info("Publishing events to redis")
	}

	application, err := app.New(stores, deps, log)
	if err != nil {
		log.WithError(err).Error("Failed to build application")
		os.Exit(1)
	}

	handler := metrics.InstrumentHandler(httpapi.NewHandler(application))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(5 * time.Minute)
		handler = limiter.Handler(handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Tip server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
}

// acceptAllTransfers stands in for the transfer service during local
// development. Do not use it where real value moves.
type acceptAllTransfers struct{}

func (acceptAllTransfers) Transfer(ctx context.Context, from, to, token string, amount *big.Int) error {
	return nil
}
