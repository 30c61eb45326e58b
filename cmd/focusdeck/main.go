// Command focusdeck serves a single-user productivity dashboard: project
// lifecycle and ledger tracking, tasks, logs, milestones and snapshot
// export/import over a local HTTP API backed by an embedded SQLite store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/focusdeck/internal/api"
	"github.com/p-blackswan/focusdeck/internal/config"
	"github.com/p-blackswan/focusdeck/internal/dashboard"
	"github.com/p-blackswan/focusdeck/internal/health"
	"github.com/p-blackswan/focusdeck/internal/metrics"
	"github.com/p-blackswan/focusdeck/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Str("auth_mode", cfg.AuthMode).
		Msg("starting focusdeck")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Storage
	kv, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer kv.Close()

	// Seed projects
	seeds, err := dashboard.LoadSeeds(cfg.SeedPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load seed projects")
	}

	// Dashboard service
	svc, err := dashboard.New(ctx, kv, seeds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize dashboard")
	}

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := kv.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Metrics
	m := metrics.New()

	// API server
	srv := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
		TLSCert:     cfg.TLSCert,
		TLSKey:      cfg.TLSKey,
	}, svc, checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited")
		}
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("focusdeck stopped")
}
