package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/app"
	"github.com/nroussel/watchsignal/internal/platform/config"
	db "github.com/nroussel/watchsignal/internal/storage"
)

func main() {
	mode := flag.String("mode", "serve", "Service mode (serve, search)")
	query := flag.String("query", "", "Search query text (for search mode)")
	searchMode := flag.String("search-mode", "semantic", "Search strategy (semantic, keyword)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *query, *searchMode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode, query, searchMode string) error {
	switch mode {
	case "serve":
		return application.RunServe(ctx)
	case "search":
		if query == "" {
			log.Fatalf("Usage: %s --mode=search --query=<text> [--search-mode=semantic|keyword]", os.Args[0])
		}

		return application.RunSearch(ctx, query, searchMode)
	default:
		log.Fatalf("Usage: %s --mode=[serve|search]", os.Args[0])

		return nil
	}
}
