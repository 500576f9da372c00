// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// the operational modes:
//
//   - Serve mode: WhatsApp webhook receiver plus the processing pipeline
//   - Search mode: one-shot semantic or keyword query against the store
//
// The health and metrics server runs alongside either mode.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/core/embeddings"
	"github.com/nroussel/watchsignal/internal/core/llm"
	"github.com/nroussel/watchsignal/internal/enrich"
	"github.com/nroussel/watchsignal/internal/extract"
	"github.com/nroussel/watchsignal/internal/merge"
	"github.com/nroussel/watchsignal/internal/pipeline"
	"github.com/nroussel/watchsignal/internal/platform/config"
	"github.com/nroussel/watchsignal/internal/platform/observability"
	"github.com/nroussel/watchsignal/internal/search"
	db "github.com/nroussel/watchsignal/internal/storage"
	"github.com/nroussel/watchsignal/internal/webhook"
)

const (
	apiKeyMock = "mock"

	extractorModePattern = "pattern"
	extractorModeLLM     = "llm"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunServe runs the webhook receiver with the full processing pipeline behind it.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Str("extractor", a.cfg.ExtractorMode).Msg("Starting serve mode")

	extractor, err := a.newExtractor()
	if err != nil {
		return err
	}

	p := pipeline.New(
		enrich.NewEnricher(),
		extractor,
		merge.New(),
		a.newEmbeddingClient(),
		a.database,
		a.logger,
	)

	srv := webhook.NewServer(p, a.cfg.VerifyToken, a.cfg.WebhookSecret, a.cfg.WebhookPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("webhook server run: %w", err)
	}

	return nil
}

// RunSearch executes one query and prints the results through the logger.
func (a *App) RunSearch(ctx context.Context, text, mode string) error {
	searcher := search.New(a.newEmbeddingClient(), a.database, a.logger)

	query := search.Query{
		Text:          text,
		Limit:         a.cfg.SearchLimit,
		MinSimilarity: a.cfg.SimilarityThreshold,
	}

	var (
		results []db.SearchResult
		err     error
	)

	if mode == "keyword" {
		results, err = searcher.Keyword(ctx, query)
	} else {
		results, err = searcher.Semantic(ctx, query)
	}

	if err != nil {
		return fmt.Errorf("search run: %w", err)
	}

	for i, res := range results {
		a.logger.Info().
			Int("rank", i+1).
			Str("sender", res.Sender).
			Str("brand", res.WatchBrand).
			Str("message_type", res.MessageType).
			Float64("similarity", res.Similarity).
			Str("content", res.Content).
			Msg("Search result")
	}

	a.logger.Info().Int("results", len(results)).Str("mode", mode).Msg("Search done")

	return nil
}

func (a *App) newExtractor() (extract.Extractor, error) {
	switch a.cfg.ExtractorMode {
	case extractorModePattern:
		return extract.NewPatternExtractor(a.logger), nil
	case extractorModeLLM:
		return extract.NewModelExtractor(a.newLLMClient(), nil, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor mode %q", a.cfg.ExtractorMode)
	}
}

func (a *App) newLLMClient() llm.CompletionClient {
	if a.mockProviders() {
		a.logger.Warn().Msg("Using mock LLM client")

		return llm.NewMock()
	}

	return llm.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.LLMModel, a.cfg.RateLimitRPS, a.logger)
}

func (a *App) newEmbeddingClient() embeddings.Client {
	if a.mockProviders() {
		a.logger.Warn().Msg("Using mock embedding client")

		return embeddings.NewMock(a.cfg.EmbeddingDimensions)
	}

	return embeddings.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.EmbeddingModel, a.cfg.EmbeddingDimensions, a.cfg.RateLimitRPS)
}

func (a *App) mockProviders() bool {
	key := strings.TrimSpace(a.cfg.OpenAIAPIKey)

	return key == "" || key == apiKeyMock
}
