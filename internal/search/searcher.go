// Package search is the query side of the pipeline: it embeds search
// queries (with a small FIFO cache), runs semantic or keyword retrieval over
// the conversation store and parses free-form date filters.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/core/embeddings"
	"github.com/nroussel/watchsignal/internal/platform/observability"
	"github.com/nroussel/watchsignal/internal/storage"
)

const queryCacheSize = 100

// Store is the subset of the repository the searcher needs.
type Store interface {
	SemanticSearch(ctx context.Context, embedding []float32, opts storage.SearchOptions) ([]storage.SearchResult, error)
	KeywordSearch(ctx context.Context, text string, opts storage.SearchOptions) ([]storage.SearchResult, error)
}

// Query describes one search request. From/To accept any common date
// spelling ("2024-01-02", "Jan 2 2024", ...).
type Query struct {
	Text          string
	Sender        string
	MessageType   string
	Limit         int
	MinSimilarity float64
	From          string
	To            string
}

// Searcher caches query embeddings FIFO-bounded at 100 entries: the oldest
// inserted entry is evicted on overflow, regardless of access pattern.
type Searcher struct {
	embedder embeddings.Client
	store    Store
	logger   *zerolog.Logger

	mu    sync.Mutex
	cache map[string][]float32
	order []string
}

func New(embedder embeddings.Client, store Store, logger *zerolog.Logger) *Searcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Searcher{
		embedder: embedder,
		store:    store,
		logger:   logger,
		cache:    make(map[string][]float32, queryCacheSize),
	}
}

// Semantic embeds the query text and retrieves by vector similarity.
func (s *Searcher) Semantic(ctx context.Context, query Query) ([]storage.SearchResult, error) {
	observability.SearchRequests.WithLabelValues("semantic").Inc()

	opts, err := s.buildOptions(query)
	if err != nil {
		return nil, err
	}

	vector, err := s.queryEmbedding(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.SemanticSearch(ctx, vector, opts)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("query", query.Text).Int("results", len(results)).Msg("Semantic search done")

	return results, nil
}

// Keyword retrieves by substring match without touching the embedder.
func (s *Searcher) Keyword(ctx context.Context, query Query) ([]storage.SearchResult, error) {
	observability.SearchRequests.WithLabelValues("keyword").Inc()

	opts, err := s.buildOptions(query)
	if err != nil {
		return nil, err
	}

	return s.store.KeywordSearch(ctx, query.Text, opts)
}

func (s *Searcher) buildOptions(query Query) (storage.SearchOptions, error) {
	opts := storage.SearchOptions{
		Sender:        query.Sender,
		MessageType:   query.MessageType,
		Limit:         query.Limit,
		MinSimilarity: query.MinSimilarity,
	}

	if query.From != "" {
		from, err := dateparse.ParseAny(query.From)
		if err != nil {
			return storage.SearchOptions{}, fmt.Errorf("parse from date %q: %w", query.From, err)
		}

		opts.From = &from
	}

	if query.To != "" {
		to, err := dateparse.ParseAny(query.To)
		if err != nil {
			return storage.SearchOptions{}, fmt.Errorf("parse to date %q: %w", query.To, err)
		}

		opts.To = &to
	}

	return opts, nil
}

func (s *Searcher) queryEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(strings.ToLower(text))

	s.mu.Lock()

	if vector, ok := s.cache[key]; ok {
		s.mu.Unlock()

		return vector, nil
	}

	s.mu.Unlock()

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[key]; !ok {
		if len(s.order) >= queryCacheSize {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.cache, oldest)
		}

		s.cache[key] = vector
		s.order = append(s.order, key)
	}

	return vector, nil
}

// CachedQueries reports how many query embeddings are currently cached.
func (s *Searcher) CachedQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cache)
}

// RecentWindow is a convenience for "last N days" filters.
func RecentWindow(days int) (time.Time, time.Time) {
	now := time.Now().UTC()

	return now.AddDate(0, 0, -days), now
}
