package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/watchsignal/internal/core/embeddings"
	"github.com/nroussel/watchsignal/internal/storage"
)

type fakeStore struct {
	semanticCalls int
	keywordCalls  int
	lastOpts      storage.SearchOptions
	results       []storage.SearchResult
}

func (s *fakeStore) SemanticSearch(_ context.Context, _ []float32, opts storage.SearchOptions) ([]storage.SearchResult, error) {
	s.semanticCalls++
	s.lastOpts = opts

	return s.results, nil
}

func (s *fakeStore) KeywordSearch(_ context.Context, _ string, opts storage.SearchOptions) ([]storage.SearchResult, error) {
	s.keywordCalls++
	s.lastOpts = opts

	return s.results, nil
}

func TestSemantic_CachesQueryEmbedding(t *testing.T) {
	embedder := embeddings.NewMock(8)
	store := &fakeStore{}
	s := New(embedder, store, nil)

	_, err := s.Semantic(context.Background(), Query{Text: "rolex submariner"})
	require.NoError(t, err)

	_, err = s.Semantic(context.Background(), Query{Text: "rolex submariner"})
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.Calls(), "repeated query must reuse the cached embedding")
	assert.Equal(t, 2, store.semanticCalls)
}

func TestSemantic_CacheKeyCaseInsensitive(t *testing.T) {
	embedder := embeddings.NewMock(8)
	s := New(embedder, &fakeStore{}, nil)

	_, err := s.Semantic(context.Background(), Query{Text: "Rolex Submariner"})
	require.NoError(t, err)

	_, err = s.Semantic(context.Background(), Query{Text: "  rolex submariner "})
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.Calls())
}

func TestQueryEmbeddingCache_FIFOEviction(t *testing.T) {
	embedder := embeddings.NewMock(8)
	s := New(embedder, &fakeStore{}, nil)
	ctx := context.Background()

	for i := 0; i < queryCacheSize; i++ {
		_, err := s.queryEmbedding(ctx, fmt.Sprintf("query %d", i))
		require.NoError(t, err)
	}

	require.Equal(t, queryCacheSize, s.CachedQueries())
	require.Equal(t, queryCacheSize, embedder.Calls())

	// The 101st distinct query evicts the oldest entry.
	_, err := s.queryEmbedding(ctx, "query overflow")
	require.NoError(t, err)

	assert.Equal(t, queryCacheSize, s.CachedQueries())

	_, err = s.queryEmbedding(ctx, "query 0")
	require.NoError(t, err)
	assert.Equal(t, queryCacheSize+2, embedder.Calls(), "evicted query must be re-embedded")

	_, err = s.queryEmbedding(ctx, "query 2")
	require.NoError(t, err)
	assert.Equal(t, queryCacheSize+2, embedder.Calls(), "younger entries survive the eviction")
}

func TestKeyword_SkipsEmbedder(t *testing.T) {
	embedder := embeddings.NewMock(8)
	store := &fakeStore{results: []storage.SearchResult{{Content: "vends rolex"}}}
	s := New(embedder, store, nil)

	results, err := s.Keyword(context.Background(), Query{Text: "rolex", Limit: 5})

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Zero(t, embedder.Calls())
	assert.Equal(t, 5, store.lastOpts.Limit)
}

func TestBuildOptions_ParsesDates(t *testing.T) {
	s := New(embeddings.NewMock(8), &fakeStore{}, nil)

	opts, err := s.buildOptions(Query{
		Text:          "rolex",
		Sender:        "+336",
		MessageType:   "sale",
		Limit:         3,
		MinSimilarity: 0.8,
		From:          "2025-01-15",
		To:            "Mar 1, 2025",
	})

	require.NoError(t, err)
	assert.Equal(t, "+336", opts.Sender)
	assert.Equal(t, "sale", opts.MessageType)
	require.NotNil(t, opts.From)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *opts.From)
	require.NotNil(t, opts.To)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *opts.To)
}

func TestBuildOptions_RejectsBadDate(t *testing.T) {
	s := New(embeddings.NewMock(8), &fakeStore{}, nil)

	_, err := s.buildOptions(Query{Text: "rolex", From: "pas une date"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse from date")
}
