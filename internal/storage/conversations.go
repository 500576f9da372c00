package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

// ErrNotFound indicates no row matched the query.
var ErrNotFound = errors.New("not found")

const insertConversationSQL = `
INSERT INTO watch_conversations (
	id, sender, content, message_timestamp, content_hash, embedding,
	group_name, message_type, intent_score,
	watch_brand, watch_model, watch_reference,
	price, currency, price_type,
	condition, year, size, movement_type,
	seller_type, location, shipping_info, authenticity_mentioned,
	keywords, sentiment_score, urgency_level,
	detailed_extraction, search_metadata, processed_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9,
	$10, $11, $12,
	$13, $14, $15,
	$16, $17, $18, $19,
	$20, $21, $22, $23,
	$24, $25, $26,
	$27, $28, $29
)
RETURNING id`

// InsertConversation stores one entry and returns the generated id.
func (db *DB) InsertConversation(ctx context.Context, entry domain.ConversationEntry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	detailed, err := json.Marshal(entry.DetailedExtraction)
	if err != nil {
		return "", fmt.Errorf("marshal detailed extraction: %w", err)
	}

	searchMeta, err := json.Marshal(entry.SearchMetadata)
	if err != nil {
		return "", fmt.Errorf("marshal search metadata: %w", err)
	}

	var stored string

	err = db.Pool.QueryRow(ctx, insertConversationSQL,
		id, entry.Sender, entry.Content, entry.MessageTimestamp, entry.ContentHash, pgvector.NewVector(entry.Embedding),
		entry.GroupName, entry.MessageType, entry.IntentScore,
		entry.WatchBrand, entry.WatchModel, entry.WatchReference,
		entry.Price, entry.Currency, entry.PriceType,
		entry.Condition, entry.Year, entry.Size, entry.MovementType,
		entry.SellerType, entry.Location, entry.ShippingInfo, entry.AuthenticityMentioned,
		entry.Keywords, entry.SentimentScore, entry.UrgencyLevel,
		detailed, searchMeta, entry.ProcessedAt,
	).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}

	return stored, nil
}

// InsertConversationBatch stores entries sequentially and returns the
// generated ids in input order. It stops at the first failure.
func (db *DB) InsertConversationBatch(ctx context.Context, entries []domain.ConversationEntry) ([]string, error) {
	ids := make([]string, 0, len(entries))

	for i, entry := range entries {
		id, err := db.InsertConversation(ctx, entry)
		if err != nil {
			return ids, fmt.Errorf("batch insert entry %d: %w", i, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// HasContentHash reports whether the sender already stored this content.
func (db *DB) HasContentHash(ctx context.Context, sender, contentHash string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM watch_conversations WHERE sender = $1 AND content_hash = $2)",
		sender, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}

	return exists, nil
}

// ExistingHashes returns every content hash stored for a sender.
func (db *DB) ExistingHashes(ctx context.Context, sender string) (map[string]struct{}, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT content_hash FROM watch_conversations WHERE sender = $1",
		sender,
	)
	if err != nil {
		return nil, fmt.Errorf("query existing hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan content hash: %w", err)
		}

		hashes[hash] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hashes: %w", err)
	}

	return hashes, nil
}

// DeleteConversation removes all entries for a sender and returns the count.
func (db *DB) DeleteConversation(ctx context.Context, sender string) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		"DELETE FROM watch_conversations WHERE sender = $1",
		sender,
	)
	if err != nil {
		return 0, fmt.Errorf("delete conversation: %w", err)
	}

	return tag.RowsAffected(), nil
}

// SearchOptions narrows semantic and keyword queries.
type SearchOptions struct {
	Sender        string
	MessageType   string
	Limit         int
	MinSimilarity float64
	From          *time.Time
	To            *time.Time
}

const defaultSearchLimit = 10

// SearchResult is one retrieved conversation with its similarity score.
type SearchResult struct {
	ID             string
	Sender         string
	Content        string
	Timestamp      time.Time
	GroupName      string
	MessageType    string
	WatchBrand     string
	WatchModel     string
	Price          *float64
	Currency       string
	Keywords       []string
	SearchMetadata map[string]any
	Similarity     float64
}

// SemanticSearch retrieves entries by cosine similarity against the query
// embedding, filtered by the options.
func (db *DB) SemanticSearch(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := `
SELECT id, sender, content, message_timestamp, group_name, message_type,
	watch_brand, watch_model, price, currency, keywords, search_metadata,
	1 - (embedding <=> $1) AS similarity
FROM watch_conversations
WHERE 1 - (embedding <=> $1) >= $2`
	args := []any{pgvector.NewVector(embedding), opts.MinSimilarity}

	query, args = applyFilters(query, args, opts)

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", limit)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// KeywordSearch retrieves entries whose content matches the query text.
func (db *DB) KeywordSearch(ctx context.Context, text string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := `
SELECT id, sender, content, message_timestamp, group_name, message_type,
	watch_brand, watch_model, price, currency, keywords, search_metadata,
	0::float8 AS similarity
FROM watch_conversations
WHERE content ILIKE '%' || $1 || '%'`
	args := []any{text}

	query, args = applyFilters(query, args, opts)

	query += fmt.Sprintf(" ORDER BY message_timestamp DESC LIMIT %d", limit)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func applyFilters(query string, args []any, opts SearchOptions) (string, []any) {
	if opts.Sender != "" {
		args = append(args, opts.Sender)
		query += fmt.Sprintf(" AND sender = $%d", len(args))
	}

	if opts.MessageType != "" {
		args = append(args, opts.MessageType)
		query += fmt.Sprintf(" AND message_type = $%d", len(args))
	}

	if opts.From != nil {
		args = append(args, *opts.From)
		query += fmt.Sprintf(" AND message_timestamp >= $%d", len(args))
	}

	if opts.To != nil {
		args = append(args, *opts.To)
		query += fmt.Sprintf(" AND message_timestamp <= $%d", len(args))
	}

	return query, args
}

func scanSearchResults(rows pgx.Rows) ([]SearchResult, error) {
	var results []SearchResult

	for rows.Next() {
		var (
			res      SearchResult
			metaJSON []byte
		)

		if err := rows.Scan(
			&res.ID, &res.Sender, &res.Content, &res.Timestamp, &res.GroupName, &res.MessageType,
			&res.WatchBrand, &res.WatchModel, &res.Price, &res.Currency, &res.Keywords, &metaJSON,
			&res.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}

		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &res.SearchMetadata); err != nil {
				return nil, fmt.Errorf("unmarshal search metadata: %w", err)
			}
		}

		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	return results, nil
}

// ConversationStats summarizes stored entries for one sender.
type ConversationStats struct {
	MessageCount  int64
	WatchMessages int64
	SalesDetected int64
	TotalValue    float64
	Earliest      *time.Time
	Latest        *time.Time
}

// Stats aggregates counts and value for a sender's conversation.
func (db *DB) Stats(ctx context.Context, sender string) (ConversationStats, error) {
	var stats ConversationStats

	err := db.Pool.QueryRow(ctx, `
SELECT count(*),
	count(*) FILTER (WHERE intent_score >= 0.2),
	count(*) FILTER (WHERE message_type = 'sale'),
	COALESCE(sum(price), 0),
	min(message_timestamp),
	max(message_timestamp)
FROM watch_conversations
WHERE sender = $1`, sender).Scan(
		&stats.MessageCount,
		&stats.WatchMessages,
		&stats.SalesDetected,
		&stats.TotalValue,
		&stats.Earliest,
		&stats.Latest,
	)
	if err != nil {
		return ConversationStats{}, fmt.Errorf("conversation stats: %w", err)
	}

	return stats, nil
}
