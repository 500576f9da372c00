// Package pipeline sequences the ingestion steps for one message: normalize,
// enrich, extract, merge, embed and store. Extraction faults degrade to a
// zero-confidence record; embedding and store faults fail the message so no
// entry is ever persisted without its vector.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/core/domain"
	"github.com/nroussel/watchsignal/internal/core/embeddings"
	"github.com/nroussel/watchsignal/internal/enrich"
	"github.com/nroussel/watchsignal/internal/extract"
	"github.com/nroussel/watchsignal/internal/merge"
	"github.com/nroussel/watchsignal/internal/platform/observability"
)

// Store is the subset of the conversation repository the pipeline needs.
type Store interface {
	InsertConversation(ctx context.Context, entry domain.ConversationEntry) (string, error)
	HasContentHash(ctx context.Context, sender, contentHash string) (bool, error)
}

type Pipeline struct {
	enricher  *enrich.Enricher
	extractor extract.Extractor
	merger    *merge.Merger
	embedder  embeddings.Client
	store     Store
	logger    *zerolog.Logger
}

func New(enricher *enrich.Enricher, extractor extract.Extractor, merger *merge.Merger, embedder embeddings.Client, store Store, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Pipeline{
		enricher:  enricher,
		extractor: extractor,
		merger:    merger,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// ContentHash fingerprints a message for de-duplication.
func ContentHash(sender string, timestamp time.Time, text string) string {
	sum := sha256.Sum256([]byte(sender + "_" + timestamp.UTC().Format(time.RFC3339) + "_" + text))

	return hex.EncodeToString(sum[:])
}

// Handle runs the full pipeline for one message. Retries are safe: the
// content hash makes insertion idempotent per message.
func (p *Pipeline) Handle(ctx context.Context, raw domain.RawMessage) domain.Outcome {
	text := enrich.NormalizeText(raw.Text)
	if text == "" {
		observability.PipelineProcessed.WithLabelValues("skipped").Inc()

		return domain.Outcome{Success: true, Skipped: true}
	}

	meta := p.enricher.Enrich(text, raw.Envelope)

	rec := p.extractRecord(ctx, text, &meta)

	entry := p.merger.Merge(text, rec, meta, raw)
	entry.ContentHash = ContentHash(raw.Sender, raw.Timestamp, text)

	duplicate, err := p.store.HasContentHash(ctx, raw.Sender, entry.ContentHash)
	if err != nil {
		p.logger.Error().Err(err).Str("message_id", raw.ID).Msg("Duplicate check failed")
		observability.PipelineProcessed.WithLabelValues("store_error").Inc()

		return domain.Outcome{}
	}

	if duplicate {
		observability.DuplicatesSkipped.Inc()
		observability.PipelineProcessed.WithLabelValues("duplicate").Inc()

		return domain.Outcome{Success: true, Duplicate: true}
	}

	embedText := enrich.BuildEmbeddingText(text, meta)

	vector, err := p.embedder.Embed(ctx, embedText)
	if err != nil {
		p.logger.Error().Err(err).Str("message_id", raw.ID).Msg("Embedding failed")
		observability.EmbeddingRequests.WithLabelValues("error").Inc()
		observability.PipelineProcessed.WithLabelValues("embedding_error").Inc()

		return domain.Outcome{}
	}

	observability.EmbeddingRequests.WithLabelValues("ok").Inc()

	entry.Embedding = vector

	id, err := p.store.InsertConversation(ctx, entry)
	if err != nil {
		p.logger.Error().Err(err).Str("message_id", raw.ID).Msg("Insert failed")
		observability.PipelineProcessed.WithLabelValues("store_error").Inc()

		return domain.Outcome{}
	}

	observability.ConversationsStored.Inc()
	observability.PipelineProcessed.WithLabelValues("stored").Inc()

	outcome := domain.Outcome{Success: true, StoredID: id}

	if rec.HasUsableData() {
		summary := rec.Summary()
		outcome.Watch = &summary

		p.logger.Info().
			Str("brand", summary.Brand).
			Str("model", summary.Model).
			Str("message_type", summary.MessageType).
			Float64("confidence", summary.ConfidenceScore).
			Msg("Watch data captured")
	}

	return outcome
}

// extractRecord converts any extraction fault into the fallback record at
// this boundary, keeping the error observable in logs.
func (p *Pipeline) extractRecord(ctx context.Context, text string, meta *domain.ContextMetadata) domain.WatchRecord {
	start := time.Now()

	rec, err := p.extractor.Extract(ctx, text, meta)

	observability.ExtractionDuration.WithLabelValues(p.extractor.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		p.logger.Error().Err(err).Str("method", p.extractor.Name()).Msg("Extraction failed, storing fallback record")

		rec = extract.Fallback(p.extractor.Name(), err)
	}

	observability.ExtractionConfidence.WithLabelValues(p.extractor.Name()).Observe(rec.ConfidenceScore)

	return rec
}
