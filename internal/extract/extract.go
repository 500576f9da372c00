// Package extract turns free-text chat messages into structured watch
// records. Two interchangeable strategies implement the same interface: a
// deterministic pattern matcher and a model-backed extractor with a
// content-addressed cache.
package extract

import (
	"context"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

// Extractor produces a watch record for a message. Implementations report
// faults through the error return; the pipeline converts any error into the
// zero-confidence fallback record so extraction never blocks a message.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string, meta *domain.ContextMetadata) (domain.WatchRecord, error)
}

// Fallback is the record stored when extraction fails: zero confidence,
// reasoning carrying the error description.
func Fallback(method string, err error) domain.WatchRecord {
	rec := domain.WatchRecord{
		Currency:         "EUR",
		MessageType:      domain.MessageTypeGeneral,
		ExtractionMethod: method,
	}

	if err != nil {
		rec.Reasoning = "extraction error: " + err.Error()
	}

	return rec
}
