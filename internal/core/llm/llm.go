// Package llm defines the chat-completion client used by the model-backed
// watch extractor, together with its OpenAI and mock implementations.
package llm

import (
	"context"
	"errors"
)

// ErrCircuitBreakerOpen indicates the circuit breaker is open.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// ErrEmptyResponse indicates the provider returned no choices.
var ErrEmptyResponse = errors.New("empty completion response")

// CompletionClient produces a single JSON-object completion for a
// system/user prompt pair.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}
