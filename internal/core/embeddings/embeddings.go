// Package embeddings defines the embedding client used to vectorize
// conversation text for storage and search.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyInput indicates an attempt to embed empty or whitespace-only text.
var ErrEmptyInput = errors.New("cannot embed empty input")

// ErrDimensionMismatch indicates the provider returned a vector of an
// unexpected size.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Client produces a vector for a piece of text.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
