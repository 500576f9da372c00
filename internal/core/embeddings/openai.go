package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const rateLimiterBurst = 5

type openaiClient struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	rateLimiter *rate.Limiter
}

// NewOpenAI builds an OpenAI embedding client. model falls back to
// text-embedding-3-small, dimensions to 1536.
func NewOpenAI(apiKey, model string, dimensions int, rps float64) Client {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	if dimensions <= 0 {
		dimensions = 1536
	}

	return &openaiClient{
		client:      openai.NewClient(apiKey),
		model:       openai.EmbeddingModel(model),
		dimensions:  dimensions,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
	}
}

func (c *openaiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrDimensionMismatch)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), c.dimensions)
	}

	return vec, nil
}

func (c *openaiClient) Dimensions() int {
	return c.dimensions
}
