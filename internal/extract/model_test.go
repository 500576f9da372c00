package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/watchsignal/internal/core/domain"
	"github.com/nroussel/watchsignal/internal/core/llm"
)

const saleResponse = `{
	"watch_details": {
		"brand": "Rolex",
		"model": "Submariner Date",
		"reference": "116610LV",
		"price": 8500,
		"currency": "EUR",
		"price_type": "asking",
		"condition": "excellent",
		"size": "40mm",
		"movement_type": "automatic"
	},
	"accessories": {
		"has_box": true,
		"has_papers": true,
		"has_warranty": null,
		"authenticity_mentioned": true
	},
	"sale_info": {
		"message_type": "sale",
		"seller_type": "private",
		"urgency_level": 9,
		"negotiable": false
	},
	"extraction_metadata": {
		"confidence_score": 1.4,
		"extracted_segments": ["Vends Rolex Submariner"],
		"reasoning": "marque et prix explicites"
	}
}`

func TestModelExtractor_ParsesResponse(t *testing.T) {
	client := llm.NewMock(saleResponse)
	e := NewModelExtractor(client, nil, nil)

	rec, err := e.Extract(context.Background(), "Vends Rolex Submariner Date 116610LV 8500€", nil)

	require.NoError(t, err)
	assert.Equal(t, "Rolex", rec.Brand)
	assert.Equal(t, "Submariner Date", rec.Model)
	assert.Equal(t, "116610LV", rec.Reference)
	require.NotNil(t, rec.Price)
	assert.InDelta(t, 8500.0, *rec.Price, 1e-9)
	assert.Equal(t, domain.MessageTypeSale, rec.MessageType)
	assert.Equal(t, domain.ExtractionMethodModel, rec.ExtractionMethod)

	// Tri-state accessory flags: true, true, not mentioned.
	require.NotNil(t, rec.HasBox)
	assert.True(t, *rec.HasBox)
	require.NotNil(t, rec.HasPapers)
	assert.True(t, *rec.HasPapers)
	assert.Nil(t, rec.HasWarranty)

	// Out-of-range values from the model are clamped, not rejected.
	assert.Equal(t, 5, rec.UrgencyLevel)
	assert.InDelta(t, 1.0, rec.ConfidenceScore, 1e-9)
}

func TestModelExtractor_CacheHitSkipsCompletion(t *testing.T) {
	client := llm.NewMock(saleResponse)
	e := NewModelExtractor(client, nil, nil)
	text := "Vends Rolex Submariner Date 8500€"

	first, err := e.Extract(context.Background(), text, nil)
	require.NoError(t, err)
	require.Equal(t, 1, client.Calls())

	second, err := e.Extract(context.Background(), text, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.Calls(), "second call must be served from cache")
	assert.Equal(t, first, second)
}

func TestModelExtractor_CacheKeyedByGroupFlag(t *testing.T) {
	client := llm.NewMock(saleResponse)
	e := NewModelExtractor(client, nil, nil)
	text := "Vends Omega Speedmaster 3500€"

	_, err := e.Extract(context.Background(), text, &domain.ContextMetadata{IsGroupMessage: false})
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), text, &domain.ContextMetadata{IsGroupMessage: true})
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
}

func TestModelExtractor_EmptyTextSkipsCompletion(t *testing.T) {
	client := llm.NewMock(saleResponse)
	e := NewModelExtractor(client, nil, nil)

	rec, err := e.Extract(context.Background(), "   ", nil)

	require.NoError(t, err)
	assert.Zero(t, client.Calls())
	assert.Equal(t, domain.ExtractionMethodModel, rec.ExtractionMethod)
	assert.Zero(t, rec.ConfidenceScore)
}

func TestModelExtractor_MalformedJSON(t *testing.T) {
	client := llm.NewMock("je ne peux pas répondre en JSON")
	e := NewModelExtractor(client, nil, nil)

	_, err := e.Extract(context.Background(), "Vends Seiko SKX007", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse model response")
	assert.Zero(t, e.cache.Len(), "failed extractions must not be cached")
}

func TestModelExtractor_ExtractBatchPreservesOrderOnFault(t *testing.T) {
	client := llm.NewMock(saleResponse, "not json", saleResponse)
	e := NewModelExtractor(client, nil, nil)

	records := e.ExtractBatch(context.Background(), []string{
		"Vends Rolex Submariner 8500€",
		"Vends Omega Speedmaster 3500€",
		"Vends Tudor Black Bay 2800€",
	}, nil)

	require.Len(t, records, 3)
	assert.Equal(t, "Rolex", records[0].Brand)
	assert.Equal(t, "Rolex", records[2].Brand)

	// The faulted element degrades to the zero-confidence fallback in place.
	assert.Zero(t, records[1].ConfidenceScore)
	assert.Equal(t, domain.MessageTypeGeneral, records[1].MessageType)
	assert.Contains(t, records[1].Reasoning, "extraction error")
}

func TestCacheKey_Sensitivity(t *testing.T) {
	base := CacheKey("vends rolex", "Jean", false)

	assert.Equal(t, base, CacheKey("vends rolex", "Jean", false))
	assert.NotEqual(t, base, CacheKey("vends omega", "Jean", false))
	assert.NotEqual(t, base, CacheKey("vends rolex", "Paul", false))
	assert.NotEqual(t, base, CacheKey("vends rolex", "Jean", true))
}

func TestStats_AggregatesCache(t *testing.T) {
	client := llm.NewMock(saleResponse)
	e := NewModelExtractor(client, nil, nil)

	_, err := e.Extract(context.Background(), "Vends Rolex Submariner 8500€", nil)
	require.NoError(t, err)

	stats := e.Stats()

	assert.Equal(t, 1, stats.TotalExtractions)
	assert.InDelta(t, 1.0, stats.AvgConfidence, 1e-9)
	assert.InDelta(t, 1.0, stats.HighConfidenceRate, 1e-9)
	assert.Equal(t, 1, stats.MessageTypes[domain.MessageTypeSale])
	assert.Contains(t, stats.TopBrands, "Rolex")
}
