package extract

// Stats aggregates the records accumulated in an extraction cache.
type Stats struct {
	TotalExtractions   int            `json:"total_extractions"`
	AvgConfidence      float64        `json:"avg_confidence"`
	HighConfidenceRate float64        `json:"high_confidence_rate"`
	MessageTypes       map[string]int `json:"message_types_distribution"`
	TopBrands          []string       `json:"top_brands"`
}

const highConfidenceThreshold = 0.7

// Stats summarizes the extractor's cached results.
func (e *ModelExtractor) Stats() Stats {
	records := e.cache.Snapshot()

	stats := Stats{
		TotalExtractions: len(records),
		MessageTypes:     make(map[string]int),
	}

	if len(records) == 0 {
		return stats
	}

	sum := 0.0
	high := 0
	seenBrands := make(map[string]bool)

	for _, rec := range records {
		sum += rec.ConfidenceScore

		if rec.ConfidenceScore > highConfidenceThreshold {
			high++
		}

		stats.MessageTypes[rec.MessageType]++

		if rec.Brand != "" && !seenBrands[rec.Brand] {
			seenBrands[rec.Brand] = true
			stats.TopBrands = append(stats.TopBrands, rec.Brand)
		}
	}

	stats.AvgConfidence = sum / float64(len(records))
	stats.HighConfidenceRate = float64(high) / float64(len(records))

	return stats
}
