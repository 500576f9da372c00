package merge

import (
	"strings"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

const (
	signalConfidenceHigh = 0.8
	signalConfidenceLow  = 0.1

	idealAvgWordLength = 5.5

	densityPrice = 0.3
	densityPhone = 0.2
	densityEmail = 0.2
	densityURLs  = 0.2

	reliabilityBase          = 0.5
	reliabilityProfileName   = 0.2
	reliabilityFormattedName = 0.1
	reliabilityGroupPenalty  = 0.1

	boostDefault      = 1.0
	boostRelevance    = 1.5
	boostCompleteness = 1.3
	boostAuthority    = 1.2

	boostConfidenceThreshold = 0.7

	completenessFieldCount = 5.0
)

// searchMetadata assembles the nested search-optimization bundle stored as a
// JSON blob and consumed by the query-side ranker.
func searchMetadata(text string, rec domain.WatchRecord, meta domain.ContextMetadata) map[string]any {
	signals := meta.IntentSignals
	reliability := sourceReliability(meta)

	return map[string]any{
		"semantic_enrichment": map[string]any{
			"intent_classification": map[string]any{
				"primary_intent":    primaryIntent(signals),
				"detected_intents":  detectedIntentNames(signals),
				"confidence_scores": signalConfidences(signals),
			},
			"content_analysis": map[string]any{
				"readability_score":   readabilityScore(text),
				"information_density": informationDensity(meta.TextAnalysis),
			},
			"contextual_signals": map[string]any{
				"source_reliability": reliability,
				"temporal_relevance": 1.0,
			},
		},
		"search_optimization": map[string]any{
			"boost_factors":     boostFactors(rec, signals),
			"filter_categories": filterCategories(rec, meta),
			"ranking_signals": map[string]any{
				"content_quality":          rec.ConfidenceScore,
				"information_completeness": informationCompleteness(rec),
				"source_trust":             reliability,
			},
		},
	}
}

func primaryIntent(signals domain.IntentSignals) string {
	switch {
	case signals.IsSelling:
		return "selling"
	case signals.IsSeeking:
		return "seeking"
	case signals.IsQuestion:
		return "question"
	case signals.IsGreeting:
		return "greeting"
	default:
		return "general"
	}
}

func detectedIntentNames(signals domain.IntentSignals) []string {
	var names []string

	if signals.IsSelling {
		names = append(names, "selling")
	}

	if signals.IsSeeking {
		names = append(names, "seeking")
	}

	if signals.IsQuestion {
		names = append(names, "question")
	}

	if signals.IsGreeting {
		names = append(names, "greeting")
	}

	if signals.HasUrgency {
		names = append(names, "urgency")
	}

	return names
}

func signalConfidences(signals domain.IntentSignals) map[string]float64 {
	confidence := func(on bool) float64 {
		if on {
			return signalConfidenceHigh
		}

		return signalConfidenceLow
	}

	return map[string]float64{
		"selling":  confidence(signals.IsSelling),
		"seeking":  confidence(signals.IsSeeking),
		"question": confidence(signals.IsQuestion),
		"greeting": confidence(signals.IsGreeting),
		"urgency":  confidence(signals.HasUrgency),
	}
}

// readabilityScore peaks at 1.0 for an average word length of 5.5 chars and
// decays linearly with the distance from it.
func readabilityScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0.0
	}

	total := 0
	for _, w := range words {
		total += len([]rune(w))
	}

	avg := float64(total) / float64(len(words))

	score := 1.0 - abs(avg-idealAvgWordLength)/idealAvgWordLength

	return clip01(score)
}

func informationDensity(analysis domain.TextAnalysis) float64 {
	density := 0.0

	if analysis.HasPrice {
		density += densityPrice
	}

	if analysis.HasPhone {
		density += densityPhone
	}

	if analysis.HasEmail {
		density += densityEmail
	}

	if analysis.HasURLs {
		density += densityURLs
	}

	if density > 1.0 {
		density = 1.0
	}

	return density
}

func sourceReliability(meta domain.ContextMetadata) float64 {
	reliability := reliabilityBase

	if meta.Sender.ProfileName != "" {
		reliability += reliabilityProfileName
	}

	if meta.Sender.FormattedName != "" {
		reliability += reliabilityFormattedName
	}

	if meta.IsGroupMessage {
		reliability -= reliabilityGroupPenalty
	}

	return clip01(reliability)
}

func boostFactors(rec domain.WatchRecord, signals domain.IntentSignals) map[string]float64 {
	factors := map[string]float64{
		"relevance":    boostDefault,
		"completeness": boostDefault,
		"authority":    boostDefault,
	}

	complete := rec.Brand != "" && rec.Model != "" && rec.Price != nil
	if rec.ConfidenceScore > boostConfidenceThreshold && complete {
		factors["relevance"] = boostRelevance
		factors["completeness"] = boostCompleteness
	}

	if signals.Any() {
		factors["authority"] = boostAuthority
	}

	return factors
}

func filterCategories(rec domain.WatchRecord, meta domain.ContextMetadata) []string {
	var categories []string

	if rec.Brand != "" {
		categories = append(categories, "brand:"+strings.ToLower(rec.Brand))
	}

	if rec.MessageType != "" {
		categories = append(categories, "type:"+rec.MessageType)
	}

	if meta.IsGroupMessage {
		categories = append(categories, "source:group")
	} else {
		categories = append(categories, "source:private")
	}

	return categories
}

func informationCompleteness(rec domain.WatchRecord) float64 {
	filled := 0

	if rec.Brand != "" {
		filled++
	}

	if rec.Model != "" {
		filled++
	}

	if rec.Price != nil {
		filled++
	}

	if rec.Condition != "" {
		filled++
	}

	if rec.Year != nil {
		filled++
	}

	return float64(filled) / completenessFieldCount
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
