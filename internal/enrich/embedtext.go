package enrich

import (
	"strings"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

// MaxEnhancedTextLength bounds the string handed to the embedding model.
const MaxEnhancedTextLength = 8000

const maxGroupIndicatorTags = 2

// BuildEmbeddingText appends bracketed metadata tags to the original text so
// the embedding captures group, sender and intent context. When the result
// would exceed MaxEnhancedTextLength it falls back to the original text plus
// the single highest-priority tag, then hard-truncates. Blind truncation
// could cut mid-tag and corrupt the signal.
func BuildEmbeddingText(originalText string, meta domain.ContextMetadata) string {
	parts := []string{originalText}

	groupTag := ""
	if meta.IsGroupMessage {
		name := meta.Sender.ProfileName
		if name == "" {
			name = "Groupe"
		}

		groupTag = "[GROUPE: " + name + "]"
		parts = append(parts, groupTag)

		if len(meta.GroupIndicators) > 0 {
			indicators := meta.GroupIndicators
			if len(indicators) > maxGroupIndicatorTags {
				indicators = indicators[:maxGroupIndicatorTags]
			}

			parts = append(parts, "[CONTEXTE: "+strings.Join(indicators, ", ")+"]")
		}
	}

	senderName := meta.Sender.FormattedName
	if senderName == "" {
		senderName = meta.Sender.ProfileName
	}

	if senderName != "" {
		parts = append(parts, "[EXPÉDITEUR: "+senderName+"]")
	}

	intents := detectedIntents(meta.IntentSignals)
	if len(intents) > 0 {
		parts = append(parts, "[INTENTION: "+strings.Join(intents, ", ")+"]")
	}

	commercial := commercialContext(meta.TextAnalysis)
	if len(commercial) > 0 {
		parts = append(parts, "[COMMERCIAL: "+strings.Join(commercial, ", ")+"]")
	}

	if len(meta.TextAnalysis.LanguageHints) > 0 {
		parts = append(parts, "[LANGUE: "+strings.ToUpper(meta.TextAnalysis.LanguageHints[0])+"]")
	}

	if meta.Timing.IsBusinessHours {
		parts = append(parts, "[HEURES_OUVRABLES]")
	}

	if meta.Conversation.IsReply {
		parts = append(parts, "[RÉPONSE]")
	}

	if meta.Conversation.HasContext {
		parts = append(parts, "[THREAD]")
	}

	enhanced := strings.Join(parts, " ")
	if len(enhanced) <= MaxEnhancedTextLength {
		return enhanced
	}

	priorityTag := groupTag
	if priorityTag == "" && len(intents) > 0 {
		priorityTag = "[INTENTION: " + intents[0] + "]"
	}

	fallback := originalText
	if priorityTag != "" {
		fallback += " " + priorityTag
	}

	if len(fallback) > MaxEnhancedTextLength {
		fallback = fallback[:MaxEnhancedTextLength]
	}

	return fallback
}

func detectedIntents(signals domain.IntentSignals) []string {
	var intents []string

	if signals.IsSelling {
		intents = append(intents, "VENTE")
	}

	if signals.IsSeeking {
		intents = append(intents, "RECHERCHE")
	}

	if signals.IsQuestion {
		intents = append(intents, "QUESTION")
	}

	if signals.HasUrgency {
		intents = append(intents, "URGENT")
	}

	return intents
}

func commercialContext(analysis domain.TextAnalysis) []string {
	var tags []string

	if analysis.HasPrice {
		tags = append(tags, "PRIX")
	}

	if analysis.HasPhone {
		tags = append(tags, "CONTACT")
	}

	if analysis.HasURLs {
		tags = append(tags, "LIEN")
	}

	return tags
}
