package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

func TestBuildEmbeddingText_AllTags(t *testing.T) {
	meta := domain.ContextMetadata{
		Sender: domain.SenderInfo{
			ProfileName:   "Club Montres Paris",
			FormattedName: "Club Montres Paris",
		},
		Conversation: domain.ConversationInfo{
			HasContext: true,
			IsReply:    true,
		},
		TextAnalysis: domain.TextAnalysis{
			HasPrice:      true,
			HasPhone:      true,
			HasURLs:       true,
			LanguageHints: []string{"french"},
		},
		Timing: domain.Timing{IsBusinessHours: true},
		IntentSignals: domain.IntentSignals{
			IsSelling:  true,
			HasUrgency: true,
		},
		IsGroupMessage:  true,
		GroupIndicators: []string{"club", "montres", "paris"},
	}

	got := BuildEmbeddingText("Vends Rolex 8500€", meta)

	assert.True(t, strings.HasPrefix(got, "Vends Rolex 8500€"))
	assert.Contains(t, got, "[GROUPE: Club Montres Paris]")
	assert.Contains(t, got, "[CONTEXTE: club, montres]")
	assert.NotContains(t, got, "paris]", "indicator tags are capped at two")
	assert.Contains(t, got, "[EXPÉDITEUR: Club Montres Paris]")
	assert.Contains(t, got, "[INTENTION: VENTE, URGENT]")
	assert.Contains(t, got, "[COMMERCIAL: PRIX, CONTACT, LIEN]")
	assert.Contains(t, got, "[LANGUE: FRENCH]")
	assert.Contains(t, got, "[HEURES_OUVRABLES]")
	assert.Contains(t, got, "[RÉPONSE]")
	assert.Contains(t, got, "[THREAD]")
}

func TestBuildEmbeddingText_AnonymousGroup(t *testing.T) {
	meta := domain.ContextMetadata{IsGroupMessage: true}

	got := BuildEmbeddingText("salut", meta)

	assert.Contains(t, got, "[GROUPE: Groupe]")
}

func TestBuildEmbeddingText_NeverExceedsCap(t *testing.T) {
	long := strings.Repeat("montre ", 1300)
	meta := domain.ContextMetadata{
		Sender:         domain.SenderInfo{ProfileName: "Groupe Vente Montres"},
		IntentSignals:  domain.IntentSignals{IsSelling: true},
		IsGroupMessage: true,
	}

	got := BuildEmbeddingText(long, meta)

	assert.LessOrEqual(t, len(got), MaxEnhancedTextLength)
}

func TestBuildEmbeddingText_FallbackKeepsGroupTag(t *testing.T) {
	// Original text just under the cap: tags overflow, the fallback keeps the
	// single group tag and drops the rest.
	long := strings.Repeat("a", MaxEnhancedTextLength-40)
	meta := domain.ContextMetadata{
		Sender: domain.SenderInfo{
			ProfileName:   "Club Montres",
			FormattedName: "Club Montres",
		},
		TextAnalysis:    domain.TextAnalysis{LanguageHints: []string{"french"}},
		IntentSignals:   domain.IntentSignals{IsSelling: true, IsSeeking: true},
		IsGroupMessage:  true,
		GroupIndicators: []string{"club", "montres"},
	}

	got := BuildEmbeddingText(long, meta)

	assert.LessOrEqual(t, len(got), MaxEnhancedTextLength)
	assert.Contains(t, got, "[GROUPE: Club Montres]")
	assert.NotContains(t, got, "[EXPÉDITEUR")
	assert.NotContains(t, got, "[LANGUE")
}

func TestBuildEmbeddingText_FallbackIntentWhenPrivate(t *testing.T) {
	long := strings.Repeat("a", MaxEnhancedTextLength-25)
	meta := domain.ContextMetadata{
		Sender: domain.SenderInfo{
			ProfileName:   "Jean",
			FormattedName: "Jean",
		},
		TextAnalysis:  domain.TextAnalysis{HasPrice: true, LanguageHints: []string{"french"}},
		IntentSignals: domain.IntentSignals{IsSeeking: true, IsQuestion: true},
	}

	got := BuildEmbeddingText(long, meta)

	assert.LessOrEqual(t, len(got), MaxEnhancedTextLength)
	assert.Contains(t, got, "[INTENTION: RECHERCHE]")
	assert.NotContains(t, got, "QUESTION")
}

func TestBuildEmbeddingText_PlainPrivateMessage(t *testing.T) {
	got := BuildEmbeddingText("bonne soirée à tous", domain.ContextMetadata{})

	assert.Equal(t, "bonne soirée à tous", got)
}
