package enrich

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 4, hour, 30, 0, 0, time.UTC)
	}
}

func TestEnrich_GroupSuffixWins(t *testing.T) {
	e := NewEnricher()

	// The id suffix alone marks a group, whatever the rest of the envelope says.
	meta := e.Enrich("salut tout le monde", domain.Envelope{
		SenderWAID:  "120363041234567890@g.us",
		ProfileName: "Jean",
	})

	assert.True(t, meta.IsGroupMessage)
	assert.Empty(t, meta.GroupIndicators)
}

func TestEnrich_ReplyContextImpliesGroup(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("oui toujours disponible", domain.Envelope{
		SenderWAID: "33612345678",
		ReplyToID:  "wamid.reply123",
	})

	assert.True(t, meta.IsGroupMessage)
	assert.True(t, meta.Conversation.IsReply)
	assert.True(t, meta.Conversation.HasContext)
}

func TestEnrich_ProfileNameIndicators(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("bonjour", domain.Envelope{
		SenderWAID:  "33612345678",
		ProfileName: "Club des Montres Genève",
	})

	assert.True(t, meta.IsGroupMessage)
	assert.Equal(t, []string{"club", "montres"}, meta.GroupIndicators)
}

func TestEnrich_PrivateMessage(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("bonjour", domain.Envelope{
		SenderWAID:  "33612345678",
		ProfileName: "Jean Dupont",
	})

	assert.False(t, meta.IsGroupMessage)
}

func TestEnrich_IntentSignals(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("Salut ! Je vends ma Rolex, urgent, combien elle vaut ?", domain.Envelope{})

	signals := meta.IntentSignals
	assert.True(t, signals.IsSelling)
	assert.False(t, signals.IsSeeking)
	assert.True(t, signals.IsQuestion)
	assert.True(t, signals.IsGreeting)
	assert.True(t, signals.HasUrgency)
	assert.Equal(t, 4, signals.TrueSignalCount())
}

func TestEnrich_AccentFoldedKeywords(t *testing.T) {
	e := NewEnricher()

	// "à vendre" must match the folded "a vendre" keyword.
	meta := e.Enrich("Montre à vendre, dernière chance", domain.Envelope{})

	assert.True(t, meta.IntentSignals.IsSelling)
	assert.True(t, meta.IntentSignals.HasUrgency)
}

func TestEnrich_BusinessHoursBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{hour: 8, want: false},
		{hour: 9, want: true},
		{hour: 13, want: true},
		{hour: 18, want: true},
		{hour: 19, want: false},
	}

	for _, tt := range tests {
		e := NewEnricherWithClock(fixedClock(tt.hour))

		meta := e.Enrich("bonjour", domain.Envelope{})

		assert.Equal(t, tt.want, meta.Timing.IsBusinessHours, "hour %d", tt.hour)
		assert.Equal(t, tt.hour, meta.Timing.HourOfDay)
	}
}

func TestEnrich_TextAnalysis(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("Contact: jean@example.com ou 0612345678, prix: 500€ https://photos.example.com/watch", domain.Envelope{})

	analysis := meta.TextAnalysis
	assert.True(t, analysis.HasEmail)
	assert.True(t, analysis.HasPhone)
	assert.True(t, analysis.HasPrice)
	assert.True(t, analysis.HasURLs)
}

func TestEnrich_PhoneNeedsEightDigits(t *testing.T) {
	e := NewEnricher()

	meta := e.Enrich("appelle le 0612345", domain.Envelope{})
	assert.False(t, meta.TextAnalysis.HasPhone)

	meta = e.Enrich("appelle le 06123456", domain.Envelope{})
	assert.True(t, meta.TextAnalysis.HasPhone)
}

func TestLanguageHints(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "french", text: "bonjour je vends la montre avec les papiers", want: []string{"french"}},
		{name: "english", text: "hello this is the watch with papers", want: []string{"english"}},
		{name: "tie yields nothing", text: "bonjour hello", want: nil},
		{name: "no hint words", text: "rolex submariner 8500", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := languageHints(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsQuestion(t *testing.T) {
	assert.True(t, isQuestion("elle vaut combien ?"))
	assert.True(t, isQuestion("combien pour la seiko"))
	assert.True(t, isQuestion("comment reconnaitre une fausse"))
	assert.False(t, isQuestion("je vends ma montre"))
	assert.False(t, isQuestion(""))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "vends rolex 8500€", NormalizeText("  vends \n\n rolex\t 8500€  "))
	assert.Empty(t, NormalizeText("   \n\t  "))

	long := strings.Repeat("a", 7000)
	normalized := NormalizeText(long)

	require.Len(t, normalized, 6003)
	assert.True(t, strings.HasSuffix(normalized, "..."))
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "negociable", FoldAccents("négociable"))
	assert.Equal(t, "derniere chance", FoldAccents("dernière chance"))
	assert.Equal(t, "plain text", FoldAccents("plain text"))
}
