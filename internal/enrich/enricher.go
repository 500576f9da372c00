package enrich

import (
	"regexp"
	"strings"
	"time"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

const groupSuffix = "@g.us"

// Group heuristics are best-effort: WhatsApp does not flag group traffic
// explicitly, so presence is inferred from the sender id suffix, reply
// context, or profile-name wording, in that order.
var groupNameIndicators = []string{
	"groupe", "group", "club", "team", "vente", "market",
	"montres", "watches", "collectionneurs", "passion",
}

var (
	sellingKeywords = []string{"vend", "vends", "a vendre", "for sale", "sell", "je vends", "av "}
	seekingKeywords = []string{"cherche", "recherche", "looking for", "wanted", "wtb", "besoin de"}
	greetingWords   = []string{"salut", "bonjour", "bonsoir", "coucou", "hello", "hi ", "hey"}
	urgencyKeywords = []string{"urgent", "vite", "rapidement", "asap", "quickly", "derniere chance", "aujourd'hui seulement"}

	interrogatives = []string{
		"qui", "que", "quoi", "comment", "pourquoi", "quand", "ou", "combien", "est-ce",
		"what", "how", "why", "when", "where", "who", "which",
	}

	frenchHintWords = []string{
		"le", "la", "les", "un", "une", "des", "et", "est", "avec",
		"pour", "dans", "sur", "je", "vous", "bonjour", "merci",
	}
	englishHintWords = []string{
		"the", "an", "and", "is", "with", "for", "in", "on",
		"you", "hello", "thanks", "this", "that", "have",
	}
)

var (
	urlRe   = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	priceRe = regexp.MustCompile(`(?i)\d[\d\s.,]*\s*(€|\$|£|eur|chf|usd)|(?:prix|price|budget)\s*:?\s*\d`)
)

const (
	minPhoneDigits     = 8
	businessHoursStart = 9
	businessHoursEnd   = 18
)

// Enricher derives ContextMetadata from a message and its envelope. The
// clock is injected so the timing block is testable.
type Enricher struct {
	now func() time.Time
}

// NewEnricher returns an enricher using the wall clock.
func NewEnricher() *Enricher {
	return &Enricher{now: time.Now}
}

// NewEnricherWithClock returns an enricher with a fixed clock source.
func NewEnricherWithClock(now func() time.Time) *Enricher {
	return &Enricher{now: now}
}

// Enrich computes the full metadata block. It is a total function: missing
// envelope fields degrade to defaults, never to an error.
func (e *Enricher) Enrich(text string, env domain.Envelope) domain.ContextMetadata {
	folded := strings.ToLower(FoldAccents(text))
	indicators := groupIndicators(env.ProfileName)

	meta := domain.ContextMetadata{
		Sender: domain.SenderInfo{
			WAID:          env.SenderWAID,
			ProfileName:   env.ProfileName,
			FormattedName: env.FormattedName,
			Verified:      env.Verified,
		},
		Conversation: domain.ConversationInfo{
			HasContext:    env.ReplyToID != "" || env.ReplyToSender != "",
			IsReply:       env.ReplyToID != "",
			ReplyTo:       env.ReplyToSender,
			ThreadContext: env.ReplyToID,
		},
		TextAnalysis:    e.analyzeText(text, folded),
		Timing:          e.timing(),
		IntentSignals:   intentSignals(folded),
		GroupIndicators: indicators,
	}

	meta.IsGroupMessage = isGroupMessage(env, indicators)

	return meta
}

// isGroupMessage applies the ordered heuristic: id suffix, then reply
// context, then profile-name indicators. First match wins.
func isGroupMessage(env domain.Envelope, indicators []string) bool {
	if strings.Contains(env.SenderWAID, groupSuffix) {
		return true
	}

	if env.ReplyToID != "" || env.ReplyToSender != "" {
		return true
	}

	return len(indicators) > 0
}

func groupIndicators(profileName string) []string {
	if profileName == "" {
		return nil
	}

	folded := strings.ToLower(FoldAccents(profileName))

	var found []string

	for _, indicator := range groupNameIndicators {
		if strings.Contains(folded, indicator) {
			found = append(found, indicator)
		}
	}

	return found
}

func (e *Enricher) analyzeText(original, folded string) domain.TextAnalysis {
	digits := 0

	for _, r := range original {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	return domain.TextAnalysis{
		Length:        len([]rune(original)),
		WordCount:     len(strings.Fields(original)),
		HasURLs:       urlRe.MatchString(original),
		HasPhone:      digits >= minPhoneDigits,
		HasEmail:      emailRe.MatchString(original),
		HasPrice:      priceRe.MatchString(original),
		LanguageHints: languageHints(folded),
	}
}

// languageHints counts word-boundary hits against two small word lists and
// emits the strict winner, or nothing on a tie.
func languageHints(folded string) []string {
	words := strings.Fields(folded)
	wordSet := make(map[string]int, len(words))

	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:'\"()")]++
	}

	french, english := 0, 0

	for _, w := range frenchHintWords {
		french += wordSet[w]
	}

	for _, w := range englishHintWords {
		english += wordSet[w]
	}

	switch {
	case french > english:
		return []string{"french"}
	case english > french:
		return []string{"english"}
	default:
		return nil
	}
}

func (e *Enricher) timing() domain.Timing {
	now := e.now()
	hour := now.Hour()

	return domain.Timing{
		ProcessedAt:     now,
		HourOfDay:       hour,
		DayOfWeek:       int(now.Weekday()),
		IsBusinessHours: hour >= businessHoursStart && hour <= businessHoursEnd,
	}
}

func intentSignals(folded string) domain.IntentSignals {
	return domain.IntentSignals{
		IsSelling:  containsAny(folded, sellingKeywords),
		IsSeeking:  containsAny(folded, seekingKeywords),
		IsQuestion: isQuestion(folded),
		IsGreeting: containsAny(folded, greetingWords),
		HasUrgency: containsAny(folded, urgencyKeywords),
	}
}

func isQuestion(folded string) bool {
	if strings.Contains(folded, "?") {
		return true
	}

	fields := strings.Fields(folded)
	if len(fields) == 0 {
		return false
	}

	first := strings.Trim(fields[0], ".,!;:'\"")
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}

	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}
