// Package merge reconciles an extractor's watch record with the derived
// conversational metadata into the single entry persisted per message,
// computing the derived scores (sentiment, urgency, intent) and the
// search-optimization bundle along the way.
package merge

import (
	"strings"

	"github.com/nroussel/watchsignal/internal/core/domain"
	"github.com/nroussel/watchsignal/internal/enrich"
)

// fieldAliases maps extractor-specific field names onto the canonical set.
// Unknown names pass through unchanged so the merge is lossless.
var fieldAliases = map[string]string{
	"case_material":           "material",
	"box_mentioned":           "has_box",
	"papers_mentioned":        "has_papers",
	"warranty_mentioned":      "has_warranty",
	"price_mentioned":         "price",
	"condition_mentioned":     "condition",
	"year_mentioned":          "year",
	"size_mentioned":          "size",
	"location_mentioned":      "location",
	"llm_reasoning":           "reasoning",
	"extracted_text_segments": "matched_segments",
	"accessories_list":        "accessories",
}

// NormalizeFields renames known extractor-shape aliases to canonical names.
func NormalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))

	for name, value := range fields {
		if canonical, ok := fieldAliases[name]; ok {
			name = canonical
		}

		out[name] = value
	}

	return out
}

var (
	positiveWords = []string{
		"super", "excellent", "parfait", "magnifique", "sublime", "top",
		"great", "amazing", "perfect", "beautiful", "mint",
		"bueno", "excelente", "perfecto",
	}
	negativeWords = []string{
		"mauvais", "probleme", "casse", "raye", "abime", "defaut",
		"bad", "broken", "scratched", "damaged", "issue",
		"malo", "roto", "problema",
	}
	neutralWords = []string{
		"correct", "normal", "standard", "moyen", "average", "regular",
	}
)

var highUrgencyWords = []string{
	"urgent", "vite", "rapidement", "asap", "derniere chance", "today only",
}

var popularBrands = []string{
	"rolex", "omega", "patek philippe", "audemars piguet",
	"cartier", "tudor", "seiko", "tag heuer",
}

const (
	priceEntryLevelMax = 500
	priceMidRangeMax   = 2000
	priceLuxuryMax     = 10000

	maxUrgencyLevel  = 5
	shortMessageWord = 10

	intentSignalWeight = 0.2
)

// Merger builds persisted entries. It is stateless; a single instance is
// safe for concurrent use.
type Merger struct{}

func New() *Merger {
	return &Merger{}
}

// Merge assembles the persisted entry from the normalized text, the watch
// record and the context metadata. The embedding and the content hash are
// filled in by the pipeline afterwards. Merge never fails: missing data
// degrades to defaults.
func (m *Merger) Merge(text string, rec domain.WatchRecord, meta domain.ContextMetadata, raw domain.RawMessage) domain.ConversationEntry {
	folded := strings.ToLower(enrich.FoldAccents(text))

	sentiment := sentimentScore(folded)
	urgency := urgencyLevel(folded, text)

	entry := domain.ConversationEntry{
		Sender:           raw.Sender,
		Content:          text,
		MessageTimestamp: raw.Timestamp,

		GroupName:   groupName(meta),
		MessageType: resolveMessageType(rec, meta),
		IntentScore: intentScore(rec, meta),

		WatchBrand:     rec.Brand,
		WatchModel:     rec.Model,
		WatchReference: rec.Reference,

		Price:     rec.Price,
		Currency:  rec.Currency,
		PriceType: rec.PriceType,

		Condition:    rec.Condition,
		Year:         rec.Year,
		Size:         rec.Size,
		MovementType: rec.MovementType,

		SellerType:            rec.SellerType,
		Location:              rec.Location,
		ShippingInfo:          shippingInfo(rec),
		AuthenticityMentioned: rec.AuthenticityMentioned,

		Keywords:       taggedKeywords(rec, meta, folded),
		SentimentScore: sentiment,
		UrgencyLevel:   urgency,

		DetailedExtraction: detailedExtraction(rec),
		SearchMetadata:     searchMetadata(text, rec, meta),

		ProcessedAt: meta.Timing.ProcessedAt,
	}

	return entry
}

// resolveMessageType prefers the extractor's non-default classification,
// then intent signals in priority order, then general.
func resolveMessageType(rec domain.WatchRecord, meta domain.ContextMetadata) string {
	if rec.MessageType != "" && rec.MessageType != domain.MessageTypeGeneral {
		return rec.MessageType
	}

	switch {
	case meta.IntentSignals.IsSelling:
		return domain.MessageTypeSale
	case meta.IntentSignals.IsSeeking:
		return domain.MessageTypeWanted
	case meta.IntentSignals.IsQuestion:
		return domain.MessageTypeQuestion
	default:
		return domain.MessageTypeGeneral
	}
}

func intentScore(rec domain.WatchRecord, meta domain.ContextMetadata) float64 {
	if rec.ConfidenceScore > 0 {
		return rec.ConfidenceScore
	}

	score := float64(meta.IntentSignals.TrueSignalCount()) * intentSignalWeight
	if score > 1.0 {
		score = 1.0
	}

	return score
}

func groupName(meta domain.ContextMetadata) string {
	if !meta.IsGroupMessage {
		return ""
	}

	if meta.Sender.ProfileName != "" {
		return meta.Sender.ProfileName
	}

	indicators := meta.GroupIndicators
	if len(indicators) == 0 {
		return "Groupe"
	}

	if len(indicators) > 2 {
		indicators = indicators[:2]
	}

	return strings.Join(indicators, " ")
}

func shippingInfo(rec domain.WatchRecord) string {
	if rec.ShippingDetails != "" {
		return rec.ShippingDetails
	}

	if rec.ShippingAvailable != nil {
		if *rec.ShippingAvailable {
			return "available"
		}

		return "unavailable"
	}

	return ""
}

// sentimentScore is (positive - negative) / (positive + negative + neutral),
// zero when no sentiment keyword fires at all.
func sentimentScore(folded string) float64 {
	positive := countHits(folded, positiveWords)
	negative := countHits(folded, negativeWords)
	neutral := countHits(folded, neutralWords)

	total := positive + negative + neutral
	if total == 0 {
		return 0.0
	}

	return float64(positive-negative) / float64(total)
}

func urgencyLevel(folded, original string) int {
	level := 0

	if containsAny(folded, highUrgencyWords) {
		level += 3
	}

	exclamations := strings.Count(original, "!")

	switch {
	case exclamations >= 2:
		level += 2
	case exclamations == 1:
		level++
	}

	if len(strings.Fields(original)) < shortMessageWord {
		level++
	}

	if level > maxUrgencyLevel {
		level = maxUrgencyLevel
	}

	return level
}

func priceRangeTag(price float64) string {
	switch {
	case price < priceEntryLevelMax:
		return "price_range:entry_level"
	case price < priceMidRangeMax:
		return "price_range:mid_range"
	case price < priceLuxuryMax:
		return "price_range:luxury"
	default:
		return "price_range:high_end"
	}
}

func taggedKeywords(rec domain.WatchRecord, meta domain.ContextMetadata, folded string) []string {
	var tags []string

	tags = append(tags, rec.Keywords...)

	if rec.Brand != "" {
		tags = append(tags, "brand:"+strings.ToLower(rec.Brand))
	}

	if rec.Price != nil {
		tags = append(tags, priceRangeTag(*rec.Price))
	}

	signals := meta.IntentSignals
	if signals.IsSelling {
		tags = append(tags, "intent:selling")
	}

	if signals.IsSeeking {
		tags = append(tags, "intent:seeking")
	}

	if signals.IsQuestion {
		tags = append(tags, "intent:question")
	}

	if signals.IsGreeting {
		tags = append(tags, "intent:greeting")
	}

	if len(meta.TextAnalysis.LanguageHints) > 0 {
		tags = append(tags, "language:"+meta.TextAnalysis.LanguageHints[0])
	}

	if meta.IsGroupMessage {
		tags = append(tags, "source:group")
	} else {
		tags = append(tags, "source:private")
	}

	for _, brand := range popularBrands {
		if strings.Contains(folded, brand) {
			tags = append(tags, "brand_mentioned:"+brand)
		}
	}

	if signals.HasUrgency {
		tags = append(tags, "urgency:high")
	}

	if rec.PriceType == domain.PriceTypeNegotiable || (rec.Negotiable != nil && *rec.Negotiable) {
		tags = append(tags, "price:negotiable")
	}

	return dedupe(tags)
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}

	return out
}

func countHits(text string, keywords []string) int {
	hits := 0

	for _, kw := range keywords {
		hits += strings.Count(text, kw)
	}

	return hits
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}

// detailedExtraction flattens the full record into the JSON blob persisted
// alongside the scalar columns.
func detailedExtraction(rec domain.WatchRecord) map[string]any {
	fields := map[string]any{
		"brand":                  rec.Brand,
		"model":                  rec.Model,
		"reference":              rec.Reference,
		"collection":             rec.Collection,
		"price":                  rec.Price,
		"currency":               rec.Currency,
		"price_type":             rec.PriceType,
		"negotiable":             rec.Negotiable,
		"condition":              rec.Condition,
		"condition_details":      rec.ConditionDetails,
		"year":                   rec.Year,
		"age_category":           rec.AgeCategory,
		"size":                   rec.Size,
		"movement_type":          rec.MovementType,
		"material":               rec.Material,
		"dial_color":             rec.DialColor,
		"has_box":                rec.HasBox,
		"has_papers":             rec.HasPapers,
		"has_warranty":           rec.HasWarranty,
		"authenticity_mentioned": rec.AuthenticityMentioned,
		"accessories":            rec.Accessories,
		"seller_type":            rec.SellerType,
		"location":               rec.Location,
		"shipping_available":     rec.ShippingAvailable,
		"shipping_details":       rec.ShippingDetails,
		"seller_motivation":      rec.SellerMotivation,
		"urgency_level":          rec.UrgencyLevel,
		"message_type":           rec.MessageType,
		"confidence_score":       rec.ConfidenceScore,
		"extraction_method":      rec.ExtractionMethod,
		"reasoning":              rec.Reasoning,
		"matched_segments":       rec.MatchedSegments,
	}

	return NormalizeFields(fields)
}
