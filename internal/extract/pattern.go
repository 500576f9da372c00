package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

// Ordered so that co-occurring brands resolve deterministically: first entry
// found in the message wins.
var watchBrands = []string{
	"rolex", "omega", "seiko", "casio", "citizen", "tissot",
	"tag heuer", "breitling", "iwc", "cartier", "patek philippe",
	"audemars piguet", "vacheron constantin", "jaeger-lecoultre",
	"panerai", "hublot", "zenith", "tudor", "longines", "hamilton",
	"oris", "frederique constant", "mont blanc", "baume mercier",
	"chopard", "maurice lacroix", "mido", "swatch", "fossil",
	"diesel", "armani", "michael kors", "daniel wellington",
	"mvmt", "garmin", "suunto", "apple watch", "samsung gear",
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,6})\s*€`),
	regexp.MustCompile(`(?i)€\s*(\d{1,6})`),
	regexp.MustCompile(`(?i)(\d{1,6})\s*eur`),
	regexp.MustCompile(`(?i)(\d{1,6})\s*dollars?`),
	regexp.MustCompile(`(?i)\$\s*(\d{1,6})`),
	regexp.MustCompile(`(?i)(\d{1,6})\s*chf`),
	regexp.MustCompile(`(?i)(\d{1,6})\s*£`),
	regexp.MustCompile(`(?i)£\s*(\d{1,6})`),
	regexp.MustCompile(`(?i)prix[:\s]*(\d{1,6})`),
	regexp.MustCompile(`(?i)(\d{1,6})[,.]\d{2}\s*€`),
}

type conditionBucket struct {
	name     string
	keywords []string
}

var conditionBuckets = []conditionBucket{
	{"neuf", []string{"neuf", "new", "jamais porté", "unworn", "bnib", "brand new"}},
	{"excellent", []string{"excellent", "très bon état", "excellent condition", "mint"}},
	{"bon", []string{"bon état", "good condition", "bel état", "bien conservé"}},
	{"occasion", []string{"occasion", "used", "porté", "worn", "pre-owned"}},
	{"vintage", []string{"vintage", "ancien", "collection", "rare"}},
	{"box_papers", []string{"box", "papers", "boite", "papiers", "certificat", "garantie"}},
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{2})\s*mm`),
	regexp.MustCompile(`(?i)diamètre[:\s]*(\d{2})`),
	regexp.MustCompile(`(?i)taille[:\s]*(\d{2})`),
}

type movementBucket struct {
	name     string
	keywords []string
}

var movementBuckets = []movementBucket{
	{"automatic", []string{"automatique", "automatic", "auto", "self-winding"}},
	{"quartz", []string{"quartz", "électronique", "electronic"}},
	{"manual", []string{"manuel", "manual", "mécanique", "mechanical", "hand-wind"}},
}

var yearRe = regexp.MustCompile(`\b(19\d{2}|20[0-3]\d)\b`)

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:à|in|from|de)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`(?i)livraison[:\s]*([A-Z][a-z]+)`),
	regexp.MustCompile(`(?i)shipping[:\s]*([A-Z][a-z]+)`),
	regexp.MustCompile(`(?i)dispo[:\s]*([A-Z][a-z]+)`),
}

var (
	saleKeywords     = []string{"vend", "vends", "à vendre", "for sale", "sell", "prix"}
	wantedKeywords   = []string{"cherche", "recherche", "wanted", "wtb", "looking for"}
	tradeKeywords    = []string{"échange", "trade", "swap", "troc"}
	questionKeywords = []string{"?", "question", "avis", "opinion", "help"}
)

var watchKeywords = []string{
	"cadran", "bracelet", "boitier", "lunette", "couronne",
	"dial", "strap", "case", "bezel", "crown", "crystal",
	"chrono", "gmt", "diver", "dress", "sport", "limited",
	"édition limitée", "rare", "collection",
}

var authenticityKeywords = []string{
	"certificat", "authentique", "authentic", "genuine",
	"papers", "papiers", "garantie", "warranty", "box",
}

// Tokens excluded from the model guess following the brand mention.
var modelSkipTokens = []string{"prix", "euro", "€", "vend", "cherche"}

// Confidence weights per present field, capped at 1.0.
const (
	weightBrand     = 0.3
	weightModel     = 0.2
	weightPrice     = 0.2
	weightCondition = 0.1
	weightSize      = 0.1
	weightYear      = 0.1
)

var titleCaser = cases.Title(language.Und)

// PatternExtractor is the deterministic, offline extraction strategy: fixed
// vocabulary and regex tables, no I/O, no randomness.
type PatternExtractor struct {
	logger *zerolog.Logger
}

// NewPatternExtractor builds the extractor. logger may be nil.
func NewPatternExtractor(logger *zerolog.Logger) *PatternExtractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &PatternExtractor{logger: logger}
}

func (e *PatternExtractor) Name() string {
	return domain.ExtractionMethodPattern
}

// Extract never returns an error: absent fields stay at their zero values
// and the confidence score reflects evidence density alone.
func (e *PatternExtractor) Extract(_ context.Context, text string, _ *domain.ContextMetadata) (domain.WatchRecord, error) {
	lower := strings.ToLower(text)

	rec := domain.WatchRecord{
		Currency:         "EUR",
		MessageType:      domain.MessageTypeGeneral,
		ExtractionMethod: domain.ExtractionMethodPattern,
	}

	if strings.TrimSpace(text) == "" {
		return rec, nil
	}

	rec.Brand = extractBrand(lower)
	rec.Model = extractModel(text, rec.Brand)

	price, currency, priceType := extractPrice(text, lower)
	rec.Price = price
	rec.Currency = currency

	if price != nil {
		rec.PriceType = priceType
	}

	rec.Condition = extractCondition(lower)
	rec.Size = extractSize(text)
	rec.MovementType = extractMovement(lower)
	rec.Year = extractYear(text)
	rec.Location = extractLocation(text)
	rec.MessageType = classifyMessageType(lower)
	rec.Keywords = extractKeywords(lower)
	rec.AuthenticityMentioned = containsAny(lower, authenticityKeywords)
	rec.ConfidenceScore = confidenceScore(rec)

	e.logger.Debug().
		Str("brand", rec.Brand).
		Str("message_type", rec.MessageType).
		Float64("confidence", rec.ConfidenceScore).
		Msg("Pattern extraction done")

	return rec, nil
}

func extractBrand(lower string) string {
	for _, brand := range watchBrands {
		if strings.Contains(lower, brand) {
			return titleCaser.String(brand)
		}
	}

	return ""
}

// extractModel guesses the model as the 1-3 tokens following the brand
// mention, dropping sale boilerplate.
func extractModel(text, brand string) string {
	if brand == "" {
		return ""
	}

	lower := strings.ToLower(text)

	pos := strings.Index(lower, strings.ToLower(brand))
	if pos == -1 {
		return ""
	}

	afterBrand := strings.TrimSpace(text[pos+len(brand):])

	words := strings.Fields(afterBrand)
	if len(words) > 3 {
		words = words[:3]
	}

	var modelWords []string

	for _, word := range words {
		wordLower := strings.ToLower(word)
		if !containsAny(wordLower, modelSkipTokens) {
			modelWords = append(modelWords, word)
		}
	}

	return strings.Join(modelWords, " ")
}

func extractPrice(text, lower string) (*float64, string, string) {
	for _, pattern := range pricePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
		if err != nil {
			continue
		}

		matched := strings.ToLower(match[0])

		currency := "EUR"

		switch {
		case strings.Contains(matched, "€") || strings.Contains(matched, "eur"):
			currency = "EUR"
		case strings.Contains(matched, "$") || strings.Contains(matched, "dollar"):
			currency = "USD"
		case strings.Contains(matched, "£"):
			currency = "GBP"
		case strings.Contains(matched, "chf"):
			currency = "CHF"
		}

		priceType := domain.PriceTypeAsking

		switch {
		case strings.Contains(lower, "vendu") || strings.Contains(lower, "sold"):
			priceType = domain.PriceTypeSold
		case strings.Contains(lower, "négociable") || strings.Contains(lower, "obo"):
			priceType = domain.PriceTypeNegotiable
		}

		return &amount, currency, priceType
	}

	return nil, "EUR", domain.PriceTypeAsking
}

func extractCondition(lower string) string {
	for _, bucket := range conditionBuckets {
		if containsAny(lower, bucket.keywords) {
			return bucket.name
		}
	}

	return ""
}

func extractSize(text string) string {
	for _, pattern := range sizePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return match[1] + "mm"
		}
	}

	return ""
}

func extractMovement(lower string) string {
	for _, bucket := range movementBuckets {
		if containsAny(lower, bucket.keywords) {
			return bucket.name
		}
	}

	return ""
}

func extractYear(text string) *int {
	match := yearRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	year, err := strconv.Atoi(match[1])
	if err != nil || year < 1900 || year > 2030 {
		return nil
	}

	return &year
}

func extractLocation(text string) string {
	for _, pattern := range locationPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}

	return ""
}

func classifyMessageType(lower string) string {
	switch {
	case containsAny(lower, saleKeywords):
		return domain.MessageTypeSale
	case containsAny(lower, wantedKeywords):
		return domain.MessageTypeWanted
	case containsAny(lower, tradeKeywords):
		return domain.MessageTypeTrade
	case containsAny(lower, questionKeywords):
		return domain.MessageTypeQuestion
	default:
		return domain.MessageTypeGeneral
	}
}

func extractKeywords(lower string) []string {
	var keywords []string

	for _, kw := range watchKeywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}

	return keywords
}

func confidenceScore(rec domain.WatchRecord) float64 {
	score := 0.0

	if rec.Brand != "" {
		score += weightBrand
	}

	if rec.Model != "" {
		score += weightModel
	}

	if rec.Price != nil {
		score += weightPrice
	}

	if rec.Condition != "" {
		score += weightCondition
	}

	if rec.Size != "" {
		score += weightSize
	}

	if rec.Year != nil {
		score += weightYear
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}
