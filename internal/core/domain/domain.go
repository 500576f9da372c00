// Package domain holds the data types shared across the ingestion pipeline:
// the transport-level message, the derived conversational metadata, the
// canonical watch extraction record and the persisted conversation entry.
package domain

import "time"

// Extraction methods recorded on WatchRecord.
const (
	ExtractionMethodPattern = "pattern"
	ExtractionMethodModel   = "model"
)

// Message classifications.
const (
	MessageTypeSale       = "sale"
	MessageTypeWanted     = "wanted"
	MessageTypeQuestion   = "question"
	MessageTypePriceCheck = "price_check"
	MessageTypeTrade      = "trade"
	MessageTypeGeneral    = "general"
)

// Price types.
const (
	PriceTypeAsking     = "asking"
	PriceTypeSold       = "sold"
	PriceTypeNegotiable = "negotiable"
	PriceTypeEstimate   = "estimate"
)

// Envelope carries the transport metadata surrounding a message body:
// sender profile, reply references and the raw WhatsApp identifier.
type Envelope struct {
	SenderWAID    string
	ProfileName   string
	FormattedName string
	Verified      bool
	ReplyToID     string
	ReplyToSender string
}

// RawMessage is the transport-level unit handed to the pipeline. It is
// created by the webhook layer and never mutated afterwards.
type RawMessage struct {
	ID        string
	Sender    string
	Text      string
	Timestamp time.Time
	Envelope  Envelope
}

// SenderInfo describes the message author as reported by the transport.
type SenderInfo struct {
	WAID          string `json:"wa_id"`
	ProfileName   string `json:"profile_name"`
	FormattedName string `json:"formatted_name"`
	Verified      bool   `json:"verified"`
}

// ConversationInfo describes reply/thread references from the envelope.
type ConversationInfo struct {
	HasContext    bool   `json:"has_context"`
	IsReply       bool   `json:"is_reply"`
	ReplyTo       string `json:"reply_to"`
	ThreadContext string `json:"thread_context"`
}

// TextAnalysis holds cheap O(length) scans over the message body.
type TextAnalysis struct {
	Length        int      `json:"length"`
	WordCount     int      `json:"word_count"`
	HasURLs       bool     `json:"has_urls"`
	HasPhone      bool     `json:"has_phone"`
	HasEmail      bool     `json:"has_email"`
	HasPrice      bool     `json:"has_price"`
	LanguageHints []string `json:"language_hints"`
}

// Timing captures when the message was processed.
type Timing struct {
	ProcessedAt     time.Time `json:"processed_at"`
	HourOfDay       int       `json:"hour_of_day"`
	DayOfWeek       int       `json:"day_of_week"`
	IsBusinessHours bool      `json:"is_business_hours"`
}

// IntentSignals are independent keyword-membership booleans. A message can
// be simultaneously selling and greeting; the flags are not exclusive.
type IntentSignals struct {
	IsSelling  bool `json:"is_selling"`
	IsSeeking  bool `json:"is_seeking"`
	IsQuestion bool `json:"is_question"`
	IsGreeting bool `json:"is_greeting"`
	HasUrgency bool `json:"has_urgency"`
}

// ContextMetadata is a pure function of a RawMessage: identical input yields
// an identical value except for the explicit ProcessedAt stamp.
type ContextMetadata struct {
	Sender          SenderInfo       `json:"sender"`
	Conversation    ConversationInfo `json:"conversation"`
	TextAnalysis    TextAnalysis     `json:"text_analysis"`
	Timing          Timing           `json:"timing"`
	IntentSignals   IntentSignals    `json:"intent_signals"`
	IsGroupMessage  bool             `json:"is_group_message"`
	GroupIndicators []string         `json:"group_indicators"`
}

// TrueSignalCount returns how many intent signals fired.
func (s IntentSignals) TrueSignalCount() int {
	count := 0

	for _, v := range []bool{s.IsSelling, s.IsSeeking, s.IsQuestion, s.IsGreeting, s.HasUrgency} {
		if v {
			count++
		}
	}

	return count
}

// Any reports whether at least one intent signal fired.
func (s IntentSignals) Any() bool {
	return s.TrueSignalCount() > 0
}

// WatchRecord is the canonical, extractor-agnostic extraction result.
//
// Tri-state accessory fields use *bool: nil means "not mentioned", false
// means "mentioned as absent". The pattern extractor only ever produces
// true or nil, since a keyword match cannot attest absence.
type WatchRecord struct {
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
	Reference  string `json:"reference,omitempty"`
	Collection string `json:"collection,omitempty"`

	Price      *float64 `json:"price,omitempty"`
	Currency   string   `json:"currency"`
	PriceType  string   `json:"price_type,omitempty"`
	Negotiable *bool    `json:"negotiable,omitempty"`

	Condition        string `json:"condition,omitempty"`
	ConditionDetails string `json:"condition_details,omitempty"`
	Year             *int   `json:"year,omitempty"`
	AgeCategory      string `json:"age_category,omitempty"`

	Size         string `json:"size,omitempty"`
	MovementType string `json:"movement_type,omitempty"`
	Material     string `json:"material,omitempty"`
	DialColor    string `json:"dial_color,omitempty"`

	HasBox                *bool    `json:"has_box,omitempty"`
	HasPapers             *bool    `json:"has_papers,omitempty"`
	HasWarranty           *bool    `json:"has_warranty,omitempty"`
	AuthenticityMentioned bool     `json:"authenticity_mentioned"`
	Accessories           []string `json:"accessories,omitempty"`

	SellerType        string `json:"seller_type,omitempty"`
	Location          string `json:"location,omitempty"`
	ShippingAvailable *bool  `json:"shipping_available,omitempty"`
	ShippingDetails   string `json:"shipping_details,omitempty"`
	SellerMotivation  string `json:"seller_motivation,omitempty"`
	UrgencyLevel      int    `json:"urgency_level"`

	MessageType string   `json:"message_type"`
	Keywords    []string `json:"keywords,omitempty"`

	ConfidenceScore  float64  `json:"confidence_score"`
	ExtractionMethod string   `json:"extraction_method"`
	Reasoning        string   `json:"reasoning,omitempty"`
	MatchedSegments  []string `json:"matched_segments,omitempty"`
}

// HasUsableData reports whether downstream consumers should treat the
// record as carrying watch information. Records below the threshold are
// still stored, only their extraction fields are considered empty.
func (r WatchRecord) HasUsableData() bool {
	return r.ConfidenceScore >= 0.2
}

// WatchSummary is the compact view returned in a pipeline outcome.
type WatchSummary struct {
	Brand           string   `json:"brand,omitempty"`
	Model           string   `json:"model,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	MessageType     string   `json:"message_type"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// Summary builds the outcome view of the record.
func (r WatchRecord) Summary() WatchSummary {
	return WatchSummary{
		Brand:           r.Brand,
		Model:           r.Model,
		Price:           r.Price,
		MessageType:     r.MessageType,
		ConfidenceScore: r.ConfidenceScore,
	}
}

// ConversationEntry is the row persisted for one accepted message: message
// essentials, flattened watch fields, derived scores and two JSON blobs with
// the full extraction and the search-optimization bundle.
type ConversationEntry struct {
	ID               string
	Sender           string
	Content          string
	MessageTimestamp time.Time
	ContentHash      string
	Embedding        []float32

	GroupName   string
	MessageType string
	IntentScore float64

	WatchBrand     string
	WatchModel     string
	WatchReference string

	Price     *float64
	Currency  string
	PriceType string

	Condition    string
	Year         *int
	Size         string
	MovementType string

	SellerType            string
	Location              string
	ShippingInfo          string
	AuthenticityMentioned bool

	Keywords       []string
	SentimentScore float64
	UrgencyLevel   int

	DetailedExtraction map[string]any
	SearchMetadata     map[string]any

	ProcessedAt time.Time
}

// Outcome is the pipeline result acknowledged to the transport.
type Outcome struct {
	Success   bool          `json:"success"`
	StoredID  string        `json:"stored_id,omitempty"`
	Duplicate bool          `json:"duplicate,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Watch     *WatchSummary `json:"watch,omitempty"`
}
