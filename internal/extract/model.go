package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/core/domain"
	"github.com/nroussel/watchsignal/internal/core/llm"
)

const extractionTemperature = 0.1

const systemPrompt = `Tu es un expert en horlogerie et ventes de montres de luxe. Ton rôle est d'extraire de manière précise et structurée toutes les informations pertinentes sur les montres depuis des messages WhatsApp en français.

CONTEXTE:
- Messages de groupes/particuliers vendant/cherchant des montres
- Souvent des montres de luxe (Rolex, Omega, Patek Philippe, etc.)
- Informations dispersées dans le texte, parfois avec fautes d'orthographe
- Abréviations et jargon horloger fréquents

INSTRUCTIONS:
1. Extrais TOUTES les informations disponibles sur la montre
2. Détermine le type de message (vente, recherche, question, etc.)
3. Évalue le niveau de confiance de tes extractions
4. Fournis un raisonnement sur tes choix
5. Réponds UNIQUEMENT en JSON valide

EXPERTISE REQUISE:
- Reconnaissance des références exactes (ex: 116610LV, 311.30.42.30)
- Surnoms populaires (Hulk, Panda, Speedmaster, etc.)
- Codes couleurs et matériaux
- Prix de marché approximatifs
- Accessoires standards (box, papers, warranty)`

const userPromptTemplate = `Analyse ce message WhatsApp et extrais toutes les informations sur la montre:

MESSAGE À ANALYSER:
%s

%s

Réponds en JSON avec cette structure exacte:
{
    "watch_details": {
        "brand": "marque exacte ou null",
        "model": "modèle complet ou null",
        "reference": "référence technique ou null",
        "collection": "collection/ligne (ex: Submariner) ou null",
        "price": valeur_numérique_ou_null,
        "currency": "devise (EUR/USD/CHF)",
        "price_type": "asking/sold/negotiable/estimate ou null",
        "condition": "état de la montre ou null",
        "condition_details": "détails sur l'état ou null",
        "year": année_ou_null,
        "size": "taille (ex: 40mm) ou null",
        "movement_type": "automatic/quartz/manual ou null",
        "material": "matériau principal ou null",
        "dial_color": "couleur du cadran ou null"
    },
    "accessories": {
        "has_box": true/false/null,
        "has_papers": true/false/null,
        "has_warranty": true/false/null,
        "authenticity_mentioned": true/false,
        "accessories_list": ["liste", "des", "accessoires"]
    },
    "sale_info": {
        "message_type": "sale/wanted/question/price_check/trade/general",
        "seller_type": "private/dealer/boutique ou null",
        "location": "lieu mentionné ou null",
        "shipping_available": true/false/null,
        "urgency_level": 0-5,
        "negotiable": true/false/null,
        "seller_motivation": "urgent/flexible/firm ou null"
    },
    "extraction_metadata": {
        "confidence_score": 0.0-1.0,
        "extracted_segments": ["segments", "de", "texte", "utilisés"],
        "reasoning": "explication de ton raisonnement et choix"
    }
}

RÈGLES IMPORTANTES:
- Si une information n'est pas claire, utilise null
- has_box/has_papers/has_warranty: null si non mentionné, false si mentionné comme absent
- Pour les prix, extrait seulement les nombres (sans €, EUR, etc.)
- Pour message_type: "sale" si vente, "wanted" si recherche, "question" si demande d'info
- confidence_score: 0.8+ si très sûr, 0.5-0.8 si probable, <0.5 si incertain
- reasoning: explique pourquoi tu as fait ces choix`

// Wire shape of the model's JSON answer. Pointer fields keep the
// null/false distinction for the tri-state accessory flags.
type modelResponse struct {
	WatchDetails struct {
		Brand            string   `json:"brand"`
		Model            string   `json:"model"`
		Reference        string   `json:"reference"`
		Collection       string   `json:"collection"`
		Price            *float64 `json:"price"`
		Currency         string   `json:"currency"`
		PriceType        string   `json:"price_type"`
		Condition        string   `json:"condition"`
		ConditionDetails string   `json:"condition_details"`
		Year             *int     `json:"year"`
		Size             string   `json:"size"`
		MovementType     string   `json:"movement_type"`
		Material         string   `json:"material"`
		DialColor        string   `json:"dial_color"`
	} `json:"watch_details"`
	Accessories struct {
		HasBox                *bool    `json:"has_box"`
		HasPapers             *bool    `json:"has_papers"`
		HasWarranty           *bool    `json:"has_warranty"`
		AuthenticityMentioned bool     `json:"authenticity_mentioned"`
		AccessoriesList       []string `json:"accessories_list"`
	} `json:"accessories"`
	SaleInfo struct {
		MessageType       string `json:"message_type"`
		SellerType        string `json:"seller_type"`
		Location          string `json:"location"`
		ShippingAvailable *bool  `json:"shipping_available"`
		UrgencyLevel      int    `json:"urgency_level"`
		Negotiable        *bool  `json:"negotiable"`
		SellerMotivation  string `json:"seller_motivation"`
	} `json:"sale_info"`
	ExtractionMetadata struct {
		ConfidenceScore   float64  `json:"confidence_score"`
		ExtractedSegments []string `json:"extracted_segments"`
		Reasoning         string   `json:"reasoning"`
	} `json:"extraction_metadata"`
}

// ModelExtractor delegates extraction to a chat-completion model constrained
// to JSON output and caches results by content fingerprint.
type ModelExtractor struct {
	client llm.CompletionClient
	cache  *Cache
	logger *zerolog.Logger
}

// NewModelExtractor builds the extractor around a completion client and an
// injected cache. logger may be nil.
func NewModelExtractor(client llm.CompletionClient, cache *Cache, logger *zerolog.Logger) *ModelExtractor {
	if cache == nil {
		cache = NewCache()
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &ModelExtractor{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

func (e *ModelExtractor) Name() string {
	return domain.ExtractionMethodModel
}

// Extract invokes the model unless the cache already holds a record for the
// same (text, profile name, group flag) fingerprint. Empty text returns an
// empty record without touching the model.
func (e *ModelExtractor) Extract(ctx context.Context, text string, meta *domain.ContextMetadata) (domain.WatchRecord, error) {
	if strings.TrimSpace(text) == "" {
		rec := domain.WatchRecord{
			Currency:         "EUR",
			MessageType:      domain.MessageTypeGeneral,
			ExtractionMethod: domain.ExtractionMethodModel,
		}

		return rec, nil
	}

	profileName := ""
	isGroup := false

	if meta != nil {
		profileName = meta.Sender.ProfileName
		isGroup = meta.IsGroupMessage
	}

	key := CacheKey(text, profileName, isGroup)
	if rec, ok := e.cache.Get(key); ok {
		e.logger.Debug().Str("key", key).Msg("Extraction cache hit")

		return rec, nil
	}

	content, err := e.client.CompleteJSON(ctx, systemPrompt, e.buildUserPrompt(text, meta), extractionTemperature)
	if err != nil {
		return domain.WatchRecord{}, fmt.Errorf("completion call: %w", err)
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return domain.WatchRecord{}, fmt.Errorf("parse model response: %w", err)
	}

	rec := e.toRecord(resp)
	e.cache.Put(key, rec)

	e.logger.Info().
		Str("brand", rec.Brand).
		Str("model", rec.Model).
		Float64("confidence", rec.ConfidenceScore).
		Msg("Model extraction done")

	return rec, nil
}

// ExtractBatch applies Extract element-wise, preserving order. Per-message
// faults degrade to the fallback record so a single bad message cannot fail
// the batch.
func (e *ModelExtractor) ExtractBatch(ctx context.Context, texts []string, metas []*domain.ContextMetadata) []domain.WatchRecord {
	records := make([]domain.WatchRecord, len(texts))

	for i, text := range texts {
		var meta *domain.ContextMetadata
		if i < len(metas) {
			meta = metas[i]
		}

		rec, err := e.Extract(ctx, text, meta)
		if err != nil {
			e.logger.Error().Err(err).Int("index", i).Msg("Batch extraction failed")

			rec = Fallback(domain.ExtractionMethodModel, err)
		}

		records[i] = rec
	}

	return records
}

func (e *ModelExtractor) buildUserPrompt(text string, meta *domain.ContextMetadata) string {
	contextInfo := ""

	if meta != nil {
		sender := meta.Sender.ProfileName
		if sender == "" {
			sender = "Inconnu"
		}

		group := "Non"
		if meta.IsGroupMessage {
			group = "Oui"
		}

		intents, _ := json.Marshal(meta.IntentSignals) //nolint:errchkjson // plain bool struct, cannot fail

		contextInfo = fmt.Sprintf("CONTEXTE WHATSAPP:\n- Expéditeur: %s\n- Groupe: %s\n- Intentions détectées: %s", sender, group, intents)
	}

	return fmt.Sprintf(userPromptTemplate, text, contextInfo)
}

func (e *ModelExtractor) toRecord(resp modelResponse) domain.WatchRecord {
	currency := resp.WatchDetails.Currency
	if currency == "" {
		currency = "EUR"
	}

	messageType := resp.SaleInfo.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeGeneral
	}

	return domain.WatchRecord{
		Brand:      resp.WatchDetails.Brand,
		Model:      resp.WatchDetails.Model,
		Reference:  resp.WatchDetails.Reference,
		Collection: resp.WatchDetails.Collection,

		Price:      resp.WatchDetails.Price,
		Currency:   currency,
		PriceType:  resp.WatchDetails.PriceType,
		Negotiable: resp.SaleInfo.Negotiable,

		Condition:        resp.WatchDetails.Condition,
		ConditionDetails: resp.WatchDetails.ConditionDetails,
		Year:             resp.WatchDetails.Year,

		Size:         resp.WatchDetails.Size,
		MovementType: resp.WatchDetails.MovementType,
		Material:     resp.WatchDetails.Material,
		DialColor:    resp.WatchDetails.DialColor,

		HasBox:                resp.Accessories.HasBox,
		HasPapers:             resp.Accessories.HasPapers,
		HasWarranty:           resp.Accessories.HasWarranty,
		AuthenticityMentioned: resp.Accessories.AuthenticityMentioned,
		Accessories:           resp.Accessories.AccessoriesList,

		SellerType:        resp.SaleInfo.SellerType,
		Location:          resp.SaleInfo.Location,
		ShippingAvailable: resp.SaleInfo.ShippingAvailable,
		SellerMotivation:  resp.SaleInfo.SellerMotivation,
		UrgencyLevel:      clampUrgency(resp.SaleInfo.UrgencyLevel),

		MessageType: messageType,

		ConfidenceScore:  clampConfidence(resp.ExtractionMetadata.ConfidenceScore),
		ExtractionMethod: domain.ExtractionMethodModel,
		Reasoning:        resp.ExtractionMetadata.Reasoning,
		MatchedSegments:  resp.ExtractionMetadata.ExtractedSegments,
	}
}

func clampUrgency(level int) int {
	if level < 0 {
		return 0
	}

	if level > 5 {
		return 5
	}

	return level
}

func clampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}
