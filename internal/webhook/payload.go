// Package webhook receives WhatsApp Business webhook events: endpoint
// verification, signature checking, and mapping of the nested payload into
// the pipeline's message type.
package webhook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

const businessAccountObject = "whatsapp_business_account"

// Payload is the top-level webhook body sent by the WhatsApp Business API.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile Profile `json:"profile"`
	WAID    string  `json:"wa_id"`
}

type Profile struct {
	Name          string `json:"name"`
	FormattedName string `json:"formatted_name"`
}

type Message struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Context   *MessageContext `json:"context,omitempty"`
	Text      *TextBody       `json:"text,omitempty"`
	Image     *MediaBody      `json:"image,omitempty"`
	Audio     *MediaBody      `json:"audio,omitempty"`
	Video     *MediaBody      `json:"video,omitempty"`
	Document  *MediaBody      `json:"document,omitempty"`
	Location  *LocationBody   `json:"location,omitempty"`
}

type MessageContext struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

type TextBody struct {
	Body string `json:"body"`
}

type MediaBody struct {
	ID      string `json:"id"`
	Caption string `json:"caption,omitempty"`
}

type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// ExtractMessages flattens the nested payload into raw messages. Media
// messages keep a bracketed placeholder body plus any caption so they still
// carry searchable text.
func ExtractMessages(payload Payload) []domain.RawMessage {
	if payload.Object != businessAccountObject {
		return nil
	}

	var messages []domain.RawMessage

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			contacts := indexContacts(change.Value.Contacts)

			for _, msg := range change.Value.Messages {
				raw, ok := convertMessage(msg, contacts)
				if ok {
					messages = append(messages, raw)
				}
			}
		}
	}

	return messages
}

func indexContacts(contacts []Contact) map[string]Contact {
	indexed := make(map[string]Contact, len(contacts))

	for _, c := range contacts {
		indexed[c.WAID] = c
	}

	return indexed
}

func convertMessage(msg Message, contacts map[string]Contact) (domain.RawMessage, bool) {
	text, ok := messageText(msg)
	if !ok {
		return domain.RawMessage{}, false
	}

	env := domain.Envelope{SenderWAID: msg.From}

	if contact, found := contacts[msg.From]; found {
		env.ProfileName = contact.Profile.Name
		env.FormattedName = contact.Profile.FormattedName
	}

	if msg.Context != nil {
		env.ReplyToID = msg.Context.ID
		env.ReplyToSender = msg.Context.From
	}

	return domain.RawMessage{
		ID:        msg.ID,
		Sender:    normalizePhone(msg.From),
		Text:      text,
		Timestamp: parseTimestamp(msg.Timestamp),
		Envelope:  env,
	}, true
}

func messageText(msg Message) (string, bool) {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return "", false
		}

		return msg.Text.Body, true
	case "image", "audio", "video", "document":
		text := "[" + strings.ToUpper(msg.Type) + "]"

		if caption := mediaCaption(msg); caption != "" {
			text += " " + caption
		}

		return text, true
	case "voice":
		return "[MESSAGE VOCAL]", true
	case "location":
		if msg.Location == nil {
			return "", false
		}

		text := fmt.Sprintf("[LOCALISATION] Lat: %g, Lng: %g", msg.Location.Latitude, msg.Location.Longitude)
		if msg.Location.Name != "" {
			text += " - " + msg.Location.Name
		}

		return text, true
	case "":
		return "", false
	default:
		return "[" + strings.ToUpper(msg.Type) + "]", true
	}
}

func mediaCaption(msg Message) string {
	for _, media := range []*MediaBody{msg.Image, msg.Audio, msg.Video, msg.Document} {
		if media != nil && media.Caption != "" {
			return media.Caption
		}
	}

	return ""
}

// normalizePhone strips non-digits and prefixes "+". Group ids carrying the
// "@g.us" suffix are kept as-is so the group heuristic still sees them.
func normalizePhone(phone string) string {
	if phone == "" || strings.Contains(phone, "@") {
		return phone
	}

	if strings.HasPrefix(phone, "+") {
		return phone
	}

	var digits strings.Builder

	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	return "+" + digits.String()
}

func parseTimestamp(ts string) time.Time {
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}

	return time.Unix(unix, 0).UTC()
}
