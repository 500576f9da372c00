package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMessages_MediaPlaceholders(t *testing.T) {
	payload := Payload{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: Value{
					Messages: []Message{
						{ID: "m1", From: "33612345678", Type: "image", Image: &MediaBody{ID: "img", Caption: "Voici la montre"}},
						{ID: "m2", From: "33612345678", Type: "voice"},
						{ID: "m3", From: "33612345678", Type: "location", Location: &LocationBody{Latitude: 48.85, Longitude: 2.35, Name: "Paris"}},
						{ID: "m4", From: "33612345678", Type: "sticker"},
						{ID: "m5", From: "33612345678", Type: "text"},
					},
				},
			}},
		}},
	}

	messages := ExtractMessages(payload)

	require.Len(t, messages, 4, "text message without a body is dropped")
	assert.Equal(t, "[IMAGE] Voici la montre", messages[0].Text)
	assert.Equal(t, "[MESSAGE VOCAL]", messages[1].Text)
	assert.Equal(t, "[LOCALISATION] Lat: 48.85, Lng: 2.35 - Paris", messages[2].Text)
	assert.Equal(t, "[STICKER]", messages[3].Text)
}

func TestExtractMessages_WrongObject(t *testing.T) {
	payload := Payload{
		Object: "instagram",
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: Value{Messages: []Message{{ID: "m1", From: "336", Type: "text", Text: &TextBody{Body: "hello"}}}},
			}},
		}},
	}

	assert.Empty(t, ExtractMessages(payload))
}

func TestExtractMessages_IgnoresStatusChanges(t *testing.T) {
	payload := Payload{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			Changes: []Change{{
				Field: "statuses",
				Value: Value{Statuses: []Status{{ID: "s1", Status: "delivered"}}},
			}},
		}},
	}

	assert.Empty(t, ExtractMessages(payload))
}

func TestExtractMessages_EnvelopeFromContact(t *testing.T) {
	var payload Payload

	require.NoError(t, json.Unmarshal([]byte(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {
			"contacts": [{"profile": {"name": "Jean", "formatted_name": "Jean D."}, "wa_id": "33612345678"}],
			"messages": [{
				"id": "wamid.1",
				"from": "33612345678",
				"timestamp": "1741078800",
				"type": "text",
				"context": {"from": "33698765432", "id": "wamid.prev"},
				"text": {"body": "oui toujours dispo"}
			}]
		}}]}]
	}`), &payload))

	messages := ExtractMessages(payload)

	require.Len(t, messages, 1)

	raw := messages[0]
	assert.Equal(t, "Jean", raw.Envelope.ProfileName)
	assert.Equal(t, "Jean D.", raw.Envelope.FormattedName)
	assert.Equal(t, "wamid.prev", raw.Envelope.ReplyToID)
	assert.Equal(t, "33698765432", raw.Envelope.ReplyToSender)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), raw.Timestamp)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare digits", input: "33612345678", want: "+33612345678"},
		{name: "formatted", input: "33 6 12-34-56-78", want: "+33612345678"},
		{name: "already prefixed", input: "+33612345678", want: "+33612345678"},
		{name: "group id untouched", input: "1203630412345@g.us", want: "1203630412345@g.us"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePhone(tt.input))
		})
	}
}

func TestParseTimestamp_FallsBackToNow(t *testing.T) {
	before := time.Now().UTC()
	got := parseTimestamp("not-a-number")
	after := time.Now().UTC()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
