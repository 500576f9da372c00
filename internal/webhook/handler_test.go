package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

type recordingProcessor struct {
	mu       sync.Mutex
	received []domain.RawMessage
}

func (p *recordingProcessor) Handle(_ context.Context, raw domain.RawMessage) domain.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.received = append(p.received, raw)

	return domain.Outcome{Success: true}
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.received)
}

const textPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "entry-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"contacts": [{"profile": {"name": "Jean"}, "wa_id": "33612345678"}],
				"messages": [{
					"id": "wamid.1",
					"from": "33612345678",
					"timestamp": "1741078800",
					"type": "text",
					"text": {"body": "Vends Rolex Submariner 8500€"}
				}]
			}
		}]
	}]
}`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleVerify_EchoesChallenge(t *testing.T) {
	s := NewServer(&recordingProcessor{}, "secret-token", "", 0, nil)

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=challenge-42", nil)
	rec := httptest.NewRecorder()

	s.handleVerify(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "challenge-42", rec.Body.String())
}

func TestHandleVerify_RejectsBadToken(t *testing.T) {
	s := NewServer(&recordingProcessor{}, "secret-token", "", 0, nil)

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=challenge-42", nil)
	rec := httptest.NewRecorder()

	s.handleVerify(rec, req)

	assert.Equal(t, 403, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleVerify_RejectsBadMode(t *testing.T) {
	s := NewServer(&recordingProcessor{}, "secret-token", "", 0, nil)

	req := httptest.NewRequest("GET", "/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token", nil)
	rec := httptest.NewRecorder()

	s.handleVerify(rec, req)

	assert.Equal(t, 403, rec.Code)
}

func TestHandleReceive_AcceptsSignedPayload(t *testing.T) {
	processor := &recordingProcessor{}
	s := NewServer(processor, "token", "app-secret", 0, nil)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(textPayload))
	req.Header.Set("X-Hub-Signature-256", sign("app-secret", []byte(textPayload)))
	rec := httptest.NewRecorder()

	s.handleReceive(context.Background(), rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"received"}`, rec.Body.String())

	require.Eventually(t, func() bool {
		return processor.count() == 1
	}, time.Second, 5*time.Millisecond)

	processor.mu.Lock()
	defer processor.mu.Unlock()

	raw := processor.received[0]
	assert.Equal(t, "wamid.1", raw.ID)
	assert.Equal(t, "+33612345678", raw.Sender)
	assert.Equal(t, "Vends Rolex Submariner 8500€", raw.Text)
	assert.Equal(t, "Jean", raw.Envelope.ProfileName)
}

func TestHandleReceive_RejectsBadSignature(t *testing.T) {
	processor := &recordingProcessor{}
	s := NewServer(processor, "token", "app-secret", 0, nil)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(textPayload))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()

	s.handleReceive(context.Background(), rec, req)

	assert.Equal(t, 401, rec.Code)
	assert.Zero(t, processor.count())
}

func TestHandleReceive_RejectsMalformedBody(t *testing.T) {
	processor := &recordingProcessor{}
	s := NewServer(processor, "token", "", 0, nil)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	s.handleReceive(context.Background(), rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Zero(t, processor.count())
}

func TestHandleReceive_NoSecretSkipsSignatureCheck(t *testing.T) {
	processor := &recordingProcessor{}
	s := NewServer(processor, "token", "", 0, nil)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(textPayload))
	rec := httptest.NewRecorder()

	s.handleReceive(context.Background(), rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)

	assert.True(t, VerifySignature("", body, ""), "empty secret disables verification")
	assert.True(t, VerifySignature("s3cret", body, sign("s3cret", body)))
	assert.False(t, VerifySignature("s3cret", body, sign("other", body)))
	assert.False(t, VerifySignature("s3cret", body, "sha256=zz"))
	assert.False(t, VerifySignature("s3cret", body, ""))
}
