package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nroussel/watchsignal/internal/core/domain"
	"github.com/nroussel/watchsignal/internal/platform/observability"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

// Processor consumes one raw message and reports the pipeline outcome.
type Processor interface {
	Handle(ctx context.Context, raw domain.RawMessage) domain.Outcome
}

// Server exposes the webhook endpoints: GET /webhook for endpoint
// verification and POST /webhook for message delivery.
type Server struct {
	processor     Processor
	verifyToken   string
	webhookSecret string
	port          int
	logger        *zerolog.Logger
}

func NewServer(processor Processor, verifyToken, webhookSecret string, port int, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Server{
		processor:     processor,
		verifyToken:   verifyToken,
		webhookSecret: webhookSecret,
		port:          port,
		logger:        logger,
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook(ctx))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("Webhook server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server error: %w", err)
	}

	return nil
}

func (s *Server) handleWebhook(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleVerify(w, r)
		case http.MethodPost:
			s.handleReceive(ctx, w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// handleVerify answers the hub.challenge handshake used by the platform to
// confirm endpoint ownership.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || token != s.verifyToken {
		s.logger.Warn().Str("mode", mode).Msg("Webhook verification failed")
		w.WriteHeader(http.StatusForbidden)

		return
	}

	s.logger.Info().Msg("Webhook verified")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleReceive acknowledges delivery with 200 regardless of pipeline
// outcome; only a bad signature or unreadable body is rejected. Processing
// runs in the background so the platform is never kept waiting.
func (s *Server) handleReceive(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	if !VerifySignature(s.webhookSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		s.logger.Warn().Msg("Invalid webhook signature")
		observability.WebhookErrors.WithLabelValues("bad_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Error().Err(err).Msg("Malformed webhook payload")
		observability.WebhookErrors.WithLabelValues("bad_payload").Inc()
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	messages := ExtractMessages(payload)
	observability.MessagesReceived.Add(float64(len(messages)))

	go s.process(ctx, messages)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"received"}`))
}

func (s *Server) process(ctx context.Context, messages []domain.RawMessage) {
	for _, raw := range messages {
		outcome := s.processor.Handle(ctx, raw)

		s.logger.Info().
			Str("message_id", raw.ID).
			Bool("success", outcome.Success).
			Bool("duplicate", outcome.Duplicate).
			Bool("skipped", outcome.Skipped).
			Msg("Message processed")
	}
}
