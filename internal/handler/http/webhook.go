package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cloudrep/voicedesk/internal/service"
)

// WebhookHandler receives lifecycle events pushed by the voice provider.
type WebhookHandler struct {
	webhooks *service.WebhookService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(webhooks *service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// Receive handles POST /webhook/vapi. Every well-formed envelope is
// acknowledged with 200: the provider does not retry on our behalf, so
// internal failures are logged rather than surfaced.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var env service.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeInvalidBody(w, err)
		return
	}

	if err := h.webhooks.Process(r.Context(), &env); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook processing failed",
			slog.String("type", env.Message.Type),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
