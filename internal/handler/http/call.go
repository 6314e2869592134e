package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/service"
	"github.com/cloudrep/voicedesk/pkg/middleware"
	"github.com/cloudrep/voicedesk/pkg/pagination"
	"github.com/cloudrep/voicedesk/pkg/validator"
)

// CallHandler handles HTTP requests for call endpoints, including the
// derived views (active, missed, recordings, queues).
type CallHandler struct {
	calls      *service.CallService
	reconciler *service.Reconciler
	logger     *slog.Logger
}

// NewCallHandler creates a new call HTTP handler.
func NewCallHandler(calls *service.CallService, reconciler *service.Reconciler, logger *slog.Logger) *CallHandler {
	return &CallHandler{calls: calls, reconciler: reconciler, logger: logger}
}

// CreateCallRequest is the JSON request body for placing an outbound call.
type CreateCallRequest struct {
	AgentID        string `json:"agent_id" validate:"required,uuid"`
	PhoneNumberID  string `json:"phone_number_id" validate:"omitempty,uuid"`
	CustomerNumber string `json:"customer_number" validate:"required"`
}

// CreateCall handles POST /api/v1/calls
func (h *CallHandler) CreateCall(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	call, err := h.calls.CreateCall(r.Context(), userID, &service.CreateCallInput{
		AgentID:        req.AgentID,
		PhoneNumberID:  req.PhoneNumberID,
		CustomerNumber: req.CustomerNumber,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: call})
}

// ListCalls handles GET /api/v1/calls
func (h *CallHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	filter := repository.CallFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Statuses = []string{v}
	}
	if v := r.URL.Query().Get("agent_id"); v != "" {
		filter.AgentID = &v
	}
	if v := r.URL.Query().Get("type"); v != "" {
		filter.Type = &v
	}

	calls, err := h.calls.ListCalls(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// Pagination is opt-in: without page parameters the full reconciled
	// history is returned, which is what the dashboard views consume.
	if q := r.URL.Query(); q.Get("page") != "" || q.Get("per_page") != "" {
		p := pagination.FromRequest(r)
		total := len(calls)
		start := min(p.Offset, total)
		end := min(start+p.PerPage, total)
		writeJSON(w, http.StatusOK, response{Data: pagination.NewResult(calls[start:end], total, p)})
		return
	}

	writeJSON(w, http.StatusOK, response{Data: calls})
}

// ActiveCalls handles GET /api/v1/calls/active
func (h *CallHandler) ActiveCalls(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	calls, err := h.reconciler.ActiveCalls(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: calls})
}

// MissedCalls handles GET /api/v1/calls/missed
func (h *CallHandler) MissedCalls(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	calls, err := h.reconciler.MissedCalls(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: calls})
}

// Recordings handles GET /api/v1/calls/recordings
func (h *CallHandler) Recordings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	calls, err := h.reconciler.Recordings(r.Context(), userID, r.URL.Query().Get("agent_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: calls})
}

// QueuedCalls handles GET /api/v1/calls/queues
func (h *CallHandler) QueuedCalls(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	summary, err := h.reconciler.QueuedCalls(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: summary})
}

// GetCall handles GET /api/v1/calls/{id}
func (h *CallHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	call, err := h.calls.GetCall(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: call})
}

// CallByRemoteID handles GET /api/v1/calls/vapi/{remoteID}. Dashboards land
// here from webhook payloads, which only carry the provider's call id.
func (h *CallHandler) CallByRemoteID(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	call, err := h.calls.GetCallByRemoteID(r.Context(), userID, chi.URLParam(r, "remoteID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: call})
}

// EndCall handles POST /api/v1/calls/{id}/end
func (h *CallHandler) EndCall(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	call, err := h.calls.EndCall(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: call})
}

// Transcript handles GET /api/v1/calls/{id}/transcript
func (h *CallHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	transcript, err := h.calls.Transcript(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]string{"transcript": transcript}})
}

// Recording handles GET /api/v1/calls/{id}/recording
func (h *CallHandler) Recording(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	url, err := h.calls.RecordingURL(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]string{"recording_url": url}})
}
