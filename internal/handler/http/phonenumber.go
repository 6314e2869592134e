package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/service"
	"github.com/cloudrep/voicedesk/pkg/middleware"
	"github.com/cloudrep/voicedesk/pkg/validator"
)

// PhoneNumberHandler handles HTTP requests for phone number endpoints.
type PhoneNumberHandler struct {
	phones *service.PhoneNumberService
	logger *slog.Logger
}

// NewPhoneNumberHandler creates a new phone number HTTP handler.
func NewPhoneNumberHandler(phones *service.PhoneNumberService, logger *slog.Logger) *PhoneNumberHandler {
	return &PhoneNumberHandler{phones: phones, logger: logger}
}

// CreatePhoneNumberRequest is the JSON request body for importing or
// provisioning a phone number.
type CreatePhoneNumberRequest struct {
	Provider         string `json:"provider" validate:"required,oneof=byo-phone-number twilio vonage telnyx vapi"`
	Name             string `json:"name" validate:"max=255"`
	Number           string `json:"number" validate:"max=32"`
	Country          string `json:"country" validate:"max=10"`
	AreaCode         string `json:"area_code" validate:"max=5"`
	AgentID          string `json:"agent_id" validate:"omitempty,uuid"`
	CredentialID     string `json:"credential_id"`
	TwilioAccountSID string `json:"twilio_account_sid"`
	TwilioAuthToken  string `json:"twilio_auth_token"`
}

// UpdatePhoneNumberRequest is the JSON request body for updating a phone
// number.
type UpdatePhoneNumberRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	AgentID *string `json:"agent_id" validate:"omitempty"`
}

// CreatePhoneNumber handles POST /api/v1/phone-numbers
func (h *PhoneNumberHandler) CreatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreatePhoneNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	phone, err := h.phones.CreatePhoneNumber(r.Context(), userID, &service.CreatePhoneNumberInput{
		Provider:         req.Provider,
		Name:             req.Name,
		Number:           req.Number,
		Country:          req.Country,
		AreaCode:         req.AreaCode,
		AgentID:          req.AgentID,
		CredentialID:     req.CredentialID,
		TwilioAccountSID: req.TwilioAccountSID,
		TwilioAuthToken:  req.TwilioAuthToken,
	})
	if err != nil {
		if phone != nil {
			// Provisioning failed but the local record survives in status
			// "error".
			writeJSON(w, http.StatusCreated, response{Data: newPhoneNumberResponse(phone)})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: newPhoneNumberResponse(phone)})
}

// phoneNumberResponse decorates the stored record with derived call
// readiness so clients can surface provisioning warnings.
type phoneNumberResponse struct {
	*domain.PhoneNumber
	service.PhoneCapability
}

func newPhoneNumberResponse(phone *domain.PhoneNumber) phoneNumberResponse {
	return phoneNumberResponse{PhoneNumber: phone, PhoneCapability: service.PhoneNumberCapability(phone)}
}

// ListPhoneNumbers handles GET /api/v1/phone-numbers
func (h *PhoneNumberHandler) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	phones, err := h.phones.ListPhoneNumbers(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: phones})
}

// GetPhoneNumber handles GET /api/v1/phone-numbers/{id}
func (h *PhoneNumberHandler) GetPhoneNumber(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	phone, err := h.phones.GetPhoneNumber(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: phone})
}

// UpdatePhoneNumber handles PUT /api/v1/phone-numbers/{id}
func (h *PhoneNumberHandler) UpdatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req UpdatePhoneNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	phone, err := h.phones.UpdatePhoneNumber(r.Context(), userID, chi.URLParam(r, "id"), &service.UpdatePhoneNumberInput{
		Name:    req.Name,
		AgentID: req.AgentID,
	})
	if err != nil {
		if phone != nil {
			writeJSON(w, http.StatusOK, response{Data: phone})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: phone})
}

// TestPhoneNumber handles POST /api/v1/phone-numbers/{id}/test
func (h *PhoneNumberHandler) TestPhoneNumber(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	result, err := h.phones.TestPhoneNumber(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: result})
}

// DeletePhoneNumber handles DELETE /api/v1/phone-numbers/{id}
func (h *PhoneNumberHandler) DeletePhoneNumber(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if err := h.phones.DeletePhoneNumber(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
