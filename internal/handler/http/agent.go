package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudrep/voicedesk/internal/service"
	"github.com/cloudrep/voicedesk/internal/vapi"
	"github.com/cloudrep/voicedesk/pkg/middleware"
	"github.com/cloudrep/voicedesk/pkg/validator"
)

// AgentHandler handles HTTP requests for agent endpoints.
type AgentHandler struct {
	agents *service.AgentService
	calls  *service.CallService
	logger *slog.Logger
}

// NewAgentHandler creates a new agent HTTP handler.
func NewAgentHandler(agents *service.AgentService, calls *service.CallService, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, calls: calls, logger: logger}
}

// CreateAgentRequest is the JSON request body for creating an agent.
type CreateAgentRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=255"`
	Industry      string `json:"industry" validate:"max=100"`
	Role          string `json:"role" validate:"max=100"`
	Description   string `json:"description"`
	SystemPrompt  string `json:"system_prompt"`
	FirstMessage  string `json:"first_message"`
	Voice         string `json:"voice" validate:"max=100"`
	VoiceProvider string `json:"voice_provider" validate:"max=50"`
	VoiceGender   string `json:"voice_gender" validate:"omitempty,oneof=male female neutral"`
	Model         string `json:"model" validate:"max=100"`
	ModelProvider string `json:"model_provider" validate:"max=50"`
	Language      string `json:"language" validate:"max=20"`
}

// UpdateAgentRequest is the JSON request body for updating an agent.
type UpdateAgentRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	Industry      *string `json:"industry" validate:"omitempty,max=100"`
	Role          *string `json:"role" validate:"omitempty,max=100"`
	Description   *string `json:"description"`
	SystemPrompt  *string `json:"system_prompt"`
	FirstMessage  *string `json:"first_message"`
	Voice         *string `json:"voice" validate:"omitempty,max=100"`
	VoiceProvider *string `json:"voice_provider" validate:"omitempty,max=50"`
	VoiceGender   *string `json:"voice_gender" validate:"omitempty,oneof=male female neutral"`
	Model         *string `json:"model" validate:"omitempty,max=100"`
	ModelProvider *string `json:"model_provider" validate:"omitempty,max=50"`
	Language      *string `json:"language" validate:"omitempty,max=20"`
}

// TestAgentRequest is the JSON request body for placing a test call.
type TestAgentRequest struct {
	PhoneNumber   string `json:"phone_number" validate:"required"`
	PhoneNumberID string `json:"phone_number_id"`
}

// CreateAgent handles POST /api/v1/agents
func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	agent, err := h.agents.CreateAgent(r.Context(), userID, &service.CreateAgentInput{
		Name:          req.Name,
		Industry:      req.Industry,
		Role:          req.Role,
		Description:   req.Description,
		SystemPrompt:  req.SystemPrompt,
		FirstMessage:  req.FirstMessage,
		Voice:         req.Voice,
		VoiceProvider: req.VoiceProvider,
		VoiceGender:   req.VoiceGender,
		Model:         req.Model,
		ModelProvider: req.ModelProvider,
		Language:      req.Language,
	})
	if err != nil {
		if agent != nil {
			// Provisioning failed, but the local record exists in status
			// "error" so the user can retry or delete.
			writeJSON(w, http.StatusCreated, response{Data: agent})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: agent})
}

// ListAgents handles GET /api/v1/agents
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	agents, err := h.agents.ListAgents(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: agents})
}

// GetAgent handles GET /api/v1/agents/{id}
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	agent, err := h.agents.GetAgent(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: agent})
}

// UpdateAgent handles PUT /api/v1/agents/{id}
func (h *AgentHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	agent, err := h.agents.UpdateAgent(r.Context(), userID, chi.URLParam(r, "id"), &service.UpdateAgentInput{
		Name:          req.Name,
		Industry:      req.Industry,
		Role:          req.Role,
		Description:   req.Description,
		SystemPrompt:  req.SystemPrompt,
		FirstMessage:  req.FirstMessage,
		Voice:         req.Voice,
		VoiceProvider: req.VoiceProvider,
		VoiceGender:   req.VoiceGender,
		Model:         req.Model,
		ModelProvider: req.ModelProvider,
		Language:      req.Language,
	})
	if err != nil {
		if agent != nil {
			writeJSON(w, http.StatusOK, response{Data: agent})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: agent})
}

// DeleteAgent handles DELETE /api/v1/agents/{id}
func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if err := h.agents.DeleteAgent(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestAgent handles POST /api/v1/agents/{id}/test
func (h *AgentHandler) TestAgent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req TestAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	call, err := h.calls.CreateTestCall(r.Context(), userID, &service.CreateCallInput{
		AgentID:        chi.URLParam(r, "id"),
		PhoneNumberID:  req.PhoneNumberID,
		CustomerNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: call})
}

// VoiceOptions handles GET /api/v1/agents/voice-options
func (h *AgentHandler) VoiceOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Data: vapi.VoiceOptions()})
}
