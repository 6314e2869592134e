package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/vapi"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

const (
	defaultFirstMessage  = "Hello! How can I help you today?"
	defaultModel         = "gpt-4o"
	defaultModelProvider = "openai"
	defaultLanguage      = "en-US"
)

// AgentRemote is the slice of the provider client the agent manager needs.
type AgentRemote interface {
	CreateAssistant(ctx context.Context, payload vapi.AssistantPayload) (*vapi.Assistant, error)
	UpdateAssistant(ctx context.Context, id string, payload vapi.AssistantPayload) (*vapi.Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
}

// AgentService provisions assistants on the provider and mirrors them
// locally. Local state tracks the outcome of the last provisioning attempt:
// a failed remote call still leaves a local record in status "error" so the
// user can see, retry, or delete it.
type AgentService struct {
	repo   repository.AgentRepository
	remote AgentRemote
	logger *slog.Logger
}

// NewAgentService creates a new agent service.
func NewAgentService(repo repository.AgentRepository, remote AgentRemote, logger *slog.Logger) *AgentService {
	return &AgentService{repo: repo, remote: remote, logger: logger}
}

// CreateAgentInput holds the parameters for creating an agent.
type CreateAgentInput struct {
	Name          string
	Industry      string
	Role          string
	Description   string
	SystemPrompt  string
	FirstMessage  string
	Voice         string
	VoiceProvider string
	VoiceGender   string
	Model         string
	ModelProvider string
	Language      string
}

// UpdateAgentInput holds the parameters for updating an agent. Nil fields are
// left unchanged.
type UpdateAgentInput struct {
	Name          *string
	Industry      *string
	Role          *string
	Description   *string
	SystemPrompt  *string
	FirstMessage  *string
	Voice         *string
	VoiceProvider *string
	VoiceGender   *string
	Model         *string
	ModelProvider *string
	Language      *string
}

// assistantPayload builds the provider request for an agent's current
// configuration.
func assistantPayload(agent *domain.Agent) vapi.AssistantPayload {
	prompt := agent.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("You are %s, a helpful AI assistant working in the %s industry. %s",
			agent.Name, agent.Industry, agent.Description)
	}

	firstMessage := agent.FirstMessage
	if firstMessage == "" {
		firstMessage = defaultFirstMessage
	}

	modelProvider := agent.ModelProvider
	if modelProvider == "" {
		modelProvider = defaultModelProvider
	}
	model := agent.Model
	if model == "" {
		model = defaultModel
	}
	language := agent.Language
	if language == "" {
		language = defaultLanguage
	}

	voice := vapi.SafeVoiceConfig(agent.VoiceProvider, agent.Voice, agent.VoiceGender)

	return vapi.AssistantPayload{
		Name:         agent.Name,
		FirstMessage: firstMessage,
		Model: &vapi.ModelPayload{
			Provider:    modelProvider,
			Model:       model,
			Messages:    []vapi.ModelMessage{{Role: "system", Content: prompt}},
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Voice: &voice,
		Transcriber: &vapi.TranscriberPayload{
			Provider: "deepgram",
			Model:    "nova-3",
			Language: language,
		},
	}
}

// CreateAgent provisions a new assistant. The local record is persisted even
// when the provider rejects the request, in status "error"; the remote error
// is still returned so the handler can surface it.
func (s *AgentService) CreateAgent(ctx context.Context, userID string, input *CreateAgentInput) (*domain.Agent, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("agent name is required")
	}

	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          input.Name,
		Industry:      input.Industry,
		Role:          input.Role,
		Description:   input.Description,
		SystemPrompt:  input.SystemPrompt,
		FirstMessage:  input.FirstMessage,
		Voice:         input.Voice,
		VoiceProvider: input.VoiceProvider,
		VoiceGender:   input.VoiceGender,
		Model:         input.Model,
		ModelProvider: input.ModelProvider,
		Language:      input.Language,
		Status:        domain.AgentStatusCreating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	assistant, remoteErr := s.remote.CreateAssistant(ctx, assistantPayload(agent))
	if remoteErr != nil {
		agent.Status = domain.AgentStatusError
		s.logger.ErrorContext(ctx, "assistant provisioning failed",
			slog.String("agent_id", agent.ID),
			slog.String("error", remoteErr.Error()),
		)
	} else {
		agent.RemoteID = assistant.ID
		agent.Status = domain.AgentStatusActive
	}

	if err := s.repo.Create(ctx, agent); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return agent, remoteErr
	}
	return agent, nil
}

// GetAgent fetches one agent, enforcing ownership.
func (s *AgentService) GetAgent(ctx context.Context, userID, agentID string) (*domain.Agent, error) {
	agent, err := s.repo.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.UserID != userID {
		return nil, apperrors.NotFound("agent", agentID)
	}
	return agent, nil
}

// ListAgents returns the user's agents, newest first.
func (s *AgentService) ListAgents(ctx context.Context, userID string) ([]domain.Agent, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateAgent applies the local field updates unconditionally, then attempts
// the remote update; status reflects the remote outcome.
func (s *AgentService) UpdateAgent(ctx context.Context, userID, agentID string, input *UpdateAgentInput) (*domain.Agent, error) {
	agent, err := s.GetAgent(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}

	applyIfSet(&agent.Name, input.Name)
	applyIfSet(&agent.Industry, input.Industry)
	applyIfSet(&agent.Role, input.Role)
	applyIfSet(&agent.Description, input.Description)
	applyIfSet(&agent.SystemPrompt, input.SystemPrompt)
	applyIfSet(&agent.FirstMessage, input.FirstMessage)
	applyIfSet(&agent.Voice, input.Voice)
	applyIfSet(&agent.VoiceProvider, input.VoiceProvider)
	applyIfSet(&agent.VoiceGender, input.VoiceGender)
	applyIfSet(&agent.Model, input.Model)
	applyIfSet(&agent.ModelProvider, input.ModelProvider)
	applyIfSet(&agent.Language, input.Language)
	agent.UpdatedAt = time.Now().UTC()

	var remoteErr error
	if agent.IsProvisioned() {
		_, remoteErr = s.remote.UpdateAssistant(ctx, agent.RemoteID, assistantPayload(agent))
	} else {
		// Retry provisioning for agents whose initial create failed.
		var assistant *vapi.Assistant
		assistant, remoteErr = s.remote.CreateAssistant(ctx, assistantPayload(agent))
		if remoteErr == nil {
			agent.RemoteID = assistant.ID
		}
	}

	if remoteErr != nil {
		agent.Status = domain.AgentStatusError
		s.logger.ErrorContext(ctx, "assistant update failed",
			slog.String("agent_id", agent.ID),
			slog.String("error", remoteErr.Error()),
		)
	} else {
		agent.Status = domain.AgentStatusActive
	}

	if err := s.repo.Update(ctx, agent); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return agent, remoteErr
	}
	return agent, nil
}

// DeleteAgent removes the agent locally in all cases. Remote deletion is
// best-effort: a provider failure is logged but never blocks local cleanup.
func (s *AgentService) DeleteAgent(ctx context.Context, userID, agentID string) error {
	agent, err := s.GetAgent(ctx, userID, agentID)
	if err != nil {
		return err
	}

	if agent.IsProvisioned() {
		if err := s.remote.DeleteAssistant(ctx, agent.RemoteID); err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "remote assistant deletion failed, deleting locally anyway",
					slog.String("agent_id", agent.ID),
					slog.String("remote_id", agent.RemoteID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return s.repo.Delete(ctx, agent.ID)
}

func applyIfSet(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
