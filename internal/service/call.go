package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/event"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/vapi"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// CallRemote is the slice of the provider client the call service needs.
type CallRemote interface {
	CreateCall(ctx context.Context, payload vapi.CallPayload) (*vapi.Call, error)
	EndCall(ctx context.Context, id string) error
}

// CallService initiates outbound calls and serves the reconciled call views.
type CallService struct {
	repo       repository.CallRepository
	agents     repository.AgentRepository
	phones     repository.PhoneNumberRepository
	remote     CallRemote
	reconciler *Reconciler
	events     event.Publisher
	logger     *slog.Logger
}

// NewCallService creates a new call service.
func NewCallService(
	repo repository.CallRepository,
	agents repository.AgentRepository,
	phones repository.PhoneNumberRepository,
	remote CallRemote,
	reconciler *Reconciler,
	events event.Publisher,
	logger *slog.Logger,
) *CallService {
	return &CallService{
		repo:       repo,
		agents:     agents,
		phones:     phones,
		remote:     remote,
		reconciler: reconciler,
		events:     events,
		logger:     logger,
	}
}

// CreateCallInput holds the parameters for placing an outbound call.
type CreateCallInput struct {
	AgentID        string
	PhoneNumberID  string
	CustomerNumber string
}

// normalizeCustomerNumber coerces bare 10-digit US numbers into E.164 and
// rejects anything else that lacks a leading "+".
func normalizeCustomerNumber(number string) (string, error) {
	if number == "" {
		return "", apperrors.InvalidInput("customer number is required")
	}
	if number[0] == '+' {
		return number, nil
	}
	if len(number) == 10 && allDigits(number) {
		return "+1" + number, nil
	}
	return "", apperrors.InvalidInput("customer number must be in E.164 format (e.g., +1234567890)")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CreateCall places an outbound call through the agent's assistant. Unlike
// agent and phone number creation, a provider rejection here fails the whole
// operation: there is nothing useful to persist for a call that never
// started.
func (s *CallService) CreateCall(ctx context.Context, userID string, input *CreateCallInput) (*domain.Call, error) {
	return s.createCall(ctx, userID, input, domain.CallTypeCall)
}

// CreateTestCall places a test call from the dashboard. Identical to a
// regular outbound call except the record is tagged type "test".
func (s *CallService) CreateTestCall(ctx context.Context, userID string, input *CreateCallInput) (*domain.Call, error) {
	return s.createCall(ctx, userID, input, domain.CallTypeTest)
}

func (s *CallService) createCall(ctx context.Context, userID string, input *CreateCallInput, callType string) (*domain.Call, error) {
	agent, err := s.agents.GetByID(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.UserID != userID {
		return nil, apperrors.NotFound("agent", input.AgentID)
	}
	if !agent.IsProvisioned() {
		return nil, apperrors.InvalidInput("agent is not provisioned yet")
	}

	customerNumber, err := normalizeCustomerNumber(input.CustomerNumber)
	if err != nil {
		return nil, err
	}

	payload := vapi.CallPayload{
		AssistantID: agent.RemoteID,
		Customer:    &vapi.Customer{Number: customerNumber},
	}
	if input.PhoneNumberID != "" {
		phone, perr := s.phones.GetByID(ctx, input.PhoneNumberID)
		if perr != nil {
			return nil, perr
		}
		if phone.UserID != userID {
			return nil, apperrors.NotFound("phone number", input.PhoneNumberID)
		}
		if phone.RemoteID != "" {
			payload.PhoneNumberID = phone.RemoteID
		}
	}

	remote, err := s.remote.CreateCall(ctx, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := remote.Status
	if status == "" {
		status = domain.CallStatusQueued
	}
	call := &domain.Call{
		ID:             uuid.New().String(),
		RemoteID:       remote.ID,
		UserID:         userID,
		AgentID:        agent.ID,
		PhoneNumberID:  input.PhoneNumberID,
		CustomerNumber: customerNumber,
		Direction:      domain.CallDirectionOutbound,
		Type:           callType,
		Status:         status,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, call); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist outbound call",
			slog.String("remote_id", call.RemoteID),
			slog.String("error", err.Error()),
		)
		// The call is already live at the provider; return it anyway.
	}
	s.events.CallStarted(ctx, call)
	return call, nil
}

// GetCall fetches one call, refreshed from the provider when reachable.
func (s *CallService) GetCall(ctx context.Context, userID, callID string) (*domain.Call, error) {
	call, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.NotFound("call", callID)
	}
	return s.reconciler.SyncCall(ctx, call)
}

// GetCallByRemoteID fetches one call by the provider's identifier.
func (s *CallService) GetCallByRemoteID(ctx context.Context, userID, remoteID string) (*domain.Call, error) {
	call, err := s.repo.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.NotFound("call", remoteID)
	}
	return call, nil
}

// ListCalls returns the user's reconciled call list.
func (s *CallService) ListCalls(ctx context.Context, userID string, filter repository.CallFilter) ([]domain.Call, error) {
	return s.reconciler.ListCalls(ctx, userID, filter)
}

// EndCall manually terminates an in-flight call. The provider-side hangup is
// best-effort; the local record is always closed out.
func (s *CallService) EndCall(ctx context.Context, userID, callID string) (*domain.Call, error) {
	call, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, apperrors.NotFound("call", callID)
	}
	if call.IsTerminal() {
		return nil, apperrors.InvalidInput("call is already ended")
	}

	if call.RemoteID != "" {
		if err := s.remote.EndCall(ctx, call.RemoteID); err != nil {
			s.logger.WarnContext(ctx, "remote call termination failed, ending locally anyway",
				slog.String("call_id", call.ID),
				slog.String("remote_id", call.RemoteID),
				slog.String("error", err.Error()),
			)
		}
	}

	now := time.Now().UTC()
	call.Status = domain.CallStatusEnded
	call.EndedReason = domain.EndedReasonManual
	if call.EndedAt == nil {
		call.EndedAt = &now
	}
	applyDuration(call)
	call.UpdatedAt = now

	if err := s.repo.Update(ctx, call); err != nil {
		return nil, err
	}
	s.events.CallEnded(ctx, call)
	return call, nil
}

// Transcript returns the call's transcript text.
func (s *CallService) Transcript(ctx context.Context, userID, callID string) (string, error) {
	call, err := s.GetCall(ctx, userID, callID)
	if err != nil {
		return "", err
	}
	return call.Transcript, nil
}

// RecordingURL returns the call's recording reference, or NotFound when the
// call has none.
func (s *CallService) RecordingURL(ctx context.Context, userID, callID string) (string, error) {
	call, err := s.GetCall(ctx, userID, callID)
	if err != nil {
		return "", err
	}
	if !call.HasRecording() {
		return "", apperrors.NotFound("recording for call", callID)
	}
	return call.RecordingURL, nil
}
