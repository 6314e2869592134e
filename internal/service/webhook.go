package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/event"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/vapi"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// Webhook event types pushed by the provider.
const (
	WebhookCallStart    = "call-start"
	WebhookCallEnd      = "call-end"
	WebhookCallEnded    = "call-ended"
	WebhookStatusUpdate = "status-update"
	WebhookTranscript   = "transcript"
	WebhookHang         = "hang"
	WebhookSpeechUpdate = "speech-update"
	WebhookFunctionCall = "function-call"
)

// WebhookEnvelope is the provider's event wrapper.
type WebhookEnvelope struct {
	Message WebhookMessage `json:"message"`
}

// WebhookMessage carries one lifecycle event and the call snapshot it refers
// to. Transcript events put the new text in Transcript rather than on the
// call snapshot.
type WebhookMessage struct {
	Type          string         `json:"type"`
	Call          *vapi.Call     `json:"call,omitempty"`
	Transcript    string         `json:"transcript,omitempty"`
	Role          string         `json:"role,omitempty"`
	Status        string         `json:"status,omitempty"`
	FunctionCall  map[string]any `json:"functionCall,omitempty"`
	PhoneNumberID string         `json:"phoneNumberId,omitempty"`
}

// WebhookService applies provider lifecycle events to the local call mirror.
// It never returns provider-visible errors: events that cannot be applied are
// logged and acknowledged, since the provider does not offer reliable
// redelivery.
type WebhookService struct {
	agents repository.AgentRepository
	phones repository.PhoneNumberRepository
	calls  repository.CallRepository
	events event.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewWebhookService wires the webhook ingest pipeline.
func NewWebhookService(
	agents repository.AgentRepository,
	phones repository.PhoneNumberRepository,
	calls repository.CallRepository,
	events event.Publisher,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		agents: agents,
		phones: phones,
		calls:  calls,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Process dispatches one webhook envelope. The returned error is always nil
// for unknown or unresolvable events; only infrastructure failures on events
// that did resolve propagate, and the HTTP handler still acknowledges those.
func (s *WebhookService) Process(ctx context.Context, env *WebhookEnvelope) error {
	msg := &env.Message
	s.logger.InfoContext(ctx, "webhook event received",
		slog.String("type", msg.Type),
		slog.String("remote_id", remoteCallID(msg)),
	)

	switch msg.Type {
	case WebhookCallStart:
		return s.handleCallStart(ctx, msg)
	case WebhookStatusUpdate:
		return s.handleStatusUpdate(ctx, msg)
	case WebhookTranscript:
		return s.handleTranscript(ctx, msg)
	case WebhookCallEnd, WebhookCallEnded, WebhookHang:
		return s.handleCallEnd(ctx, msg)
	case WebhookSpeechUpdate, WebhookFunctionCall:
		return s.handleSideEffect(ctx, msg)
	default:
		s.logger.WarnContext(ctx, "unknown webhook event type", slog.String("type", msg.Type))
		return nil
	}
}

func remoteCallID(msg *WebhookMessage) string {
	if msg.Call == nil {
		return ""
	}
	return msg.Call.ID
}

// resolveOwner maps an event to the user it belongs to, transitively through
// the phone number or assistant named in the snapshot.
func (s *WebhookService) resolveOwner(ctx context.Context, rc *vapi.Call) (userID, agentID, phoneID, phoneNumber string, err error) {
	if rc.PhoneNumberID != "" {
		phone, perr := s.phones.GetByRemoteID(ctx, rc.PhoneNumberID)
		if perr == nil {
			userID = phone.UserID
			phoneID = phone.ID
			phoneNumber = phone.Number
			if phone.AgentID != "" {
				agentID = phone.AgentID
			}
		} else if !errors.Is(perr, apperrors.ErrNotFound) {
			return "", "", "", "", perr
		}
	}
	if rc.AssistantID != "" {
		agent, aerr := s.agents.GetByRemoteID(ctx, rc.AssistantID)
		if aerr == nil {
			agentID = agent.ID
			if userID == "" {
				userID = agent.UserID
			}
		} else if !errors.Is(aerr, apperrors.ErrNotFound) {
			return "", "", "", "", aerr
		}
	}
	if userID == "" {
		return "", "", "", "", apperrors.OwnershipUnresolved(rc.ID)
	}
	return userID, agentID, phoneID, phoneNumber, nil
}

// loadCall fetches the local record for an event's call, or reports that no
// such record exists.
func (s *WebhookService) loadCall(ctx context.Context, msg *WebhookMessage) (*domain.Call, bool, error) {
	if msg.Call == nil || msg.Call.ID == "" {
		return nil, false, nil
	}
	call, err := s.calls.GetByRemoteID(ctx, msg.Call.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return call, true, nil
}

func (s *WebhookService) handleCallStart(ctx context.Context, msg *WebhookMessage) error {
	if msg.Call == nil || msg.Call.ID == "" {
		return nil
	}

	if existing, found, err := s.loadCall(ctx, msg); err != nil {
		return err
	} else if found {
		// Duplicate delivery. Refresh status only.
		if msg.Call.Status != "" {
			existing.Status = msg.Call.Status
			return s.calls.Update(ctx, existing)
		}
		return nil
	}

	userID, agentID, phoneID, phoneNumber, err := s.resolveOwner(ctx, msg.Call)
	if err != nil {
		if errors.Is(err, apperrors.ErrOwnershipUnresolved) {
			s.logger.WarnContext(ctx, "discarding event for unowned call",
				slog.String("remote_id", msg.Call.ID),
			)
			return nil
		}
		return err
	}

	now := s.now().UTC()
	status := msg.Call.Status
	if status == "" {
		status = domain.CallStatusInProgress
	}
	call := &domain.Call{
		ID:            uuid.New().String(),
		RemoteID:      msg.Call.ID,
		UserID:        userID,
		AgentID:       agentID,
		PhoneNumberID: phoneID,
		PhoneNumber:   phoneNumber,
		Direction:     callDirection(msg.Call),
		Type:          domain.CallTypeCall,
		Status:        status,
		StartedAt:     parseRemoteTime(msg.Call.StartedAt),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if call.StartedAt == nil {
		call.StartedAt = &now
	}
	if msg.Call.Customer != nil {
		call.CustomerNumber = msg.Call.Customer.Number
	}

	if err := s.calls.Upsert(ctx, call); err != nil {
		return err
	}
	s.events.CallStarted(ctx, call)
	return nil
}

func (s *WebhookService) handleStatusUpdate(ctx context.Context, msg *WebhookMessage) error {
	call, found, err := s.loadCall(ctx, msg)
	if err != nil || !found {
		return err
	}
	status := msg.Status
	if status == "" && msg.Call != nil {
		status = msg.Call.Status
	}
	if status == "" {
		return nil
	}
	call.Status = status
	return s.calls.Update(ctx, call)
}

func (s *WebhookService) handleTranscript(ctx context.Context, msg *WebhookMessage) error {
	call, found, err := s.loadCall(ctx, msg)
	if err != nil || !found {
		return err
	}
	text := msg.Transcript
	if text == "" && msg.Call != nil {
		text = msg.Call.Transcript
	}
	if text == "" {
		return nil
	}
	// Append-only: new text never replaces what is already recorded.
	if call.Transcript == "" {
		call.Transcript = text
	} else {
		call.Transcript += "\n" + text
	}
	return s.calls.Update(ctx, call)
}

func (s *WebhookService) handleCallEnd(ctx context.Context, msg *WebhookMessage) error {
	call, found, err := s.loadCall(ctx, msg)
	if err != nil {
		return err
	}
	if !found {
		// End event for a call never seen before; try to adopt it so history
		// stays complete.
		if msg.Call == nil || msg.Call.ID == "" {
			return nil
		}
		userID, agentID, phoneID, phoneNumber, rerr := s.resolveOwner(ctx, msg.Call)
		if rerr != nil {
			if errors.Is(rerr, apperrors.ErrOwnershipUnresolved) {
				s.logger.WarnContext(ctx, "discarding event for unowned call",
					slog.String("remote_id", msg.Call.ID),
				)
				return nil
			}
			return rerr
		}
		now := s.now().UTC()
		call = &domain.Call{
			ID:            uuid.New().String(),
			RemoteID:      msg.Call.ID,
			UserID:        userID,
			AgentID:       agentID,
			PhoneNumberID: phoneID,
			PhoneNumber:   phoneNumber,
			Direction:     callDirection(msg.Call),
			Type:          domain.CallTypeCall,
			Status:        domain.CallStatusInProgress,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	if msg.Call != nil {
		mergeRemoteCall(call, msg.Call)
	}
	// Keep a terminal status reported by the event itself (ended or error);
	// anything else is a stale snapshot and the call is forced to ended.
	if !call.IsTerminal() {
		call.Status = domain.CallStatusEnded
	}
	if call.EndedAt == nil {
		now := s.now().UTC()
		call.EndedAt = &now
	}
	applyDuration(call)

	if err := s.calls.Upsert(ctx, call); err != nil {
		return err
	}
	s.events.CallEnded(ctx, call)
	return nil
}

// handleSideEffect logs speech updates and function calls and forwards them
// to the event stream. No call state changes.
func (s *WebhookService) handleSideEffect(ctx context.Context, msg *WebhookMessage) error {
	remoteID := remoteCallID(msg)
	payload := map[string]any{}
	if msg.Status != "" {
		payload["status"] = msg.Status
	}
	if msg.Role != "" {
		payload["role"] = msg.Role
	}
	for k, v := range msg.FunctionCall {
		payload[k] = v
	}

	s.logger.InfoContext(ctx, "call side effect",
		slog.String("type", msg.Type),
		slog.String("remote_id", remoteID),
	)
	s.events.CallSideEffect(ctx, remoteID, msg.Type, payload)
	return nil
}
