package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/vapi"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// PhoneRemote is the slice of the provider client the phone number manager
// needs.
type PhoneRemote interface {
	CreateCredential(ctx context.Context, payload vapi.CredentialPayload) (*vapi.Credential, error)
	CreatePhoneNumber(ctx context.Context, payload vapi.PhoneNumberPayload) (*vapi.PhoneNumber, error)
	GetPhoneNumber(ctx context.Context, id string) (*vapi.PhoneNumber, error)
	UpdatePhoneNumber(ctx context.Context, id string, payload vapi.PhoneNumberPayload) (*vapi.PhoneNumber, error)
	DeletePhoneNumber(ctx context.Context, id string) error
}

// PhoneNumberService imports and provisions phone numbers through the
// provider and mirrors them locally.
type PhoneNumberService struct {
	repo   repository.PhoneNumberRepository
	agents repository.AgentRepository
	remote PhoneRemote
	logger *slog.Logger
}

// NewPhoneNumberService creates a new phone number service.
func NewPhoneNumberService(
	repo repository.PhoneNumberRepository,
	agents repository.AgentRepository,
	remote PhoneRemote,
	logger *slog.Logger,
) *PhoneNumberService {
	return &PhoneNumberService{repo: repo, agents: agents, remote: remote, logger: logger}
}

// CreatePhoneNumberInput holds the parameters for importing or provisioning a
// phone number. Which fields are required depends on Provider.
type CreatePhoneNumberInput struct {
	Provider     string
	Name         string
	Number       string
	Country      string
	AreaCode     string
	AgentID      string
	CredentialID string

	// Twilio credentials, used when CredentialID is not supplied.
	TwilioAccountSID string
	TwilioAuthToken  string
}

// UpdatePhoneNumberInput holds the mutable fields of a phone number.
type UpdatePhoneNumberInput struct {
	Name    *string
	AgentID *string
}

// CreatePhoneNumber validates the provider-specific payload rules, calls the
// provider, and persists the local mirror. Like agents, a rejected remote
// call still leaves a local record in status "error".
func (s *PhoneNumberService) CreatePhoneNumber(ctx context.Context, userID string, input *CreatePhoneNumberInput) (*domain.PhoneNumber, error) {
	if !domain.IsValidPhoneProvider(input.Provider) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid provider %q, must be one of: %s",
			input.Provider, strings.Join(domain.ValidPhoneProviders(), ", ")))
	}

	var agentRemoteID string
	if input.AgentID != "" {
		agent, err := s.agents.GetByID(ctx, input.AgentID)
		if err != nil {
			return nil, err
		}
		if agent.UserID != userID {
			return nil, apperrors.NotFound("agent", input.AgentID)
		}
		agentRemoteID = agent.RemoteID
	}

	payload, err := s.buildCreatePayload(ctx, input, agentRemoteID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	phone := &domain.PhoneNumber{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      input.Name,
		Number:    normalizeNumber(input.Number),
		Country:   input.Country,
		AreaCode:  input.AreaCode,
		Provider:  input.Provider,
		AgentID:   input.AgentID,
		Status:    domain.PhoneNumberStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	remote, remoteErr := s.remote.CreatePhoneNumber(ctx, *payload)
	if remoteErr != nil {
		phone.Status = domain.PhoneNumberStatusError
		s.logger.ErrorContext(ctx, "phone number provisioning failed",
			slog.String("phone_id", phone.ID),
			slog.String("provider", input.Provider),
			slog.String("error", remoteErr.Error()),
		)
	} else {
		phone.RemoteID = remote.ID
		phone.Status = domain.PhoneNumberStatusActive
		if remote.Status != "" {
			phone.Status = remote.Status
		}
		if remote.Number != "" {
			phone.Number = remote.Number
		}
		s.adoptRemoteName(ctx, phone, remote, input.Name)
	}
	phone.Number = displayNumber(phone, input)

	if err := s.repo.Create(ctx, phone); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return phone, remoteErr
	}
	return phone, nil
}

// buildCreatePayload maps the input onto the provider's per-provider payload
// shape.
func (s *PhoneNumberService) buildCreatePayload(ctx context.Context, input *CreatePhoneNumberInput, agentRemoteID string) (*vapi.PhoneNumberPayload, error) {
	payload := &vapi.PhoneNumberPayload{Provider: input.Provider, Name: input.Name}

	switch input.Provider {
	case domain.PhoneProviderBYO:
		if input.Number == "" {
			return nil, apperrors.InvalidInput("number is required for byo-phone-number")
		}
		if input.CredentialID == "" {
			return nil, apperrors.InvalidInput("credential_id is required for byo-phone-number")
		}
		payload.Number = normalizeNumber(input.Number)
		payload.CredentialID = input.CredentialID

	case domain.PhoneProviderTwilio:
		credentialID := input.CredentialID
		if credentialID == "" {
			if input.TwilioAccountSID == "" || input.TwilioAuthToken == "" {
				return nil, apperrors.InvalidInput("twilio requires credential_id or account_sid and auth_token")
			}
			cred, err := s.remote.CreateCredential(ctx, vapi.CredentialPayload{
				Provider:   domain.PhoneProviderTwilio,
				AccountSID: input.TwilioAccountSID,
				AuthToken:  input.TwilioAuthToken,
			})
			if err != nil {
				return nil, err
			}
			credentialID = cred.ID
		}
		payload.CredentialID = credentialID
		payload.AreaCode = input.AreaCode

	case domain.PhoneProviderVonage, domain.PhoneProviderTelnyx:
		if input.CredentialID == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("credential_id is required for %s", input.Provider))
		}
		payload.CredentialID = input.CredentialID
		payload.AreaCode = input.AreaCode

	case domain.PhoneProviderVapi:
		if input.AreaCode != "" {
			if len(input.AreaCode) != 3 || strings.Trim(input.AreaCode, "0123456789") != "" {
				return nil, apperrors.InvalidInput("area_code must be exactly 3 digits")
			}
			payload.NumberDesiredAreaCode = input.AreaCode
		}
		payload.AssistantID = agentRemoteID
	}

	return payload, nil
}

// adoptRemoteName renames provider-generated placeholder names back to the
// user's chosen name.
func (s *PhoneNumberService) adoptRemoteName(ctx context.Context, phone *domain.PhoneNumber, remote *vapi.PhoneNumber, requestedName string) {
	if remote.Name != "" {
		phone.Name = remote.Name
	}
	if requestedName == "" || !strings.HasPrefix(remote.Name, "Untitled") {
		return
	}
	if _, err := s.remote.UpdatePhoneNumber(ctx, remote.ID, vapi.PhoneNumberPayload{Name: requestedName}); err != nil {
		s.logger.WarnContext(ctx, "failed to rename phone number",
			slog.String("remote_id", remote.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	phone.Name = requestedName
}

// displayNumber guarantees a non-empty display string. Numbers still being
// provisioned get a human-readable placeholder.
func displayNumber(phone *domain.PhoneNumber, input *CreatePhoneNumberInput) string {
	if phone.Number != "" {
		return phone.Number
	}
	switch phone.Provider {
	case domain.PhoneProviderVapi:
		if input.AreaCode != "" {
			return fmt.Sprintf("SIP number (area %s) - pending", input.AreaCode)
		}
		return "SIP placeholder (no area code)"
	case domain.PhoneProviderBYO:
		return normalizeNumber(input.Number)
	default:
		return fmt.Sprintf("Pending (%s)", phone.Provider)
	}
}

// normalizeNumber strips formatting characters and prefixes "+" so numbers
// compare in E.164 form.
func normalizeNumber(number string) string {
	if number == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if cleaned == "" {
		return number
	}
	return "+" + cleaned
}

// GetPhoneNumber fetches one phone number, enforcing ownership.
func (s *PhoneNumberService) GetPhoneNumber(ctx context.Context, userID, phoneID string) (*domain.PhoneNumber, error) {
	phone, err := s.repo.GetByID(ctx, phoneID)
	if err != nil {
		return nil, err
	}
	if phone.UserID != userID {
		return nil, apperrors.NotFound("phone number", phoneID)
	}
	return phone, nil
}

// ListPhoneNumbers returns the user's phone numbers, newest first.
func (s *PhoneNumberService) ListPhoneNumbers(ctx context.Context, userID string) ([]domain.PhoneNumber, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdatePhoneNumber renames the number or rebinds it to another agent. Local
// fields update unconditionally; the remote sync outcome drives status.
func (s *PhoneNumberService) UpdatePhoneNumber(ctx context.Context, userID, phoneID string, input *UpdatePhoneNumberInput) (*domain.PhoneNumber, error) {
	phone, err := s.GetPhoneNumber(ctx, userID, phoneID)
	if err != nil {
		return nil, err
	}

	var agentRemoteID string
	if input.AgentID != nil && *input.AgentID != "" {
		agent, aerr := s.agents.GetByID(ctx, *input.AgentID)
		if aerr != nil {
			return nil, aerr
		}
		if agent.UserID != userID {
			return nil, apperrors.NotFound("agent", *input.AgentID)
		}
		agentRemoteID = agent.RemoteID
	}

	applyIfSet(&phone.Name, input.Name)
	applyIfSet(&phone.AgentID, input.AgentID)
	phone.UpdatedAt = time.Now().UTC()

	var remoteErr error
	if phone.RemoteID != "" {
		payload := vapi.PhoneNumberPayload{Name: phone.Name}
		if input.AgentID != nil {
			payload.AssistantID = agentRemoteID
		}
		_, remoteErr = s.remote.UpdatePhoneNumber(ctx, phone.RemoteID, payload)
	}

	if remoteErr != nil {
		phone.Status = domain.PhoneNumberStatusError
		s.logger.ErrorContext(ctx, "phone number update failed",
			slog.String("phone_id", phone.ID),
			slog.String("error", remoteErr.Error()),
		)
	} else if phone.RemoteID != "" {
		phone.Status = domain.PhoneNumberStatusActive
	}

	if err := s.repo.Update(ctx, phone); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return phone, remoteErr
	}
	return phone, nil
}

// PhoneCapability reports whether a number can place outbound calls right
// now, with a human-readable warning when it cannot.
type PhoneCapability struct {
	CanInitiateCalls bool   `json:"can_initiate_calls"`
	Warning          string `json:"warning,omitempty"`
}

// PhoneNumberCapability derives call readiness from the number's display
// string and provider. Placeholder and still-provisioning numbers cannot
// initiate calls.
func PhoneNumberCapability(phone *domain.PhoneNumber) PhoneCapability {
	number := strings.ToLower(phone.Number)

	if phone.Provider == domain.PhoneProviderVapi {
		if phone.AreaCode == "" {
			return PhoneCapability{Warning: "placeholder created - specify an area code to get a real SIP number"}
		}
		if strings.Contains(number, "pending") {
			return PhoneCapability{Warning: "SIP number is being provisioned - check back shortly"}
		}
		return PhoneCapability{CanInitiateCalls: true}
	}

	switch {
	case number == "" || strings.Contains(number, "pending") || strings.Contains(number, "unknown"):
		return PhoneCapability{Warning: "phone number provisioning may still be in progress"}
	case strings.Contains(number, "placeholder"):
		return PhoneCapability{Warning: "this appears to be a placeholder - verify with your provider"}
	default:
		return PhoneCapability{CanInitiateCalls: true}
	}
}

// PhoneTestResult is the outcome of a provider-side verification check.
type PhoneTestResult struct {
	PhoneNumberID string `json:"phone_number_id"`
	RemoteID      string `json:"remote_id"`
	Number        string `json:"number"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	CanMakeCalls  bool   `json:"can_make_calls"`
	Message       string `json:"message"`
}

// TestPhoneNumber verifies the number against the provider. A provider
// failure is reported in the result rather than as an error, so the caller
// always sees the verification outcome.
func (s *PhoneNumberService) TestPhoneNumber(ctx context.Context, userID, phoneID string) (*PhoneTestResult, error) {
	phone, err := s.GetPhoneNumber(ctx, userID, phoneID)
	if err != nil {
		return nil, err
	}
	if phone.RemoteID == "" {
		return nil, apperrors.InvalidInput("phone number is not provisioned with the provider")
	}

	result := &PhoneTestResult{
		PhoneNumberID: phone.ID,
		RemoteID:      phone.RemoteID,
		Number:        phone.Number,
		Provider:      phone.Provider,
	}

	remote, rerr := s.remote.GetPhoneNumber(ctx, phone.RemoteID)
	if rerr != nil {
		result.Status = domain.PhoneNumberStatusError
		result.Message = fmt.Sprintf("verification failed: %s", rerr.Error())
		s.logger.WarnContext(ctx, "phone number verification failed",
			slog.String("phone_id", phone.ID),
			slog.String("remote_id", phone.RemoteID),
			slog.String("error", rerr.Error()),
		)
		return result, nil
	}

	result.Status = remote.Status
	if result.Status == "" {
		result.Status = "unknown"
	}
	result.CanMakeCalls = remote.Status == domain.PhoneNumberStatusActive
	if result.CanMakeCalls {
		result.Message = "phone number is ready for calls"
	} else {
		result.Message = "phone number is not active"
	}
	return result, nil
}

// DeletePhoneNumber releases the number locally in all cases; the remote
// release is best-effort.
func (s *PhoneNumberService) DeletePhoneNumber(ctx context.Context, userID, phoneID string) error {
	phone, err := s.GetPhoneNumber(ctx, userID, phoneID)
	if err != nil {
		return err
	}

	if phone.RemoteID != "" {
		if err := s.remote.DeletePhoneNumber(ctx, phone.RemoteID); err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "remote phone number deletion failed, deleting locally anyway",
					slog.String("phone_id", phone.ID),
					slog.String("remote_id", phone.RemoteID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return s.repo.Delete(ctx, phone.ID)
}
