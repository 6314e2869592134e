package repository

import (
	"context"

	"github.com/cloudrep/voicedesk/internal/domain"
)

// CallFilter defines filter criteria for listing calls.
type CallFilter struct {
	// Statuses restricts results to calls in any of the given statuses.
	Statuses []string
	// AgentID restricts results to calls handled by the given local agent.
	AgentID *string
	// Type restricts results to "call" or "test".
	Type *string
}

// UserRepository defines read access to user accounts for ownership checks.
type UserRepository interface {
	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error
}

// AgentRepository defines the interface for agent persistence operations.
type AgentRepository interface {
	// Create inserts a new agent into the store.
	Create(ctx context.Context, agent *domain.Agent) error

	// GetByID retrieves an agent by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Agent, error)

	// GetByRemoteID retrieves an agent by its provider-side identifier.
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Agent, error)

	// ListByUser returns all agents owned by the given user, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Agent, error)

	// Update modifies an existing agent in the store.
	Update(ctx context.Context, agent *domain.Agent) error

	// Delete removes an agent by its ID.
	Delete(ctx context.Context, id string) error
}

// PhoneNumberRepository defines the interface for phone number persistence.
type PhoneNumberRepository interface {
	// Create inserts a new phone number into the store.
	Create(ctx context.Context, number *domain.PhoneNumber) error

	// GetByID retrieves a phone number by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error)

	// GetByRemoteID retrieves a phone number by its provider-side identifier.
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.PhoneNumber, error)

	// ListByUser returns all phone numbers owned by the given user, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.PhoneNumber, error)

	// Update modifies an existing phone number in the store.
	Update(ctx context.Context, number *domain.PhoneNumber) error

	// Delete removes a phone number by its ID.
	Delete(ctx context.Context, id string) error
}

// CallRepository defines the interface for call persistence operations.
type CallRepository interface {
	// Create inserts a new call into the store.
	Create(ctx context.Context, call *domain.Call) error

	// GetByID retrieves a call by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Call, error)

	// GetByRemoteID retrieves a call by its provider-side identifier.
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Call, error)

	// ListByUser returns the user's calls matching the filter, ordered by
	// created_at descending.
	ListByUser(ctx context.Context, userID string, filter CallFilter) ([]domain.Call, error)

	// Update modifies an existing call in the store.
	Update(ctx context.Context, call *domain.Call) error

	// Upsert inserts the call or, if a record with the same remote_id already
	// exists, updates it in place. Used by the reconciler and webhook ingest so
	// concurrent writers converge on one row per provider call.
	Upsert(ctx context.Context, call *domain.Call) error

	// Delete removes a call by its ID.
	Delete(ctx context.Context, id string) error
}
