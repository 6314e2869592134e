// Package memory provides in-memory implementations of the repository
// interfaces. They hold the same semantics as the PostgreSQL implementations
// (not-found errors, newest-first ordering, upsert-by-remote-id) and back the
// service tests, so no live database is needed to exercise business logic.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// AgentRepository is an in-memory repository.AgentRepository.
type AgentRepository struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// NewAgentRepository creates an empty in-memory agent repository.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]domain.Agent)}
}

func (r *AgentRepository) Create(_ context.Context, a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = *a
	return nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (r *AgentRepository) GetByRemoteID(_ context.Context, remoteID string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if a.RemoteID != "" && a.RemoteID == remoteID {
			a := a
			return &a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *AgentRepository) ListByUser(_ context.Context, userID string) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := []domain.Agent{}
	for _, a := range r.agents {
		if a.UserID == userID {
			agents = append(agents, a)
		}
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.After(agents[j].CreatedAt)
	})
	return agents, nil
}

func (r *AgentRepository) Update(_ context.Context, a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.ID]; !ok {
		return apperrors.NotFound("agent", a.ID)
	}
	r.agents[a.ID] = *a
	return nil
}

func (r *AgentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return apperrors.NotFound("agent", id)
	}
	delete(r.agents, id)
	return nil
}

// PhoneNumberRepository is an in-memory repository.PhoneNumberRepository.
type PhoneNumberRepository struct {
	mu      sync.RWMutex
	numbers map[string]domain.PhoneNumber
}

// NewPhoneNumberRepository creates an empty in-memory phone number repository.
func NewPhoneNumberRepository() *PhoneNumberRepository {
	return &PhoneNumberRepository{numbers: make(map[string]domain.PhoneNumber)}
}

func (r *PhoneNumberRepository) Create(_ context.Context, n *domain.PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers[n.ID] = *n
	return nil
}

func (r *PhoneNumberRepository) GetByID(_ context.Context, id string) (*domain.PhoneNumber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.numbers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &n, nil
}

func (r *PhoneNumberRepository) GetByRemoteID(_ context.Context, remoteID string) (*domain.PhoneNumber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.numbers {
		if n.RemoteID != "" && n.RemoteID == remoteID {
			n := n
			return &n, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *PhoneNumberRepository) ListByUser(_ context.Context, userID string) ([]domain.PhoneNumber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	numbers := []domain.PhoneNumber{}
	for _, n := range r.numbers {
		if n.UserID == userID {
			numbers = append(numbers, n)
		}
	}
	sort.Slice(numbers, func(i, j int) bool {
		return numbers[i].CreatedAt.After(numbers[j].CreatedAt)
	})
	return numbers, nil
}

func (r *PhoneNumberRepository) Update(_ context.Context, n *domain.PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.numbers[n.ID]; !ok {
		return apperrors.NotFound("phone number", n.ID)
	}
	r.numbers[n.ID] = *n
	return nil
}

func (r *PhoneNumberRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.numbers[id]; !ok {
		return apperrors.NotFound("phone number", id)
	}
	delete(r.numbers, id)
	return nil
}

// CallRepository is an in-memory repository.CallRepository.
type CallRepository struct {
	mu    sync.RWMutex
	calls map[string]domain.Call
}

// NewCallRepository creates an empty in-memory call repository.
func NewCallRepository() *CallRepository {
	return &CallRepository{calls: make(map[string]domain.Call)}
}

func (r *CallRepository) Create(_ context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.RemoteID != "" {
		for _, existing := range r.calls {
			if existing.RemoteID == c.RemoteID {
				return apperrors.AlreadyExists("call", "remote_id", c.RemoteID)
			}
		}
	}
	r.calls[c.ID] = *c
	return nil
}

func (r *CallRepository) Upsert(_ context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.RemoteID != "" {
		for id, existing := range r.calls {
			if existing.RemoteID == c.RemoteID {
				merged := *c
				merged.ID = existing.ID
				// ended_at is write-once, matching the SQL COALESCE.
				if existing.EndedAt != nil {
					merged.EndedAt = existing.EndedAt
				}
				r.calls[id] = merged
				return nil
			}
		}
	}
	r.calls[c.ID] = *c
	return nil
}

func (r *CallRepository) GetByID(_ context.Context, id string) (*domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r *CallRepository) GetByRemoteID(_ context.Context, remoteID string) (*domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.calls {
		if c.RemoteID != "" && c.RemoteID == remoteID {
			c := c
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *CallRepository) ListByUser(_ context.Context, userID string, filter repository.CallFilter) ([]domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calls := []domain.Call{}
	for _, c := range r.calls {
		if c.UserID != userID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, c.Status) {
			continue
		}
		if filter.AgentID != nil && c.AgentID != *filter.AgentID {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		calls = append(calls, c)
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].CreatedAt.After(calls[j].CreatedAt)
	})
	return calls, nil
}

func (r *CallRepository) Update(_ context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[c.ID]; !ok {
		return apperrors.NotFound("call", c.ID)
	}
	r.calls[c.ID] = *c
	return nil
}

func (r *CallRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[id]; !ok {
		return apperrors.NotFound("call", id)
	}
	delete(r.calls, id)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
