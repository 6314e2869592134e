package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/pkg/database"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// AgentRepository implements repository.AgentRepository using PostgreSQL.
type AgentRepository struct {
	pool database.DBTX
}

// NewAgentRepository creates a new PostgreSQL-backed agent repository.
func NewAgentRepository(pool database.DBTX) *AgentRepository {
	return &AgentRepository{pool: pool}
}

const agentColumns = `id, remote_id, user_id, name, industry, role, description,
	system_prompt, first_message, voice, voice_provider, voice_gender,
	model, model_provider, language, status, created_at, updated_at`

// Create inserts a new agent into the database.
func (r *AgentRepository) Create(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		nullIfEmpty(a.RemoteID),
		a.UserID,
		a.Name,
		a.Industry,
		a.Role,
		a.Description,
		a.SystemPrompt,
		a.FirstMessage,
		a.Voice,
		a.VoiceProvider,
		a.VoiceGender,
		a.Model,
		a.ModelProvider,
		a.Language,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("agent", "remote_id", a.RemoteID)
		}
		return fmt.Errorf("insert agent: %w", err)
	}

	return nil
}

// GetByID retrieves an agent by its ID.
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.scanAgent(ctx, query, id)
}

// GetByRemoteID retrieves an agent by its provider-side identifier.
func (r *AgentRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE remote_id = $1`
	return r.scanAgent(ctx, query, remoteID)
}

// ListByUser returns all agents owned by the given user, newest first.
func (r *AgentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []domain.Agent{}
	for rows.Next() {
		a, err := scanAgentRow(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}

	return agents, nil
}

// Update modifies an existing agent in the database.
func (r *AgentRepository) Update(ctx context.Context, a *domain.Agent) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE agents
		SET remote_id = $1, name = $2, industry = $3, role = $4, description = $5,
		    system_prompt = $6, first_message = $7, voice = $8, voice_provider = $9,
		    voice_gender = $10, model = $11, model_provider = $12, language = $13,
		    status = $14, updated_at = $15
		WHERE id = $16`

	ct, err := r.pool.Exec(ctx, query,
		nullIfEmpty(a.RemoteID),
		a.Name,
		a.Industry,
		a.Role,
		a.Description,
		a.SystemPrompt,
		a.FirstMessage,
		a.Voice,
		a.VoiceProvider,
		a.VoiceGender,
		a.Model,
		a.ModelProvider,
		a.Language,
		a.Status,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("agent", a.ID)
	}

	return nil
}

// Delete removes an agent by its ID.
func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("agent", id)
	}

	return nil
}

func (r *AgentRepository) scanAgent(ctx context.Context, query string, args ...any) (*domain.Agent, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	a, err := scanAgentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// scanAgentRow scans one agent from a row-like scanner.
func scanAgentRow(row pgx.Row) (*domain.Agent, error) {
	var (
		a        domain.Agent
		remoteID *string
	)

	err := row.Scan(
		&a.ID,
		&remoteID,
		&a.UserID,
		&a.Name,
		&a.Industry,
		&a.Role,
		&a.Description,
		&a.SystemPrompt,
		&a.FirstMessage,
		&a.Voice,
		&a.VoiceProvider,
		&a.VoiceGender,
		&a.Model,
		&a.ModelProvider,
		&a.Language,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan agent row: %w", err)
	}

	a.RemoteID = orEmpty(remoteID)
	return &a, nil
}
