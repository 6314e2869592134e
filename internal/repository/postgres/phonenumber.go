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

// PhoneNumberRepository implements repository.PhoneNumberRepository using PostgreSQL.
type PhoneNumberRepository struct {
	pool database.DBTX
}

// NewPhoneNumberRepository creates a new PostgreSQL-backed phone number repository.
func NewPhoneNumberRepository(pool database.DBTX) *PhoneNumberRepository {
	return &PhoneNumberRepository{pool: pool}
}

const phoneNumberColumns = `id, remote_id, user_id, number, name, country,
	area_code, provider, agent_id, status, created_at, updated_at`

// Create inserts a new phone number into the database.
func (r *PhoneNumberRepository) Create(ctx context.Context, n *domain.PhoneNumber) error {
	query := `
		INSERT INTO phone_numbers (` + phoneNumberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		nullIfEmpty(n.RemoteID),
		n.UserID,
		n.Number,
		n.Name,
		n.Country,
		nullIfEmpty(n.AreaCode),
		n.Provider,
		nullIfEmpty(n.AgentID),
		n.Status,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("phone number", "remote_id", n.RemoteID)
		}
		return fmt.Errorf("insert phone number: %w", err)
	}

	return nil
}

// GetByID retrieves a phone number by its ID.
func (r *PhoneNumberRepository) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE id = $1`
	return r.scanPhoneNumber(ctx, query, id)
}

// GetByRemoteID retrieves a phone number by its provider-side identifier.
func (r *PhoneNumberRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE remote_id = $1`
	return r.scanPhoneNumber(ctx, query, remoteID)
}

// ListByUser returns all phone numbers owned by the given user, newest first.
func (r *PhoneNumberRepository) ListByUser(ctx context.Context, userID string) ([]domain.PhoneNumber, error) {
	query := `SELECT ` + phoneNumberColumns + ` FROM phone_numbers WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()

	numbers := []domain.PhoneNumber{}
	for rows.Next() {
		n, err := scanPhoneNumberRow(rows)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phone number rows: %w", err)
	}

	return numbers, nil
}

// Update modifies an existing phone number in the database.
func (r *PhoneNumberRepository) Update(ctx context.Context, n *domain.PhoneNumber) error {
	n.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE phone_numbers
		SET remote_id = $1, number = $2, name = $3, country = $4, area_code = $5,
		    provider = $6, agent_id = $7, status = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.pool.Exec(ctx, query,
		nullIfEmpty(n.RemoteID),
		n.Number,
		n.Name,
		n.Country,
		nullIfEmpty(n.AreaCode),
		n.Provider,
		nullIfEmpty(n.AgentID),
		n.Status,
		n.UpdatedAt,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("update phone number: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone number", n.ID)
	}

	return nil
}

// Delete removes a phone number by its ID.
func (r *PhoneNumberRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM phone_numbers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete phone number: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone number", id)
	}

	return nil
}

func (r *PhoneNumberRepository) scanPhoneNumber(ctx context.Context, query string, args ...any) (*domain.PhoneNumber, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	n, err := scanPhoneNumberRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

// scanPhoneNumberRow scans one phone number from a row-like scanner.
func scanPhoneNumberRow(row pgx.Row) (*domain.PhoneNumber, error) {
	var (
		n        domain.PhoneNumber
		remoteID *string
		areaCode *string
		agentID  *string
	)

	err := row.Scan(
		&n.ID,
		&remoteID,
		&n.UserID,
		&n.Number,
		&n.Name,
		&n.Country,
		&areaCode,
		&n.Provider,
		&agentID,
		&n.Status,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan phone number row: %w", err)
	}

	n.RemoteID = orEmpty(remoteID)
	n.AreaCode = orEmpty(areaCode)
	n.AgentID = orEmpty(agentID)
	return &n, nil
}
