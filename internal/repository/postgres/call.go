package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/pkg/database"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// CallRepository implements repository.CallRepository using PostgreSQL.
type CallRepository struct {
	pool database.DBTX
}

// NewCallRepository creates a new PostgreSQL-backed call repository.
func NewCallRepository(pool database.DBTX) *CallRepository {
	return &CallRepository{pool: pool}
}

const callColumns = `id, remote_id, user_id, agent_id, phone_number_id, phone_number,
	customer_number, direction, type, status, duration, cost, recording_url,
	transcript, ended_reason, started_at, ended_at, created_at, updated_at`

// Create inserts a new call into the database.
func (r *CallRepository) Create(ctx context.Context, c *domain.Call) error {
	query := `
		INSERT INTO calls (` + callColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query, r.callArgs(c)...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("call", "remote_id", c.RemoteID)
		}
		return fmt.Errorf("insert call: %w", err)
	}

	return nil
}

// Upsert inserts the call or updates the existing row with the same
// remote_id. Concurrent writers (webhook ingest and the reconciler) converge
// on a single row per provider call.
func (r *CallRepository) Upsert(ctx context.Context, c *domain.Call) error {
	if c.RemoteID == "" {
		return r.Create(ctx, c)
	}

	query := `
		INSERT INTO calls (` + callColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (remote_id) DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			phone_number_id = EXCLUDED.phone_number_id,
			phone_number = EXCLUDED.phone_number,
			customer_number = EXCLUDED.customer_number,
			direction = EXCLUDED.direction,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			duration = EXCLUDED.duration,
			cost = EXCLUDED.cost,
			recording_url = EXCLUDED.recording_url,
			transcript = EXCLUDED.transcript,
			ended_reason = EXCLUDED.ended_reason,
			started_at = EXCLUDED.started_at,
			ended_at = COALESCE(calls.ended_at, EXCLUDED.ended_at),
			updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "UpsertCall", query)
	_, err := r.pool.Exec(ctx, query, r.callArgs(c)...)
	end(err)
	if err != nil {
		return fmt.Errorf("upsert call: %w", err)
	}

	return nil
}

// GetByID retrieves a call by its ID.
func (r *CallRepository) GetByID(ctx context.Context, id string) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return r.scanCall(ctx, query, id)
}

// GetByRemoteID retrieves a call by its provider-side identifier.
func (r *CallRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE remote_id = $1`
	return r.scanCall(ctx, query, remoteID)
}

// ListByUser returns the user's calls matching the filter, newest first.
func (r *CallRepository) ListByUser(ctx context.Context, userID string, filter repository.CallFilter) ([]domain.Call, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argIndex := 2

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.AgentID != nil {
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", argIndex))
		args = append(args, *filter.AgentID)
		argIndex++
	}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s FROM calls
		WHERE %s
		ORDER BY created_at DESC`,
		callColumns, strings.Join(conditions, " AND "),
	)

	ctx, end := database.TraceQuery(ctx, "ListCallsByUser", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	calls := []domain.Call{}
	for rows.Next() {
		c, err := scanCallRow(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}

	return calls, nil
}

// Update modifies an existing call in the database.
func (r *CallRepository) Update(ctx context.Context, c *domain.Call) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE calls
		SET remote_id = $1, agent_id = $2, phone_number_id = $3, phone_number = $4,
		    customer_number = $5, direction = $6, type = $7, status = $8,
		    duration = $9, cost = $10, recording_url = $11, transcript = $12,
		    ended_reason = $13, started_at = $14, ended_at = $15, updated_at = $16
		WHERE id = $17`

	ct, err := r.pool.Exec(ctx, query,
		nullIfEmpty(c.RemoteID),
		nullIfEmpty(c.AgentID),
		nullIfEmpty(c.PhoneNumberID),
		nullIfEmpty(c.PhoneNumber),
		nullIfEmpty(c.CustomerNumber),
		c.Direction,
		c.Type,
		c.Status,
		c.Duration,
		c.Cost,
		nullIfEmpty(c.RecordingURL),
		nullIfEmpty(c.Transcript),
		nullIfEmpty(c.EndedReason),
		c.StartedAt,
		c.EndedAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("call", c.ID)
	}

	return nil
}

// Delete removes a call by its ID.
func (r *CallRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM calls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete call: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("call", id)
	}

	return nil
}

// callArgs returns the positional arguments matching callColumns order.
func (r *CallRepository) callArgs(c *domain.Call) []any {
	return []any{
		c.ID,
		nullIfEmpty(c.RemoteID),
		c.UserID,
		nullIfEmpty(c.AgentID),
		nullIfEmpty(c.PhoneNumberID),
		nullIfEmpty(c.PhoneNumber),
		nullIfEmpty(c.CustomerNumber),
		c.Direction,
		c.Type,
		c.Status,
		c.Duration,
		c.Cost,
		nullIfEmpty(c.RecordingURL),
		nullIfEmpty(c.Transcript),
		nullIfEmpty(c.EndedReason),
		c.StartedAt,
		c.EndedAt,
		c.CreatedAt,
		c.UpdatedAt,
	}
}

func (r *CallRepository) scanCall(ctx context.Context, query string, args ...any) (*domain.Call, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	c, err := scanCallRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// scanCallRow scans one call from a row-like scanner.
func scanCallRow(row pgx.Row) (*domain.Call, error) {
	var (
		c              domain.Call
		remoteID       *string
		agentID        *string
		phoneNumberID  *string
		phoneNumber    *string
		customerNumber *string
		recordingURL   *string
		transcript     *string
		endedReason    *string
	)

	err := row.Scan(
		&c.ID,
		&remoteID,
		&c.UserID,
		&agentID,
		&phoneNumberID,
		&phoneNumber,
		&customerNumber,
		&c.Direction,
		&c.Type,
		&c.Status,
		&c.Duration,
		&c.Cost,
		&recordingURL,
		&transcript,
		&endedReason,
		&c.StartedAt,
		&c.EndedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan call row: %w", err)
	}

	c.RemoteID = orEmpty(remoteID)
	c.AgentID = orEmpty(agentID)
	c.PhoneNumberID = orEmpty(phoneNumberID)
	c.PhoneNumber = orEmpty(phoneNumber)
	c.CustomerNumber = orEmpty(customerNumber)
	c.RecordingURL = orEmpty(recordingURL)
	c.Transcript = orEmpty(transcript)
	c.EndedReason = orEmpty(endedReason)
	return &c, nil
}
