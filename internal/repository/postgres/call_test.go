package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/pkg/database"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupCallRepo(t *testing.T) (*CallRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCallRepository(mock)
	return repo, mock
}

func sampleCall() *domain.Call {
	started := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(2 * time.Minute)
	duration := 120
	cost := 0.42
	return &domain.Call{
		ID:             "0d4a4f2e-6f0c-4f4b-9a1e-000000000001",
		RemoteID:       "remote-call-1",
		UserID:         "0d4a4f2e-6f0c-4f4b-9a1e-000000000002",
		AgentID:        "0d4a4f2e-6f0c-4f4b-9a1e-000000000003",
		PhoneNumberID:  "0d4a4f2e-6f0c-4f4b-9a1e-000000000004",
		PhoneNumber:    "+15550001111",
		CustomerNumber: "+15552223333",
		Direction:      "outbound",
		Type:           "outboundPhoneCall",
		Status:         "ended",
		Duration:       &duration,
		Cost:           &cost,
		RecordingURL:   "https://recordings.example.com/1.wav",
		Transcript:     "AI: Hello\nUser: Hi",
		EndedReason:    "customer-ended-call",
		StartedAt:      &started,
		EndedAt:        &ended,
		CreatedAt:      started,
		UpdatedAt:      ended,
	}
}

func sampleCallArgs(c *domain.Call) []any {
	return []any{
		c.ID, c.RemoteID, c.UserID, c.AgentID, c.PhoneNumberID,
		c.PhoneNumber, c.CustomerNumber, c.Direction, c.Type, c.Status,
		c.Duration, c.Cost, c.RecordingURL, c.Transcript, c.EndedReason,
		c.StartedAt, c.EndedAt, c.CreatedAt, c.UpdatedAt,
	}
}

func callColumnNames() []string {
	return []string{
		"id", "remote_id", "user_id", "agent_id", "phone_number_id",
		"phone_number", "customer_number", "direction", "type", "status",
		"duration", "cost", "recording_url", "transcript", "ended_reason",
		"started_at", "ended_at", "created_at", "updated_at",
	}
}

func callRow(c *domain.Call) *pgxmock.Rows {
	return pgxmock.NewRows(callColumnNames()).
		AddRow(
			c.ID, &c.RemoteID, c.UserID, &c.AgentID, &c.PhoneNumberID,
			&c.PhoneNumber, &c.CustomerNumber, c.Direction, c.Type, c.Status,
			c.Duration, c.Cost, &c.RecordingURL, &c.Transcript, &c.EndedReason,
			c.StartedAt, c.EndedAt, c.CreatedAt, c.UpdatedAt,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCallRepository_Create_Success(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectExec("INSERT INTO calls").
		WithArgs(sampleCallArgs(c)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectExec("INSERT INTO calls").
		WithArgs(sampleCallArgs(c)...).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_Create_NullsEmptyOptionalFields(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	c.RemoteID = ""
	c.AgentID = ""
	c.PhoneNumberID = ""
	c.RecordingURL = ""
	c.Transcript = ""
	c.EndedReason = ""

	mock.ExpectExec("INSERT INTO calls").
		WithArgs(
			c.ID, nil, c.UserID, nil, nil,
			c.PhoneNumber, c.CustomerNumber, c.Direction, c.Type, c.Status,
			c.Duration, c.Cost, nil, nil, nil,
			c.StartedAt, c.EndedAt, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Upsert
// ---------------------------------------------------------------------------

func TestCallRepository_Upsert_ConflictOnRemoteID(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectExec("ON CONFLICT \\(remote_id\\) DO UPDATE").
		WithArgs(sampleCallArgs(c)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_Upsert_NoRemoteIDFallsBackToInsert(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	c.RemoteID = ""

	args := sampleCallArgs(c)
	args[1] = nil
	mock.ExpectExec("INSERT INTO calls").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestCallRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectQuery("SELECT (.+) FROM calls WHERE id =").
		WithArgs(c.ID).
		WillReturnRows(callRow(c))

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.RemoteID, got.RemoteID)
	assert.Equal(t, c.Status, got.Status)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 120, *got.Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM calls WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_GetByRemoteID_Success(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectQuery("SELECT (.+) FROM calls WHERE remote_id =").
		WithArgs(c.RemoteID).
		WillReturnRows(callRow(c))

	got, err := repo.GetByRemoteID(context.Background(), c.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListByUser
// ---------------------------------------------------------------------------

func TestCallRepository_ListByUser_NoFilter(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs(c.UserID).
		WillReturnRows(callRow(c))

	calls, err := repo.ListByUser(context.Background(), c.UserID, repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, c.ID, calls[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_ListByUser_StatusAndAgentFilter(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	agentID := c.AgentID
	mock.ExpectQuery("status IN \\(\\$2, \\$3\\)").
		WithArgs(c.UserID, "queued", "ringing", agentID).
		WillReturnRows(callRow(c))

	calls, err := repo.ListByUser(context.Background(), c.UserID, repository.CallFilter{
		Statuses: []string{"queued", "ringing"},
		AgentID:  &agentID,
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_ListByUser_Empty(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(callColumnNames()))

	calls, err := repo.ListByUser(context.Background(), "u-1", repository.CallFilter{})
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update / Delete
// ---------------------------------------------------------------------------

func TestCallRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	c := sampleCall()
	mock.ExpectExec("UPDATE calls").
		WithArgs(
			c.RemoteID, c.AgentID, c.PhoneNumberID, c.PhoneNumber,
			c.CustomerNumber, c.Direction, c.Type, c.Status,
			c.Duration, c.Cost, c.RecordingURL, c.Transcript,
			c.EndedReason, c.StartedAt, c.EndedAt, pgxmock.AnyArg(),
			c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepository_Delete_Success(t *testing.T) {
	repo, mock := setupCallRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM calls").
		WithArgs("call-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "call-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
