package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/repository/memory"
	"github.com/cloudrep/voicedesk/internal/vapi"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// fakeRemote is a scripted provider client for reconciler tests.
type fakeRemote struct {
	calls   []vapi.Call
	callErr error
	getErr  error
}

func (f *fakeRemote) ListCalls(ctx context.Context, params vapi.ListCallsParams) ([]vapi.Call, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.calls, nil
}

func (f *fakeRemote) GetCall(ctx context.Context, id string) (*vapi.Call, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.calls {
		if f.calls[i].ID == id {
			return &f.calls[i], nil
		}
	}
	return nil, apperrors.RemoteRejected(404, "call not found")
}

type reconcilerFixture struct {
	reconciler *Reconciler
	remote     *fakeRemote
	agents     *memory.AgentRepository
	phones     *memory.PhoneNumberRepository
	calls      *memory.CallRepository
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	f := &reconcilerFixture{
		remote: &fakeRemote{},
		agents: memory.NewAgentRepository(),
		phones: memory.NewPhoneNumberRepository(),
		calls:  memory.NewCallRepository(),
	}
	f.reconciler = NewReconciler(f.remote, f.agents, f.phones, f.calls, slog.Default())
	return f
}

func (f *reconcilerFixture) seedAgent(t *testing.T, userID, remoteID string) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		ID:       "agent-" + remoteID,
		RemoteID: remoteID,
		UserID:   userID,
		Name:     "Agent " + remoteID,
		Status:   domain.AgentStatusActive,
	}
	require.NoError(t, f.agents.Create(context.Background(), agent))
	return agent
}

func TestReconcilerCreatesOwnedRemoteCalls(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")

	f.remote.calls = []vapi.Call{
		{
			ID:          "rc-1",
			AssistantID: "a1",
			Status:      "ended",
			StartedAt:   "2026-08-01T10:00:00Z",
			EndedAt:     "2026-08-01T10:02:00Z",
		},
		{ID: "rc-2", AssistantID: "a2", Status: "ended"}, // different owner
	}

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)

	got := calls[0]
	assert.Equal(t, "rc-1", got.RemoteID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "ended", got.Status)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 120, *got.Duration)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, time.UTC, got.StartedAt.Location())

	// Persisted exactly once, joined by remote_id.
	stored, err := f.calls.GetByRemoteID(context.Background(), "rc-1")
	require.NoError(t, err)
	assert.Equal(t, got.ID, stored.ID)

	_, err = f.calls.GetByRemoteID(context.Background(), "rc-2")
	assert.Error(t, err)
}

func TestReconcilerIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")
	f.remote.calls = []vapi.Call{{ID: "rc-1", AssistantID: "a1", Status: "in-progress"}}

	for i := 0; i < 3; i++ {
		calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
		require.NoError(t, err)
		require.Len(t, calls, 1)
	}
}

func TestReconcilerRemoteWinsOnlyIfPresent(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")

	cost := 0.42
	existing := &domain.Call{
		ID:       "local-1",
		RemoteID: "rc-1",
		UserID:   "u1",
		Status:   "completed",
		Cost:     &cost,
	}
	require.NoError(t, f.calls.Create(context.Background(), existing))

	// Remote snapshot with empty status must not erase the local one.
	f.remote.calls = []vapi.Call{{ID: "rc-1", AssistantID: "a1", RecordingURL: "https://rec/1.wav"}}

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "completed", calls[0].Status)
	assert.Equal(t, "https://rec/1.wav", calls[0].RecordingURL)
	require.NotNil(t, calls[0].Cost)
	assert.Equal(t, 0.42, *calls[0].Cost)
}

func TestReconcilerRemoteDurationBeatsDerived(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")

	// Timestamps say 120 seconds, the provider says 117. Billing rounds
	// differently from wall clock, so the provider's figure wins.
	reported := 117
	f.remote.calls = []vapi.Call{{
		ID:          "rc-1",
		AssistantID: "a1",
		Status:      "ended",
		StartedAt:   "2026-08-01T10:00:00Z",
		EndedAt:     "2026-08-01T10:02:00Z",
		Duration:    &reported,
	}}

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Duration)
	assert.Equal(t, 117, *calls[0].Duration)
}

func TestReconcilerEndedAtIsWriteOnce(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")

	ended := time.Date(2026, 8, 1, 10, 2, 0, 0, time.UTC)
	existing := &domain.Call{
		ID:       "local-1",
		RemoteID: "rc-1",
		UserID:   "u1",
		Status:   "ended",
		EndedAt:  &ended,
	}
	require.NoError(t, f.calls.Create(context.Background(), existing))

	f.remote.calls = []vapi.Call{{ID: "rc-1", AssistantID: "a1", EndedAt: "2026-08-01T11:00:00Z"}}

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].EndedAt.Equal(ended))
}

func TestReconcilerFallsBackToLocalOnRemoteFailure(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "local-1", RemoteID: "rc-1", UserID: "u1", Status: "ended",
	}))

	f.remote.callErr = apperrors.RemoteUnavailable(context.DeadlineExceeded)

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "local-1", calls[0].ID)
}

func TestReconcilerKeepsLocalOnlyHistory(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedAgent(t, "u1", "a1")
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "local-old", RemoteID: "rc-old", UserID: "u1", Status: "ended",
	}))
	f.remote.calls = []vapi.Call{{ID: "rc-new", AssistantID: "a1", Status: "in-progress"}}

	calls, err := f.reconciler.ListCalls(context.Background(), "u1", repository.CallFilter{})
	require.NoError(t, err)
	assert.Len(t, calls, 2)
}

func TestReconcilerQueuedCallsFIFOWithWaitTime(t *testing.T) {
	f := newReconcilerFixture(t)
	f.remote.callErr = apperrors.RemoteUnavailable(context.DeadlineExceeded)

	now := time.Now().UTC()
	older := now.Add(-2 * time.Minute)
	newer := now.Add(-1 * time.Minute)
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "c-newer", RemoteID: "rc-2", UserID: "u1", Status: domain.CallStatusQueued, CreatedAt: newer,
	}))
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "c-older", RemoteID: "rc-1", UserID: "u1", Status: domain.CallStatusQueued, CreatedAt: older,
	}))

	summary, err := f.reconciler.QueuedCalls(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, summary.Calls, 2)
	assert.Equal(t, "c-older", summary.Calls[0].ID)
	assert.Equal(t, "c-newer", summary.Calls[1].ID)
	assert.GreaterOrEqual(t, summary.TotalWaitTime, 170) // ~3 minutes combined
}

func TestReconcilerDerivedViews(t *testing.T) {
	f := newReconcilerFixture(t)
	f.remote.callErr = apperrors.RemoteUnavailable(context.DeadlineExceeded)

	zero := 0
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "c-active", RemoteID: "rc-1", UserID: "u1", Status: domain.CallStatusInProgress,
	}))
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "c-missed", RemoteID: "rc-2", UserID: "u1", Status: domain.CallStatusEnded, Duration: &zero,
	}))
	require.NoError(t, f.calls.Create(context.Background(), &domain.Call{
		ID: "c-recorded", RemoteID: "rc-3", UserID: "u1", Status: domain.CallStatusEnded,
		RecordingURL: "https://rec/3.wav",
	}))

	active, err := f.reconciler.ActiveCalls(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "c-active", active[0].ID)

	missed, err := f.reconciler.MissedCalls(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, "c-missed", missed[0].ID)

	recordings, err := f.reconciler.Recordings(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "c-recorded", recordings[0].ID)
}

func TestParseRemoteTime(t *testing.T) {
	ts := parseRemoteTime("2026-08-01T10:00:00Z")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), *ts)

	offset := parseRemoteTime("2026-08-01T12:00:00+02:00")
	require.NotNil(t, offset)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), *offset)

	assert.Nil(t, parseRemoteTime(""))
	assert.Nil(t, parseRemoteTime("not-a-time"))
}
