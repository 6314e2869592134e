package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	"github.com/cloudrep/voicedesk/internal/vapi"
)

// RemoteCallLister is the slice of the provider client the reconciler needs.
type RemoteCallLister interface {
	ListCalls(ctx context.Context, params vapi.ListCallsParams) ([]vapi.Call, error)
	GetCall(ctx context.Context, id string) (*vapi.Call, error)
}

// Reconciler merges the provider's call list into the local mirror. The
// provider is authoritative for call state; the local store is authoritative
// for which calls exist and who owns them. Reads trigger reconciliation
// (pull-based sync); there is no background loop.
type Reconciler struct {
	remote RemoteCallLister
	agents repository.AgentRepository
	phones repository.PhoneNumberRepository
	calls  repository.CallRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewReconciler wires a reconciler over the provider client and the local
// repositories.
func NewReconciler(
	remote RemoteCallLister,
	agents repository.AgentRepository,
	phones repository.PhoneNumberRepository,
	calls repository.CallRepository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		remote: remote,
		agents: agents,
		phones: phones,
		calls:  calls,
		logger: logger,
		now:    time.Now,
	}
}

// ownershipFilter maps provider-side agent and phone number IDs back to the
// local records that own them.
type ownershipFilter struct {
	agentsByRemote map[string]*domain.Agent
	phonesByRemote map[string]*domain.PhoneNumber
}

func (f *ownershipFilter) owns(call *vapi.Call) bool {
	if call.PhoneNumberID != "" {
		if _, ok := f.phonesByRemote[call.PhoneNumberID]; ok {
			return true
		}
	}
	if call.AssistantID != "" {
		if _, ok := f.agentsByRemote[call.AssistantID]; ok {
			return true
		}
	}
	return false
}

// buildOwnershipFilter collects the remote IDs of the user's agents and phone
// numbers. The provider's call list is unscoped, so this set is the only way
// to decide which remote calls belong to the user.
func (r *Reconciler) buildOwnershipFilter(ctx context.Context, userID string) (*ownershipFilter, error) {
	agents, err := r.agents.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	phones, err := r.phones.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	f := &ownershipFilter{
		agentsByRemote: make(map[string]*domain.Agent, len(agents)),
		phonesByRemote: make(map[string]*domain.PhoneNumber, len(phones)),
	}
	for i := range agents {
		if agents[i].RemoteID != "" {
			f.agentsByRemote[agents[i].RemoteID] = &agents[i]
		}
	}
	for i := range phones {
		if phones[i].RemoteID != "" {
			f.phonesByRemote[phones[i].RemoteID] = &phones[i]
		}
	}
	return f, nil
}

// ListCalls returns the reconciled call list for a user, newest first. When
// the provider is unreachable the local mirror is returned unchanged; callers
// cannot tell the difference beyond freshness.
func (r *Reconciler) ListCalls(ctx context.Context, userID string, filter repository.CallFilter) ([]domain.Call, error) {
	remoteCalls, err := r.remote.ListCalls(ctx, vapi.ListCallsParams{})
	if err != nil {
		r.logger.WarnContext(ctx, "provider unreachable, serving local calls",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return r.calls.ListByUser(ctx, userID, filter)
	}

	owned, err := r.mergeRemoteCalls(ctx, userID, remoteCalls)
	if err != nil {
		return nil, err
	}

	merged := applyFilter(owned, filter)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// mergeRemoteCalls joins owned remote calls against the local store by
// remote_id and persists the merged records. Persistence failures are logged,
// not raised: the read path stays available and the caller still receives the
// in-memory merged view.
func (r *Reconciler) mergeRemoteCalls(ctx context.Context, userID string, remoteCalls []vapi.Call) ([]domain.Call, error) {
	filter, err := r.buildOwnershipFilter(ctx, userID)
	if err != nil {
		return nil, err
	}

	local, err := r.calls.ListByUser(ctx, userID, repository.CallFilter{})
	if err != nil {
		return nil, err
	}
	localByRemote := make(map[string]*domain.Call, len(local))
	for i := range local {
		if local[i].RemoteID != "" {
			localByRemote[local[i].RemoteID] = &local[i]
		}
	}

	seen := make(map[string]struct{}, len(remoteCalls))
	merged := make([]domain.Call, 0, len(local))

	for i := range remoteCalls {
		rc := &remoteCalls[i]
		if rc.ID == "" || !filter.owns(rc) {
			continue
		}
		seen[rc.ID] = struct{}{}

		var call *domain.Call
		if existing, ok := localByRemote[rc.ID]; ok {
			call = existing
			mergeRemoteCall(call, rc)
		} else {
			call = r.newCallFromRemote(userID, rc, filter)
		}

		if err := r.calls.Upsert(ctx, call); err != nil {
			r.logger.ErrorContext(ctx, "failed to persist reconciled call",
				slog.String("remote_id", rc.ID),
				slog.String("error", err.Error()),
			)
		}
		merged = append(merged, *call)
	}

	// Local records the provider no longer lists (or that never had a remote
	// counterpart) stay in the view; history is never dropped.
	for i := range local {
		if local[i].RemoteID != "" {
			if _, ok := seen[local[i].RemoteID]; ok {
				continue
			}
		}
		merged = append(merged, local[i])
	}
	return merged, nil
}

// SyncCall refreshes a single call from the provider. On provider failure the
// local record is returned as-is.
func (r *Reconciler) SyncCall(ctx context.Context, call *domain.Call) (*domain.Call, error) {
	if call.RemoteID == "" {
		return call, nil
	}

	rc, err := r.remote.GetCall(ctx, call.RemoteID)
	if err != nil {
		r.logger.WarnContext(ctx, "provider unreachable, serving local call",
			slog.String("remote_id", call.RemoteID),
			slog.String("error", err.Error()),
		)
		return call, nil
	}

	mergeRemoteCall(call, rc)
	if err := r.calls.Upsert(ctx, call); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist synced call",
			slog.String("remote_id", call.RemoteID),
			slog.String("error", err.Error()),
		)
	}
	return call, nil
}

// newCallFromRemote builds a local record for a remote call discovered during
// reconciliation. Fields absent remotely stay at their nullable zero values
// so "unknown" stays distinct from "zero".
func (r *Reconciler) newCallFromRemote(userID string, rc *vapi.Call, filter *ownershipFilter) *domain.Call {
	now := r.now().UTC()
	call := &domain.Call{
		ID:           uuid.New().String(),
		RemoteID:     rc.ID,
		UserID:       userID,
		Status:       rc.Status,
		EndedReason:  rc.EndedReason,
		Cost:         rc.Cost,
		RecordingURL: rc.RecordingURL,
		Transcript:   rc.Transcript,
		Type:         domain.CallTypeCall,
		Direction:    callDirection(rc),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if rc.Status == "" {
		call.Status = domain.CallStatusInProgress
	}
	if agent, ok := filter.agentsByRemote[rc.AssistantID]; ok {
		call.AgentID = agent.ID
	}
	if phone, ok := filter.phonesByRemote[rc.PhoneNumberID]; ok {
		call.PhoneNumberID = phone.ID
		call.PhoneNumber = phone.Number
	}
	if rc.Customer != nil {
		call.CustomerNumber = rc.Customer.Number
	}
	call.StartedAt = parseRemoteTime(rc.StartedAt)
	call.EndedAt = parseRemoteTime(rc.EndedAt)
	if created := parseRemoteTime(rc.CreatedAt); created != nil {
		call.CreatedAt = *created
	}
	applyDuration(call)
	return call
}

// mergeRemoteCall applies remote-wins-if-present: each remote field
// overwrites the local one only when the remote value is set. ended_at is
// write-once so a late empty snapshot cannot erase a recorded end time.
func mergeRemoteCall(call *domain.Call, rc *vapi.Call) {
	if rc.Status != "" {
		call.Status = rc.Status
	}
	if rc.EndedReason != "" {
		call.EndedReason = rc.EndedReason
	}
	if rc.Duration != nil {
		call.Duration = rc.Duration
	}
	if rc.Cost != nil {
		call.Cost = rc.Cost
	}
	if rc.RecordingURL != "" {
		call.RecordingURL = rc.RecordingURL
	}
	if rc.Transcript != "" {
		call.Transcript = rc.Transcript
	}
	if rc.Customer != nil && rc.Customer.Number != "" {
		call.CustomerNumber = rc.Customer.Number
	}
	if ts := parseRemoteTime(rc.StartedAt); ts != nil {
		call.StartedAt = ts
	}
	if call.EndedAt == nil {
		call.EndedAt = parseRemoteTime(rc.EndedAt)
	}
	applyDuration(call)
}

// applyDuration computes duration from the started/ended timestamps when both
// are known and no duration has been recorded.
func applyDuration(call *domain.Call) {
	if call.Duration != nil || call.StartedAt == nil || call.EndedAt == nil {
		return
	}
	secs := int(call.EndedAt.Sub(*call.StartedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	call.Duration = &secs
}

// parseRemoteTime parses the provider's ISO-8601 timestamps. A trailing "Z"
// is UTC; missing or malformed values come back nil.
func parseRemoteTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

func callDirection(rc *vapi.Call) string {
	if strings.Contains(rc.Type, "outbound") {
		return domain.CallDirectionOutbound
	}
	return domain.CallDirectionInbound
}

// applyFilter evaluates a repository.CallFilter in memory, mirroring the SQL
// filter so the merged and fallback paths return the same shape.
func applyFilter(calls []domain.Call, filter repository.CallFilter) []domain.Call {
	out := make([]domain.Call, 0, len(calls))
	for i := range calls {
		c := &calls[i]
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, c.Status) {
			continue
		}
		if filter.AgentID != nil && c.AgentID != *filter.AgentID {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// QueueSummary aggregates the queued-call view.
type QueueSummary struct {
	Calls         []domain.Call `json:"calls"`
	TotalWaitTime int           `json:"total_wait_time"`
}

// ActiveCalls returns the user's in-flight calls.
func (r *Reconciler) ActiveCalls(ctx context.Context, userID string) ([]domain.Call, error) {
	calls, err := r.ListCalls(ctx, userID, repository.CallFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Call, 0, len(calls))
	for i := range calls {
		if calls[i].IsActive() {
			out = append(out, calls[i])
		}
	}
	return out, nil
}

// MissedCalls returns calls that ended without being answered.
func (r *Reconciler) MissedCalls(ctx context.Context, userID string) ([]domain.Call, error) {
	calls, err := r.ListCalls(ctx, userID, repository.CallFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Call, 0, len(calls))
	for i := range calls {
		if calls[i].IsMissed() {
			out = append(out, calls[i])
		}
	}
	return out, nil
}

// Recordings returns calls carrying a recording, optionally restricted to one
// agent.
func (r *Reconciler) Recordings(ctx context.Context, userID string, agentID string) ([]domain.Call, error) {
	filter := repository.CallFilter{}
	if agentID != "" {
		filter.AgentID = &agentID
	}
	calls, err := r.ListCalls(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Call, 0, len(calls))
	for i := range calls {
		if calls[i].HasRecording() {
			out = append(out, calls[i])
		}
	}
	return out, nil
}

// QueuedCalls returns calls waiting for an agent, oldest first, with the
// aggregate wait time across the queue in seconds.
func (r *Reconciler) QueuedCalls(ctx context.Context, userID string) (*QueueSummary, error) {
	calls, err := r.ListCalls(ctx, userID, repository.CallFilter{Statuses: []string{domain.CallStatusQueued}})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].CreatedAt.Before(calls[j].CreatedAt)
	})

	now := r.now().UTC()
	total := 0
	for i := range calls {
		wait := int(now.Sub(calls[i].CreatedAt).Seconds())
		if wait > 0 {
			total += wait
		}
	}
	return &QueueSummary{Calls: calls, TotalWaitTime: total}, nil
}
