package service

import (
	"context"
	"math"
	"time"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
)

// AnalyticsService derives dashboard and period statistics from the
// reconciled call set. All figures are computed in memory over one listing;
// there are no separate aggregate queries since per-user call volumes are
// modest.
type AnalyticsService struct {
	agents     repository.AgentRepository
	phones     repository.PhoneNumberRepository
	reconciler *Reconciler
	now        func() time.Time
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	agents repository.AgentRepository,
	phones repository.PhoneNumberRepository,
	reconciler *Reconciler,
) *AnalyticsService {
	return &AnalyticsService{
		agents:     agents,
		phones:     phones,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// DashboardStats is the headline view shown on the dashboard landing page.
type DashboardStats struct {
	TotalAgents        int     `json:"total_agents"`
	ActiveAgents       int     `json:"active_agents"`
	ActivePhoneNumbers int     `json:"active_phone_numbers"`
	TotalCalls         int     `json:"total_calls"`
	RecentCalls        int     `json:"recent_calls"`
	CallsToday         int     `json:"calls_today"`
	CallsThisMonth     int     `json:"calls_this_month"`
	ActiveCalls        int     `json:"active_calls"`
	MissedCalls        int     `json:"missed_calls"`
	RecordedCalls      int     `json:"recorded_calls"`
	QueuedCalls        int     `json:"queued_calls"`
	TotalCost          float64 `json:"total_cost"`
	AverageCostPerCall float64 `json:"average_cost_per_call"`
	TotalCallMinutes   float64 `json:"total_call_minutes"`
	AverageDuration    float64 `json:"average_duration_minutes"`
}

// CallAnalytics is the period report for the analytics page.
type CallAnalytics struct {
	PeriodDays      int                       `json:"period_days"`
	Summary         CallAnalyticsSummary      `json:"summary"`
	CallsByDay      map[string]DirectionCount `json:"calls_by_day"`
	CallsByStatus   map[string]int            `json:"calls_by_status"`
	AgentStatistics map[string]AgentStats     `json:"agent_statistics"`
}

// CallAnalyticsSummary aggregates the period's headline numbers.
type CallAnalyticsSummary struct {
	TotalCalls             int     `json:"total_calls"`
	SuccessfulCalls        int     `json:"successful_calls"`
	FailedCalls            int     `json:"failed_calls"`
	SuccessRate            float64 `json:"success_rate"`
	TotalDurationMinutes   float64 `json:"total_duration_minutes"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
	TotalCost              float64 `json:"total_cost"`
	AverageCostPerCall     float64 `json:"average_cost_per_call"`
}

// DirectionCount splits a day's calls by direction.
type DirectionCount struct {
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
}

// AgentStats aggregates per-agent call volume.
type AgentStats struct {
	Total           int `json:"total"`
	Successful      int `json:"successful"`
	DurationSeconds int `json:"duration_seconds"`
}

// Dashboard computes the landing page statistics from the reconciled call
// set.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (*DashboardStats, error) {
	calls, err := s.reconciler.ListCalls(ctx, userID, repository.CallFilter{})
	if err != nil {
		return nil, err
	}
	agents, err := s.agents.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	phones, err := s.phones.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	stats := &DashboardStats{TotalAgents: len(agents), TotalCalls: len(calls)}
	for i := range agents {
		if agents[i].Status == domain.AgentStatusActive {
			stats.ActiveAgents++
		}
	}
	for i := range phones {
		if phones[i].Status == domain.PhoneNumberStatusActive {
			stats.ActivePhoneNumbers++
		}
	}

	var totalDuration int
	var completedDuration, completedCount int
	for i := range calls {
		c := &calls[i]
		totalDuration += c.DurationSeconds()
		if c.Cost != nil {
			stats.TotalCost += *c.Cost
		}
		if !c.CreatedAt.Before(weekAgo) {
			stats.RecentCalls++
		}
		if !c.CreatedAt.Before(today) {
			stats.CallsToday++
		}
		if !c.CreatedAt.Before(monthStart) {
			stats.CallsThisMonth++
		}
		if c.IsActive() {
			stats.ActiveCalls++
		}
		if c.IsMissed() {
			stats.MissedCalls++
		}
		if c.HasRecording() {
			stats.RecordedCalls++
		}
		if c.Status == domain.CallStatusQueued {
			stats.QueuedCalls++
		}
		if c.IsTerminal() && c.DurationSeconds() > 0 {
			completedDuration += c.DurationSeconds()
			completedCount++
		}
	}

	stats.TotalCallMinutes = round2(float64(totalDuration) / 60)
	if completedCount > 0 {
		stats.AverageDuration = round2(float64(completedDuration) / float64(completedCount) / 60)
	}
	if len(calls) > 0 {
		stats.AverageCostPerCall = round2(stats.TotalCost / float64(len(calls)))
	}
	stats.TotalCost = round2(stats.TotalCost)
	return stats, nil
}

// CallAnalytics computes the period report over calls started within the
// last `days` days.
func (s *AnalyticsService) CallAnalytics(ctx context.Context, userID string, days int) (*CallAnalytics, error) {
	if days <= 0 {
		days = 30
	}

	calls, err := s.reconciler.ListCalls(ctx, userID, repository.CallFilter{})
	if err != nil {
		return nil, err
	}
	agents, err := s.agents.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	agentNames := make(map[string]string, len(agents))
	for i := range agents {
		agentNames[agents[i].ID] = agents[i].Name
	}

	cutoff := s.now().UTC().AddDate(0, 0, -days)

	report := &CallAnalytics{
		PeriodDays:      days,
		CallsByDay:      make(map[string]DirectionCount),
		CallsByStatus:   make(map[string]int),
		AgentStatistics: make(map[string]AgentStats),
	}

	var totalDuration int
	for i := range calls {
		c := &calls[i]
		if c.StartedAt == nil || c.StartedAt.Before(cutoff) {
			continue
		}

		report.Summary.TotalCalls++
		totalDuration += c.DurationSeconds()
		if c.Cost != nil {
			report.Summary.TotalCost += *c.Cost
		}

		successful := c.Status == domain.CallStatusEnded && !c.IsMissed()
		if successful {
			report.Summary.SuccessfulCalls++
		} else if c.IsMissed() || c.Status == domain.CallStatusError {
			report.Summary.FailedCalls++
		}

		day := c.StartedAt.Format("2006-01-02")
		counts := report.CallsByDay[day]
		if c.Direction == domain.CallDirectionOutbound {
			counts.Outbound++
		} else {
			counts.Inbound++
		}
		report.CallsByDay[day] = counts

		status := c.Status
		if status == "" {
			status = "unknown"
		}
		report.CallsByStatus[status]++

		if name, ok := agentNames[c.AgentID]; ok {
			agg := report.AgentStatistics[name]
			agg.Total++
			if successful {
				agg.Successful++
			}
			agg.DurationSeconds += c.DurationSeconds()
			report.AgentStatistics[name] = agg
		}
	}

	if report.Summary.TotalCalls > 0 {
		total := float64(report.Summary.TotalCalls)
		report.Summary.SuccessRate = round2(float64(report.Summary.SuccessfulCalls) / total * 100)
		report.Summary.AverageDurationMinutes = round2(float64(totalDuration) / total / 60)
		report.Summary.AverageCostPerCall = round4(report.Summary.TotalCost / total)
	}
	report.Summary.TotalDurationMinutes = round2(float64(totalDuration) / 60)
	report.Summary.TotalCost = round4(report.Summary.TotalCost)
	return report, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
