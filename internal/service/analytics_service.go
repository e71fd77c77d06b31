package service

import (
	"context"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
	"github.com/shopspring/decimal"
)

// UpcomingWindow is how far ahead a task counts as upcoming.
const UpcomingWindow = 7 * 24 * time.Hour

// LegacyInProgressKey mirrors the in-progress count for clients that still read
// the old three-key distribution {todo, inprogress, done}.
const LegacyInProgressKey = "inprogress"

// ============================================
// RESPONSE MODELS
// ============================================

// StatusDistribution always carries every canonical status key plus LegacyInProgressKey.
type StatusDistribution map[string]int

type Completion struct {
	Total      int `json:"total"`
	Done       int `json:"done"`
	Percentage int `json:"percentage"`
}

type DueDateTracking struct {
	Overdue  int       `json:"overdue"`
	Upcoming int       `json:"upcoming"`
	AsOf     time.Time `json:"asOf"`
}

type AnalyticsSummary struct {
	ProjectID          string             `json:"projectId"`
	StatusDistribution StatusDistribution `json:"statusDistribution"`
	Completion         Completion         `json:"completion"`
	DueDates           DueDateTracking    `json:"dueDates"`
}

// ============================================
// Analytics Service
// ============================================

type AnalyticsService interface {
	StatusDistribution(ctx context.Context, ident Identity, projectID string) (StatusDistribution, error)
	Completion(ctx context.Context, ident Identity, projectID string) (Completion, error)
	DueDates(ctx context.Context, ident Identity, projectID string) (DueDateTracking, error)
	Summary(ctx context.Context, ident Identity, projectID string) (*AnalyticsSummary, error)
}

// taskStats is the part of the task repository analytics reads from.
type taskStats interface {
	CountByStatus(ctx context.Context, projectID string) (map[string]int, error)
	OpenDueDates(ctx context.Context, projectID, excludeStatus string) ([]time.Time, error)
}

type analyticsService struct {
	taskRepo taskStats
	access   AccessService
	now      func() time.Time
}

func NewAnalyticsService(taskRepo repository.TaskRepository, access AccessService, now func() time.Time) AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &analyticsService{taskRepo: taskRepo, access: access, now: now}
}

func (s *analyticsService) counts(ctx context.Context, ident Identity, projectID string) (map[string]int, error) {
	if _, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID); err != nil {
		return nil, err
	}
	raw, err := s.taskRepo.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, storeErr("count tasks by status", err)
	}
	return raw, nil
}

func (s *analyticsService) StatusDistribution(ctx context.Context, ident Identity, projectID string) (StatusDistribution, error) {
	raw, err := s.counts(ctx, ident, projectID)
	if err != nil {
		return nil, err
	}
	return Distribute(raw), nil
}

func (s *analyticsService) Completion(ctx context.Context, ident Identity, projectID string) (Completion, error) {
	raw, err := s.counts(ctx, ident, projectID)
	if err != nil {
		return Completion{}, err
	}
	return Complete(raw), nil
}

func (s *analyticsService) DueDates(ctx context.Context, ident Identity, projectID string) (DueDateTracking, error) {
	if _, err := s.access.RequireProjectAccess(ctx, projectID, ident.UserID); err != nil {
		return DueDateTracking{}, err
	}
	return s.dueDates(ctx, projectID, s.now())
}

// dueDates evaluates both buckets against the same instant.
func (s *analyticsService) dueDates(ctx context.Context, projectID string, now time.Time) (DueDateTracking, error) {
	dues, err := s.taskRepo.OpenDueDates(ctx, projectID, types.StatusDone)
	if err != nil {
		return DueDateTracking{}, storeErr("load due dates", err)
	}
	return BucketDueDates(dues, now), nil
}

// BucketDueDates splits due dates into overdue (before now) and upcoming
// (now through now+7d). A date falls in at most one bucket.
func BucketDueDates(dues []time.Time, now time.Time) DueDateTracking {
	t := DueDateTracking{AsOf: now}
	horizon := now.Add(UpcomingWindow)
	for _, due := range dues {
		switch {
		case due.Before(now):
			t.Overdue++
		case !due.After(horizon):
			t.Upcoming++
		}
	}
	return t
}

func (s *analyticsService) Summary(ctx context.Context, ident Identity, projectID string) (*AnalyticsSummary, error) {
	raw, err := s.counts(ctx, ident, projectID)
	if err != nil {
		return nil, err
	}
	due, err := s.dueDates(ctx, projectID, s.now())
	if err != nil {
		return nil, err
	}
	return &AnalyticsSummary{
		ProjectID:          projectID,
		StatusDistribution: Distribute(raw),
		Completion:         Complete(raw),
		DueDates:           due,
	}, nil
}

// Distribute folds stored status counts onto the canonical keys, zero-filled.
// Legacy spellings count toward their canonical status; unknown values are ignored.
func Distribute(raw map[string]int) StatusDistribution {
	dist := make(StatusDistribution, len(types.ValidTaskStatuses)+1)
	for _, status := range types.ValidTaskStatuses {
		dist[status] = 0
	}
	for status, n := range raw {
		key := types.NormalizeTaskStatus(status)
		if _, ok := dist[key]; ok {
			dist[key] += n
		}
	}
	dist[LegacyInProgressKey] = dist[types.StatusInProgress]
	return dist
}

// Complete computes round(done/total*100), half away from zero, and 0 for an empty project.
func Complete(raw map[string]int) Completion {
	var c Completion
	for status, n := range raw {
		c.Total += n
		if types.NormalizeTaskStatus(status) == types.StatusDone {
			c.Done += n
		}
	}
	if c.Total == 0 {
		return c
	}
	pct := decimal.NewFromInt(int64(c.Done)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(c.Total))).
		Round(0)
	c.Percentage = int(pct.IntPart())
	return c
}
