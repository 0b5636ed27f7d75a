package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/activity/entity"
	actrepo "github.com/andvari/socialcore/internal/activity/repo"
	"github.com/andvari/socialcore/internal/httperr"
)

// Service records events and serves the activity read models.
type Service struct {
	repo *actrepo.ActivityRepo
}

func NewService(db *sqlx.DB, r *actrepo.ActivityRepo) *Service {
	if r == nil {
		r = actrepo.NewActivityRepo(db)
	}
	return &Service{repo: r}
}

// Repo exposes the underlying activity repository for collaborators
// that compose its transactional pieces.
func (s *Service) Repo() *actrepo.ActivityRepo { return s.repo }

// Record appends one event and bumps the aggregate atomically.
func (s *Service) Record(ctx context.Context, accountID int64, typ entity.ActivityType, subject *entity.SubjectRef, metadata map[string]any, ip, userAgent string) error {
	ev := &entity.Activity{
		AccountID: accountID,
		Type:      typ,
		UserAgent: userAgent,
	}
	if ip != "" {
		ev.IPAddress = &ip
	}
	if subject != nil {
		ev.SubjectKind = &subject.Kind
		ev.SubjectID = &subject.ID
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		ev.Metadata = raw
	}
	return s.repo.Record(ctx, ev)
}

// List pages the caller's own events.
func (s *Service) List(ctx context.Context, accountID int64, opts actrepo.ListOptions) ([]entity.Activity, int64, error) {
	return s.repo.List(ctx, accountID, opts)
}

// Get fetches one of the caller's events; anyone else's are NotFound.
func (s *Service) Get(ctx context.Context, accountID, id int64) (*entity.Activity, error) {
	ev, err := s.repo.GetByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

// Aggregate returns the caller's projection, creating it on first read.
func (s *Service) Aggregate(ctx context.Context, accountID int64) (*entity.Aggregate, error) {
	return s.repo.GetAggregate(ctx, accountID)
}

// SetShowActivity updates the only writable aggregate field.
func (s *Service) SetShowActivity(ctx context.Context, accountID int64, show bool) (*entity.Aggregate, error) {
	if err := s.repo.SetShowActivity(ctx, accountID, show); err != nil {
		return nil, err
	}
	return s.repo.GetAggregate(ctx, accountID)
}

// Stats is the activity overview response.
type Stats struct {
	TotalActivities  int64             `json:"total_activities"`
	ActivitiesByType map[string]int64  `json:"activities_by_type"`
	RecentActivities []entity.Activity `json:"recent_activities"`
	ActiveSessions   int64             `json:"active_sessions"`
	LastActive       time.Time         `json:"last_active"`
}

// Stats assembles totals, per-type counts, the ten newest events, and
// the active session count supplied by the caller.
func (s *Service) Stats(ctx context.Context, accountID int64, activeSessions int64) (*Stats, error) {
	agg, err := s.repo.GetAggregate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.CountsByType(ctx, accountID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.Recent(ctx, accountID, 10)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalActivities:  agg.TotalActivities,
		ActivitiesByType: byType,
		RecentActivities: recent,
		ActiveSessions:   activeSessions,
		LastActive:       agg.LastActive,
	}, nil
}

// PeriodMetric counts events from a period start onward.
type PeriodMetric struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
}

// Analytics is the engagement overview response.
type Analytics struct {
	Metrics         map[string]PeriodMetric `json:"metrics"`
	EngagementScore int64                   `json:"engagement_score"`
	ActivityTrend   string                  `json:"activity_trend"`
}

// Analytics computes rolling activity counts and a simple engagement
// score capped at 100.
func (s *Service) Analytics(ctx context.Context, accountID int64, now time.Time) (*Analytics, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekday := (int(today.Weekday()) + 6) % 7 // Monday-based
	thisWeek := today.AddDate(0, 0, -weekday)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last30 := today.AddDate(0, 0, -30)

	periods := map[string]time.Time{
		"today":        today,
		"this_week":    thisWeek,
		"this_month":   thisMonth,
		"last_30_days": last30,
	}
	metrics := make(map[string]PeriodMetric, len(periods))
	for name, start := range periods {
		n, err := s.repo.CountSince(ctx, accountID, start)
		if err != nil {
			return nil, err
		}
		metrics[name] = PeriodMetric{Start: start, Count: n}
	}

	score := metrics["last_30_days"].Count * 2
	if score > 100 {
		score = 100
	}
	return &Analytics{Metrics: metrics, EngagementScore: score, ActivityTrend: "stable"}, nil
}
