// Package snapshot persists daily score snapshots and derives weekly
// summaries from them. Both paths are pure aggregation over already-written
// rows; checks are never recomputed here.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/scoring"
	"github.com/markhenning/buildcomply/internal/store"
)

type Scorer interface {
	Calculate(ctx context.Context, projectID uuid.UUID) (*scoring.Score, error)
}

type SnapshotStore interface {
	Insert(ctx context.Context, snap *models.ComplianceScoreSnapshot) error
	ListWindow(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]models.ComplianceScoreSnapshot, error)
	LatestBefore(ctx context.Context, projectID uuid.UUID, t time.Time) (*models.ComplianceScoreSnapshot, error)
	InsertSummary(ctx context.Context, sum *models.WeeklySummary) error
}

type CheckCounter interface {
	CountCriticalCreated(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error)
	CountResolved(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error)
}

type Service struct {
	scorer Scorer
	snaps  SnapshotStore
	checks CheckCounter
	now    func() time.Time
}

func NewService(scorer Scorer, snaps SnapshotStore, checks CheckCounter) *Service {
	return &Service{scorer: scorer, snaps: snaps, checks: checks, now: time.Now}
}

// TakeSnapshot scores the project and writes an immutable snapshot.
func (s *Service) TakeSnapshot(ctx context.Context, projectID uuid.UUID) (*models.ComplianceScoreSnapshot, error) {
	score, err := s.scorer.Calculate(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("calculate score: %w", err)
	}

	snap := &models.ComplianceScoreSnapshot{
		ID:                uuid.New(),
		ProjectID:         projectID,
		Score:             score.Score,
		CategoryBreakdown: score.CategoryBreakdown,
		ComputedAt:        score.ComputedAt,
	}
	if err := s.snaps.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}

// WriteWeeklySummary aggregates the trailing 7-day window: score delta from
// first to last snapshot, critical checks introduced, and findings resolved.
// A window with no snapshots produces no summary.
func (s *Service) WriteWeeklySummary(ctx context.Context, projectID uuid.UUID) (*models.WeeklySummary, error) {
	end := s.now()
	start := end.AddDate(0, 0, -7)

	snaps, err := s.snaps.ListWindow(ctx, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	newCritical, err := s.checks.CountCriticalCreated(ctx, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count new critical: %w", err)
	}
	resolved, err := s.checks.CountResolved(ctx, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count resolved: %w", err)
	}

	sum := &models.WeeklySummary{
		ID:               uuid.New(),
		ProjectID:        projectID,
		PeriodStart:      start,
		PeriodEnd:        end,
		ScoreDelta:       snaps[len(snaps)-1].Score - snaps[0].Score,
		NewCriticalCount: newCritical,
		ResolvedCount:    resolved,
	}
	if err := s.snaps.InsertSummary(ctx, sum); err != nil {
		return nil, fmt.Errorf("write weekly summary: %w", err)
	}
	return sum, nil
}

// Trend compares the latest snapshot with the one from roughly a week ago,
// for the dashboard health component.
func (s *Service) Trend(ctx context.Context, projectID uuid.UUID) (string, error) {
	now := s.now()

	latest, err := s.snaps.LatestBefore(ctx, projectID, now)
	if errors.Is(err, store.ErrNotFound) {
		return "flat", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest snapshot: %w", err)
	}

	prior, err := s.snaps.LatestBefore(ctx, projectID, now.AddDate(0, 0, -7))
	if errors.Is(err, store.ErrNotFound) {
		return "flat", nil
	}
	if err != nil {
		return "", fmt.Errorf("prior snapshot: %w", err)
	}

	switch {
	case latest.Score > prior.Score:
		return "improving", nil
	case latest.Score < prior.Score:
		return "declining", nil
	default:
		return "flat", nil
	}
}
