package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markhenning/buildcomply/internal/models"
)

type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Insert(ctx context.Context, snap *models.ComplianceScoreSnapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	breakdown, err := json.Marshal(snap.CategoryBreakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO compliance_score_snapshots (id, project_id, score, category_breakdown, computed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.ProjectID, snap.Score, breakdown, snap.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// ListWindow returns snapshots in [from, to) ordered by computed_at ascending.
func (s *SnapshotStore) ListWindow(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]models.ComplianceScoreSnapshot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, score, category_breakdown, computed_at
		 FROM compliance_score_snapshots
		 WHERE project_id = $1 AND computed_at >= $2 AND computed_at < $3
		 ORDER BY computed_at`,
		projectID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.ComplianceScoreSnapshot
	for rows.Next() {
		var snap models.ComplianceScoreSnapshot
		var breakdown []byte
		if err := rows.Scan(&snap.ID, &snap.ProjectID, &snap.Score, &breakdown, &snap.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal(breakdown, &snap.CategoryBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// LatestBefore returns the most recent snapshot computed at or before t.
func (s *SnapshotStore) LatestBefore(ctx context.Context, projectID uuid.UUID, t time.Time) (*models.ComplianceScoreSnapshot, error) {
	var snap models.ComplianceScoreSnapshot
	var breakdown []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, score, category_breakdown, computed_at
		 FROM compliance_score_snapshots
		 WHERE project_id = $1 AND computed_at <= $2
		 ORDER BY computed_at DESC LIMIT 1`,
		projectID, t,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Score, &breakdown, &snap.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if err := json.Unmarshal(breakdown, &snap.CategoryBreakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotStore) InsertSummary(ctx context.Context, sum *models.WeeklySummary) error {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO weekly_summaries (id, project_id, period_start, period_end, score_delta, new_critical_count, resolved_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sum.ID, sum.ProjectID, sum.PeriodStart, sum.PeriodEnd, sum.ScoreDelta, sum.NewCriticalCount, sum.ResolvedCount,
	)
	if err != nil {
		return fmt.Errorf("insert weekly summary: %w", err)
	}
	return nil
}
