package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplianceScoreSnapshot is an append-only record of a project's score at
// a point in time.
type ComplianceScoreSnapshot struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	ProjectID         uuid.UUID      `json:"project_id" db:"project_id"`
	Score             int            `json:"score" db:"score"`
	CategoryBreakdown map[string]int `json:"category_breakdown" db:"category_breakdown"`
	ComputedAt        time.Time      `json:"computed_at" db:"computed_at"`
}

// WeeklySummary aggregates the trailing week's snapshots and check churn.
type WeeklySummary struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ProjectID        uuid.UUID `json:"project_id" db:"project_id"`
	PeriodStart      time.Time `json:"period_start" db:"period_start"`
	PeriodEnd        time.Time `json:"period_end" db:"period_end"`
	ScoreDelta       int       `json:"score_delta" db:"score_delta"`
	NewCriticalCount int       `json:"new_critical_count" db:"new_critical_count"`
	ResolvedCount    int       `json:"resolved_count" db:"resolved_count"`
}
