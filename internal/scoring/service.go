// Package scoring aggregates a project's current compliance checks into a
// single 0–100 score with a per-category breakdown. Given an identical set
// of non-superseded checks the result is exactly reproducible; the only
// wall-clock dependence is the ComputedAt stamp.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/config"
	"github.com/markhenning/buildcomply/internal/models"
)

// CheckSource supplies the non-superseded checks for a project.
type CheckSource interface {
	CurrentByProject(ctx context.Context, projectID uuid.UUID) ([]models.ComplianceCheck, error)
}

// CategoryMapper resolves rule ids to scoring categories.
type CategoryMapper interface {
	CategoryOf(ruleID string) string
	Categories() []string
}

type Score struct {
	ProjectID         uuid.UUID      `json:"project_id"`
	Score             int            `json:"score"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	ComputedAt        time.Time      `json:"computed_at"`
}

type Service struct {
	checks  CheckSource
	catalog CategoryMapper
	cfg     config.ScoringConfig
	now     func() time.Time
}

func NewService(checks CheckSource, catalog CategoryMapper, cfg config.ScoringConfig) *Service {
	if cfg.SeverityPenalties == nil {
		cfg.SeverityPenalties = config.DefaultScoring().SeverityPenalties
	}
	return &Service{checks: checks, catalog: catalog, cfg: cfg, now: time.Now}
}

// Calculate fetches the project's current checks and reduces them to a
// score. Only aggregation over already-materialised checks happens here; it
// is safe to call from an interactive request.
func (s *Service) Calculate(ctx context.Context, projectID uuid.UUID) (*Score, error) {
	checks, err := s.checks.CurrentByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch checks: %w", err)
	}
	return s.reduce(projectID, checks), nil
}

// reduce is the pure scoring algorithm: per-category penalty sums capped at
// 100, category score 100−cap, then a weighted average across the category
// set, rounded and clamped.
func (s *Service) reduce(projectID uuid.UUID, checks []models.ComplianceCheck) *Score {
	penalties := make(map[string]int)
	for _, c := range checks {
		if c.Result == models.ResultPass {
			continue
		}
		cat := s.catalog.CategoryOf(c.RuleID)
		penalties[cat] += s.cfg.SeverityPenalties[c.Severity]
	}

	categories := s.categorySet(penalties)

	breakdown := make(map[string]int, len(categories))
	for _, cat := range categories {
		p := penalties[cat]
		if p > 100 {
			p = 100
		}
		breakdown[cat] = 100 - p
	}

	weights := s.weights(categories)
	var weighted float64
	for _, cat := range categories {
		weighted += weights[cat] * float64(breakdown[cat])
	}

	score := int(math.Round(weighted))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &Score{
		ProjectID:         projectID,
		Score:             score,
		CategoryBreakdown: breakdown,
		ComputedAt:        s.now(),
	}
}

// categorySet is the configured weight keys when present, else the
// catalog's categories, widened with any category that actually accrued a
// penalty. Checks from retired rules land in "general" and must still drag
// the score down. Sorted for deterministic iteration.
func (s *Service) categorySet(penalties map[string]int) []string {
	set := make(map[string]struct{})
	if len(s.cfg.CategoryWeights) > 0 {
		for cat := range s.cfg.CategoryWeights {
			set[cat] = struct{}{}
		}
	} else {
		for _, cat := range s.catalog.Categories() {
			set[cat] = struct{}{}
		}
	}
	for cat := range penalties {
		set[cat] = struct{}{}
	}

	cats := make([]string, 0, len(set))
	for cat := range set {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// weights normalises the configured category weights to sum to 1, falling
// back to equal weighting when unconfigured. A category absent from the
// configured map (the widened set can exceed it) weighs in at the mean
// configured weight rather than dropping out of the average.
func (s *Service) weights(categories []string) map[string]float64 {
	out := make(map[string]float64, len(categories))
	if len(categories) == 0 {
		return out
	}

	var confTotal float64
	confN := 0
	for _, cat := range categories {
		if w, ok := s.cfg.CategoryWeights[cat]; ok && w > 0 {
			confTotal += w
			confN++
		}
	}
	if confN == 0 {
		equal := 1.0 / float64(len(categories))
		for _, cat := range categories {
			out[cat] = equal
		}
		return out
	}
	mean := confTotal / float64(confN)

	var total float64
	for _, cat := range categories {
		w, ok := s.cfg.CategoryWeights[cat]
		if !ok {
			w = mean
		}
		total += w
		out[cat] = w
	}
	for cat := range out {
		out[cat] /= total
	}
	return out
}
