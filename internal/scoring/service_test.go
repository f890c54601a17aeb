package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhenning/buildcomply/internal/config"
	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/rules"
)

type fakeChecks struct {
	checks []models.ComplianceCheck
}

func (f *fakeChecks) CurrentByProject(ctx context.Context, projectID uuid.UUID) ([]models.ComplianceCheck, error) {
	return f.checks, nil
}

type fakeCatalog struct {
	categories map[string]string
	all        []string
}

func (f *fakeCatalog) CategoryOf(ruleID string) string {
	if cat, ok := f.categories[ruleID]; ok {
		return cat
	}
	return "general"
}

func (f *fakeCatalog) Categories() []string { return f.all }

func newService(checks []models.ComplianceCheck, catalog *fakeCatalog, cfg config.ScoringConfig) *Service {
	svc := NewService(&fakeChecks{checks: checks}, catalog, cfg)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func check(ruleID, result, severity string) models.ComplianceCheck {
	return models.ComplianceCheck{
		ID:       uuid.New(),
		RuleID:   ruleID,
		Result:   result,
		Severity: severity,
	}
}

func threeCategories() *fakeCatalog {
	return &fakeCatalog{
		categories: map[string]string{
			"r.safety":  "safety",
			"r.permits": "permits",
			"r.docs":    "documentation",
		},
		all: []string{"documentation", "permits", "safety"},
	}
}

func TestCalculate_CleanProjectScoresFull(t *testing.T) {
	svc := newService(nil, threeCategories(), config.DefaultScoring())

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 100, score.Score)
	assert.Equal(t, map[string]int{"documentation": 100, "permits": 100, "safety": 100}, score.CategoryBreakdown)
}

func TestCalculate_SingleCategoryPenalties(t *testing.T) {
	// One critical (15) and two medium (3 each) in one category out of
	// three equally weighted: category score 79, overall round((100+100+79)/3)=93.
	checks := []models.ComplianceCheck{
		check("r.safety", models.ResultFail, models.SeverityCritical),
		check("r.safety", models.ResultWarning, models.SeverityMedium),
		check("r.safety", models.ResultWarning, models.SeverityMedium),
	}
	svc := newService(checks, threeCategories(), config.DefaultScoring())

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 79, score.CategoryBreakdown["safety"])
	assert.Equal(t, 100, score.CategoryBreakdown["permits"])
	assert.Equal(t, 100, score.CategoryBreakdown["documentation"])
	assert.Equal(t, 93, score.Score)
}

func TestCalculate_PassChecksCarryNoPenalty(t *testing.T) {
	checks := []models.ComplianceCheck{
		check("r.safety", models.ResultPass, models.SeverityHigh),
		check("r.permits", models.ResultPass, models.SeverityCritical),
	}
	svc := newService(checks, threeCategories(), config.DefaultScoring())

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 100, score.Score)
}

func TestCalculate_CategoryPenaltyCapsAt100(t *testing.T) {
	var checks []models.ComplianceCheck
	for i := 0; i < 10; i++ { // 10 * 15 = 150, capped at 100
		checks = append(checks, check("r.safety", models.ResultFail, models.SeverityCritical))
	}
	svc := newService(checks, threeCategories(), config.DefaultScoring())

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, score.CategoryBreakdown["safety"])
	// (0 + 100 + 100) / 3 = 66.67 → 67
	assert.Equal(t, 67, score.Score)
}

func TestCalculate_Deterministic(t *testing.T) {
	checks := []models.ComplianceCheck{
		check("r.safety", models.ResultFail, models.SeverityHigh),
		check("r.permits", models.ResultWarning, models.SeverityLow),
		check("r.docs", models.ResultWarning, models.SeverityMedium),
	}
	svc := newService(checks, threeCategories(), config.DefaultScoring())

	first, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := svc.Calculate(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.CategoryBreakdown, again.CategoryBreakdown)
	}
}

func TestCalculate_RoundingBoundary(t *testing.T) {
	// Two categories: one at 100, one at 99 → 99.5 rounds half away from
	// zero to 100. One at 100, one at 98 → 99.
	catalog := &fakeCatalog{
		categories: map[string]string{"r.a": "a", "r.b": "b"},
		all:        []string{"a", "b"},
	}

	tests := []struct {
		name     string
		checks   []models.ComplianceCheck
		expected int
	}{
		{
			name:     "half rounds up",
			checks:   []models.ComplianceCheck{check("r.a", models.ResultWarning, models.SeverityLow)}, // a=99, b=100
			expected: 100,
		},
		{
			name: "below half rounds down",
			checks: []models.ComplianceCheck{
				check("r.a", models.ResultWarning, models.SeverityLow),
				check("r.a", models.ResultWarning, models.SeverityLow),
			}, // a=98, b=100 → 99
			expected: 99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.checks, catalog, config.DefaultScoring())
			score, err := svc.Calculate(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, score.Score)
		})
	}
}

func TestCalculate_ConfiguredWeights(t *testing.T) {
	cfg := config.ScoringConfig{
		SeverityPenalties: config.DefaultScoring().SeverityPenalties,
		CategoryWeights: map[string]float64{
			"safety":  0.5,
			"permits": 0.25,
			"docs":    0.25,
		},
	}
	catalog := &fakeCatalog{
		categories: map[string]string{"r.safety": "safety"},
		all:        []string{"docs", "permits", "safety"},
	}
	checks := []models.ComplianceCheck{
		check("r.safety", models.ResultFail, models.SeverityCritical), // safety = 85
	}
	svc := newService(checks, catalog, cfg)

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)
	// 0.5*85 + 0.25*100 + 0.25*100 = 92.5 → 93
	assert.Equal(t, 93, score.Score)
}

func TestCalculate_WeightsNormalised(t *testing.T) {
	// Weights that do not sum to 1 are normalised rather than skewing the
	// 0-100 range.
	cfg := config.ScoringConfig{
		SeverityPenalties: config.DefaultScoring().SeverityPenalties,
		CategoryWeights:   map[string]float64{"a": 2, "b": 2},
	}
	catalog := &fakeCatalog{categories: map[string]string{"r.a": "a"}, all: []string{"a", "b"}}
	svc := newService([]models.ComplianceCheck{check("r.a", models.ResultFail, models.SeverityCritical)}, catalog, cfg)

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)
	// (85 + 100) / 2 = 92.5 → 93
	assert.Equal(t, 93, score.Score)
}

func TestCalculate_UnknownRuleFallsIntoGeneral(t *testing.T) {
	catalog := &fakeCatalog{categories: map[string]string{}, all: []string{"general"}}
	svc := newService([]models.ComplianceCheck{check("r.retired", models.ResultFail, models.SeverityLow)}, catalog, config.DefaultScoring())

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 99, score.Score)
}

func TestCalculate_RetiredRuleStillPenalisesWithRealCatalog(t *testing.T) {
	// The stock catalog has no "general" category of its own; a failing
	// check from a rule that no longer exists must still pull the score
	// down via the widened category set.
	svc := NewService(
		&fakeChecks{checks: []models.ComplianceCheck{check("rfi.response-time", models.ResultFail, models.SeverityCritical)}},
		rules.DefaultCatalog(),
		config.DefaultScoring(),
	)

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Less(t, score.Score, 100)
	assert.Equal(t, 85, score.CategoryBreakdown["general"])
	// Six catalog categories at 100 plus general at 85: round(685/7) = 98.
	assert.Equal(t, 98, score.Score)
}

func TestCalculate_ObservedCategoryOutsideConfiguredWeights(t *testing.T) {
	// Configured weights omit the category the check maps to; it joins the
	// average at the mean configured weight instead of vanishing.
	cfg := config.ScoringConfig{
		SeverityPenalties: config.DefaultScoring().SeverityPenalties,
		CategoryWeights:   map[string]float64{"safety": 1, "permits": 1},
	}
	catalog := &fakeCatalog{categories: map[string]string{}, all: []string{"permits", "safety"}}
	svc := newService([]models.ComplianceCheck{check("r.retired", models.ResultFail, models.SeverityCritical)}, catalog, cfg)

	score, err := svc.Calculate(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 85, score.CategoryBreakdown["general"])
	// Three categories, all effectively weight 1: round((100+100+85)/3) = 95.
	assert.Equal(t, 95, score.Score)
}
