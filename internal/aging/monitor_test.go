package aging

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
	"github.com/markhenning/buildcomply/internal/store"
)

type fakeRFIs struct {
	open []models.RFI
}

func (f *fakeRFIs) ListOpen(ctx context.Context) ([]models.RFI, error) {
	return f.open, nil
}

// memChecks implements CheckStore with the same superseding semantics as the
// real store: stamping the prior current row and appending the new one.
type memChecks struct {
	history []models.ComplianceCheck
}

func (m *memChecks) Supersede(ctx context.Context, check models.ComplianceCheck) error {
	now := time.Now()
	for i := range m.history {
		c := &m.history[i]
		if c.RuleID == check.RuleID && c.SubjectType == check.SubjectType &&
			c.SubjectID == check.SubjectID && c.SupersededAt == nil {
			ts := now
			c.SupersededAt = &ts
		}
	}
	check.CreatedAt = now
	m.history = append(m.history, check)
	return nil
}

func (m *memChecks) CurrentByKey(ctx context.Context, ruleID, subjectType string, subjectID uuid.UUID) (*models.ComplianceCheck, error) {
	for i := range m.history {
		c := m.history[i]
		if c.RuleID == ruleID && c.SubjectType == subjectType && c.SubjectID == subjectID && c.SupersededAt == nil {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memChecks) currentCount() int {
	n := 0
	for _, c := range m.history {
		if c.SupersededAt == nil {
			n++
		}
	}
	return n
}

func openRFI(createdAt time.Time) models.RFI {
	return models.RFI{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Status:    models.RFIOpen,
		CreatedAt: createdAt,
	}
}

func TestRun_FreshRFIGetsNoCheck(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rfi := openRFI(now)
	checks := &memChecks{}
	m := NewMonitor(&fakeRFIs{open: []models.RFI{rfi}}, checks, config.DefaultAging())

	stats, err := m.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 0, rfi.AgeDays(now))
	assert.Equal(t, 1, stats.Swept)
	assert.Equal(t, 0, stats.Escalated)
	assert.Empty(t, checks.history)
}

func TestRun_EscalationScenario(t *testing.T) {
	// 10 days open → medium; 31 days open → critical supersedes the medium.
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	rfi := openRFI(created)
	checks := &memChecks{}
	m := NewMonitor(&fakeRFIs{open: []models.RFI{rfi}}, checks, config.DefaultAging())

	_, err := m.Run(context.Background(), created.AddDate(0, 0, 10))
	require.NoError(t, err)

	current, err := checks.CurrentByKey(context.Background(), rules.RFIAgeRuleID, models.SubjectRFI, rfi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityMedium, current.Severity)
	assert.Equal(t, models.ResultWarning, current.Result)

	_, err = m.Run(context.Background(), created.AddDate(0, 0, 31))
	require.NoError(t, err)

	current, err = checks.CurrentByKey(context.Background(), rules.RFIAgeRuleID, models.SubjectRFI, rfi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, current.Severity)
	assert.Equal(t, models.ResultFail, current.Result)

	// The medium check is kept in history, superseded.
	assert.Len(t, checks.history, 2)
	assert.Equal(t, 1, checks.currentCount())
}

func TestRun_UnchangedSeverityWritesNothing(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rfi := openRFI(created)
	checks := &memChecks{}
	m := NewMonitor(&fakeRFIs{open: []models.RFI{rfi}}, checks, config.DefaultAging())

	for day := 8; day <= 13; day++ {
		_, err := m.Run(context.Background(), created.AddDate(0, 0, day))
		require.NoError(t, err)
	}

	// Six runs inside the medium band write exactly one check.
	assert.Len(t, checks.history, 1)
}

func TestRun_SeverityNeverDecreasesWhileOpen(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rfi := openRFI(created)
	checks := &memChecks{}
	m := NewMonitor(&fakeRFIs{open: []models.RFI{rfi}}, checks, config.DefaultAging())

	lastRank := 0
	for day := 0; day <= 45; day += 3 {
		_, err := m.Run(context.Background(), created.AddDate(0, 0, day))
		require.NoError(t, err)

		current, err := checks.CurrentByKey(context.Background(), rules.RFIAgeRuleID, models.SubjectRFI, rfi.ID)
		if err != nil {
			continue
		}
		rank := models.SeverityRank(current.Severity)
		assert.GreaterOrEqual(t, rank, lastRank, "severity regressed at day %d", day)
		lastRank = rank
	}
	assert.Equal(t, models.SeverityRank(models.SeverityCritical), lastRank)
}

func TestSeverityForAge_Thresholds(t *testing.T) {
	m := NewMonitor(nil, nil, config.DefaultAging())

	tests := []struct {
		age      int
		severity string
		ok       bool
	}{
		{0, "", false},
		{6, "", false},
		{7, models.SeverityMedium, true},
		{13, models.SeverityMedium, true},
		{14, models.SeverityHigh, true},
		{29, models.SeverityHigh, true},
		{30, models.SeverityCritical, true},
		{365, models.SeverityCritical, true},
	}

	for _, tt := range tests {
		severity, ok := m.SeverityForAge(tt.age)
		assert.Equal(t, tt.ok, ok, "age %d", tt.age)
		assert.Equal(t, tt.severity, severity, "age %d", tt.age)
	}
}

func TestRun_MultipleRFIsIndependent(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	young := openRFI(now.AddDate(0, 0, -2))
	stale := openRFI(now.AddDate(0, 0, -20))
	checks := &memChecks{}
	m := NewMonitor(&fakeRFIs{open: []models.RFI{young, stale}}, checks, config.DefaultAging())

	stats, err := m.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Swept)
	assert.Equal(t, 1, stats.Escalated)

	_, err = checks.CurrentByKey(context.Background(), rules.RFIAgeRuleID, models.SubjectRFI, young.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	current, err := checks.CurrentByKey(context.Background(), rules.RFIAgeRuleID, models.SubjectRFI, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, current.Severity)
}
