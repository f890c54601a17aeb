package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/scoring"
	"github.com/markhenning/buildcomply/internal/store"
)

type fakeScorer struct {
	score int
}

func (f *fakeScorer) Calculate(ctx context.Context, projectID uuid.UUID) (*scoring.Score, error) {
	return &scoring.Score{
		ProjectID:         projectID,
		Score:             f.score,
		CategoryBreakdown: map[string]int{"safety": f.score},
		ComputedAt:        time.Date(2024, 6, 10, 1, 30, 0, 0, time.UTC),
	}, nil
}

type memSnaps struct {
	snapshots []models.ComplianceScoreSnapshot
	summaries []models.WeeklySummary
}

func (m *memSnaps) Insert(ctx context.Context, snap *models.ComplianceScoreSnapshot) error {
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *memSnaps) ListWindow(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]models.ComplianceScoreSnapshot, error) {
	var out []models.ComplianceScoreSnapshot
	for _, s := range m.snapshots {
		if s.ProjectID == projectID && !s.ComputedAt.Before(from) && s.ComputedAt.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSnaps) LatestBefore(ctx context.Context, projectID uuid.UUID, t time.Time) (*models.ComplianceScoreSnapshot, error) {
	var latest *models.ComplianceScoreSnapshot
	for i := range m.snapshots {
		s := m.snapshots[i]
		if s.ProjectID != projectID || s.ComputedAt.After(t) {
			continue
		}
		if latest == nil || s.ComputedAt.After(latest.ComputedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (m *memSnaps) InsertSummary(ctx context.Context, sum *models.WeeklySummary) error {
	m.summaries = append(m.summaries, *sum)
	return nil
}

type fakeCounter struct {
	critical int
	resolved int
}

func (f *fakeCounter) CountCriticalCreated(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error) {
	return f.critical, nil
}

func (f *fakeCounter) CountResolved(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error) {
	return f.resolved, nil
}

func snapAt(projectID uuid.UUID, score int, at time.Time) models.ComplianceScoreSnapshot {
	return models.ComplianceScoreSnapshot{
		ID:         uuid.New(),
		ProjectID:  projectID,
		Score:      score,
		ComputedAt: at,
	}
}

func TestTakeSnapshot(t *testing.T) {
	snaps := &memSnaps{}
	svc := NewService(&fakeScorer{score: 88}, snaps, &fakeCounter{})

	projectID := uuid.New()
	snap, err := svc.TakeSnapshot(context.Background(), projectID)
	require.NoError(t, err)

	assert.Equal(t, 88, snap.Score)
	assert.Equal(t, projectID, snap.ProjectID)
	require.Len(t, snaps.snapshots, 1)
	assert.Equal(t, snap.ID, snaps.snapshots[0].ID)
}

func TestWriteWeeklySummary_Scenario(t *testing.T) {
	// Window with one new critical and one resolved check; delta is last
	// minus first snapshot score.
	now := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)
	projectID := uuid.New()

	snaps := &memSnaps{snapshots: []models.ComplianceScoreSnapshot{
		snapAt(projectID, 90, now.AddDate(0, 0, -6)),
		snapAt(projectID, 85, now.AddDate(0, 0, -3)),
		snapAt(projectID, 82, now.AddDate(0, 0, -1)),
		snapAt(projectID, 70, now.AddDate(0, 0, -20)), // outside window
	}}

	svc := NewService(&fakeScorer{}, snaps, &fakeCounter{critical: 1, resolved: 1})
	svc.now = func() time.Time { return now }

	sum, err := svc.WriteWeeklySummary(context.Background(), projectID)
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Equal(t, 82-90, sum.ScoreDelta)
	assert.Equal(t, 1, sum.NewCriticalCount)
	assert.Equal(t, 1, sum.ResolvedCount)
	assert.Equal(t, now.AddDate(0, 0, -7), sum.PeriodStart)
	assert.Equal(t, now, sum.PeriodEnd)
	require.Len(t, snaps.summaries, 1)
}

func TestWriteWeeklySummary_NoSnapshotsWritesNothing(t *testing.T) {
	snaps := &memSnaps{}
	svc := NewService(&fakeScorer{}, snaps, &fakeCounter{})

	sum, err := svc.WriteWeeklySummary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.Empty(t, snaps.summaries)
}

func TestTrend(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	projectID := uuid.New()

	tests := []struct {
		name     string
		earlier  int
		latest   int
		expected string
	}{
		{"improving", 70, 85, "improving"},
		{"declining", 90, 80, "declining"},
		{"flat", 75, 75, "flat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := &memSnaps{snapshots: []models.ComplianceScoreSnapshot{
				snapAt(projectID, tt.earlier, now.AddDate(0, 0, -8)),
				snapAt(projectID, tt.latest, now.AddDate(0, 0, -1)),
			}}
			svc := NewService(&fakeScorer{}, snaps, &fakeCounter{})
			svc.now = func() time.Time { return now }

			trend, err := svc.Trend(context.Background(), projectID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, trend)
		})
	}
}

func TestTrend_NoHistoryIsFlat(t *testing.T) {
	svc := NewService(&fakeScorer{}, &memSnaps{}, &fakeCounter{})

	trend, err := svc.Trend(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "flat", trend)
}
