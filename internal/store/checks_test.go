package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhenning/buildcomply/internal/database"
	"github.com/markhenning/buildcomply/internal/models"
)

// testPool connects to TEST_DATABASE_URL and applies migrations. Tests that
// need live SQL skip when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(ctx, pool, "../../migrations"))
	return pool
}

func TestCountCriticalCreated_ExcludesPasses(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	checks := NewCheckStore(pool)
	projectID := uuid.New()

	write := func(ruleID, result, severity string) {
		require.NoError(t, checks.Supersede(ctx, models.ComplianceCheck{
			ProjectID:   projectID,
			RuleID:      ruleID,
			SubjectType: models.SubjectDocument,
			SubjectID:   uuid.New(),
			Result:      result,
			Severity:    severity,
		}))
	}

	// A document passing a critical-severity rule is not a new critical
	// finding; only the failing one below counts.
	write("document.permit-coverage", models.ResultPass, models.SeverityCritical)
	write("document.permit-coverage", models.ResultFail, models.SeverityCritical)
	write("rfi.overdue", models.ResultFail, models.SeverityHigh)

	n, err := checks.CountCriticalCreated(ctx, projectID,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSupersede_OneCurrentCheckPerKey(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	checks := NewCheckStore(pool)
	projectID := uuid.New()
	subjectID := uuid.New()

	for _, result := range []string{models.ResultFail, models.ResultWarning, models.ResultPass} {
		require.NoError(t, checks.Supersede(ctx, models.ComplianceCheck{
			ProjectID:   projectID,
			RuleID:      "rfi.overdue",
			SubjectType: models.SubjectRFI,
			SubjectID:   subjectID,
			Result:      result,
			Severity:    models.SeverityHigh,
		}))
	}

	current, err := checks.CurrentByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, models.ResultPass, current[0].Result)
}
