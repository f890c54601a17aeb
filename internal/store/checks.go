package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markhenning/buildcomply/internal/models"
)

type CheckStore struct {
	db *pgxpool.Pool
}

func NewCheckStore(db *pgxpool.Pool) *CheckStore {
	return &CheckStore{db: db}
}

const checkColumns = `id, project_id, rule_id, subject_type, subject_id, result, severity, created_at, superseded_at`

// Supersede stamps superseded_at on the current check for the same
// (rule_id, subject_type, subject_id) key, if any, and inserts the new check
// in the same transaction. History is never deleted; this is the sole
// mechanism that keeps at most one current check per key, and it makes
// concurrent re-evaluation of the same subject safe under redelivery.
func (s *CheckStore) Supersede(ctx context.Context, check models.ComplianceCheck) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE compliance_checks SET superseded_at = now()
		 WHERE rule_id = $1 AND subject_type = $2 AND subject_id = $3 AND superseded_at IS NULL`,
		check.RuleID, check.SubjectType, check.SubjectID,
	)
	if err != nil {
		return fmt.Errorf("supersede prior check: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO compliance_checks (id, project_id, rule_id, subject_type, subject_id, result, severity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		check.ID, check.ProjectID, check.RuleID, check.SubjectType, check.SubjectID, check.Result, check.Severity,
	)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}

	return tx.Commit(ctx)
}

// CurrentByKey returns the non-superseded check for one (rule, subject) key,
// or ErrNotFound when none exists.
func (s *CheckStore) CurrentByKey(ctx context.Context, ruleID, subjectType string, subjectID uuid.UUID) (*models.ComplianceCheck, error) {
	var c models.ComplianceCheck
	err := s.db.QueryRow(ctx,
		`SELECT `+checkColumns+` FROM compliance_checks
		 WHERE rule_id = $1 AND subject_type = $2 AND subject_id = $3 AND superseded_at IS NULL`,
		ruleID, subjectType, subjectID,
	).Scan(&c.ID, &c.ProjectID, &c.RuleID, &c.SubjectType, &c.SubjectID, &c.Result, &c.Severity, &c.CreatedAt, &c.SupersededAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("current check: %w", err)
	}
	return &c, nil
}

// CurrentByProject returns all non-superseded checks for a project, the
// scoring service's sole input.
func (s *CheckStore) CurrentByProject(ctx context.Context, projectID uuid.UUID) ([]models.ComplianceCheck, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+checkColumns+` FROM compliance_checks
		 WHERE project_id = $1 AND superseded_at IS NULL ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("current checks: %w", err)
	}
	defer rows.Close()

	var checks []models.ComplianceCheck
	for rows.Next() {
		var c models.ComplianceCheck
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.RuleID, &c.SubjectType, &c.SubjectID, &c.Result, &c.Severity, &c.CreatedAt, &c.SupersededAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// CountCriticalCreated counts critical findings introduced during the
// window. A pass result carries its rule's severity but is not a finding,
// so it never counts.
func (s *CheckStore) CountCriticalCreated(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM compliance_checks
		 WHERE project_id = $1 AND severity = $2 AND result <> $3
		   AND created_at >= $4 AND created_at < $5`,
		projectID, models.SeverityCritical, models.ResultPass, from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count critical: %w", err)
	}
	return n, nil
}

// CountResolved counts (rule, subject) keys whose check was superseded in
// the window and that have no current check left — findings that went away
// rather than being re-issued.
func (s *CheckStore) CountResolved(ctx context.Context, projectID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(DISTINCT (c.rule_id, c.subject_type, c.subject_id))
		 FROM compliance_checks c
		 WHERE c.project_id = $1 AND c.superseded_at >= $2 AND c.superseded_at < $3
		   AND NOT EXISTS (
			SELECT 1 FROM compliance_checks cur
			WHERE cur.rule_id = c.rule_id AND cur.subject_type = c.subject_type
			  AND cur.subject_id = c.subject_id AND cur.superseded_at IS NULL
		   )`,
		projectID, from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count resolved: %w", err)
	}
	return n, nil
}

// ActiveProjects lists every project id the pipeline has seen, for cron
// fan-out. Projects themselves live outside this system.
func (s *CheckStore) ActiveProjects(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT project_id FROM documents
		 UNION SELECT project_id FROM rfis
		 UNION SELECT project_id FROM compliance_checks`,
	)
	if err != nil {
		return nil, fmt.Errorf("active projects: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
