package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/models"
)

// CheckWriter persists an outcome by superseding the current check for the
// same (rule, subject) key and inserting the new one atomically.
type CheckWriter interface {
	Supersede(ctx context.Context, check models.ComplianceCheck) error
}

// Engine evaluates the catalog against a single subject and records the
// resulting checks. It is safe for concurrent use across subjects; the
// superseding insert makes concurrent runs on the same subject safe too.
type Engine struct {
	catalog *Catalog
	checks  CheckWriter
	now     func() time.Time
}

func NewEngine(catalog *Catalog, checks CheckWriter) *Engine {
	return &Engine{catalog: catalog, checks: checks, now: time.Now}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

// EvaluateDocument runs document-scoped rules against an embedded document.
func (e *Engine) EvaluateDocument(ctx context.Context, doc *models.Document, embedding []float32) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("%w: nil document", ErrEvaluation)
	}
	subject := Subject{Document: doc, Now: e.now()}
	return e.evaluate(ctx, subject, doc.ProjectID, doc.ID, embedding)
}

// EvaluateRFI runs RFI-scoped rules, excluding the age rule the aging
// monitor owns.
func (e *Engine) EvaluateRFI(ctx context.Context, rfi *models.RFI) (int, error) {
	if rfi == nil {
		return 0, fmt.Errorf("%w: nil rfi", ErrEvaluation)
	}
	subject := Subject{RFI: rfi, Now: e.now()}
	return e.evaluate(ctx, subject, rfi.ProjectID, rfi.ID, nil)
}

// EvaluateChangeEvent runs change-event-scoped rules.
func (e *Engine) EvaluateChangeEvent(ctx context.Context, ev *models.ChangeEvent) (int, error) {
	if ev == nil {
		return 0, fmt.Errorf("%w: nil change event", ErrEvaluation)
	}
	subject := Subject{ChangeEvent: ev, Now: e.now()}
	return e.evaluate(ctx, subject, ev.ProjectID, ev.ID, nil)
}

// evaluate applies every applicable rule. A rule that errors is skipped and
// logged; a rule whose result is empty does not apply. Persisted checks go
// through the superseding insert, so re-evaluation never duplicates a
// current check. Returns the number of checks written.
func (e *Engine) evaluate(ctx context.Context, subject Subject, projectID, subjectID uuid.UUID, embedding []float32) (int, error) {
	subjectType := subject.Type()
	written := 0

	for _, rule := range e.catalog.ForSubjectType(subjectType) {
		result, err := e.applyRule(rule, subject, embedding)
		if err != nil {
			slog.Warn("rule evaluation skipped",
				"rule_id", rule.ID, "subject_type", subjectType, "subject_id", subjectID, "error", err)
			continue
		}
		if result == "" {
			continue
		}

		check := models.ComplianceCheck{
			ID:          uuid.New(),
			ProjectID:   projectID,
			RuleID:      rule.ID,
			SubjectType: subjectType,
			SubjectID:   subjectID,
			Result:      result,
			Severity:    rule.Severity,
		}
		if err := e.checks.Supersede(ctx, check); err != nil {
			return written, fmt.Errorf("record check %s: %w", rule.ID, err)
		}
		written++
	}

	return written, nil
}

func (e *Engine) applyRule(rule Rule, subject Subject, embedding []float32) (string, error) {
	switch {
	case rule.Semantic != nil:
		return rule.Semantic.evaluate(embedding)
	case rule.Predicate != nil:
		return rule.Predicate(subject)
	default:
		return "", nil
	}
}
