package rules

import (
	"fmt"

	"github.com/markhenning/buildcomply/internal/models"
)

// DefaultCatalog is the production rule set. Structured rules are pure
// predicates over entity state; semantic rules carry per-rule similarity
// thresholds and get their reference vectors from LoadReferences at boot.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Rule{
		{
			ID:          RFIAgeRuleID,
			Category:    "responsiveness",
			SubjectType: models.SubjectRFI,
			Severity:    models.SeverityMedium,
			// Evaluated by the aging monitor, not the engine.
		},
		{
			ID:          "rfi.overdue",
			Category:    "responsiveness",
			SubjectType: models.SubjectRFI,
			Severity:    models.SeverityHigh,
			Predicate: func(s Subject) (string, error) {
				if s.RFI == nil {
					return "", fmt.Errorf("%w: rfi subject missing", ErrEvaluation)
				}
				if s.RFI.Status != models.RFIOpen || s.RFI.DueDate == nil {
					return "", nil
				}
				if s.Now.After(*s.RFI.DueDate) {
					return models.ResultFail, nil
				}
				return models.ResultPass, nil
			},
		},
		{
			ID:          "change_event.unlinked",
			Category:    "documentation",
			SubjectType: models.SubjectChangeEvent,
			Severity:    models.SeverityMedium,
			Predicate: func(s Subject) (string, error) {
				if s.ChangeEvent == nil {
					return "", fmt.Errorf("%w: change event subject missing", ErrEvaluation)
				}
				if s.ChangeEvent.DocumentID == nil && s.ChangeEvent.RFIID == nil {
					return models.ResultWarning, nil
				}
				return models.ResultPass, nil
			},
		},
		{
			ID:          "change_event.budget-review",
			Category:    "change_control",
			SubjectType: models.SubjectChangeEvent,
			Severity:    models.SeverityHigh,
			Predicate: func(s Subject) (string, error) {
				if s.ChangeEvent == nil {
					return "", fmt.Errorf("%w: change event subject missing", ErrEvaluation)
				}
				if s.ChangeEvent.Type != models.ChangeBudget {
					return "", nil
				}
				// Budget changes must reference the contract document
				// that authorises them.
				if s.ChangeEvent.DocumentID == nil {
					return models.ResultFail, nil
				}
				return models.ResultPass, nil
			},
		},
		{
			ID:          "document.safety-plan",
			Category:    "safety",
			SubjectType: models.SubjectDocument,
			Severity:    models.SeverityHigh,
			Semantic: &SemanticSpec{
				Topic:  "site safety plan, hazard identification, fall protection, PPE requirements, emergency procedures",
				Floor:  0.55,
				Target: 0.70,
			},
		},
		{
			ID:          "document.permit-coverage",
			Category:    "permits",
			SubjectType: models.SubjectDocument,
			Severity:    models.SeverityCritical,
			Semantic: &SemanticSpec{
				Topic:  "building permits, inspection sign-off, regulatory approval, code compliance certification",
				Floor:  0.50,
				Target: 0.65,
			},
		},
		{
			ID:          "document.environmental",
			Category:    "environmental",
			SubjectType: models.SubjectDocument,
			Severity:    models.SeverityMedium,
			Semantic: &SemanticSpec{
				Topic:  "environmental protection, erosion control, stormwater management, waste disposal plan",
				Floor:  0.45,
				Target: 0.60,
			},
		},
	})
}
