package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplianceCheck is the outcome of evaluating one rule against one subject
// at one point in time. Re-evaluation supersedes the prior row rather than
// mutating it; at most one row per (rule_id, subject_type, subject_id) has
// SupersededAt == nil.
type ComplianceCheck struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	ProjectID    uuid.UUID  `json:"project_id" db:"project_id"`
	RuleID       string     `json:"rule_id" db:"rule_id"`
	SubjectType  string     `json:"subject_type" db:"subject_type"`
	SubjectID    uuid.UUID  `json:"subject_id" db:"subject_id"`
	Result       string     `json:"result" db:"result"`
	Severity     string     `json:"severity" db:"severity"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty" db:"superseded_at"`
}

const (
	SubjectDocument    = "document"
	SubjectRFI         = "rfi"
	SubjectChangeEvent = "change_event"
)

const (
	ResultPass    = "pass"
	ResultWarning = "warning"
	ResultFail    = "fail"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// SeverityRank orders severities low < medium < high < critical.
// Unknown severities rank below low.
func SeverityRank(s string) int {
	return severityRank[s]
}
