package rules

import (
	"errors"
	"sort"
	"time"

	"github.com/markhenning/buildcomply/internal/models"
)

// ErrEvaluation marks malformed subject data encountered by a rule. The
// engine logs it, skips that rule for that subject and keeps evaluating the
// rest; it never aborts a job.
var ErrEvaluation = errors.New("rule evaluation error")

// RFIAgeRuleID identifies the age-escalation check owned by the aging
// monitor. It lives in the catalog for category mapping but the engine never
// evaluates it; the monitor controls its severity.
const RFIAgeRuleID = "rfi.age"

// Subject wraps the one entity a rule run is scoped to, plus the evaluation
// instant for time-based predicates.
type Subject struct {
	Document    *models.Document
	RFI         *models.RFI
	ChangeEvent *models.ChangeEvent
	Now         time.Time
}

func (s Subject) Type() string {
	switch {
	case s.Document != nil:
		return models.SubjectDocument
	case s.RFI != nil:
		return models.SubjectRFI
	case s.ChangeEvent != nil:
		return models.SubjectChangeEvent
	}
	return ""
}

// Predicate is a structured rule body: a pure function of entity state.
// An empty result means the rule does not apply to this subject (no check
// is produced).
type Predicate func(s Subject) (result string, err error)

// SemanticSpec compares a document's embedding against a reference topic
// vector. Similarity below Floor fails the check, between Floor and Target
// warns, at or above Target passes. Thresholds are per rule, not global.
type SemanticSpec struct {
	Topic     string
	Floor     float64
	Target    float64
	Reference []float32
}

// Rule is one entry of the compliance catalog. Exactly one of Predicate or
// Semantic is set. Severity is fixed by the definition; the engine never
// computes it ad hoc.
type Rule struct {
	ID          string
	Category    string
	SubjectType string
	Severity    string
	Predicate   Predicate
	Semantic    *SemanticSpec
}

// Outcome is one candidate check produced by evaluating one rule.
type Outcome struct {
	RuleID   string
	Result   string
	Severity string
}

// Catalog is the fixed rule set plus its rule→category mapping.
type Catalog struct {
	rules      []Rule
	categories map[string]string
}

func NewCatalog(rules []Rule) *Catalog {
	cats := make(map[string]string, len(rules))
	for _, r := range rules {
		cats[r.ID] = r.Category
	}
	return &Catalog{rules: rules, categories: cats}
}

// ForSubjectType returns the rules applicable to one subject type, which
// bounds an incremental re-check to O(rules for that type).
func (c *Catalog) ForSubjectType(subjectType string) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if r.SubjectType == subjectType && r.ID != RFIAgeRuleID {
			out = append(out, r)
		}
	}
	return out
}

// CategoryOf maps a rule id to its scoring category. Unknown rules land in
// "general" so historical checks from retired rules still score.
func (c *Catalog) CategoryOf(ruleID string) string {
	if cat, ok := c.categories[ruleID]; ok {
		return cat
	}
	return "general"
}

// Categories returns the sorted distinct category set.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out
}

// SemanticRules returns the rules that need a reference vector loaded.
func (c *Catalog) SemanticRules() []*Rule {
	var out []*Rule
	for i := range c.rules {
		if c.rules[i].Semantic != nil {
			out = append(out, &c.rules[i])
		}
	}
	return out
}
