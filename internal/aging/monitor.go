// Package aging recomputes RFI age and escalates the age check's severity as
// thresholds are crossed. It owns the rfi.age rule entirely: the rule engine
// never evaluates it and user actions never touch its severity.
package aging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/config"
	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/rules"
	"github.com/markhenning/buildcomply/internal/store"
)

// RFISource lists the open RFIs to sweep.
type RFISource interface {
	ListOpen(ctx context.Context) ([]models.RFI, error)
}

// CheckStore reads the current age check and writes its replacement.
type CheckStore interface {
	CurrentByKey(ctx context.Context, ruleID, subjectType string, subjectID uuid.UUID) (*models.ComplianceCheck, error)
	Supersede(ctx context.Context, check models.ComplianceCheck) error
}

type Monitor struct {
	rfis   RFISource
	checks CheckStore
	cfg    config.AgingConfig
}

func NewMonitor(rfis RFISource, checks CheckStore, cfg config.AgingConfig) *Monitor {
	if len(cfg.Thresholds) == 0 {
		cfg = config.DefaultAging()
	}
	return &Monitor{rfis: rfis, checks: checks, cfg: cfg}
}

// Stats summarises one sweep for logging.
type Stats struct {
	Swept     int
	Escalated int
	Errors    int
}

// Run re-evaluates every open RFI's age check at the given instant. A new
// check is written only when the computed severity differs from the current
// one, so unchanged severities cause no history churn. Closed and answered
// RFIs never reach here; their last check stays in history untouched.
// Per-RFI failures are logged and do not abort the sweep.
func (m *Monitor) Run(ctx context.Context, now time.Time) (Stats, error) {
	open, err := m.rfis.ListOpen(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list open rfis: %w", err)
	}

	var stats Stats
	for i := range open {
		stats.Swept++
		if err := m.sweepOne(ctx, &open[i], now, &stats); err != nil {
			stats.Errors++
			slog.Error("rfi age sweep failed", "rfi_id", open[i].ID, "error", err)
		}
	}
	return stats, nil
}

func (m *Monitor) sweepOne(ctx context.Context, rfi *models.RFI, now time.Time, stats *Stats) error {
	severity, ok := m.SeverityForAge(rfi.AgeDays(now))
	if !ok {
		// Below the first threshold: no age check yet.
		return nil
	}

	current, err := m.checks.CurrentByKey(ctx, rules.RFIAgeRuleID, models.SubjectRFI, rfi.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if current != nil && current.Severity == severity {
		return nil
	}

	check := models.ComplianceCheck{
		ID:          uuid.New(),
		ProjectID:   rfi.ProjectID,
		RuleID:      rules.RFIAgeRuleID,
		SubjectType: models.SubjectRFI,
		SubjectID:   rfi.ID,
		Result:      resultFor(severity),
		Severity:    severity,
	}
	if err := m.checks.Supersede(ctx, check); err != nil {
		return err
	}
	stats.Escalated++
	return nil
}

// SeverityForAge maps an age in days onto the highest threshold reached.
// ok is false below the first threshold.
func (m *Monitor) SeverityForAge(ageDays int) (string, bool) {
	severity := ""
	for _, t := range m.cfg.Thresholds {
		if ageDays >= t.MinAgeDays {
			severity = t.Severity
		}
	}
	return severity, severity != ""
}

func resultFor(severity string) string {
	switch severity {
	case models.SeverityHigh, models.SeverityCritical:
		return models.ResultFail
	default:
		return models.ResultWarning
	}
}
