package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/markhenning/buildcomply/internal/aging"
	"github.com/markhenning/buildcomply/internal/models"
)

// AgingWorker runs the RFI aging monitor. It is registered for both the
// daily aging sweep and the few-hourly severity sweep: the severity cron is
// exactly the monitor's time-dependent logic on a tighter schedule, with no
// full rule-engine pass.
type AgingWorker struct {
	monitor *aging.Monitor
}

func NewAgingWorker(monitor *aging.Monitor) *AgingWorker {
	return &AgingWorker{monitor: monitor}
}

func (w *AgingWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	stats, err := w.monitor.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("aging sweep: %w", err)
	}
	slog.Info("aging sweep complete", "task", t.Type(),
		"swept", stats.Swept, "escalated", stats.Escalated, "errors", stats.Errors)
	return nil
}

type ProjectLister interface {
	ActiveProjects(ctx context.Context) ([]uuid.UUID, error)
}

type SnapshotTaker interface {
	TakeSnapshot(ctx context.Context, projectID uuid.UUID) (*models.ComplianceScoreSnapshot, error)
	WriteWeeklySummary(ctx context.Context, projectID uuid.UUID) (*models.WeeklySummary, error)
}

// SnapshotWorker fans the daily snapshot out over every known project. One
// project's failure never blocks the others; the next scheduled run fills
// the gap.
type SnapshotWorker struct {
	projects ProjectLister
	svc      SnapshotTaker
	audit    Auditor
}

func NewSnapshotWorker(projects ProjectLister, svc SnapshotTaker, audit Auditor) *SnapshotWorker {
	return &SnapshotWorker{projects: projects, svc: svc, audit: audit}
}

func (w *SnapshotWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	ids, err := w.projects.ActiveProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	for _, id := range ids {
		snap, err := w.svc.TakeSnapshot(ctx, id)
		if err != nil {
			slog.Error("snapshot failed", "project_id", id, "error", err)
			continue
		}
		if w.audit != nil {
			w.audit.Record(ctx, "snapshot.written", "snapshot", snap.ID, id,
				map[string]interface{}{"score": snap.Score})
		}
	}

	slog.Info("daily snapshot sweep complete", "projects", len(ids))
	return nil
}

// SummaryWorker writes the trailing-week summary for every known project.
type SummaryWorker struct {
	projects ProjectLister
	svc      SnapshotTaker
}

func NewSummaryWorker(projects ProjectLister, svc SnapshotTaker) *SummaryWorker {
	return &SummaryWorker{projects: projects, svc: svc}
}

func (w *SummaryWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	ids, err := w.projects.ActiveProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	written := 0
	for _, id := range ids {
		sum, err := w.svc.WriteWeeklySummary(ctx, id)
		if err != nil {
			slog.Error("weekly summary failed", "project_id", id, "error", err)
			continue
		}
		if sum != nil {
			written++
		}
	}

	slog.Info("weekly summary sweep complete", "projects", len(ids), "written", written)
	return nil
}
