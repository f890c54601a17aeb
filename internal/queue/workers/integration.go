package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/store"
)

// The integration check workers re-run the rule engine scoped to a single
// changed subject instead of rescanning the project. Idempotency under
// redelivery comes from the superseding insert, same as everywhere else.

type RFIReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.RFI, error)
}

type RFIEvaluator interface {
	EvaluateRFI(ctx context.Context, rfi *models.RFI) (int, error)
}

type RFIRecheckWorker struct {
	rfis   RFIReader
	engine RFIEvaluator
}

func NewRFIRecheckWorker(rfis RFIReader, engine RFIEvaluator) *RFIRecheckWorker {
	return &RFIRecheckWorker{rfis: rfis, engine: engine}
}

func (w *RFIRecheckWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.RFIRecheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rfiID, err := uuid.Parse(payload.RFIID)
	if err != nil {
		return fmt.Errorf("parse rfi ID: %w", err)
	}

	rfi, err := w.rfis.GetByID(ctx, rfiID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("rfi missing, data-integrity signal", "rfi_id", rfiID)
		return fmt.Errorf("rfi %s not found: %w", rfiID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("get rfi: %w", err)
	}

	n, err := w.engine.EvaluateRFI(ctx, rfi)
	if err != nil {
		return fmt.Errorf("evaluate rfi %s: %w", rfiID, err)
	}

	slog.Info("rfi rechecked", "rfi_id", rfiID, "checks_written", n)
	return nil
}

type ChangeEventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeEvent, error)
}

type ChangeEventEvaluator interface {
	EvaluateChangeEvent(ctx context.Context, ev *models.ChangeEvent) (int, error)
}

type ChangeEventRecheckWorker struct {
	events ChangeEventReader
	engine ChangeEventEvaluator
}

func NewChangeEventRecheckWorker(events ChangeEventReader, engine ChangeEventEvaluator) *ChangeEventRecheckWorker {
	return &ChangeEventRecheckWorker{events: events, engine: engine}
}

func (w *ChangeEventRecheckWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ChangeEventRecheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	evID, err := uuid.Parse(payload.ChangeEventID)
	if err != nil {
		return fmt.Errorf("parse change event ID: %w", err)
	}

	ev, err := w.events.GetByID(ctx, evID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("change event missing, data-integrity signal", "change_event_id", evID)
		return fmt.Errorf("change event %s not found: %w", evID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("get change event: %w", err)
	}

	n, err := w.engine.EvaluateChangeEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("evaluate change event %s: %w", evID, err)
	}

	slog.Info("change event checked", "change_event_id", evID, "checks_written", n)
	return nil
}
