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

type DocumentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	GetEmbedding(ctx context.Context, id uuid.UUID) ([]float32, error)
}

type DocumentEvaluator interface {
	EvaluateDocument(ctx context.Context, doc *models.Document, embedding []float32) (int, error)
}

// EvaluateWorker consumes the document-embedded event and runs the rule
// engine scoped to that one document.
type EvaluateWorker struct {
	docs   DocumentReader
	engine DocumentEvaluator
}

func NewEvaluateWorker(docs DocumentReader, engine DocumentEvaluator) *EvaluateWorker {
	return &EvaluateWorker{docs: docs, engine: engine}
}

func (w *EvaluateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentEvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	doc, err := w.docs.GetByID(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("document missing, data-integrity signal", "document_id", docID)
		return fmt.Errorf("document %s not found: %w", docID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.IngestionStatus != models.IngestionEmbedded {
		// Raced with a re-ingestion; the next embedded event re-triggers us.
		slog.Info("skipping evaluation, document not embedded", "document_id", docID, "status", doc.IngestionStatus)
		return nil
	}

	embedding, err := w.docs.GetEmbedding(ctx, docID)
	if err != nil {
		return fmt.Errorf("load embedding: %w", err)
	}

	n, err := w.engine.EvaluateDocument(ctx, doc, embedding)
	if err != nil {
		return fmt.Errorf("evaluate document %s: %w", docID, err)
	}

	slog.Info("document evaluated", "document_id", docID, "checks_written", n)
	return nil
}
