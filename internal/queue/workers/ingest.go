package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/store"
	"github.com/markhenning/buildcomply/pkg/textextract"
)

// DocumentRepo is the slice of the document store the ingest worker needs.
type DocumentRepo interface {
	ClaimForIngestion(ctx context.Context, id uuid.UUID, staleBefore time.Time) (*models.Document, bool, error)
	MarkEmbedded(ctx context.Context, id uuid.UUID, vector []float32) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type BlobStore interface {
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type EvaluateEnqueuer interface {
	EnqueueDocumentEvaluate(payload queue.DocumentEvaluatePayload) error
}

type Auditor interface {
	Record(ctx context.Context, action, resourceType string, resourceID uuid.UUID, projectID uuid.UUID, details map[string]interface{})
}

// IngestWorker handles document:ingest. Delivery is at-least-once, so the
// whole handler is a state machine over ingestion_status: an already
// embedded document is a no-op, a fresh processing claim means another
// invocation is in flight, and a stale processing claim is resumed (the
// orchestrator redelivers after a crash mid-run).
type IngestWorker struct {
	docs      DocumentRepo
	blobs     BlobStore
	bucket    string
	embedder  Embedder
	enqueuer  EvaluateEnqueuer
	audit     Auditor
	staleness time.Duration
}

func NewIngestWorker(docs DocumentRepo, blobs BlobStore, bucket string, embedder Embedder, enqueuer EvaluateEnqueuer, audit Auditor, staleness time.Duration) *IngestWorker {
	if staleness <= 0 {
		staleness = 15 * time.Minute
	}
	return &IngestWorker{
		docs:      docs,
		blobs:     blobs,
		bucket:    bucket,
		embedder:  embedder,
		enqueuer:  enqueuer,
		audit:     audit,
		staleness: staleness,
	}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	doc, claimed, err := w.docs.ClaimForIngestion(ctx, docID, time.Now().Add(-w.staleness))
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("document missing, data-integrity signal", "document_id", docID)
		return fmt.Errorf("document %s not found: %w", docID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("claim document %s: %w", docID, err)
	}
	if !claimed {
		// Embedded already, or a fresh claim is in flight.
		slog.Info("ingest no-op", "document_id", docID, "status", doc.IngestionStatus)
		return nil
	}

	slog.Info("ingesting document", "document_id", docID, "project_id", doc.ProjectID)

	vector, err := w.extractAndEmbed(ctx, doc)
	if err != nil {
		if markErr := w.docs.MarkFailed(ctx, docID); markErr != nil {
			slog.Error("mark failed", "document_id", docID, "error", markErr)
		}
		return fmt.Errorf("ingest document %s: %w", docID, err)
	}

	if err := w.docs.MarkEmbedded(ctx, docID, vector); err != nil {
		return fmt.Errorf("persist embedding: %w", err)
	}

	// The "document embedded" event: downstream rule evaluation picks the
	// document up from here.
	if err := w.enqueuer.EnqueueDocumentEvaluate(queue.DocumentEvaluatePayload{DocumentID: docID.String()}); err != nil {
		slog.Error("enqueue document evaluation", "document_id", docID, "error", err)
	}

	if w.audit != nil {
		w.audit.Record(ctx, "document.embedded", "document", docID, doc.ProjectID, nil)
	}

	slog.Info("document embedded", "document_id", docID)
	return nil
}

func (w *IngestWorker) extractAndEmbed(ctx context.Context, doc *models.Document) ([]float32, error) {
	reader, err := w.blobs.Download(ctx, w.bucket, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}

	extracted, err := textextract.Extract(data, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if extracted.Content == "" {
		return nil, fmt.Errorf("document has no extractable text")
	}

	vector, err := w.embedder.EmbedSingle(ctx, extracted.Content)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vector, nil
}
