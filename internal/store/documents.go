package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/markhenning/buildcomply/internal/models"
)

type DocumentStore struct {
	db *pgxpool.Pool
}

func NewDocumentStore(db *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, project_id, title, storage_path, content_type, ingestion_status, uploaded_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.StoragePath, &d.ContentType,
		&d.IngestionStatus, &d.UploadedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func (s *DocumentStore) Create(ctx context.Context, doc *models.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, project_id, title, storage_path, content_type, ingestion_status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.ProjectID, doc.Title, doc.StoragePath, doc.ContentType, models.IngestionPending,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// ClaimForIngestion atomically moves a document into "processing". A claim
// succeeds for documents in pending or failed, and for a processing row whose
// updated_at is older than staleBefore (a crashed run being resumed). It
// returns claimed=false for a document already embedded or with a fresh
// in-flight claim, which callers treat as a no-op.
func (s *DocumentStore) ClaimForIngestion(ctx context.Context, id uuid.UUID, staleBefore time.Time) (*models.Document, bool, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE documents SET ingestion_status = $2, updated_at = now()
		 WHERE id = $1 AND (
			ingestion_status IN ($3, $4)
			OR (ingestion_status = $2 AND updated_at < $5)
		 )
		 RETURNING `+documentColumns,
		id, models.IngestionProcessing, models.IngestionPending, models.IngestionFailed, staleBefore,
	)
	doc, err := scanDocument(row)
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	// Claim refused: distinguish a genuinely missing document from an
	// already-embedded or freshly-processing one.
	doc, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

func (s *DocumentStore) MarkEmbedded(ctx context.Context, id uuid.UUID, vector []float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents SET embedding = $2, ingestion_status = $3, updated_at = now() WHERE id = $1`,
		id, pgvector.NewVector(vector), models.IngestionEmbedded,
	)
	if err != nil {
		return fmt.Errorf("mark embedded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DocumentStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET ingestion_status = $2, updated_at = now() WHERE id = $1`,
		id, models.IngestionFailed,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// GetEmbedding loads just the stored vector for rule evaluation.
func (s *DocumentStore) GetEmbedding(ctx context.Context, id uuid.UUID) ([]float32, error) {
	var vec pgvector.Vector
	err := s.db.QueryRow(ctx, `SELECT embedding FROM documents WHERE id = $1 AND embedding IS NOT NULL`, id).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return vec.Slice(), nil
}
