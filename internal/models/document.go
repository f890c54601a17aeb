package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ProjectID       uuid.UUID `json:"project_id" db:"project_id"`
	Title           string    `json:"title" db:"title"`
	StoragePath     string    `json:"storage_path,omitempty" db:"storage_path"`
	ContentType     string    `json:"content_type,omitempty" db:"content_type"`
	Embedding       []float32 `json:"-" db:"embedding"`
	IngestionStatus string    `json:"ingestion_status" db:"ingestion_status"`
	UploadedAt      time.Time `json:"uploaded_at" db:"uploaded_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

const (
	IngestionPending    = "pending"
	IngestionProcessing = "processing"
	IngestionEmbedded   = "embedded"
	IngestionFailed     = "failed"
)
