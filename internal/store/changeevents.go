package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markhenning/buildcomply/internal/models"
)

type ChangeEventStore struct {
	db *pgxpool.Pool
}

func NewChangeEventStore(db *pgxpool.Pool) *ChangeEventStore {
	return &ChangeEventStore{db: db}
}

func (s *ChangeEventStore) Create(ctx context.Context, ev *models.ChangeEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO change_events (id, project_id, type, description, document_id, rfi_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.ProjectID, ev.Type, ev.Description, ev.DocumentID, ev.RFIID,
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

func (s *ChangeEventStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeEvent, error) {
	var ev models.ChangeEvent
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, type, description, document_id, rfi_id, created_at
		 FROM change_events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.ProjectID, &ev.Type, &ev.Description, &ev.DocumentID, &ev.RFIID, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get change event: %w", err)
	}
	return &ev, nil
}
