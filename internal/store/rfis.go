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

type RFIStore struct {
	db *pgxpool.Pool
}

func NewRFIStore(db *pgxpool.Pool) *RFIStore {
	return &RFIStore{db: db}
}

const rfiColumns = `id, project_id, subject, status, created_at, due_date`

func scanRFI(row pgx.Row) (*models.RFI, error) {
	var r models.RFI
	err := row.Scan(&r.ID, &r.ProjectID, &r.Subject, &r.Status, &r.CreatedAt, &r.DueDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rfi: %w", err)
	}
	return &r, nil
}

func (s *RFIStore) Create(ctx context.Context, r *models.RFI) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO rfis (id, project_id, subject, status, due_date) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.ProjectID, r.Subject, r.Status, r.DueDate,
	)
	if err != nil {
		return fmt.Errorf("insert rfi: %w", err)
	}
	return nil
}

func (s *RFIStore) GetByID(ctx context.Context, id uuid.UUID) (*models.RFI, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rfiColumns+` FROM rfis WHERE id = $1`, id)
	return scanRFI(row)
}

// UpdateStatus changes the user-facing lifecycle status. Severity is never
// touched here; that belongs to the aging monitor's checks.
func (s *RFIStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `UPDATE rfis SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update rfi status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpen returns every open RFI across all projects, for the aging sweep.
func (s *RFIStore) ListOpen(ctx context.Context) ([]models.RFI, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+rfiColumns+` FROM rfis WHERE status = $1 ORDER BY created_at`, models.RFIOpen)
	if err != nil {
		return nil, fmt.Errorf("list open rfis: %w", err)
	}
	defer rows.Close()

	var rfis []models.RFI
	for rows.Next() {
		var r models.RFI
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Subject, &r.Status, &r.CreatedAt, &r.DueDate); err != nil {
			return nil, fmt.Errorf("scan rfi: %w", err)
		}
		rfis = append(rfis, r)
	}
	return rfis, rows.Err()
}
