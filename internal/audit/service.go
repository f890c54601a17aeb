// Package audit writes the pipeline's compliance event trail. Entries are
// best-effort: a failed write is logged, never propagated, because no job
// should fail on its own bookkeeping.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, action, resourceType string, resourceID uuid.UUID, projectID uuid.UUID, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	if details == nil {
		payload = []byte("{}")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_events (project_id, action, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5)`,
		projectID, action, resourceType, resourceID, payload,
	)
	if err != nil {
		slog.Error("audit write failed", "action", action, "resource_id", resourceID, "error", err)
	}
}
