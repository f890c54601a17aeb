package models

import (
	"time"

	"github.com/google/uuid"
)

type RFI struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProjectID uuid.UUID  `json:"project_id" db:"project_id"`
	Subject   string     `json:"subject" db:"subject"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DueDate   *time.Time `json:"due_date,omitempty" db:"due_date"`
}

const (
	RFIOpen     = "open"
	RFIAnswered = "answered"
	RFIClosed   = "closed"
)

// AgeDays is the whole number of days the RFI has existed at the given
// instant. Never stored; recomputed wherever it is needed.
func (r *RFI) AgeDays(now time.Time) int {
	if now.Before(r.CreatedAt) {
		return 0
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}
