package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEvent records a modification to project scope, schedule or
// specification. Rows are immutable once inserted.
type ChangeEvent struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProjectID   uuid.UUID  `json:"project_id" db:"project_id"`
	Type        string     `json:"type" db:"type"`
	Description string     `json:"description,omitempty" db:"description"`
	DocumentID  *uuid.UUID `json:"document_id,omitempty" db:"document_id"`
	RFIID       *uuid.UUID `json:"rfi_id,omitempty" db:"rfi_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

const (
	ChangeScope    = "scope"
	ChangeSchedule = "schedule"
	ChangeSpec     = "specification"
	ChangeBudget   = "budget"
)
