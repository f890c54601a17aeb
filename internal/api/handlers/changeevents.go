package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/store"
)

type ChangeEventHandler struct {
	events  *store.ChangeEventStore
	enqueue *queue.Client
}

func NewChangeEventHandler(events *store.ChangeEventStore, q *queue.Client) *ChangeEventHandler {
	return &ChangeEventHandler{events: events, enqueue: q}
}

type createChangeEventRequest struct {
	ProjectID   string  `json:"project_id"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	DocumentID  *string `json:"document_id,omitempty"`
	RFIID       *string `json:"rfi_id,omitempty"`
}

// Create records an immutable change event and fires the
// change-event-created trigger for a scoped compliance recheck.
func (h *ChangeEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChangeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id required"})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type required"})
		return
	}

	ev := &models.ChangeEvent{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Type:        req.Type,
		Description: req.Description,
	}
	if req.DocumentID != nil {
		docID, err := uuid.Parse(*req.DocumentID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document_id"})
			return
		}
		ev.DocumentID = &docID
	}
	if req.RFIID != nil {
		rfiID, err := uuid.Parse(*req.RFIID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rfi_id"})
			return
		}
		ev.RFIID = &rfiID
	}

	if err := h.events.Create(r.Context(), ev); err != nil {
		slog.Error("insert change event failed", "error", err)
		writeInternalError(w)
		return
	}

	if err := h.enqueue.EnqueueChangeEventRecheck(queue.ChangeEventRecheckPayload{ChangeEventID: ev.ID.String()}); err != nil {
		slog.Error("enqueue change event recheck failed", "change_event_id", ev.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, ev)
}
