package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/store"
)

type RFIHandler struct {
	rfis    *store.RFIStore
	enqueue *queue.Client
}

func NewRFIHandler(rfis *store.RFIStore, q *queue.Client) *RFIHandler {
	return &RFIHandler{rfis: rfis, enqueue: q}
}

type createRFIRequest struct {
	ProjectID string     `json:"project_id"`
	Subject   string     `json:"subject"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

func (h *RFIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRFIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id required"})
		return
	}

	rfi := &models.RFI{
		ID:        uuid.New(),
		ProjectID: projectID,
		Subject:   req.Subject,
		Status:    models.RFIOpen,
		DueDate:   req.DueDate,
	}
	if err := h.rfis.Create(r.Context(), rfi); err != nil {
		slog.Error("insert rfi failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, rfi)
}

type updateRFIStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus changes the RFI lifecycle status and fires the
// rfi-status-changed event so the rule engine rechecks just this RFI.
func (h *RFIHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rfi ID"})
		return
	}

	var req updateRFIStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch req.Status {
	case models.RFIOpen, models.RFIAnswered, models.RFIClosed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if err := h.rfis.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "rfi not found"})
			return
		}
		slog.Error("update rfi status failed", "rfi_id", id, "error", err)
		writeInternalError(w)
		return
	}

	if err := h.enqueue.EnqueueRFIRecheck(queue.RFIRecheckPayload{RFIID: id.String()}); err != nil {
		slog.Error("enqueue rfi recheck failed", "rfi_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}
