package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/models"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/storage"
	"github.com/markhenning/buildcomply/internal/store"
)

type DocumentHandler struct {
	docs    *store.DocumentStore
	blobs   storage.Storage
	bucket  string
	enqueue *queue.Client
}

func NewDocumentHandler(docs *store.DocumentStore, blobs storage.Storage, bucket string, q *queue.Client) *DocumentHandler {
	return &DocumentHandler{docs: docs, blobs: blobs, bucket: bucket, enqueue: q}
}

// Upload stores the raw file, inserts a pending document row and fires the
// document-uploaded event. Ingestion happens asynchronously in the worker.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	projectID, err := uuid.Parse(r.FormValue("project_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	docID := uuid.New()
	ext := filepath.Ext(header.Filename)
	path := fmt.Sprintf("%s/%s/%s%s", projectID, docID, time.Now().Format("20060102"), ext)

	if err := h.blobs.Upload(r.Context(), h.bucket, path, file, header.Header.Get("Content-Type")); err != nil {
		slog.Error("upload to storage failed", "document_id", docID, "error", err)
		writeInternalError(w)
		return
	}

	doc := &models.Document{
		ID:          docID,
		ProjectID:   projectID,
		Title:       title,
		StoragePath: path,
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := h.docs.Create(r.Context(), doc); err != nil {
		slog.Error("insert document failed", "document_id", docID, "error", err)
		writeInternalError(w)
		return
	}

	if err := h.enqueue.EnqueueDocumentIngest(queue.DocumentIngestPayload{DocumentID: docID.String()}); err != nil {
		slog.Error("enqueue ingest failed", "document_id", docID, "error", err)
		writeInternalError(w)
		return
	}

	doc.IngestionStatus = models.IngestionPending
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.docs.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}
	if err != nil {
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":               doc.ID.String(),
		"ingestion_status": doc.IngestionStatus,
	})
}
