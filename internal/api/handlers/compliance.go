package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markhenning/buildcomply/internal/cache"
	"github.com/markhenning/buildcomply/internal/scoring"
	"github.com/markhenning/buildcomply/internal/snapshot"
)

const healthCacheTTL = 5 * time.Minute

type ComplianceHandler struct {
	scorer *scoring.Service
	snaps  *snapshot.Service
	cache  *cache.Cache
}

func NewComplianceHandler(scorer *scoring.Service, snaps *snapshot.Service, c *cache.Cache) *ComplianceHandler {
	return &ComplianceHandler{scorer: scorer, snaps: snaps, cache: c}
}

// Score recalculates the project's compliance score on demand. This only
// aggregates already-materialised checks, so it is bounded for an
// interactive request.
func (h *ComplianceHandler) Score(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project ID"})
		return
	}

	score, err := h.scorer.Calculate(r.Context(), projectID)
	if err != nil {
		slog.Error("score calculation failed", "project_id", projectID, "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, score)
}

type healthComponent struct {
	Score             int            `json:"score"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	Trend             string         `json:"trend"`
	ComputedAt        time.Time      `json:"computed_at"`
}

// Health returns the dashboard health component: score, breakdown and
// week-over-week trend, cached briefly to keep dashboard fan-in cheap.
func (h *ComplianceHandler) Health(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project ID"})
		return
	}

	cacheKey := "compliance:health:" + projectID.String()
	if h.cache != nil {
		var cached healthComponent
		if err := h.cache.Get(r.Context(), cacheKey, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	score, err := h.scorer.Calculate(r.Context(), projectID)
	if err != nil {
		slog.Error("health score failed", "project_id", projectID, "error", err)
		writeInternalError(w)
		return
	}

	trend, err := h.snaps.Trend(r.Context(), projectID)
	if err != nil {
		slog.Error("health trend failed", "project_id", projectID, "error", err)
		writeInternalError(w)
		return
	}

	component := healthComponent{
		Score:             score.Score,
		CategoryBreakdown: score.CategoryBreakdown,
		Trend:             trend,
		ComputedAt:        score.ComputedAt,
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, component, healthCacheTTL); err != nil {
			slog.Warn("cache health component", "project_id", projectID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, component)
}
