package handlers

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sdko-org/content-query/internal/cache"
	"github.com/sdko-org/content-query/internal/optimizer"
	"github.com/sdko-org/content-query/internal/tracker"
	"github.com/sirupsen/logrus"
)

type invalidateRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

type invalidateResponse struct {
	EntityType string `json:"entityType"`
	Removed    int    `json:"removed"`
}

type statsResponse struct {
	Overview   tracker.SystemOverview            `json:"overview"`
	Operations map[string]tracker.AggregateStats `json:"operations"`
	Cache      cache.Stats                       `json:"cache"`
}

// InvalidateCache drops cached pages related to a changed entity.
func (h *ContentHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.EntityType) == "" {
		writeError(w, http.StatusBadRequest, "entityType is required")
		return
	}

	removed := h.svc.InvalidateRelatedCache(req.EntityType, req.EntityID)
	h.log.WithFields(logrus.Fields{
		"entity_type": req.EntityType,
		"entity_id":   req.EntityID,
		"removed":     removed,
	}).Info("Cache invalidation requested")

	writeJSON(w, http.StatusOK, invalidateResponse{EntityType: req.EntityType, Removed: removed})
}

func (h *ContentHandler) QueryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Overview:   h.svc.Overview(),
		Operations: h.svc.Stats(),
		Cache:      h.svc.Cache().Stats(),
	})
}

// Health answers 503 only when the service is unhealthy; a degraded service
// still serves traffic.
func (h *ContentHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.svc.HealthCheck()
	status := http.StatusOK
	if report.Status == optimizer.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
