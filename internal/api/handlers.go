package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/scraper"
)

// ProgressSource reports the state of the current run.
type ProgressSource interface {
	Snapshot() scraper.Snapshot
}

type Handlers struct {
	progress  ProgressSource
	startedAt time.Time
	logger    *slog.Logger
}

func NewHandlers(progress ProgressSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		progress:  progress,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
	Uptime string `json:"uptime"`
}

// Health reports ok while the run is healthy and 503 once it has failed.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.progress.Snapshot()

	resp := HealthResponse{
		Status: "ok",
		Phase:  string(snap.Phase),
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	}

	status := http.StatusOK
	if snap.Phase == scraper.PhaseFailed {
		resp.Status = "error"
		status = http.StatusServiceUnavailable
	}

	h.respondJSON(w, status, resp)
}

// GetRun returns the live progress snapshot.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.progress.Snapshot())
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
