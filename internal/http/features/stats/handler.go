// Package stats serves membership counters for the operator dashboard.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akiftaxi/gatekeeper/internal/domain"
	"github.com/akiftaxi/gatekeeper/internal/httputil"
)

// Store computes membership statistics.
type Store interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Handler serves the stats endpoint.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler creates a stats handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// Get returns current membership counters.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}
