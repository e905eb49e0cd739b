// Package messages serves the archived group message feed.
package messages

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/akiftaxi/gatekeeper/internal/domain"
	"github.com/akiftaxi/gatekeeper/internal/httputil"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Store lists archived group messages, newest first.
type Store interface {
	List(ctx context.Context, limit int) ([]*domain.GroupMessage, error)
}

// Handler serves the group message endpoints.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler creates a messages handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// ListResponse is the group messages payload.
type ListResponse struct {
	Messages []*domain.GroupMessage `json:"messages"`
	Count    int                    `json:"count"`
}

// List returns the most recent archived group messages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	msgs, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list group messages", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []*domain.GroupMessage{}
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Messages: msgs, Count: len(msgs)})
}
