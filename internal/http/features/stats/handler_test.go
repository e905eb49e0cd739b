package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

type fakeStore struct {
	stats *domain.Stats
	err   error
}

func (f *fakeStore) Stats(ctx context.Context) (*domain.Stats, error) {
	return f.stats, f.err
}

func TestGet(t *testing.T) {
	store := &fakeStore{stats: &domain.Stats{Riders: 12, Drivers: 4, ApprovedPayments: 3, PendingPayments: 1}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got domain.Stats
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != *store.stats {
		t.Errorf("stats = %+v, want %+v", got, *store.stats)
	}
}

func TestGet_StoreError(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeStore{err: errors.New("db down")})

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
