package messages

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

type fakeStore struct {
	msgs      []*domain.GroupMessage
	err       error
	lastLimit int
}

func (f *fakeStore) List(ctx context.Context, limit int) ([]*domain.GroupMessage, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.msgs) {
		limit = len(f.msgs)
	}
	return f.msgs[:limit], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleMessages(n int) []*domain.GroupMessage {
	msgs := make([]*domain.GroupMessage, n)
	for i := range msgs {
		msgs[i] = &domain.GroupMessage{
			MessageID: int64(i + 1),
			ChatID:    -100,
			SenderID:  int64(i + 1),
			Text:      "hello",
			SentAt:    time.Now(),
		}
	}
	return msgs
}

func TestList(t *testing.T) {
	store := &fakeStore{msgs: sampleMessages(3)}
	h := NewHandler(testLogger(), store)

	req := httptest.NewRequest("GET", "/api/group-messages", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 3 || len(resp.Messages) != 3 {
		t.Errorf("count = %d, messages = %d, want 3 each", resp.Count, len(resp.Messages))
	}
	if store.lastLimit != defaultLimit {
		t.Errorf("limit passed to store = %d, want default %d", store.lastLimit, defaultLimit)
	}
}

func TestList_LimitParam(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"capped at max", "?limit=10000", http.StatusOK, maxLimit},
		{"zero rejected", "?limit=0", http.StatusBadRequest, 0},
		{"negative rejected", "?limit=-3", http.StatusBadRequest, 0},
		{"non-numeric rejected", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{msgs: sampleMessages(2)}
			h := NewHandler(testLogger(), store)

			req := httptest.NewRequest("GET", "/api/group-messages"+tt.query, nil)
			w := httptest.NewRecorder()
			h.List(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && store.lastLimit != tt.wantLimit {
				t.Errorf("limit passed to store = %d, want %d", store.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestList_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	h := NewHandler(testLogger(), store)

	req := httptest.NewRequest("GET", "/api/group-messages", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestList_EmptyArchive(t *testing.T) {
	h := NewHandler(testLogger(), &fakeStore{})

	req := httptest.NewRequest("GET", "/api/group-messages", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Messages == nil {
		t.Error("messages should be an empty array, not null")
	}
}
