package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akiftaxi/gatekeeper/internal/auth"
)

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)
	valid, err := tokens.Issue("operator", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var gotSubject string
	handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = GetSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotSubject != "operator" {
				t.Errorf("subject = %q, want %q", gotSubject, "operator")
			}
		})
	}
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	expiredIssuer := auth.NewTokenService([]byte("test-secret"), "gatekeeper", -time.Minute)
	tokens := auth.NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)

	expired, err := expiredIssuer.Issue("operator", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
