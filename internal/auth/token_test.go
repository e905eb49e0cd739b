package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)

	token, err := svc.Issue("operator", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "operator")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
	if claims.Issuer != "gatekeeper" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "gatekeeper")
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), "gatekeeper", -time.Minute)

	token, err := svc.Issue("operator", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("Validate should reject an expired token")
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)
	other := NewTokenService([]byte("other-secret"), "gatekeeper", time.Hour)

	token, err := svc.Issue("operator", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.Validate(token); err == nil {
		t.Error("Validate should reject a token signed with a different secret")
	}
}

func TestTokenService_RejectsWrongIssuer(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)
	other := NewTokenService([]byte("test-secret"), "someone-else", time.Hour)

	token, err := other.Issue("operator", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("Validate should reject a token from a different issuer")
	}
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), "gatekeeper", time.Hour)

	for _, token := range []string{"", "not-a-token", strings.Repeat("a.b.c", 3)} {
		if _, err := svc.Validate(token); err == nil {
			t.Errorf("Validate(%q) should fail", token)
		}
	}
}
