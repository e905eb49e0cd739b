package bot

import (
	"strings"
	"testing"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		name      string
		status    domain.PaymentStatus
		remaining int
		running   bool
		wants     []string
	}{
		{
			name:      "running trial window",
			status:    domain.PaymentStatusNone,
			remaining: 7,
			running:   true,
			wants:     []string{"7 seconds", "none on file"},
		},
		{
			name:    "no window running",
			status:  domain.PaymentStatusNone,
			running: false,
			wants:   []string{"No access window", "none on file"},
		},
		{
			name:      "approved with paid window",
			status:    domain.PaymentStatusApproved,
			remaining: 12,
			running:   true,
			wants:     []string{"12 seconds", "approved"},
		},
		{
			name:    "pending review",
			status:  domain.PaymentStatusPending,
			running: false,
			wants:   []string{"waiting for review"},
		},
		{
			name:    "rejected",
			status:  domain.PaymentStatusRejected,
			running: false,
			wants:   []string{"rejected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &domain.Member{ID: 7, Role: domain.RoleDriver, PaymentStatus: tt.status}
			got := statusText(m, tt.remaining, tt.running)
			for _, want := range tt.wants {
				if !strings.Contains(got, want) {
					t.Errorf("statusText = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestMainDriverKeyboard_HasStatusButton(t *testing.T) {
	kb := mainDriverKeyboard()

	found := false
	for _, row := range kb.Keyboard {
		for _, btn := range row {
			if btn.Text == btnStatus {
				found = true
			}
		}
	}
	if !found {
		t.Error("driver keyboard is missing the status button")
	}
}
