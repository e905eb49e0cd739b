package bot

import "testing"

func TestParseReviewCallback(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		action   string
		memberID int64
		wantErr  bool
	}{
		{
			name:     "approve",
			data:     "approve_12345",
			action:   reviewApprove,
			memberID: 12345,
		},
		{
			name:     "reject",
			data:     "reject_987654321",
			action:   reviewReject,
			memberID: 987654321,
		},
		{
			name:    "unknown action",
			data:    "ban_123",
			wantErr: true,
		},
		{
			name:    "missing id",
			data:    "approve",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			data:    "approve_abc",
			wantErr: true,
		},
		{
			name:    "empty",
			data:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, memberID, err := parseReviewCallback(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseReviewCallback(%q) succeeded, want error", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseReviewCallback(%q) failed: %v", tt.data, err)
			}
			if action != tt.action || memberID != tt.memberID {
				t.Errorf("parseReviewCallback(%q) = (%q, %d), want (%q, %d)",
					tt.data, action, memberID, tt.action, tt.memberID)
			}
		})
	}
}

func TestReviewCallbackData_RoundTrip(t *testing.T) {
	data := reviewCallbackData(reviewApprove, 42)
	action, memberID, err := parseReviewCallback(data)
	if err != nil {
		t.Fatalf("parseReviewCallback(%q) failed: %v", data, err)
	}
	if action != reviewApprove || memberID != 42 {
		t.Errorf("round trip = (%q, %d), want (%q, 42)", action, memberID, reviewApprove)
	}
}
