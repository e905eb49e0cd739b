package domain

import "time"

// Role represents what kind of member an identity is.
type Role string

const (
	RoleUnassigned Role = "unassigned"
	RoleRider      Role = "rider"
	RoleDriver     Role = "driver"
	RoleOperator   Role = "operator"
)

// PaymentStatus drives which access window applies to a driver.
type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// StateNormal is the only conversation state the lifecycle engine knows
// about. All other states are opaque tokens owned by the bot dialogue.
const StateNormal = "normal"

// Member represents one external identity known to the bot. Members are
// never hard-deleted; terminal role/status values are set instead.
type Member struct {
	ID        int64 // Telegram user ID
	Username  string
	FirstName string
	FullName  string
	Phone     string
	Role      Role
	// PaymentStatus is the access status from the lifecycle state machine.
	PaymentStatus PaymentStatus
	// State is the conversation state owned by the onboarding dialogue.
	State string
	// LastTransitionAt is the reference epoch for the member's countdown.
	LastTransitionAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsDriver reports whether the member is subject to bounded group access.
func (m *Member) IsDriver() bool {
	return m.Role == RoleDriver
}

// Stats summarizes the member base for the operator panel.
type Stats struct {
	Riders           int `json:"riders"`
	Drivers          int `json:"drivers"`
	ApprovedPayments int `json:"approved_payments"`
	PendingPayments  int `json:"pending_payments"`
}
