package domain

import (
	"time"

	"github.com/google/uuid"
)

// InviteKind distinguishes the free trial window from the paid renewal window.
type InviteKind string

const (
	InviteKindTrial   InviteKind = "trial"
	InviteKindRenewal InviteKind = "renewal"
)

// InviteStatus is monotonic: active may move to used or expired, and both
// of those are terminal.
type InviteStatus string

const (
	InviteStatusActive  InviteStatus = "active"
	InviteStatusUsed    InviteStatus = "used"
	InviteStatusExpired InviteStatus = "expired"
)

// Invite is a single-use, time-bounded admission token for the managed group.
// At most one active invite per (owner, kind) may exist at any time.
type Invite struct {
	ID        uuid.UUID
	OwnerID   int64
	Kind      InviteKind
	Status    InviteStatus
	Link      string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Redeemable reports whether the invite can still admit its owner.
func (i *Invite) Redeemable(now time.Time) bool {
	return i.Status == InviteStatusActive && now.Before(i.ExpiresAt)
}
