package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment records a submitted payment receipt awaiting operator review.
type Payment struct {
	ID          uuid.UUID
	MemberID    int64
	PhotoFileID string
	Status      PaymentStatus
	CreatedAt   time.Time
	ReviewedAt  *time.Time
}
