package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// PaymentsRepository handles payment receipt persistence.
type PaymentsRepository struct {
	db Querier
}

// NewPaymentsRepository creates a new payments repository.
func NewPaymentsRepository(db Querier) *PaymentsRepository {
	return &PaymentsRepository{db: db}
}

// Create records a submitted payment receipt.
func (r *PaymentsRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, member_id, photo_file_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.MemberID, p.PhotoFileID, p.Status, p.CreatedAt)
	return err
}

// LatestPending retrieves the most recent pending payment for a member.
func (r *PaymentsRepository) LatestPending(ctx context.Context, memberID int64) (*domain.Payment, error) {
	query := `
		SELECT id, member_id, photo_file_id, status, created_at, reviewed_at
		FROM payments
		WHERE member_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	p := &domain.Payment{}
	err := r.db.QueryRowContext(ctx, query, memberID, domain.PaymentStatusPending).Scan(
		&p.ID, &p.MemberID, &p.PhotoFileID, &p.Status, &p.CreatedAt, &p.ReviewedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkReviewed records the operator's decision on all pending receipts of a
// member. Idempotent: already-reviewed receipts are left alone.
func (r *PaymentsRepository) MarkReviewed(ctx context.Context, memberID int64, outcome domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $2, reviewed_at = $3
		WHERE member_id = $1 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, memberID, outcome, time.Now(), domain.PaymentStatusPending)
	return err
}
