package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// InvitesRepository handles invite persistence. Status transitions are
// conditional writes: a transition only succeeds when the row is still in
// the expected prior state, so concurrent writers cannot both win.
type InvitesRepository struct {
	db Querier
}

// NewInvitesRepository creates a new invites repository.
func NewInvitesRepository(db Querier) *InvitesRepository {
	return &InvitesRepository{db: db}
}

// Create persists a new invite.
func (r *InvitesRepository) Create(ctx context.Context, inv *domain.Invite) error {
	query := `
		INSERT INTO invites (id, owner_id, kind, status, link, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.OwnerID, inv.Kind, inv.Status, inv.Link, inv.CreatedAt, inv.ExpiresAt,
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrStorageConflict
	}
	return err
}

// GetByLink retrieves an invite by its redeemable link.
func (r *InvitesRepository) GetByLink(ctx context.Context, link string) (*domain.Invite, error) {
	query := `
		SELECT id, owner_id, kind, status, link, created_at, expires_at, used_at
		FROM invites
		WHERE link = $1
	`
	inv := &domain.Invite{}
	err := r.db.QueryRowContext(ctx, query, link).Scan(
		&inv.ID, &inv.OwnerID, &inv.Kind, &inv.Status, &inv.Link,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetActive retrieves the active invite of a given kind for an owner.
func (r *InvitesRepository) GetActive(ctx context.Context, ownerID int64, kind domain.InviteKind) (*domain.Invite, error) {
	query := `
		SELECT id, owner_id, kind, status, link, created_at, expires_at, used_at
		FROM invites
		WHERE owner_id = $1 AND kind = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	inv := &domain.Invite{}
	err := r.db.QueryRowContext(ctx, query, ownerID, kind, domain.InviteStatusActive).Scan(
		&inv.ID, &inv.OwnerID, &inv.Kind, &inv.Status, &inv.Link,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkUsed flips an invite from active to used. Exactly one caller can win
// this transition; losers get ErrStorageConflict.
func (r *InvitesRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE invites
		SET status = $2, used_at = $3
		WHERE id = $1 AND status = $4 AND expires_at > $3
	`
	result, err := r.db.ExecContext(ctx, query,
		id, domain.InviteStatusUsed, now, domain.InviteStatusActive,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStorageConflict
	}
	return nil
}

// MarkExpired flips an invite from active to expired. Idempotent: expiring
// an already-terminal invite is a no-op.
func (r *InvitesRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invites
		SET status = $2
		WHERE id = $1 AND status = $3
	`
	_, err := r.db.ExecContext(ctx, query, id, domain.InviteStatusExpired, domain.InviteStatusActive)
	return err
}

// ExpireOverdue flips every active invite past its expiry to expired, so
// stale records self-clean even if nothing else touches them.
func (r *InvitesRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invites
		SET status = $1
		WHERE status = $2 AND expires_at <= $3
	`
	result, err := r.db.ExecContext(ctx, query, domain.InviteStatusExpired, domain.InviteStatusActive, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func isUniqueViolation(err error) bool {
	// lib/pq unique_violation
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
