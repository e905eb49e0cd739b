// Package invite issues and redeems single-use, time-bounded group invites.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// Store persists invites. Status transitions must be conditional writes:
// MarkUsed succeeds for exactly one caller per invite, losers get
// domain.ErrStorageConflict.
type Store interface {
	Create(ctx context.Context, inv *domain.Invite) error
	GetByLink(ctx context.Context, link string) (*domain.Invite, error)
	GetActive(ctx context.Context, ownerID int64, kind domain.InviteKind) (*domain.Invite, error)
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// LinkCreator produces a redeemable single-use link from the group platform.
type LinkCreator interface {
	CreateInviteLink(ctx context.Context, expiresAt time.Time) (string, error)
}

// Ledger is the durable record of invite issuance, uniqueness, expiry and
// status transitions. It upholds the single-active-invite-per-kind
// invariant for every owner.
type Ledger struct {
	store  Store
	links  LinkCreator
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a new invite ledger.
func NewLedger(store Store, links LinkCreator, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		links:  links,
		logger: logger,
		now:    time.Now,
	}
}

// Issue returns an invite of the given kind for an owner. A still-valid
// active invite of the same kind is reused; a stale one is expired first so
// the owner can never hold two redeemable links of the same kind.
func (l *Ledger) Issue(ctx context.Context, ownerID int64, kind domain.InviteKind, ttl time.Duration) (*domain.Invite, error) {
	now := l.now()

	existing, err := l.store.GetActive(ctx, ownerID, kind)
	switch {
	case err == nil:
		if existing.Redeemable(now) {
			return existing, nil
		}
		if err := l.store.MarkExpired(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to expire stale invite: %w (%w)", err, domain.ErrDuplicateActiveInvite)
		}
	case errors.Is(err, domain.ErrInviteNotFound):
		// no active invite, proceed
	default:
		return nil, err
	}

	link, err := l.links.CreateInviteLink(ctx, now.Add(ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite link: %w", err)
	}

	inv := &domain.Invite{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    domain.InviteStatusActive,
		Link:      link,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := l.store.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			return nil, domain.ErrDuplicateActiveInvite
		}
		return nil, err
	}

	l.logger.Info("invite issued", "owner_id", ownerID, "kind", kind, "expires_at", inv.ExpiresAt)
	return inv, nil
}

// Redeem consumes an invite by link. Exactly one concurrent caller observes
// success; every other caller gets ErrInviteAlreadyUsed (or ErrInviteExpired
// when the invite lapsed first).
func (l *Ledger) Redeem(ctx context.Context, link string) (*domain.Invite, error) {
	inv, err := l.store.GetByLink(ctx, link)
	if err != nil {
		return nil, err
	}

	now := l.now()
	switch inv.Status {
	case domain.InviteStatusUsed:
		return nil, domain.ErrInviteAlreadyUsed
	case domain.InviteStatusExpired:
		return nil, domain.ErrInviteExpired
	}
	if !inv.Redeemable(now) {
		if err := l.store.MarkExpired(ctx, inv.ID); err != nil {
			l.logger.Warn("failed to expire overdue invite", "invite_id", inv.ID, "error", err)
		}
		return nil, domain.ErrInviteExpired
	}

	if err := l.store.MarkUsed(ctx, inv.ID, now); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			// Lost the race: report the state the winner left behind.
			cur, gerr := l.store.GetByLink(ctx, link)
			if gerr == nil && cur.Status == domain.InviteStatusExpired {
				return nil, domain.ErrInviteExpired
			}
			return nil, domain.ErrInviteAlreadyUsed
		}
		return nil, err
	}

	inv.Status = domain.InviteStatusUsed
	inv.UsedAt = &now
	l.logger.Info("invite redeemed", "owner_id", inv.OwnerID, "kind", inv.Kind)
	return inv, nil
}

// Expire transitions an invite to expired. Idempotent: expiring an invite
// that is already terminal is a no-op.
func (l *Ledger) Expire(ctx context.Context, id uuid.UUID) error {
	return l.store.MarkExpired(ctx, id)
}

// ActiveFor returns the owner's redeemable invite of the given kind, or
// ErrInviteNotFound. An active record past its expiry is expired on the
// spot and treated as absent.
func (l *Ledger) ActiveFor(ctx context.Context, ownerID int64, kind domain.InviteKind) (*domain.Invite, error) {
	inv, err := l.store.GetActive(ctx, ownerID, kind)
	if err != nil {
		return nil, err
	}
	if !inv.Redeemable(l.now()) {
		if err := l.store.MarkExpired(ctx, inv.ID); err != nil {
			l.logger.Warn("failed to expire overdue invite", "invite_id", inv.ID, "error", err)
		}
		return nil, domain.ErrInviteNotFound
	}
	return inv, nil
}
