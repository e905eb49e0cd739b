// Package lifecycle drives the membership state machine: issuing invites,
// admitting members, running their countdown windows, and evicting them
// when a window elapses.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akiftaxi/gatekeeper/internal/domain"
	"github.com/akiftaxi/gatekeeper/internal/schedule"
)

// MemberStore persists member records.
type MemberStore interface {
	Get(ctx context.Context, id int64) (*domain.Member, error)
	Update(ctx context.Context, m *domain.Member) error
}

// InviteLedger issues and consumes single-use invites.
type InviteLedger interface {
	Issue(ctx context.Context, ownerID int64, kind domain.InviteKind, ttl time.Duration) (*domain.Invite, error)
	Redeem(ctx context.Context, link string) (*domain.Invite, error)
	ActiveFor(ctx context.Context, ownerID int64, kind domain.InviteKind) (*domain.Invite, error)
}

// GroupGate removes members from the managed group.
type GroupGate interface {
	RemoveMember(ctx context.Context, memberID int64) error
}

// Notifier delivers the timer-driven notifications that have no inbound
// request to respond to. Implementations must not block for long; delivery
// failures are theirs to log.
type Notifier interface {
	CountdownWarning(memberID int64, kind domain.InviteKind, remaining int)
	AccessExpired(memberID int64, kind domain.InviteKind)
	ConfigurationError(memberID int64, err error)
}

// Config holds the lifecycle windows.
type Config struct {
	// TrialTTL bounds both the trial invite link and the in-group trial
	// window. Default 10s.
	TrialTTL time.Duration
	// RenewalTTL bounds the post-approval invite and window. Default 15s.
	RenewalTTL time.Duration
}

// JoinResult describes a successful admission.
type JoinResult struct {
	Kind    domain.InviteKind
	Seconds int
}

// Coordinator serializes all lifecycle events per member: interleaving an
// approval with a trial expiry for the same member is the principal race
// it defends against. Unrelated members proceed concurrently.
type Coordinator struct {
	cfg     Config
	members MemberStore
	ledger  InviteLedger
	sched   *schedule.Scheduler
	gate    GroupGate
	notify  Notifier
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	states map[int64]*memberState
}

// memberState is the per-member critical section. gen invalidates countdown
// callbacks that were in flight when the member's state moved on.
type memberState struct {
	mu  sync.Mutex
	gen uint64
}

// New creates a lifecycle coordinator.
func New(cfg Config, members MemberStore, ledger InviteLedger, sched *schedule.Scheduler, gate GroupGate, notify Notifier, logger *slog.Logger) *Coordinator {
	if cfg.TrialTTL == 0 {
		cfg.TrialTTL = 10 * time.Second
	}
	if cfg.RenewalTTL == 0 {
		cfg.RenewalTTL = 15 * time.Second
	}
	return &Coordinator{
		cfg:     cfg,
		members: members,
		ledger:  ledger,
		sched:   sched,
		gate:    gate,
		notify:  notify,
		logger:  logger,
		now:     time.Now,
		states:  make(map[int64]*memberState),
	}
}

func (c *Coordinator) state(id int64) *memberState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		st = &memberState{}
		c.states[id] = st
	}
	return st
}

// AssignRole records the member's chosen role.
func (c *Coordinator) AssignRole(ctx context.Context, memberID int64, role domain.Role) error {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	switch role {
	case domain.RoleRider, domain.RoleDriver:
	default:
		return fmt.Errorf("role %q cannot be self-assigned", role)
	}

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return err
	}
	m.Role = role
	m.LastTransitionAt = c.now()
	return c.members.Update(ctx, m)
}

// CompleteOnboarding records the driver's full name and issues the trial
// invite. The returned invite carries the link to hand to the member.
func (c *Coordinator) CompleteOnboarding(ctx context.Context, memberID int64, fullName string) (*domain.Invite, error) {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !m.IsDriver() {
		return nil, fmt.Errorf("member %d has role %q, onboarding is for drivers", memberID, m.Role)
	}

	m.FullName = fullName
	m.State = domain.StateNormal
	m.LastTransitionAt = c.now()
	if err := c.members.Update(ctx, m); err != nil {
		return nil, err
	}

	inv, err := c.ledger.Issue(ctx, memberID, domain.InviteKindTrial, c.cfg.TrialTTL)
	if err != nil {
		c.reportIssueFailure(memberID, err)
		return nil, err
	}
	return inv, nil
}

// RequestInvite re-issues the invite matching the member's current access
// status, for members who missed or expired their previous link.
func (c *Coordinator) RequestInvite(ctx context.Context, memberID int64) (*domain.Invite, error) {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !m.IsDriver() {
		return nil, fmt.Errorf("member %d has role %q, invites are for drivers", memberID, m.Role)
	}

	kind, ttl := c.windowFor(m)
	inv, err := c.ledger.Issue(ctx, memberID, kind, ttl)
	if err != nil {
		c.reportIssueFailure(memberID, err)
		return nil, err
	}
	return inv, nil
}

// MemberJoined handles an admission event from the group platform. When the
// member has no active invite the admission did not come through the
// controlled path and the event is ignored: no timer is started.
func (c *Coordinator) MemberJoined(ctx context.Context, memberID int64) (*JoinResult, error) {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !m.IsDriver() {
		return nil, nil
	}

	kind, ttl := c.windowFor(m)
	inv, err := c.ledger.ActiveFor(ctx, memberID, kind)
	if errors.Is(err, domain.ErrInviteNotFound) {
		c.logger.Info("join without active invite ignored", "member_id", memberID, "kind", kind)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := c.ledger.Redeem(ctx, inv.Link); err != nil {
		return nil, err
	}

	st.gen++
	seconds := c.startCountdown(memberID, kind, ttl, st.gen)

	m.LastTransitionAt = c.now()
	if err := c.members.Update(ctx, m); err != nil {
		c.logger.Error("failed to record admission", "member_id", memberID, "error", err)
	}

	c.logger.Info("member admitted", "member_id", memberID, "kind", kind, "seconds", seconds)
	return &JoinResult{Kind: kind, Seconds: seconds}, nil
}

// SubmitPayment marks the member's payment as awaiting operator review.
func (c *Coordinator) SubmitPayment(ctx context.Context, memberID int64) error {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if m.PaymentStatus == domain.PaymentStatusApproved {
		return fmt.Errorf("member %d already has an approved payment", memberID)
	}

	m.PaymentStatus = domain.PaymentStatusPending
	m.LastTransitionAt = c.now()
	return c.members.Update(ctx, m)
}

// Approve accepts a pending payment. Any running trial countdown is
// cancelled before the renewal invite is issued, so a stale trial eviction
// can never fire after approval.
func (c *Coordinator) Approve(ctx context.Context, memberID int64) (*domain.Invite, error) {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.PaymentStatus != domain.PaymentStatusPending {
		return nil, fmt.Errorf("payment for member %d is %q, not pending", memberID, m.PaymentStatus)
	}

	st.gen++
	c.sched.Cancel(memberID)

	m.PaymentStatus = domain.PaymentStatusApproved
	m.LastTransitionAt = c.now()
	if err := c.members.Update(ctx, m); err != nil {
		return nil, err
	}

	inv, err := c.ledger.Issue(ctx, memberID, domain.InviteKindRenewal, c.cfg.RenewalTTL)
	if err != nil {
		c.reportIssueFailure(memberID, err)
		return nil, err
	}
	return inv, nil
}

// Reject declines a pending payment. The member may resubmit.
func (c *Coordinator) Reject(ctx context.Context, memberID int64) error {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if m.PaymentStatus != domain.PaymentStatusPending {
		return fmt.Errorf("payment for member %d is %q, not pending", memberID, m.PaymentStatus)
	}

	m.PaymentStatus = domain.PaymentStatusRejected
	m.LastTransitionAt = c.now()
	return c.members.Update(ctx, m)
}

// Remaining reports the seconds left on a member's countdown, if running.
func (c *Coordinator) Remaining(memberID int64) (int, bool) {
	return c.sched.Remaining(memberID)
}

// Shutdown cancels all running countdowns.
func (c *Coordinator) Shutdown() {
	c.sched.Shutdown()
}

// windowFor picks the access window the member's payment status entitles
// them to.
func (c *Coordinator) windowFor(m *domain.Member) (domain.InviteKind, time.Duration) {
	if m.PaymentStatus == domain.PaymentStatusApproved {
		return domain.InviteKindRenewal, c.cfg.RenewalTTL
	}
	return domain.InviteKindTrial, c.cfg.TrialTTL
}

func (c *Coordinator) startCountdown(memberID int64, kind domain.InviteKind, ttl time.Duration, gen uint64) int {
	return c.sched.StartFor(memberID, ttl, schedule.Callbacks{
		OnTick: func(remaining int) {
			c.notify.CountdownWarning(memberID, kind, remaining)
		},
		OnExpire: func() {
			c.expire(memberID, kind, gen)
		},
	})
}

// expire is the terminal countdown callback: evict and reset. A callback
// whose generation no longer matches lost a race against an approval or a
// fresh admission and must do nothing.
func (c *Coordinator) expire(memberID int64, kind domain.InviteKind, gen uint64) {
	st := c.state(memberID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.gen != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	m, err := c.members.Get(ctx, memberID)
	if err != nil {
		c.logger.Error("expiry for unknown member", "member_id", memberID, "error", err)
		return
	}
	if kind == domain.InviteKindTrial && m.PaymentStatus == domain.PaymentStatusApproved {
		// Approval landed between the last tick and this callback.
		return
	}

	if err := c.removeFromGroup(ctx, memberID); errors.Is(err, domain.ErrPermissionDenied) {
		// Eviction skipped; leave the member's state untouched rather
		// than claiming an eviction that did not happen.
		c.notify.ConfigurationError(memberID, err)
		return
	}

	if kind == domain.InviteKindRenewal {
		// A fresh payment cycle is required after a paid window ends.
		m.PaymentStatus = domain.PaymentStatusNone
	}
	m.LastTransitionAt = c.now()
	if err := c.members.Update(ctx, m); err != nil {
		c.logger.Error("failed to record eviction", "member_id", memberID, "error", err)
	}

	c.logger.Info("member evicted", "member_id", memberID, "kind", kind)
	c.notify.AccessExpired(memberID, kind)
}

// removeFromGroup evicts with a single immediate retry. A missed eviction
// is logged, not retried indefinitely.
func (c *Coordinator) removeFromGroup(ctx context.Context, memberID int64) error {
	err := c.gate.RemoveMember(ctx, memberID)
	if err == nil || errors.Is(err, domain.ErrPermissionDenied) {
		return err
	}
	c.logger.Warn("eviction failed, retrying once", "member_id", memberID, "error", err)
	if err := c.gate.RemoveMember(ctx, memberID); err != nil {
		c.logger.Error("eviction failed after retry", "member_id", memberID, "error", err)
		return err
	}
	return nil
}

func (c *Coordinator) reportIssueFailure(memberID int64, err error) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		c.notify.ConfigurationError(memberID, err)
	}
	c.logger.Error("failed to issue invite", "member_id", memberID, "error", err)
}
