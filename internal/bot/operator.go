package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

const (
	btnStats            = "📊 Stats"
	btnDrivers          = "🚕 Drivers"
	btnRiders           = "🙋 Riders"
	btnPending          = "🧾 Pending payments"
	btnBroadcastDrivers = "📣 Message drivers"
	btnBroadcastRiders  = "📣 Message riders"
)

const (
	reviewApprove = "approve"
	reviewReject  = "reject"
)

// reviewCallbackData encodes an operator decision as callback data.
func reviewCallbackData(action string, memberID int64) string {
	return fmt.Sprintf("%s_%d", action, memberID)
}

// parseReviewCallback decodes approve_<id> / reject_<id> callback data.
func parseReviewCallback(data string) (action string, memberID int64, err error) {
	action, id, ok := strings.Cut(data, "_")
	if !ok || (action != reviewApprove && action != reviewReject) {
		return "", 0, fmt.Errorf("unrecognized callback data %q", data)
	}
	memberID, err = strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad member id in callback data %q: %w", data, err)
	}
	return action, memberID, nil
}

func operatorKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStats),
			tgbotapi.NewKeyboardButton(btnPending),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDrivers),
			tgbotapi.NewKeyboardButton(btnRiders),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBroadcastDrivers),
			tgbotapi.NewKeyboardButton(btnBroadcastRiders),
		),
	)
}

func (b *Bot) handleOperatorMessage(ctx context.Context, msg *tgbotapi.Message) {
	op, err := b.members.Get(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		op = b.register(ctx, msg.From)
		if op == nil {
			return
		}
		op.Role = domain.RoleOperator
		if err := b.members.Update(ctx, op); err != nil {
			b.logger.Error("failed to mark operator", "member_id", op.ID, "error", err)
		}
	} else if err != nil {
		b.logger.Error("failed to load operator", "member_id", msg.From.ID, "error", err)
		return
	}

	switch op.State {
	case stateBroadcastingDrivers:
		b.broadcast(ctx, op, domain.RoleDriver, msg.Text)
		return
	case stateBroadcastingRiders:
		b.broadcast(ctx, op, domain.RoleRider, msg.Text)
		return
	}

	switch msg.Text {
	case btnStats:
		b.sendStats(ctx)
	case btnPending:
		b.sendPendingPayments(ctx)
	case btnDrivers:
		b.sendMemberList(ctx, domain.RoleDriver)
	case btnRiders:
		b.sendMemberList(ctx, domain.RoleRider)
	case btnBroadcastDrivers:
		b.startBroadcast(ctx, op, stateBroadcastingDrivers)
	case btnBroadcastRiders:
		b.startBroadcast(ctx, op, stateBroadcastingRiders)
	default:
		b.sendWithMarkup(b.cfg.OperatorID, "Operator panel:", operatorKeyboard())
	}
}

func (b *Bot) sendStats(ctx context.Context) {
	stats, err := b.members.Stats(ctx)
	if err != nil {
		b.logger.Error("failed to load stats", "error", err)
		b.send(b.cfg.OperatorID, "Could not load stats.")
		return
	}
	b.send(b.cfg.OperatorID, fmt.Sprintf(
		"Riders: %d\nDrivers: %d\nApproved payments: %d\nPending payments: %d",
		stats.Riders, stats.Drivers, stats.ApprovedPayments, stats.PendingPayments,
	))
}

func (b *Bot) sendMemberList(ctx context.Context, role domain.Role) {
	members, err := b.members.ListByRole(ctx, role)
	if err != nil {
		b.logger.Error("failed to list members", "role", role, "error", err)
		b.send(b.cfg.OperatorID, "Could not load the member list.")
		return
	}
	if len(members) == 0 {
		b.send(b.cfg.OperatorID, fmt.Sprintf("No members with role %s.", role))
		return
	}
	var sb strings.Builder
	for i, m := range members {
		name := m.FullName
		if name == "" {
			name = m.FirstName
		}
		fmt.Fprintf(&sb, "%d. %s (@%s) %s\n", i+1, name, m.Username, m.Phone)
	}
	b.send(b.cfg.OperatorID, sb.String())
}

func (b *Bot) sendPendingPayments(ctx context.Context) {
	members, err := b.members.ListPendingPayments(ctx)
	if err != nil {
		b.logger.Error("failed to list pending payments", "error", err)
		b.send(b.cfg.OperatorID, "Could not load pending payments.")
		return
	}
	if len(members) == 0 {
		b.send(b.cfg.OperatorID, "No payments waiting for review.")
		return
	}
	for _, m := range members {
		p, err := b.payments.LatestPending(ctx, m.ID)
		if errors.Is(err, domain.ErrPaymentNotFound) {
			continue
		}
		if err != nil {
			b.logger.Error("failed to load receipt", "member_id", m.ID, "error", err)
			continue
		}
		b.forwardReceiptToOperator(m, p.PhotoFileID)
	}
}

func (b *Bot) startBroadcast(ctx context.Context, op *domain.Member, state string) {
	op.State = state
	if err := b.members.Update(ctx, op); err != nil {
		b.logger.Error("failed to start broadcast", "error", err)
		return
	}
	audience := "drivers"
	if state == stateBroadcastingRiders {
		audience = "riders"
	}
	b.send(b.cfg.OperatorID, fmt.Sprintf("Send the message to broadcast to all %s.", audience))
}

func (b *Bot) broadcast(ctx context.Context, op *domain.Member, role domain.Role, text string) {
	op.State = domain.StateNormal
	if err := b.members.Update(ctx, op); err != nil {
		b.logger.Error("failed to reset operator state", "error", err)
	}
	if strings.TrimSpace(text) == "" {
		b.send(b.cfg.OperatorID, "Broadcast cancelled: empty message.")
		return
	}

	members, err := b.members.ListByRole(ctx, role)
	if err != nil {
		b.logger.Error("failed to list broadcast audience", "role", role, "error", err)
		b.send(b.cfg.OperatorID, "Could not load the audience list.")
		return
	}

	sent := 0
	for _, m := range members {
		if _, err := b.api.Send(tgbotapi.NewMessage(m.ID, text)); err != nil {
			b.logger.Warn("broadcast delivery failed", "member_id", m.ID, "error", err)
			continue
		}
		sent++
	}
	b.send(b.cfg.OperatorID, fmt.Sprintf("Broadcast delivered to %d of %d %ss.", sent, len(members), role))
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.From.ID != b.cfg.OperatorID {
		b.answerCallback(q.ID, "Not allowed.")
		return
	}

	action, memberID, err := parseReviewCallback(q.Data)
	if err != nil {
		b.logger.Warn("bad callback", "data", q.Data, "error", err)
		b.answerCallback(q.ID, "Unrecognized action.")
		return
	}

	switch action {
	case reviewApprove:
		b.approvePayment(ctx, q, memberID)
	case reviewReject:
		b.rejectPayment(ctx, q, memberID)
	}
}

func (b *Bot) approvePayment(ctx context.Context, q *tgbotapi.CallbackQuery, memberID int64) {
	inv, err := b.coord.Approve(ctx, memberID)
	if err != nil {
		b.logger.Error("approval failed", "member_id", memberID, "error", err)
		b.answerCallback(q.ID, fmt.Sprintf("Approval failed: %v", err))
		return
	}
	if err := b.payments.MarkReviewed(ctx, memberID, domain.PaymentStatusApproved); err != nil {
		b.logger.Error("failed to mark receipts approved", "member_id", memberID, "error", err)
	}
	b.answerCallback(q.ID, "Approved.")
	b.send(memberID, fmt.Sprintf(
		"Your payment was approved! Here is your renewal link to the drivers group (single use, valid briefly):\n%s",
		inv.Link))
}

func (b *Bot) rejectPayment(ctx context.Context, q *tgbotapi.CallbackQuery, memberID int64) {
	if err := b.coord.Reject(ctx, memberID); err != nil {
		b.logger.Error("rejection failed", "member_id", memberID, "error", err)
		b.answerCallback(q.ID, fmt.Sprintf("Rejection failed: %v", err))
		return
	}
	if err := b.payments.MarkReviewed(ctx, memberID, domain.PaymentStatusRejected); err != nil {
		b.logger.Error("failed to mark receipts rejected", "member_id", memberID, "error", err)
	}
	b.answerCallback(q.ID, "Rejected.")
	b.send(memberID, "Your payment was rejected. Please check the receipt and submit it again.")
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Warn("callback answer failed", "error", err)
	}
}
