package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

const (
	btnDriver = "🚕 I drive"
	btnRider  = "🙋 I ride"
	btnPay    = "💳 Submit payment"
	btnInvite = "🔗 Group link"
	btnStatus = "⏱ Status"
)

func (b *Bot) handlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.From.ID == b.cfg.OperatorID {
		b.handleOperatorMessage(ctx, msg)
		return
	}

	m, err := b.members.Get(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		m = b.register(ctx, msg.From)
	} else if err != nil {
		b.logger.Error("failed to load member", "member_id", msg.From.ID, "error", err)
		return
	}
	if m == nil {
		return
	}

	if msg.IsCommand() && msg.Command() == "start" {
		b.sendRolePrompt(m.ID)
		return
	}

	switch m.State {
	case stateWaitingFullName:
		b.handleFullName(ctx, m, msg)
		return
	case stateWaitingPhone:
		b.handlePhone(ctx, m, msg)
		return
	case stateWaitingReceipt:
		b.handleReceipt(ctx, m, msg)
		return
	}

	switch msg.Text {
	case btnDriver:
		b.startDriverOnboarding(ctx, m)
	case btnRider:
		b.registerRider(ctx, m)
	case btnPay:
		b.promptReceipt(ctx, m)
	case btnInvite:
		b.sendInvite(ctx, m)
	case btnStatus:
		b.sendStatus(m)
	default:
		b.sendRolePrompt(m.ID)
	}
}

// register creates an unassigned member record on first contact.
func (b *Bot) register(ctx context.Context, from *tgbotapi.User) *domain.Member {
	now := time.Now()
	m := &domain.Member{
		ID:               from.ID,
		Username:         from.UserName,
		FirstName:        from.FirstName,
		Role:             domain.RoleUnassigned,
		PaymentStatus:    domain.PaymentStatusNone,
		State:            domain.StateNormal,
		LastTransitionAt: now,
		CreatedAt:        now,
	}
	if err := b.members.Save(ctx, m); err != nil {
		b.logger.Error("failed to register member", "member_id", m.ID, "error", err)
		return nil
	}
	return m
}

func (b *Bot) sendRolePrompt(chatID int64) {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDriver),
			tgbotapi.NewKeyboardButton(btnRider),
		),
	)
	b.sendWithMarkup(chatID, "Welcome to Akif Taxi! Are you a driver or a rider?", kb)
}

func (b *Bot) startDriverOnboarding(ctx context.Context, m *domain.Member) {
	if err := b.coord.AssignRole(ctx, m.ID, domain.RoleDriver); err != nil {
		b.logger.Error("failed to assign driver role", "member_id", m.ID, "error", err)
		return
	}
	// Re-read: AssignRole changed the record.
	m, err := b.members.Get(ctx, m.ID)
	if err != nil {
		b.logger.Error("failed to reload member", "error", err)
		return
	}
	m.State = stateWaitingFullName
	if err := b.members.Update(ctx, m); err != nil {
		b.logger.Error("failed to start onboarding", "member_id", m.ID, "error", err)
		return
	}
	b.send(m.ID, "Please send your full name.")
}

func (b *Bot) registerRider(ctx context.Context, m *domain.Member) {
	if err := b.coord.AssignRole(ctx, m.ID, domain.RoleRider); err != nil {
		b.logger.Error("failed to assign rider role", "member_id", m.ID, "error", err)
		return
	}
	b.send(m.ID, "You're registered as a rider. We'll keep you posted about rides.")
}

func (b *Bot) handleFullName(ctx context.Context, m *domain.Member, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.Text)
	if name == "" {
		b.send(m.ID, "Please send your full name as text.")
		return
	}
	m.FullName = name
	m.State = stateWaitingPhone
	if err := b.members.Update(ctx, m); err != nil {
		b.logger.Error("failed to record full name", "member_id", m.ID, "error", err)
		return
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Share phone number"),
		),
	)
	b.sendWithMarkup(m.ID, "Now share your phone number using the button below.", kb)
}

func (b *Bot) handlePhone(ctx context.Context, m *domain.Member, msg *tgbotapi.Message) {
	if msg.Contact == nil {
		b.send(m.ID, "Please use the button to share your phone number.")
		return
	}
	m.Phone = msg.Contact.PhoneNumber
	if err := b.members.Update(ctx, m); err != nil {
		b.logger.Error("failed to record phone", "member_id", m.ID, "error", err)
		return
	}

	inv, err := b.coord.CompleteOnboarding(ctx, m.ID, m.FullName)
	if err != nil {
		b.logger.Error("onboarding completion failed", "member_id", m.ID, "error", err)
		b.send(m.ID, "Something went wrong while preparing your invite. Please try again later.")
		return
	}

	kb := mainDriverKeyboard()
	b.sendWithMarkup(m.ID, fmt.Sprintf(
		"You're all set, %s! Here is your trial link to the drivers group (single use, valid briefly):\n%s",
		m.FullName, inv.Link), kb)
}

func mainDriverKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPay),
			tgbotapi.NewKeyboardButton(btnInvite),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatus),
		),
	)
}

// sendStatus reports the driver's remaining in-group time and payment state.
func (b *Bot) sendStatus(m *domain.Member) {
	if !m.IsDriver() {
		b.sendRolePrompt(m.ID)
		return
	}
	remaining, running := b.coord.Remaining(m.ID)
	b.send(m.ID, statusText(m, remaining, running))
}

func statusText(m *domain.Member, remaining int, running bool) string {
	var sb strings.Builder
	if running {
		fmt.Fprintf(&sb, "Time left in the group: %d seconds.\n", remaining)
	} else {
		sb.WriteString("No access window is running.\n")
	}
	switch m.PaymentStatus {
	case domain.PaymentStatusApproved:
		sb.WriteString("Payment: approved.")
	case domain.PaymentStatusPending:
		sb.WriteString("Payment: waiting for review.")
	case domain.PaymentStatusRejected:
		sb.WriteString("Payment: rejected. Please submit a new receipt.")
	default:
		sb.WriteString("Payment: none on file.")
	}
	return sb.String()
}

func (b *Bot) promptReceipt(ctx context.Context, m *domain.Member) {
	if !m.IsDriver() {
		b.send(m.ID, "Payments are for drivers. Tap /start to pick your role.")
		return
	}
	m.State = stateWaitingReceipt
	if err := b.members.Update(ctx, m); err != nil {
		b.logger.Error("failed to await receipt", "member_id", m.ID, "error", err)
		return
	}
	text := "Send a photo of your payment receipt."
	if b.cfg.PaymentDetails != "" {
		text = fmt.Sprintf("Pay to: %s\n\n%s", b.cfg.PaymentDetails, text)
	}
	b.send(m.ID, text)
}

func (b *Bot) handleReceipt(ctx context.Context, m *domain.Member, msg *tgbotapi.Message) {
	if len(msg.Photo) == 0 {
		b.send(m.ID, "Please send the receipt as a photo.")
		return
	}
	// Largest resolution is last.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	p := &domain.Payment{
		ID:          uuid.New(),
		MemberID:    m.ID,
		PhotoFileID: fileID,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := b.payments.Create(ctx, p); err != nil {
		b.logger.Error("failed to store receipt", "member_id", m.ID, "error", err)
		b.send(m.ID, "Could not record your receipt. Please try again.")
		return
	}

	m.State = domain.StateNormal
	if err := b.members.Update(ctx, m); err != nil {
		b.logger.Error("failed to reset state", "member_id", m.ID, "error", err)
	}
	if err := b.coord.SubmitPayment(ctx, m.ID); err != nil {
		b.logger.Error("payment submission failed", "member_id", m.ID, "error", err)
		b.send(m.ID, "Could not submit your payment. Please try again.")
		return
	}

	b.send(m.ID, "Receipt received. You'll be notified once it's reviewed.")
	b.forwardReceiptToOperator(m, fileID)
}

// forwardReceiptToOperator sends the receipt photo with inline review
// buttons to the operator.
func (b *Bot) forwardReceiptToOperator(m *domain.Member, fileID string) {
	caption := fmt.Sprintf("Payment from %s (@%s, id %d)", m.FullName, m.Username, m.ID)
	photo := tgbotapi.NewPhoto(b.cfg.OperatorID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", reviewCallbackData(reviewApprove, m.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", reviewCallbackData(reviewReject, m.ID)),
		),
	)
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to forward receipt", "member_id", m.ID, "error", err)
	}
}

func (b *Bot) sendInvite(ctx context.Context, m *domain.Member) {
	if in, err := b.group.IsMember(ctx, m.ID); err != nil {
		b.logger.Warn("membership check failed", "member_id", m.ID, "error", err)
	} else if in {
		b.send(m.ID, "You're already in the group.")
		return
	}

	inv, err := b.coord.RequestInvite(ctx, m.ID)
	if err != nil {
		b.logger.Error("invite request failed", "member_id", m.ID, "error", err)
		b.send(m.ID, "Could not create an invite right now. Please try again later.")
		return
	}
	b.send(m.ID, fmt.Sprintf("Here is your link to the drivers group (single use, valid briefly):\n%s", inv.Link))
}
