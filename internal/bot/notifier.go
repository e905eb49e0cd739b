package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Notifier delivers countdown and eviction notices over Telegram. It is
// deliberately independent of Bot so the lifecycle coordinator can be wired
// before the update loop starts.
type Notifier struct {
	sender     Sender
	operatorID int64
	logger     *slog.Logger
}

// NewNotifier creates a Telegram-backed lifecycle notifier.
func NewNotifier(sender Sender, operatorID int64, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, operatorID: operatorID, logger: logger}
}

// CountdownWarning tells the member how long their access window has left.
func (n *Notifier) CountdownWarning(memberID int64, kind domain.InviteKind, remaining int) {
	var text string
	switch kind {
	case domain.InviteKindRenewal:
		text = fmt.Sprintf("Paid access: %d seconds left in the group.", remaining)
	default:
		text = fmt.Sprintf("Trial access: %d seconds left in the group.", remaining)
	}
	n.send(memberID, text)
}

// AccessExpired tells the member their window ended and they were removed.
func (n *Notifier) AccessExpired(memberID int64, kind domain.InviteKind) {
	var text string
	switch kind {
	case domain.InviteKindRenewal:
		text = "Your paid access has ended and you were removed from the group. Send a new payment receipt to rejoin."
	default:
		text = "Your trial has ended and you were removed from the group. Send a payment receipt to get full access."
	}
	n.send(memberID, text)
}

// ConfigurationError alerts the operator that the bot lacks the rights to
// manage the group.
func (n *Notifier) ConfigurationError(memberID int64, err error) {
	text := fmt.Sprintf("Cannot manage member %d: %v. Check that the bot is a group admin with invite and ban rights.", memberID, err)
	n.send(n.operatorID, text)
}

func (n *Notifier) send(chatID int64, text string) {
	if err := n.sender.Send(context.Background(), chatID, text); err != nil {
		n.logger.Warn("notification delivery failed", "chat_id", chatID, "error", err)
	}
}
