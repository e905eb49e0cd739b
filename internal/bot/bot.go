// Package bot implements the Telegram update loop: onboarding, payment
// submission, the operator panel, and group message archival.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akiftaxi/gatekeeper/internal/domain"
	"github.com/akiftaxi/gatekeeper/internal/lifecycle"
	"github.com/akiftaxi/gatekeeper/internal/repository"
)

// Conversation states stored on the member record between updates.
const (
	stateWaitingFullName     = "waiting_fullname"
	stateWaitingPhone        = "waiting_phone"
	stateWaitingReceipt      = "waiting_receipt"
	stateBroadcastingDrivers = "broadcasting_drivers"
	stateBroadcastingRiders  = "broadcasting_riders"
)

// Config holds the bot's wiring parameters.
type Config struct {
	// GroupChatID is the managed group whose membership is gated.
	GroupChatID int64
	// OperatorID receives payment reviews and configuration alerts.
	OperatorID int64
	// PaymentDetails is shown to drivers when they submit a receipt.
	PaymentDetails string
}

// MembershipChecker reports whether a member currently belongs to the
// managed group.
type MembershipChecker interface {
	IsMember(ctx context.Context, memberID int64) (bool, error)
}

// Bot owns the Telegram update loop.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      Config
	members  *repository.MembersRepository
	payments *repository.PaymentsRepository
	messages *repository.MessagesRepository
	coord    *lifecycle.Coordinator
	group    MembershipChecker
	logger   *slog.Logger
}

// New creates the bot front end.
func New(api *tgbotapi.BotAPI, cfg Config, members *repository.MembersRepository, payments *repository.PaymentsRepository, messages *repository.MessagesRepository, coord *lifecycle.Coordinator, group MembershipChecker, logger *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		members:  members,
		payments: payments,
		messages: messages,
		coord:    coord,
		group:    group,
		logger:   logger,
	}
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot update loop started", "group_chat_id", b.cfg.GroupChatID)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Chat.ID == b.cfg.GroupChatID:
		b.handleGroupMessage(ctx, update.Message)
	case update.Message != nil && update.Message.Chat.IsPrivate():
		b.handlePrivateMessage(ctx, update.Message)
	}
}

// handleGroupMessage archives group traffic and feeds admissions to the
// lifecycle coordinator.
func (b *Bot) handleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	for _, joined := range msg.NewChatMembers {
		if joined.IsBot {
			continue
		}
		res, err := b.coord.MemberJoined(ctx, joined.ID)
		if err != nil {
			b.logger.Error("admission handling failed", "member_id", joined.ID, "error", err)
			continue
		}
		if res != nil {
			b.logger.Info("admission recorded", "member_id", joined.ID, "kind", res.Kind, "seconds", res.Seconds)
		}
	}

	if msg.Text == "" || msg.From == nil {
		return
	}
	gm := &domain.GroupMessage{
		MessageID: int64(msg.MessageID),
		ChatID:    msg.Chat.ID,
		SenderID:  msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      msg.Text,
		SentAt:    time.Unix(int64(msg.Date), 0),
		CreatedAt: time.Now(),
	}
	if err := b.messages.Save(ctx, gm); err != nil {
		b.logger.Error("failed to archive group message", "chat_id", gm.ChatID, "message_id", gm.MessageID, "error", err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send failed", "chat_id", chatID, "error", err)
	}
}
