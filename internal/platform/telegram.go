// Package platform adapts the Telegram Bot API to the narrow group
// membership surface the lifecycle engine needs.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// Telegram manages membership of a single Telegram group.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram creates a platform adapter for the given group chat.
func NewTelegram(bot *tgbotapi.BotAPI, chatID int64, logger *slog.Logger) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// CreateInviteLink creates a single-use invite link that Telegram itself
// revokes at expiresAt, independent of this process staying alive.
func (t *Telegram) CreateInviteLink(ctx context.Context, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: t.chatID},
		ExpireDate:  int(expiresAt.Unix()),
		MemberLimit: 1,
	}
	resp, err := t.bot.Request(cfg)
	if err != nil {
		return "", mapError(err, "create invite link")
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invite link response: %w", err)
	}
	return link.InviteLink, nil
}

// RemoveMember performs a one-time kick: ban followed by an immediate
// unban, so the member can rejoin later through a fresh invite.
func (t *Telegram) RemoveMember(ctx context.Context, memberID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: t.chatID, UserID: memberID},
	}
	if _, err := t.bot.Request(ban); err != nil {
		return mapError(err, "ban member")
	}

	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: t.chatID, UserID: memberID},
		OnlyIfBanned:     true,
	}
	if _, err := t.bot.Request(unban); err != nil {
		// The kick already happened; a failed unban leaves a ban behind,
		// which the next eviction's unban will clear.
		t.logger.Warn("unban after kick failed", "member_id", memberID, "error", err)
	}
	return nil
}

// Send delivers a text message to a chat.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return mapError(err, "send message")
	}
	return nil
}

// IsMember reports whether the user currently belongs to the group.
func (t *Telegram) IsMember(ctx context.Context, memberID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: t.chatID, UserID: memberID},
	})
	if err != nil {
		return false, mapError(err, "get chat member")
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// CheckBotPermissions verifies the bot can invite and remove members.
// Returns domain.ErrPermissionDenied when it cannot.
func (t *Telegram) CheckBotPermissions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	me, err := t.bot.GetMe()
	if err != nil {
		return fmt.Errorf("failed to identify bot: %w", err)
	}
	member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: t.chatID, UserID: me.ID},
	})
	if err != nil {
		return mapError(err, "get bot membership")
	}
	if member.Status != "administrator" || !member.CanInviteUsers {
		return fmt.Errorf("bot is %q in chat %d: %w", member.Status, t.chatID, domain.ErrPermissionDenied)
	}
	return nil
}

// mapError translates Telegram's rights failures into the domain error the
// coordinator treats as an operator-facing configuration problem.
func mapError(err error, op string) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		if apiErr.Code == 403 ||
			strings.Contains(msg, "not enough rights") ||
			strings.Contains(msg, "chat_admin_required") {
			return fmt.Errorf("%s: %s: %w", op, apiErr.Message, domain.ErrPermissionDenied)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
