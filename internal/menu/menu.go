// Package menu keeps one main menu message per chat up to date.
package menu

import (
	"context"
	"log/slog"
	"strconv"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
	"github.com/Proton-105/giftshop-bot/internal/cache"
	"github.com/Proton-105/giftshop-bot/internal/display"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/wizard"
)

// Sender is the part of *telebot.Bot used to redraw the menu.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
}

// BalanceSource provides the balance shown in the menu. Nil means unknown.
type BalanceSource interface {
	Current(ctx context.Context) *int64
}

// Service redraws the main menu at the bottom of the chat.
type Service struct {
	sender       Sender
	balance      BalanceSource
	tracked      *cache.Cache
	translations *i18n.Manager
	log          *slog.Logger
}

// NewService builds a menu Service. tracked stores the last menu message id per chat.
func NewService(sender Sender, balance BalanceSource, tracked *cache.Cache, translations *i18n.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		sender:       sender,
		balance:      balance,
		tracked:      tracked,
		translations: translations,
		log:          log.With(slog.String("component", "menu")),
	}
}

// Refresh removes the previous menu message of the chat and sends a fresh one.
func (s *Service) Refresh(ctx context.Context, target wizard.MenuTarget) error {
	t := s.translations.Translator(target.Lang)
	key := strconv.FormatInt(target.ChatID, 10)

	if previous, ok, err := s.tracked.GetInt64(ctx, key); err != nil {
		s.log.Warn("failed to read tracked menu", slog.Int64("chat_id", target.ChatID), slog.Any("error", err))
	} else if ok {
		stale := telebot.StoredMessage{MessageID: strconv.FormatInt(previous, 10), ChatID: target.ChatID}
		if err := s.sender.Delete(stale); err != nil {
			s.log.Debug("previous menu not deleted", slog.Int64("chat_id", target.ChatID), slog.Any("error", err))
		}
	}

	var balance *int64
	if s.balance != nil {
		balance = s.balance.Current(ctx)
	}

	markup, err := keyboard.Menu(t).Markup()
	if err != nil {
		return err
	}

	msg, err := s.sender.Send(telebot.ChatID(target.ChatID), display.Menu(t, balance), &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		return err
	}

	if err := s.tracked.SetInt64(ctx, key, int64(msg.ID), 0); err != nil {
		s.log.Warn("failed to track menu message", slog.Int64("chat_id", target.ChatID), slog.Any("error", err))
	}

	return nil
}
