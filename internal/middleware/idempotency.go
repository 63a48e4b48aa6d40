// Package middleware holds cross-cutting wrappers for bot handlers and the HTTP server.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/idempotency"
)

// IdempotencyTTL is how long a processed update is remembered.
const IdempotencyTTL = 24 * time.Hour

// Idempotency ensures handlers execute at most once per Telegram update.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := IdempotencyKey(c)
			if key == "" {
				return next(c)
			}

			result, err := manager.Execute(handlers.RequestContext(c), key, IdempotencyTTL, func(_ context.Context) error {
				return next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					log.Info("duplicate update dropped while in progress", slog.String("key", key))
					return nil
				}
				return err
			}

			if result.Duplicate {
				log.Info("duplicate update dropped", slog.String("key", key))
			}

			return nil
		}
	}
}

// IdempotencyKey identifies an update: the callback id for button presses,
// chat and message id for messages.
func IdempotencyKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return idempotency.Key("cb", cb.ID)
		}
		return ""
	}

	msg := c.Message()
	if msg == nil || msg.ID == 0 {
		return ""
	}

	chatID := int64(0)
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return idempotency.Key("msg", strconv.FormatInt(chatID, 10), msg.ID)
}
