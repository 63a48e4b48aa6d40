package bot

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/errors"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/lifecycle"
	"github.com/Proton-105/giftshop-bot/pkg/logger"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, translations *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					key := errors.GenericUserKey
					if errHandler != nil {
						appErr := errors.NewTransportError("handler", fmt.Errorf("panic recovered: %v", r))
						key, _ = errHandler.Handle(handlers.RequestContext(c), appErr)
					}

					notify(c, log, translateFor(c, translations, key))
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler, translations *i18n.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			key := errors.GenericUserKey
			if errHandler != nil {
				key, _ = errHandler.Handle(handlers.RequestContext(c), err)
			}

			notify(c, log, translateFor(c, translations, key))
			return nil
		}
	}
}

// LoggingMiddleware attaches a correlation id to the update and logs its handling.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			ctx := logger.WithCorrelationID(handlers.RequestContext(c), updateCorrelationID(c))
			handlers.WithRequestContext(c, ctx)

			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := c.Text()
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			}

			attrs := []slog.Attr{
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
				slog.Int64("user_id", userID),
				slog.String("action", action),
			}

			log.LogAttrs(ctx, slog.LevelDebug, "handling update", attrs...)
			err := next(c)
			log.LogAttrs(ctx, slog.LevelInfo, "handled update",
				append(attrs, slog.Duration("duration", time.Since(start)), slog.Any("error", err))...,
			)

			return err
		}
	}
}

// InFlightMiddleware tracks handlers so shutdown can wait for them.
func InFlightMiddleware(inflight *lifecycle.InFlight) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if inflight == nil {
			return next
		}

		return func(c telebot.Context) error {
			done := inflight.Track()
			defer done()
			return next(c)
		}
	}
}

func updateCorrelationID(c telebot.Context) string {
	if id := c.Update().ID; id != 0 {
		return "upd-" + strconv.Itoa(id)
	}
	return ""
}

func translateFor(c telebot.Context, translations *i18n.Manager, key string) string {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return i18n.Render(translations.Translator(lang), key, nil)
}

func notify(c telebot.Context, log *slog.Logger, text string) {
	if c == nil {
		return
	}

	// a callback may already be answered by the handler; fall back to a message
	if c.Callback() != nil {
		err := c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
		if err == nil {
			return
		}
		log.Warn("failed to answer callback with error, sending message", slog.Any("error", err))
	}

	if err := c.Send(text); err != nil {
		log.Error("failed to notify user about error", slog.Any("error", err))
	}
}
