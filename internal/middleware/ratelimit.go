package middleware

import (
	"errors"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter      ratelimit.Limiter
	rules        *ratelimit.Rules
	translations *i18n.Manager
	log          *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, translations *i18n.Manager, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter:      limiter,
		rules:        rules,
		translations: translations,
		log:          log,
	}
}

// Handle wraps next. Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		limit, window := m.rules.PerUser()
		key := "user:" + strconv.FormatInt(sender.ID, 10)

		result, err := m.limiter.Check(handlers.RequestContext(c), key, limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded) || (err == nil && result != nil && !result.Allowed):
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID))
			return m.reject(c, sender.LanguageCode)
		case err != nil:
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		return next(c)
	}
}

func (m *RateLimitMiddleware) reject(c telebot.Context, lang string) error {
	text := i18n.Render(m.translations.Translator(lang), "errors.rate_limited", nil)
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}
	return c.Send(text)
}
