package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/wizard"
)

// Handler processes bot commands and text messages.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline button presses. data is the payload after the unique prefix.
type CallbackHandler func(c telebot.Context, data string) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Wizard is the purchase dialog service.
type Wizard interface {
	Handle(ctx context.Context, r wizard.Responder, ev wizard.Event) error
}

const requestContextKey = "request_ctx"

// WithRequestContext attaches ctx to the update so downstream handlers share it.
func WithRequestContext(c telebot.Context, ctx context.Context) {
	c.Set(requestContextKey, ctx)
}

// RequestContext returns the context attached by WithRequestContext or a background one.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// OriginOf describes where the update came from.
func OriginOf(c telebot.Context) wizard.Origin {
	var origin wizard.Origin

	if sender := c.Sender(); sender != nil {
		origin.UserID = sender.ID
		origin.Lang = sender.LanguageCode
	}

	if chat := c.Chat(); chat != nil {
		origin.ChatID = chat.ID
	} else {
		origin.ChatID = origin.UserID
	}

	if cb := c.Callback(); cb != nil && cb.Message != nil {
		origin.MessageID = cb.Message.ID
	} else if msg := c.Message(); msg != nil {
		origin.MessageID = msg.ID
	}

	return origin
}
