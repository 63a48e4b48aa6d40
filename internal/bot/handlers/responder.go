package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
)

// Responder delivers wizard effects to the chat of a telebot update.
type Responder struct {
	c telebot.Context
}

// NewResponder wraps c.
func NewResponder(c telebot.Context) *Responder {
	return &Responder{c: c}
}

// Send posts a new HTML message with an optional inline keyboard.
func (r *Responder) Send(_ context.Context, text string, rows keyboard.Rows) error {
	opts, err := sendOptions(rows)
	if err != nil {
		return err
	}
	return r.c.Send(text, opts)
}

// Edit replaces the text of the message the update is attached to.
// Nil rows remove the inline keyboard.
func (r *Responder) Edit(_ context.Context, text string, rows keyboard.Rows) error {
	opts, err := sendOptions(rows)
	if err != nil {
		return err
	}
	return IgnoreStaleEdit(r.c.Edit(text, opts))
}

// Answer acknowledges a button press. It is a no-op for plain messages.
func (r *Responder) Answer(_ context.Context, text string, alert bool) error {
	if r.c.Callback() == nil {
		return nil
	}
	return r.c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: alert})
}

const editNotFound = "message to edit not found"

// IgnoreStaleEdit drops errors for messages that are already edited or gone.
// Telebot has no sentinel for a deleted message, so that one is matched by description.
func IgnoreStaleEdit(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, telebot.ErrMessageNotModified),
		errors.Is(err, telebot.ErrCantEditMessage),
		isEditNotFound(err):
		return nil
	default:
		return err
	}
}

func isEditNotFound(err error) bool {
	var tgErr *telebot.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusBadRequest && strings.Contains(tgErr.Description, editNotFound)
	}
	return strings.Contains(err.Error(), editNotFound)
}

func sendOptions(rows keyboard.Rows) (*telebot.SendOptions, error) {
	markup, err := rows.Markup()
	if err != nil {
		return nil, err
	}

	opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	return opts, nil
}
