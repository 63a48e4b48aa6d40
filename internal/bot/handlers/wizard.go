package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/wizard"
)

// NewOpenCatalogHandler starts a purchase from the menu button or /catalog.
func NewOpenCatalogHandler(w Wizard) CallbackHandler {
	return func(c telebot.Context, _ string) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventOpenCatalog})
	}
}

// NewSelectItemHandler handles a press on a catalog item button.
func NewSelectItemHandler(w Wizard) CallbackHandler {
	return func(c telebot.Context, data string) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventSelectItem, ItemID: data})
	}
}

// NewConfirmHandler handles the Confirm button of the order summary.
func NewConfirmHandler(w Wizard) CallbackHandler {
	return func(c telebot.Context, _ string) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventConfirm})
	}
}

// NewCancelPurchaseHandler handles the Cancel button of the order summary.
func NewCancelPurchaseHandler(w Wizard) CallbackHandler {
	return func(c telebot.Context, _ string) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventCancelPurchase})
	}
}

// NewReturnToMenuHandler closes the catalog.
func NewReturnToMenuHandler(w Wizard) CallbackHandler {
	return func(c telebot.Context, _ string) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventReturnToMenu})
	}
}

// NewTextHandler feeds free text, including the cancel keyword, to the wizard.
func NewTextHandler(w Wizard) Handler {
	return func(c telebot.Context) error {
		return dispatch(w, c, wizard.Event{Kind: wizard.EventText, Text: c.Text()})
	}
}

// Command adapts a CallbackHandler to a command entry point.
func Command(h CallbackHandler) Handler {
	return func(c telebot.Context) error {
		return h(c, "")
	}
}

func dispatch(w Wizard, c telebot.Context, ev wizard.Event) error {
	if c.Sender() == nil {
		return nil
	}

	ev.Origin = OriginOf(c)
	return w.Handle(RequestContext(c), NewResponder(c), ev)
}
