// Package wizard implements the gift purchase dialog: a pure transition
// function over sessions, the paced purchase loop and the service that
// executes transition effects against the transport.
package wizard

import (
	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
	"github.com/Proton-105/giftshop-bot/internal/display"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/state"
)

// EventKind enumerates the inputs the wizard reacts to.
type EventKind int

const (
	EventOpenCatalog EventKind = iota + 1
	EventSelectItem
	EventText
	EventConfirm
	EventCancelPurchase
	EventReturnToMenu
)

func (k EventKind) String() string {
	switch k {
	case EventOpenCatalog:
		return "open_catalog"
	case EventSelectItem:
		return "select_item"
	case EventText:
		return "text"
	case EventConfirm:
		return "confirm"
	case EventCancelPurchase:
		return "cancel_purchase"
	case EventReturnToMenu:
		return "return_to_menu"
	default:
		return "unknown"
	}
}

// Origin identifies where an event came from. MessageID is the message a
// button was attached to, or the text message itself.
type Origin struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Lang      string
}

// Event is one user input. Catalog is set for EventOpenCatalog, ItemID for
// EventSelectItem, Text for EventText.
type Event struct {
	Kind    EventKind
	Origin  Origin
	Catalog []domain.CatalogItem
	ItemID  string
	Text    string
}

// EffectKind enumerates what the service must do after a transition.
type EffectKind int

const (
	// EffectSend sends a new message to the chat.
	EffectSend EffectKind = iota + 1
	// EffectEdit edits the message the event originated from.
	EffectEdit
	// EffectAnswer acknowledges the button press.
	EffectAnswer
	// EffectPurchase runs the purchase loop for Order and reports the outcome.
	EffectPurchase
	EffectRefreshBalance
	EffectRefreshMenu
)

// Effect is a side effect produced by Transition, executed in order.
type Effect struct {
	Kind     EffectKind
	Text     string
	Keyboard keyboard.Rows
	Alert    bool
	Order    *Order
}

// Order is a confirmed purchase request for Quantity units.
type Order struct {
	PurchaserID int64
	Item        domain.CatalogItem
	Quantity    int64
	Recipient   domain.Recipient
}

// Transition computes the next session and the effects for ev. It never
// mutates current. A nil next session means the session must be cleared.
func Transition(t i18n.Translator, current *state.Session, ev Event) (*state.Session, []Effect) {
	session := current.Clone()
	if session == nil {
		session = state.NewSession(ev.Origin.UserID)
	}

	switch ev.Kind {
	case EventOpenCatalog:
		return openCatalog(t, session, ev)
	case EventSelectItem:
		return selectItem(t, session, ev)
	case EventText:
		return text(t, session, ev)
	case EventConfirm:
		return confirm(t, session, ev)
	case EventCancelPurchase:
		return nil, []Effect{
			answer("", false),
			edit(i18n.Render(t, "wizard.canceled", nil), nil),
			{Kind: EffectRefreshMenu},
		}
	case EventReturnToMenu:
		return nil, []Effect{
			answer("", false),
			edit(i18n.Render(t, "catalog.closed", nil), nil),
			{Kind: EffectRefreshBalance},
			{Kind: EffectRefreshMenu},
		}
	default:
		return current.Clone(), nil
	}
}

func openCatalog(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	next := state.NewSession(session.UserID)
	next.State = state.StateSelectingQuantity
	next.Catalog = append([]domain.CatalogItem(nil), ev.Catalog...)

	return next, []Effect{
		send(display.CatalogSummary(t, next.Catalog), keyboard.Catalog(t, next.Catalog)),
		answer("", false),
	}
}

func selectItem(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	item, ok := session.Lookup(ev.ItemID)
	if !ok || session.State == state.StateIdle {
		stale := i18n.Render(t, "catalog.stale", nil)
		return nil, []Effect{
			answer(stale, true),
			edit(stale, nil),
			{Kind: EffectRefreshMenu},
		}
	}

	session.State = state.StateSelectingQuantity
	session.Selected = &item
	session.Quantity = 0
	session.Recipient = nil

	return session, []Effect{
		edit(display.ChosenPrompt(t, item), nil),
		answer("", false),
	}
}

func text(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	if IsCancel(ev.Text) {
		return nil, []Effect{
			send(i18n.Render(t, "wizard.canceled", nil), nil),
			{Kind: EffectRefreshMenu},
		}
	}

	switch session.State {
	case state.StateSelectingQuantity:
		if !session.AwaitingQuantity() {
			return session, []Effect{send(i18n.Render(t, "catalog.pick_item", nil), nil)}
		}
		return enterQuantity(t, session, ev)
	case state.StateEnteringRecipient:
		return enterRecipient(t, session, ev)
	case state.StateAwaitingConfirmation:
		return session, []Effect{send(i18n.Render(t, "wizard.use_buttons", nil), nil)}
	default:
		return session, nil
	}
}

func enterQuantity(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	qty, err := ParseQuantity(ev.Text)
	if err != nil {
		return session, []Effect{send(i18n.Render(t, "wizard.invalid_quantity", nil), nil)}
	}

	if !display.TotalFits(session.Selected.Price, qty) {
		return session, []Effect{send(i18n.Render(t, "wizard.quantity_too_large", nil), nil)}
	}

	session.Quantity = qty
	session.State = state.StateEnteringRecipient

	return session, []Effect{send(display.RecipientPrompt(t, ev.Origin.UserID), nil)}
}

func enterRecipient(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	recipient, err := ParseRecipient(ev.Text)
	if err != nil {
		return session, []Effect{send(i18n.Render(t, "wizard.invalid_recipient", nil), nil)}
	}

	if session.Selected == nil || session.Quantity <= 0 {
		return invalidRequest(t, false)
	}

	session.Recipient = &recipient
	session.State = state.StateAwaitingConfirmation

	return session, []Effect{
		send(display.Confirmation(t, *session.Selected, session.Quantity, recipient, ev.Origin.UserID), keyboard.Confirm(t)),
	}
}

func confirm(t i18n.Translator, session *state.Session, ev Event) (*state.Session, []Effect) {
	if session.State != state.StateAwaitingConfirmation ||
		session.Selected == nil || session.Quantity <= 0 || session.Recipient == nil {
		return invalidRequest(t, true)
	}

	order := &Order{
		PurchaserID: ev.Origin.UserID,
		Item:        *session.Selected,
		Quantity:    session.Quantity,
		Recipient:   *session.Recipient,
	}

	return nil, []Effect{
		answer("", false),
		edit(i18n.Render(t, "wizard.in_progress", nil), nil),
		{Kind: EffectPurchase, Order: order},
		{Kind: EffectRefreshBalance},
		{Kind: EffectRefreshMenu},
	}
}

func invalidRequest(t i18n.Translator, fromButton bool) (*state.Session, []Effect) {
	msg := i18n.Render(t, "wizard.invalid_request", nil)
	if !fromButton {
		return nil, []Effect{send(msg, nil), {Kind: EffectRefreshMenu}}
	}

	return nil, []Effect{
		answer(msg, true),
		edit(msg, nil),
		{Kind: EffectRefreshMenu},
	}
}

func send(text string, rows keyboard.Rows) Effect {
	return Effect{Kind: EffectSend, Text: text, Keyboard: rows}
}

func edit(text string, rows keyboard.Rows) Effect {
	return Effect{Kind: EffectEdit, Text: text, Keyboard: rows}
}

func answer(text string, alert bool) Effect {
	return Effect{Kind: EffectAnswer, Text: text, Alert: alert}
}
