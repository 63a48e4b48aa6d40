package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/wizard"
)

type recordingWizard struct {
	events []wizard.Event
	ctxs   []context.Context
	err    error
}

func (w *recordingWizard) Handle(ctx context.Context, _ wizard.Responder, ev wizard.Event) error {
	w.events = append(w.events, ev)
	w.ctxs = append(w.ctxs, ctx)
	return w.err
}

type recordingMenu struct {
	targets []wizard.MenuTarget
}

func (m *recordingMenu) Refresh(_ context.Context, target wizard.MenuTarget) error {
	m.targets = append(m.targets, target)
	return nil
}

type fakeHistory struct {
	runs []domain.PurchaseRun
	err  error
}

func (f fakeHistory) ListRecent(context.Context, int64, int) ([]domain.PurchaseRun, error) {
	return f.runs, f.err
}

func translations(t *testing.T) *i18n.Manager {
	t.Helper()
	m, err := i18n.Load("en")
	require.NoError(t, err)
	return m
}

func TestResponderSendAndEdit(t *testing.T) {
	c := newCallbackContext(1, "confirm_purchase")
	r := NewResponder(c)
	ctx := context.Background()

	rows := keyboard.Rows{{{Text: "Go", Unique: keyboard.UniqueCatalog}}}
	require.NoError(t, r.Send(ctx, "hello", rows))
	require.Len(t, c.sent, 1)
	assert.Equal(t, telebot.ModeHTML, c.sent[0].opts.ParseMode)
	require.NotNil(t, c.sent[0].opts.ReplyMarkup)
	assert.Equal(t, "catalog", c.sent[0].opts.ReplyMarkup.InlineKeyboard[0][0].Data)

	require.NoError(t, r.Edit(ctx, "done", nil))
	require.Len(t, c.edited, 1)
	assert.Nil(t, c.edited[0].opts.ReplyMarkup)

	require.NoError(t, r.Answer(ctx, "ok", true))
	require.Len(t, c.responses, 1)
	assert.True(t, c.responses[0].ShowAlert)
}

func TestResponderAnswerWithoutCallback(t *testing.T) {
	c := newTextContext(1, "hi")

	require.NoError(t, NewResponder(c).Answer(context.Background(), "ok", false))
	assert.Empty(t, c.responses)
}

func TestResponderEditToleratesStaleMessages(t *testing.T) {
	staleErrs := []error{
		telebot.ErrMessageNotModified,
		telebot.ErrCantEditMessage,
		telebot.NewError(400, "Bad Request: message to edit not found"),
		errors.New("telegram: message to edit not found (400)"),
	}
	for _, stale := range staleErrs {
		c := newCallbackContext(1, "x")
		c.editErr = fmt.Errorf("edit: %w", stale)
		assert.NoError(t, NewResponder(c).Edit(context.Background(), "t", nil))
	}

	for _, fatal := range []error{
		errors.New("network down"),
		telebot.NewError(400, "Bad Request: can't parse entities"),
		telebot.NewError(403, "Forbidden: message to edit not found"),
	} {
		c := newCallbackContext(1, "x")
		c.editErr = fatal
		assert.Error(t, NewResponder(c).Edit(context.Background(), "t", nil))
	}
}

func TestOriginOf(t *testing.T) {
	cb := newCallbackContext(42, "catalog")
	cb.chat = &telebot.Chat{ID: 500}
	assert.Equal(t, wizard.Origin{ChatID: 500, UserID: 42, MessageID: 11, Lang: "en"}, OriginOf(cb))

	text := newTextContext(42, "3")
	text.chat = nil
	assert.Equal(t, wizard.Origin{ChatID: 42, UserID: 42, MessageID: 7, Lang: "en"}, OriginOf(text))
}

func TestWizardHandlersBuildEvents(t *testing.T) {
	w := &recordingWizard{}

	require.NoError(t, NewOpenCatalogHandler(w)(newCallbackContext(1, "catalog"), ""))
	require.NoError(t, NewSelectItemHandler(w)(newCallbackContext(1, "catalog_gift:3"), "3"))
	require.NoError(t, NewConfirmHandler(w)(newCallbackContext(1, "confirm_purchase"), ""))
	require.NoError(t, NewCancelPurchaseHandler(w)(newCallbackContext(1, "cancel_purchase"), ""))
	require.NoError(t, NewReturnToMenuHandler(w)(newCallbackContext(1, "catalog_main_menu"), ""))
	require.NoError(t, NewTextHandler(w)(newTextContext(1, "@shop")))
	require.NoError(t, Command(NewOpenCatalogHandler(w))(newTextContext(1, "/catalog")))

	kinds := make([]wizard.EventKind, 0, len(w.events))
	for _, ev := range w.events {
		kinds = append(kinds, ev.Kind)
		assert.Equal(t, int64(1), ev.Origin.UserID)
	}

	assert.Equal(t, []wizard.EventKind{
		wizard.EventOpenCatalog,
		wizard.EventSelectItem,
		wizard.EventConfirm,
		wizard.EventCancelPurchase,
		wizard.EventReturnToMenu,
		wizard.EventText,
		wizard.EventOpenCatalog,
	}, kinds)
	assert.Equal(t, "3", w.events[1].ItemID)
	assert.Equal(t, "@shop", w.events[5].Text)
}

func TestDispatchUsesRequestContext(t *testing.T) {
	type key struct{}
	w := &recordingWizard{}
	c := newTextContext(1, "5")
	WithRequestContext(c, context.WithValue(context.Background(), key{}, "v"))

	require.NoError(t, NewTextHandler(w)(c))
	require.Len(t, w.ctxs, 1)
	assert.Equal(t, "v", w.ctxs[0].Value(key{}))
}

func TestDispatchWithoutSender(t *testing.T) {
	w := &recordingWizard{}
	c := newTextContext(1, "5")
	c.sender = nil

	require.NoError(t, NewTextHandler(w)(c))
	assert.Empty(t, w.events)
}

func TestStartHandler(t *testing.T) {
	menu := &recordingMenu{}
	c := newTextContext(9, "/start")

	require.NoError(t, NewStartHandler(menu, translations(t), nil)(c))
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].text, "Welcome")
	require.Len(t, menu.targets, 1)
	assert.Equal(t, wizard.MenuTarget{ChatID: 9, UserID: 9, MessageID: 7, Lang: "en"}, menu.targets[0])
}

func TestHistoryHandler(t *testing.T) {
	tr := translations(t)
	runs := []domain.PurchaseRun{{
		ItemLabel: "💝",
		Recipient: domain.UserRecipient(9),
		Requested: 3,
		Succeeded: 2,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}

	c := newTextContext(1, "/history")
	require.NoError(t, NewHistoryHandler(fakeHistory{runs: runs}, 10, tr, nil)(c))
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].text, "recent purchases")
	assert.Contains(t, c.sent[0].text, "2026-03-01 · 💝 → <code>9</code> · 2/3")

	c = newTextContext(1, "/history")
	require.NoError(t, NewHistoryHandler(fakeHistory{}, 10, tr, nil)(c))
	assert.Contains(t, c.sent[0].text, "no purchases")

	c = newTextContext(1, "/history")
	require.NoError(t, NewHistoryHandler(fakeHistory{err: errors.New("db down")}, 10, tr, nil)(c))
	assert.Contains(t, c.sent[0].text, "unavailable")

	c = newTextContext(1, "/history")
	require.NoError(t, NewHistoryHandler(nil, 10, tr, nil)(c))
	assert.Contains(t, c.sent[0].text, "unavailable")
}
