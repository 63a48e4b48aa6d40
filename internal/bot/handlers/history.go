package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/display"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
)

// HistorySource lists persisted purchase runs.
type HistorySource interface {
	ListRecent(ctx context.Context, purchaserID int64, limit int) ([]domain.PurchaseRun, error)
}

// NewHistoryHandler lists the caller's recent purchase runs. A nil source reports history as unavailable.
func NewHistoryHandler(source HistorySource, limit int, translations *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		origin := OriginOf(c)
		t := translations.Translator(origin.Lang)
		opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}

		if source == nil {
			return c.Send(i18n.Render(t, "history.unavailable", nil), opts)
		}

		runs, err := source.ListRecent(RequestContext(c), origin.UserID, limit)
		if err != nil {
			log.Error("failed to list purchase history", slog.Int64("user_id", origin.UserID), slog.Any("error", err))
			return c.Send(i18n.Render(t, "history.unavailable", nil), opts)
		}

		if len(runs) == 0 {
			return c.Send(i18n.Render(t, "history.empty", nil), opts)
		}

		var b strings.Builder
		b.WriteString(i18n.Render(t, "history.header", nil))
		for _, run := range runs {
			b.WriteString("\n")
			b.WriteString(display.HistoryLine(t, run, origin.UserID))
		}

		return c.Send(b.String(), opts)
	}
}
