package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/wizard"
)

// NewStartHandler greets the user and draws the main menu.
func NewStartHandler(menu wizard.MenuRefresher, translations *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		origin := OriginOf(c)
		t := translations.Translator(origin.Lang)

		if err := c.Send(i18n.Render(t, "start.welcome", nil)); err != nil {
			return err
		}

		if menu == nil {
			return nil
		}

		return menu.Refresh(RequestContext(c), wizard.MenuTarget{
			ChatID:    origin.ChatID,
			UserID:    origin.UserID,
			MessageID: origin.MessageID,
			Lang:      origin.Lang,
		})
	}
}
