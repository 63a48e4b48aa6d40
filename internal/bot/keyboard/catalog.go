package keyboard

import (
	"github.com/Proton-105/giftshop-bot/internal/display"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
)

// Catalog builds one button per item in catalog order plus a trailing "return to menu" row.
func Catalog(t i18n.Translator, items []domain.CatalogItem) Rows {
	rows := make(Rows, 0, len(items)+1)
	for _, item := range items {
		rows = append(rows, []InlineButton{{
			Text:   display.ItemLabel(t, item),
			Unique: UniqueGift,
			Data:   item.ID,
		}})
	}

	rows = append(rows, []InlineButton{{
		Text:   i18n.Render(t, "catalog.return_to_menu", nil),
		Unique: UniqueCatalogMainMenu,
	}})

	return rows
}

// Confirm builds the Confirm/Cancel row shown under the order summary.
func Confirm(t i18n.Translator) Rows {
	return Rows{{
		{Text: i18n.Render(t, "wizard.confirm", nil), Unique: UniqueConfirmPurchase},
		{Text: i18n.Render(t, "wizard.cancel", nil), Unique: UniqueCancelPurchase},
	}}
}

// Menu builds the main menu keyboard.
func Menu(t i18n.Translator) Rows {
	return Rows{{
		{Text: i18n.Render(t, "menu.catalog", nil), Unique: UniqueCatalog},
	}}
}
