package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(
			keyboard.InlineButton{Text: "Gift A", Unique: keyboard.UniqueGift, Data: "1"},
			keyboard.InlineButton{Text: "Gift B", Unique: keyboard.UniqueGift, Data: "2"},
		).AddRow(
			keyboard.InlineButton{Text: "Confirm", Unique: keyboard.UniqueConfirmPurchase},
		)

		markup, err := builder.Build()
		require.NoError(t, err)
		require.NotNil(t, markup)

		require.Len(t, markup.InlineKeyboard, 2)
		assert.Len(t, markup.InlineKeyboard[0], 2)
		assert.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "catalog_gift:2", markup.InlineKeyboard[0][1].Data)
		assert.Equal(t, "confirm_purchase", markup.InlineKeyboard[1][0].Data)
		assert.Empty(t, markup.InlineKeyboard[0][0].Unique)
	})

	t.Run("callback data overflow", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(keyboard.InlineButton{
			Text:   "Too big",
			Unique: "overflow",
			Data:   strings.Repeat("x", keyboard.CallbackDataLimitBytes),
		})

		_, err := builder.Build()
		assert.Error(t, err)
	})

	t.Run("empty rows", func(t *testing.T) {
		markup, err := keyboard.Rows(nil).Markup()
		require.NoError(t, err)
		assert.Nil(t, markup)
	})
}
