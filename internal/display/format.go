// Package display renders catalog items, prices and wizard messages.
// All functions are pure; money is integer stars rendered with thousands separators.
package display

import (
	"html"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
)

const starSign = "★"

// Count renders an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Money renders a star amount, e.g. ★1,500.
func Money(n int64) string {
	return starSign + humanize.Comma(n)
}

// Total returns price * quantity.
func Total(price, quantity int64) int64 {
	return price * quantity
}

// TotalFits reports whether price * quantity is representable as int64.
func TotalFits(price, quantity int64) bool {
	if price <= 0 || quantity <= 0 {
		return true
	}
	return quantity <= math.MaxInt64/price
}

// ItemDisplay shows the emoji of an unlimited item or "remaining of supply" for a limited one.
func ItemDisplay(t i18n.Translator, item domain.CatalogItem) string {
	if item.Unlimited() {
		return item.Emoji
	}

	return i18n.Render(t, "item.remaining", map[string]string{
		"Remaining": Count(item.RemainingCount()),
		"Supply":    Count(item.SupplyCount()),
	})
}

// ItemLabel is the button caption for an item: its display followed by the price.
func ItemLabel(t i18n.Translator, item domain.CatalogItem) string {
	return i18n.Render(t, "item.label", map[string]string{
		"Item":  ItemDisplay(t, item),
		"Price": Money(item.Price),
	})
}

// RecipientDisplay renders the gift recipient; the purchaser's own id is shown as "you".
// Channel handles are user input and are HTML-escaped.
func RecipientDisplay(t i18n.Translator, r domain.Recipient, selfID int64) string {
	if r.IsChannel() {
		return html.EscapeString(r.Channel)
	}

	id := strconv.FormatInt(r.UserID, 10)
	if r.UserID == selfID {
		return i18n.Render(t, "recipient.self", map[string]string{"ID": id})
	}
	return i18n.Render(t, "recipient.user", map[string]string{"ID": id})
}

// CatalogSummary counts unlimited ("regular") and limited ("unique") items.
func CatalogSummary(t i18n.Translator, items []domain.CatalogItem) string {
	var limited, unlimited int64
	for _, item := range items {
		if item.Unlimited() {
			unlimited++
		} else {
			limited++
		}
	}

	return i18n.Render(t, "catalog.summary", map[string]string{
		"Unlimited": Count(unlimited),
		"Limited":   Count(limited),
	})
}

// ChosenPrompt confirms the selected item and asks for a quantity.
func ChosenPrompt(t i18n.Translator, item domain.CatalogItem) string {
	return i18n.Render(t, "wizard.chosen", map[string]string{
		"Item":  ItemDisplay(t, item),
		"Price": Money(item.Price),
	})
}

// RecipientPrompt asks for a user id or channel handle, quoting the caller's own id as an example.
func RecipientPrompt(t i18n.Translator, userID int64) string {
	return i18n.Render(t, "wizard.recipient_prompt", map[string]string{
		"UserID": strconv.FormatInt(userID, 10),
	})
}

// Confirmation summarizes the pending order before the user confirms it.
func Confirmation(t i18n.Translator, item domain.CatalogItem, quantity int64, r domain.Recipient, selfID int64) string {
	return i18n.Render(t, "wizard.confirmation", map[string]string{
		"Item":      ItemDisplay(t, item),
		"Quantity":  Count(quantity),
		"Price":     Money(item.Price),
		"Total":     Money(Total(item.Price, quantity)),
		"Recipient": RecipientDisplay(t, r, selfID),
	})
}

// Report renders the purchase loop result. A shortfall switches to the stopped variant.
func Report(t i18n.Translator, item domain.CatalogItem, requested int64, outcome domain.PurchaseOutcome, r domain.Recipient, selfID int64) string {
	vars := map[string]string{
		"Item":      ItemDisplay(t, item),
		"Succeeded": Count(outcome.Succeeded),
		"Requested": Count(requested),
		"Shortfall": Count(requested - outcome.Succeeded),
		"Recipient": RecipientDisplay(t, r, selfID),
	}

	if outcome.Complete(requested) {
		return i18n.Render(t, "report.success", vars)
	}
	return i18n.Render(t, "report.stopped", vars)
}

// Menu renders the main menu text. A nil balance renders as unknown.
func Menu(t i18n.Translator, balance *int64) string {
	value := i18n.Render(t, "menu.balance_unknown", nil)
	if balance != nil {
		value = Money(*balance)
	}
	return i18n.Render(t, "menu.text", map[string]string{"Balance": value})
}

// HistoryLine renders one persisted purchase run.
func HistoryLine(t i18n.Translator, run domain.PurchaseRun, selfID int64) string {
	return i18n.Render(t, "history.line", map[string]string{
		"Date":      run.CreatedAt.UTC().Format(time.DateOnly),
		"Item":      html.EscapeString(run.ItemLabel),
		"Recipient": RecipientDisplay(t, run.Recipient, selfID),
		"Succeeded": Count(run.Succeeded),
		"Requested": Count(run.Requested),
	})
}
