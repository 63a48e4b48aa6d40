// Package domain holds the value types shared by the gift purchase wizard.
package domain

import "time"

// CatalogItem is one purchasable gift as returned by the catalog provider.
// A nil Supply marks an unlimited gift; otherwise Remaining <= Supply.
type CatalogItem struct {
	ID        string `json:"id"`
	Emoji     string `json:"emoji"`
	Price     int64  `json:"price"`
	Supply    *int64 `json:"supply,omitempty"`
	Remaining *int64 `json:"remaining,omitempty"`
}

// Unlimited reports whether the item has no supply cap.
func (i CatalogItem) Unlimited() bool {
	return i.Supply == nil
}

// RemainingCount returns the remaining units of a limited item, zero when unknown.
func (i CatalogItem) RemainingCount() int64 {
	if i.Remaining == nil {
		return 0
	}
	return *i.Remaining
}

// SupplyCount returns the total supply of a limited item, zero for unlimited items.
func (i CatalogItem) SupplyCount() int64 {
	if i.Supply == nil {
		return 0
	}
	return *i.Supply
}

// CatalogFilter narrows the catalog by price and supply. Bounds are inclusive.
type CatalogFilter struct {
	MinPrice         int64
	MaxPrice         int64
	MinSupply        int64
	MaxSupply        int64
	IncludeUnlimited bool
}

// DefaultCatalogFilter is the filter used when opening the catalog.
func DefaultCatalogFilter() CatalogFilter {
	return CatalogFilter{
		MinPrice:         0,
		MaxPrice:         1_000_000,
		MinSupply:        0,
		MaxSupply:        100_000_000,
		IncludeUnlimited: true,
	}
}

// Match reports whether item passes the filter.
func (f CatalogFilter) Match(item CatalogItem) bool {
	if item.Price < f.MinPrice || item.Price > f.MaxPrice {
		return false
	}

	if item.Unlimited() {
		return f.IncludeUnlimited
	}

	supply := item.SupplyCount()
	return supply >= f.MinSupply && supply <= f.MaxSupply
}

// RecipientKind tags the populated variant of a Recipient.
type RecipientKind string

const (
	// RecipientUser targets a Telegram account by numeric id.
	RecipientUser RecipientKind = "user"
	// RecipientChannel targets a channel by its @handle.
	RecipientChannel RecipientKind = "channel"
)

// Recipient is either a user id or a channel handle, never both.
type Recipient struct {
	Kind    RecipientKind `json:"kind"`
	UserID  int64         `json:"user_id,omitempty"`
	Channel string        `json:"channel,omitempty"`
}

// UserRecipient builds a user-id recipient.
func UserRecipient(id int64) Recipient {
	return Recipient{Kind: RecipientUser, UserID: id}
}

// ChannelRecipient builds a channel-handle recipient. The handle keeps its leading "@".
func ChannelRecipient(handle string) Recipient {
	return Recipient{Kind: RecipientChannel, Channel: handle}
}

// IsChannel reports whether the recipient is a channel handle.
func (r Recipient) IsChannel() bool {
	return r.Kind == RecipientChannel
}

// PurchaseRequest is a single-unit purchase attempt.
type PurchaseRequest struct {
	PurchaserID int64
	ItemID      string
	Recipient   Recipient
	UnitPrice   int64
}

// PurchaseOutcome summarizes a purchase loop. Succeeded <= Attempted <= requested quantity.
type PurchaseOutcome struct {
	Attempted int64 `json:"attempted"`
	Succeeded int64 `json:"succeeded"`
}

// Complete reports whether every requested unit was bought.
func (o PurchaseOutcome) Complete(requested int64) bool {
	return o.Succeeded == requested
}

// PurchaseRun is the persisted record of one confirmed purchase loop.
type PurchaseRun struct {
	ID          string
	PurchaserID int64
	ItemID      string
	ItemLabel   string
	Recipient   Recipient
	UnitPrice   int64
	Requested   int64
	Attempted   int64
	Succeeded   int64
	CreatedAt   time.Time
}
