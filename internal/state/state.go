package state

import (
	"time"

	"github.com/Proton-105/giftshop-bot/internal/domain"
)

// State represents a step of the gift purchase wizard.
type State string

const (
	// StateIdle means no wizard is running for the user.
	StateIdle State = "idle"
	// StateSelectingQuantity covers picking an item from the cached catalog and then typing a quantity.
	StateSelectingQuantity State = "selecting_quantity"
	// StateEnteringRecipient waits for a user id or channel handle.
	StateEnteringRecipient State = "entering_recipient"
	// StateAwaitingConfirmation waits for the Confirm or Cancel button.
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// Session is the per-user wizard record consulted and mutated at every transition.
type Session struct {
	UserID    int64                `json:"user_id"`
	State     State                `json:"state"`
	Catalog   []domain.CatalogItem `json:"catalog,omitempty"`
	Selected  *domain.CatalogItem  `json:"selected,omitempty"`
	Quantity  int64                `json:"quantity,omitempty"`
	Recipient *domain.Recipient    `json:"recipient,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewSession returns an idle session with nothing cached.
func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// HasCatalog reports whether a catalog snapshot is cached. Its absence marks the session stale.
func (s *Session) HasCatalog() bool {
	return s != nil && len(s.Catalog) > 0
}

// Lookup finds an item by id in the cached catalog snapshot.
func (s *Session) Lookup(id string) (domain.CatalogItem, bool) {
	if s == nil {
		return domain.CatalogItem{}, false
	}

	for _, item := range s.Catalog {
		if item.ID == id {
			return item, true
		}
	}

	return domain.CatalogItem{}, false
}

// AwaitingQuantity reports whether an item is selected and the quantity is still missing.
func (s *Session) AwaitingQuantity() bool {
	return s != nil && s.State == StateSelectingQuantity && s.Selected != nil
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	c := *s
	if s.Catalog != nil {
		c.Catalog = make([]domain.CatalogItem, len(s.Catalog))
		copy(c.Catalog, s.Catalog)
	}
	if s.Selected != nil {
		selected := *s.Selected
		c.Selected = &selected
	}
	if s.Recipient != nil {
		recipient := *s.Recipient
		c.Recipient = &recipient
	}
	return &c
}
