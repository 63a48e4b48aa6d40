package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
	"github.com/Proton-105/giftshop-bot/internal/display"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/state"
)

// Responder delivers effects to the chat the current event came from.
// Edit must treat an already edited or deleted message as success.
type Responder interface {
	Send(ctx context.Context, text string, rows keyboard.Rows) error
	Edit(ctx context.Context, text string, rows keyboard.Rows) error
	Answer(ctx context.Context, text string, alert bool) error
}

// CatalogProvider fetches purchasable items matching filter.
type CatalogProvider interface {
	FetchCatalog(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error)
}

// BalanceRefresher reloads the cached star balance.
type BalanceRefresher interface {
	Refresh(ctx context.Context) error
}

// MenuTarget addresses the main menu of one user.
type MenuTarget struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Lang      string
}

// MenuRefresher redraws the main menu.
type MenuRefresher interface {
	Refresh(ctx context.Context, target MenuTarget) error
}

// RunRecorder persists finished purchase runs.
type RunRecorder interface {
	Record(ctx context.Context, run domain.PurchaseRun) error
}

// Dependencies groups the collaborators of Service. Balance, Menu and Runs are optional.
type Dependencies struct {
	Machine      state.StateMachine
	Catalog      CatalogProvider
	Loop         *PurchaseLoop
	Balance      BalanceRefresher
	Menu         MenuRefresher
	Runs         RunRecorder
	Translations *i18n.Manager
	Filter       domain.CatalogFilter
	Log          *slog.Logger
}

// Service runs wizard events: it loads the session under the per-user lock,
// applies Transition, persists the result and executes the effects in order.
type Service struct {
	deps Dependencies
	log  *slog.Logger
	now  func() time.Time
}

// NewService validates deps and builds a Service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Machine == nil {
		return nil, errors.New("wizard: state machine is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("wizard: catalog provider is required")
	}
	if deps.Loop == nil {
		return nil, errors.New("wizard: purchase loop is required")
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		deps: deps,
		log:  log.With(slog.String("component", "wizard")),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle processes ev and delivers the resulting effects through r.
func (s *Service) Handle(ctx context.Context, r Responder, ev Event) error {
	t := s.deps.Translations.Translator(ev.Origin.Lang)

	if ev.Kind == EventOpenCatalog && ev.Catalog == nil {
		items, err := s.deps.Catalog.FetchCatalog(ctx, s.deps.Filter)
		if err != nil {
			s.log.Error("catalog fetch failed", slog.Int64("user_id", ev.Origin.UserID), slog.Any("error", err))
			msg := i18n.Render(t, "catalog.unavailable", nil)
			return s.execute(ctx, t, r, ev.Origin, []Effect{answer(msg, false), send(msg, nil)})
		}
		ev.Catalog = nonNil(items)
	}

	var effects []Effect
	err := s.deps.Machine.Update(ctx, ev.Origin.UserID, func(current *state.Session) (*state.Session, error) {
		next, eff := Transition(t, current, ev)
		effects = eff
		return next, nil
	})
	if err != nil {
		if errors.Is(err, state.ErrStateLocked) {
			busy := i18n.Render(t, "wizard.busy", nil)
			if ev.Kind == EventText {
				return r.Send(ctx, busy, nil)
			}
			return r.Answer(ctx, busy, false)
		}
		return fmt.Errorf("wizard: apply %s: %w", ev.Kind, err)
	}

	return s.execute(ctx, t, r, ev.Origin, effects)
}

// execute runs effects in order. After the first failure only the balance and
// menu refreshes still run; the first error is returned.
func (s *Service) execute(ctx context.Context, t i18n.Translator, r Responder, origin Origin, effects []Effect) error {
	var firstErr error

	for _, eff := range effects {
		if firstErr != nil && eff.Kind != EffectRefreshBalance && eff.Kind != EffectRefreshMenu {
			continue
		}

		var err error

		switch eff.Kind {
		case EffectSend:
			err = r.Send(ctx, eff.Text, eff.Keyboard)
		case EffectEdit:
			err = r.Edit(ctx, eff.Text, eff.Keyboard)
		case EffectAnswer:
			err = r.Answer(ctx, eff.Text, eff.Alert)
		case EffectPurchase:
			err = s.purchase(ctx, t, r, eff.Order)
		case EffectRefreshBalance:
			s.refreshBalance(ctx)
		case EffectRefreshMenu:
			s.refreshMenu(ctx, origin)
		}

		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (s *Service) purchase(ctx context.Context, t i18n.Translator, r Responder, order *Order) error {
	if order == nil {
		return nil
	}

	outcome := s.deps.Loop.Run(ctx, *order)
	s.recordRun(ctx, t, *order, outcome)

	report := display.Report(t, order.Item, order.Quantity, outcome, order.Recipient, order.PurchaserID)
	return r.Send(context.WithoutCancel(ctx), report, nil)
}

func (s *Service) recordRun(ctx context.Context, t i18n.Translator, order Order, outcome domain.PurchaseOutcome) {
	if s.deps.Runs == nil {
		return
	}

	run := domain.PurchaseRun{
		ID:          uuid.NewString(),
		PurchaserID: order.PurchaserID,
		ItemID:      order.Item.ID,
		ItemLabel:   display.ItemDisplay(t, order.Item),
		Recipient:   order.Recipient,
		UnitPrice:   order.Item.Price,
		Requested:   order.Quantity,
		Attempted:   outcome.Attempted,
		Succeeded:   outcome.Succeeded,
		CreatedAt:   s.now(),
	}

	if err := s.deps.Runs.Record(context.WithoutCancel(ctx), run); err != nil {
		s.log.Error("failed to record purchase run", slog.String("run_id", run.ID), slog.Any("error", err))
	}
}

func (s *Service) refreshBalance(ctx context.Context) {
	if s.deps.Balance == nil {
		return
	}
	if err := s.deps.Balance.Refresh(ctx); err != nil {
		s.log.Warn("balance refresh failed", slog.Any("error", err))
	}
}

func (s *Service) refreshMenu(ctx context.Context, origin Origin) {
	if s.deps.Menu == nil {
		return
	}

	target := MenuTarget{
		ChatID:    origin.ChatID,
		UserID:    origin.UserID,
		MessageID: origin.MessageID,
		Lang:      origin.Lang,
	}
	if err := s.deps.Menu.Refresh(ctx, target); err != nil {
		s.log.Warn("menu refresh failed", slog.Int64("user_id", origin.UserID), slog.Any("error", err))
	}
}

func nonNil(items []domain.CatalogItem) []domain.CatalogItem {
	if items == nil {
		return []domain.CatalogItem{}
	}
	return items
}
