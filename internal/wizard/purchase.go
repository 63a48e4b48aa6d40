package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/giftshop-bot/internal/domain"
	"github.com/Proton-105/giftshop-bot/pkg/metrics"
)

// DefaultPurchaseDelay spaces consecutive successful purchases.
const DefaultPurchaseDelay = 300 * time.Millisecond

// Purchaser buys one unit. A false result ends the loop.
type Purchaser interface {
	AttemptPurchase(ctx context.Context, req domain.PurchaseRequest) bool
}

// PurchaserFunc adapts a function to Purchaser.
type PurchaserFunc func(ctx context.Context, req domain.PurchaseRequest) bool

// AttemptPurchase calls f.
func (f PurchaserFunc) AttemptPurchase(ctx context.Context, req domain.PurchaseRequest) bool {
	return f(ctx, req)
}

// PurchaseLoop performs sequential single-unit purchases, stopping at the first failure.
type PurchaseLoop struct {
	purchaser Purchaser
	delay     time.Duration
	sleep     func(time.Duration)
	log       *slog.Logger
}

// LoopOption customizes a PurchaseLoop.
type LoopOption func(*PurchaseLoop)

// WithDelay overrides the pacing delay.
func WithDelay(d time.Duration) LoopOption {
	return func(l *PurchaseLoop) {
		if d >= 0 {
			l.delay = d
		}
	}
}

// WithSleeper replaces time.Sleep, mainly for tests.
func WithSleeper(sleep func(time.Duration)) LoopOption {
	return func(l *PurchaseLoop) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// NewPurchaseLoop builds a loop over purchaser.
func NewPurchaseLoop(purchaser Purchaser, log *slog.Logger, opts ...LoopOption) *PurchaseLoop {
	if log == nil {
		log = slog.Default()
	}

	l := &PurchaseLoop{
		purchaser: purchaser,
		delay:     DefaultPurchaseDelay,
		sleep:     time.Sleep,
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run attempts up to order.Quantity purchases. Units already bought are never
// reversed. Cancellation of ctx does not interrupt the loop.
func (l *PurchaseLoop) Run(ctx context.Context, order Order) domain.PurchaseOutcome {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	req := domain.PurchaseRequest{
		PurchaserID: order.PurchaserID,
		ItemID:      order.Item.ID,
		Recipient:   order.Recipient,
		UnitPrice:   order.Item.Price,
	}

	var outcome domain.PurchaseOutcome
	for outcome.Attempted < order.Quantity {
		if outcome.Attempted > 0 {
			l.sleep(l.delay)
		}

		outcome.Attempted++
		if !l.purchaser.AttemptPurchase(ctx, req) {
			l.log.Warn("purchase attempt failed, stopping",
				slog.Int64("user_id", order.PurchaserID),
				slog.String("item_id", order.Item.ID),
				slog.Int64("attempt", outcome.Attempted),
			)
			break
		}
		outcome.Succeeded++
		l.log.Debug("purchase attempt succeeded",
			slog.Int64("user_id", order.PurchaserID),
			slog.Int64("attempt", outcome.Attempted),
		)
	}

	metrics.RecordPurchaseRun(outcome.Complete(order.Quantity), outcome.Succeeded, time.Since(started))

	l.log.Info("purchase loop finished",
		slog.Int64("user_id", order.PurchaserID),
		slog.String("item_id", order.Item.ID),
		slog.Int64("requested", order.Quantity),
		slog.Int64("attempted", outcome.Attempted),
		slog.Int64("succeeded", outcome.Succeeded),
	)

	return outcome
}
