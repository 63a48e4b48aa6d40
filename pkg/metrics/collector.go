// Package metrics exposes the Prometheus instruments of the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/giftshop-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_active_sessions",
			Help: "Current number of stored wizard sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_by_state",
			Help: "Number of wizard sessions per state",
		},
		[]string{"state"},
	)
	purchaseRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_runs_total",
			Help: "Finished purchase loops labeled by result",
		},
		[]string{"result"},
	)
	giftsPurchasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifts_purchased_total",
			Help: "Total number of gift units bought",
		},
	)
	purchaseRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purchase_run_duration_seconds",
			Help:    "Duration of purchase loops in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	giftAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_api_requests_total",
			Help: "Gift API calls labeled by method and status",
		},
		[]string{"method", "status"},
	)
	giftAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gift_api_request_duration_seconds",
			Help:    "Gift API latency distributions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	starBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_star_balance",
			Help: "Last known star balance of the bot",
		},
	)
)

var trackedStates = []state.State{
	state.StateSelectingQuantity,
	state.StateEnteringRecipient,
	state.StateAwaitingConfirmation,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordPurchaseRun tracks one finished purchase loop.
func RecordPurchaseRun(complete bool, bought int64, duration time.Duration) {
	result := "partial"
	if complete {
		result = "complete"
	}

	purchaseRunsTotal.WithLabelValues(result).Inc()
	giftsPurchasedTotal.Add(float64(bought))
	purchaseRunDuration.Observe(duration.Seconds())
}

// RecordGiftAPICall tracks one call to the gift API.
func RecordGiftAPICall(method string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	giftAPIRequestsTotal.WithLabelValues(method, status).Inc()
	giftAPIRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// SetStarBalance publishes the last fetched balance.
func SetStarBalance(balance int64) {
	starBalance.Set(float64(balance))
}

// SetActiveSessions updates the gauge for stored sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// SetSessionsByState updates the gauge for the given state.
func SetSessionsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	sessionsByState.WithLabelValues(state).Set(float64(count))
}

// SessionLister is the part of the session store the collector polls.
type SessionLister interface {
	GetAllSessions(ctx context.Context) ([]*state.Session, error)
}

// StateCollector periodically gathers FSM state counts and emits gauge metrics.
type StateCollector struct {
	fsm SessionLister
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm SessionLister) *StateCollector {
	return &StateCollector{fsm: fsm}
}

// Run polls the FSM every 10 seconds, updating session gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	sessions, err := c.fsm.GetAllSessions(ctx)
	if err != nil {
		return err
	}

	SetActiveSessions(len(sessions))

	stateCounts := make(map[string]int, len(sessions))
	for _, s := range sessions {
		label := "unknown"
		if s != nil && s.State != "" {
			label = string(s.State)
		}
		stateCounts[label]++
	}

	sessionsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetSessionsByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetSessionsByState(label, count)
	}

	return nil
}
