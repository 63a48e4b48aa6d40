package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/giftshop-bot/internal/state"
)

type staticLister struct {
	sessions []*state.Session
	err      error
}

func (l staticLister) GetAllSessions(context.Context) ([]*state.Session, error) {
	return l.sessions, l.err
}

func TestStateCollector_Collect(t *testing.T) {
	collector := NewStateCollector(staticLister{sessions: []*state.Session{
		{UserID: 1, State: state.StateSelectingQuantity},
		{UserID: 2, State: state.StateSelectingQuantity},
		{UserID: 3, State: state.StateAwaitingConfirmation},
		nil,
	}})

	require.NoError(t, collector.collect(context.Background()))

	assert.Equal(t, float64(4), testutil.ToFloat64(activeSessions))
	assert.Equal(t, float64(2), testutil.ToFloat64(sessionsByState.WithLabelValues("selecting_quantity")))
	assert.Equal(t, float64(0), testutil.ToFloat64(sessionsByState.WithLabelValues("entering_recipient")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sessionsByState.WithLabelValues("awaiting_confirmation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sessionsByState.WithLabelValues("unknown")))
}

func TestStateCollector_CollectError(t *testing.T) {
	collector := NewStateCollector(staticLister{err: errors.New("redis down")})
	assert.Error(t, collector.collect(context.Background()))
}

func TestRecordPurchaseRun(t *testing.T) {
	complete := testutil.ToFloat64(purchaseRunsTotal.WithLabelValues("complete"))
	partial := testutil.ToFloat64(purchaseRunsTotal.WithLabelValues("partial"))
	bought := testutil.ToFloat64(giftsPurchasedTotal)

	RecordPurchaseRun(true, 3, time.Second)
	RecordPurchaseRun(false, 1, time.Second)

	assert.Equal(t, complete+1, testutil.ToFloat64(purchaseRunsTotal.WithLabelValues("complete")))
	assert.Equal(t, partial+1, testutil.ToFloat64(purchaseRunsTotal.WithLabelValues("partial")))
	assert.Equal(t, bought+4, testutil.ToFloat64(giftsPurchasedTotal))
}

func TestRecordGiftAPICall(t *testing.T) {
	before := testutil.ToFloat64(giftAPIRequestsTotal.WithLabelValues("sendGift", "error"))
	RecordGiftAPICall("sendGift", errors.New("boom"), time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(giftAPIRequestsTotal.WithLabelValues("sendGift", "error")))
}
