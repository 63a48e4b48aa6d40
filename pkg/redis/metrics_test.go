package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsClientCountsRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := NewMetricsClient(Wrap(rdb))
	ctx := context.Background()

	setsBefore := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("set"))
	missBefore := testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get"))

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, goredis.Nil)

	require.NoError(t, client.Delete(ctx, "k"))
	require.NoError(t, client.Ping(ctx))

	assert.Equal(t, setsBefore+1, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("set")))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get")))
	assert.Same(t, rdb, client.Raw())
}
