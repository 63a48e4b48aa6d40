package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With("bot_token", "123:secret").Info("hello",
		slog.String("password", "hunter2"),
		slog.Group("db", slog.String("dsn", "postgres://u:p@h/db"), slog.String("name", "shop")),
		slog.Int64("user_id", 42),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["bot_token"])
	assert.Equal(t, "***", entry["password"])
	assert.Equal(t, float64(42), entry["user_id"])

	db, ok := entry["db"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", db["dsn"])
	assert.Equal(t, "shop", db["name"])
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var all, errorsOnly bytes.Buffer
	log := slog.New(NewFanoutHandler(
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorsOnly, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	log.Info("info line")
	log.Error("error line")

	assert.Contains(t, all.String(), "info line")
	assert.Contains(t, all.String(), "error line")
	assert.NotContains(t, errorsOnly.String(), "info line")
	assert.Contains(t, errorsOnly.String(), "error line")
}

func TestLoggerSetLevel(t *testing.T) {
	l := New(Config{Level: "warn", Format: "text"})
	assert.Equal(t, slog.LevelWarn, l.Level())
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))

	require.NoError(t, l.SetLevel("debug"))
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))

	assert.Error(t, l.SetLevel("loud"))
	assert.Equal(t, slog.LevelDebug, l.Level())
	assert.NoError(t, l.Close())
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc")
	assert.Equal(t, "abc", CorrelationIDFromContext(ctx))
	assert.NotEmpty(t, CorrelationIDFromContext(WithCorrelationID(context.Background(), "")))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))

	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}
