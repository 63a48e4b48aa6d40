package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
redis:
  addr: "localhost:6379"
`)

	cfg, v, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, int64(1_000_000), cfg.Catalog.MaxPrice)
	assert.Equal(t, int64(100_000_000), cfg.Catalog.MaxSupply)
	assert.True(t, cfg.Catalog.IncludeUnlimited)
	assert.Equal(t, 300*time.Millisecond, cfg.Purchase.Delay)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "en", cfg.I18n.DefaultLang)
	assert.False(t, cfg.Database.Enabled())
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadFileEnvOverride(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "from-file"
session:
  backend: memory
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("PURCHASE_DELAY", "1s")

	cfg, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, time.Second, cfg.Purchase.Delay)
	assert.Equal(t, "memory", cfg.Session.Backend)
}

func TestLoadFileValidation(t *testing.T) {
	testCases := map[string]string{
		"missing token": `
session:
  backend: memory
`,
		"bad mode": `
bot:
  token: "x"
  mode: carrier-pigeon
session:
  backend: memory
`,
		"inverted price range": `
bot:
  token: "x"
catalog:
  min_price: 10
  max_price: 5
session:
  backend: memory
`,
		"redis session without redis": `
bot:
  token: "x"
`,
	}

	for name, body := range testCases {
		body := body
		t.Run(name, func(t *testing.T) {
			_, _, err := LoadFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", db.DSN())
	assert.True(t, db.Enabled())
}
