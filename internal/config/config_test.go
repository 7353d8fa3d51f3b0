package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, dir string) *Config {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, t.TempDir())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "grocer.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 2.0, cfg.Scrape.RequestsPerSec)
	assert.Empty(t, cfg.Scrape.Retailers)
	assert.Equal(t, "Default", cfg.PriceAPI.Currency)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 15, cfg.Aggregate.PerSourceTimeoutSecs)
	assert.Equal(t, "placeholder", cfg.Aggregate.Fallback)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GROCER_SERVER_PORT", "9090")
	t.Setenv("GROCER_STORE_DRIVER", "postgres")
	t.Setenv("GROCER_ANTHROPIC_KEY", "sk-test")
	t.Setenv("GROCER_AGGREGATE_FALLBACK", "omit")

	cfg := loadFrom(t, t.TempDir())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "omit", cfg.Aggregate.Fallback)
}

// Secrets have no SetDefault entry, so they depend on an explicit env
// binding to survive Unmarshal.
func TestLoadEnvOnlySecrets(t *testing.T) {
	t.Setenv("GROCER_ANTHROPIC_KEY", "sk-env-only")
	t.Setenv("GROCER_PRICE_API_KEY", "pk-env-only")
	t.Setenv("GROCER_PRICE_API_STORES", "store-1,store-2")

	cfg := loadFrom(t, t.TempDir())

	assert.Equal(t, "sk-env-only", cfg.Anthropic.Key)
	assert.Equal(t, "pk-env-only", cfg.PriceAPI.Key)
	assert.Equal(t, []string{"store-1", "store-2"}, cfg.PriceAPI.Stores)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 3001
store:
  driver: postgres
  database_url: postgres://localhost/grocer
scrape:
  retailers:
    - name: walmart
      url_template: https://www.walmart.com/search?q=%s
      separator: "+"
      card_selector: div.mb1
      title_selector: a.w_iUH7
      price_selector: span.price-group
      price_scope: card
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg := loadFrom(t, dir)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/grocer", cfg.Store.DatabaseURL)
	require.Len(t, cfg.Scrape.Retailers, 1)
	assert.Equal(t, "walmart", cfg.Scrape.Retailers[0].Name)
	assert.Equal(t, "div.mb1", cfg.Scrape.Retailers[0].CardSelector)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nonsense", Format: "json"}))
}

func TestLoadBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [broken"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.Error(t, err)
}
