package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "landd.toml", `
[server]
listen = ":9090"
request_timeout = "3s"

[storage]
driver = "bolt"
path = "/var/lib/land/land.db"

[market]
seed_price = "1.25"

[monitor]
enabled = true
treasury = "7x8P2m4K9nQ1r5S6t7U8v9W1x2Y3z4A5b6C7d8E9f0G"
interval = "30s"
batch_size = 25
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, StorageBolt, cfg.Storage.Driver)
	assert.Equal(t, "1.25", cfg.Market.SeedPrice)
	assert.Equal(t, "0.1", cfg.Market.PriceStep)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 25, cfg.Monitor.BatchSize)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "landd.yaml", `
storage:
  driver: memory
redis:
  enabled: true
  host: cache
  ttl: 1m
payments:
  require_confirmation: false
  token_usd: "0.002"
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Payments.RequireConfirmation)
	assert.Equal(t, "0.002", cfg.Payments.TokenUSD)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "landd.ini", "listen=:80")

	_, err := Load(path, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LAND_STORAGE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "land")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("LAND_TREASURY", "7x8P2m4K9nQ1r5S6t7U8v9W1x2Y3z4A5b6C7d8E9f0G")
	t.Setenv("LAND_ALLOW_AIRDROP", "true")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Storage.Host)
	assert.Equal(t, "land", cfg.Storage.Name)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.True(t, cfg.Monitor.Enabled)
	assert.True(t, cfg.Chain.AllowAirdrop)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("LAND_LISTEN", ":7000")
	// registers cleanup so the value set by the loader is removed afterwards
	t.Setenv("DB_PASSWORD", "")
	os.Unsetenv("DB_PASSWORD")

	path := writeFile(t, ".env", `
# local development
export DB_PASSWORD="s3cret"
LAND_LISTEN=:6000
not a pair
`)

	cfg, err := Load("", path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Storage.Password)
	assert.Equal(t, ":7000", cfg.Server.Listen)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }},
		{"first plot past area", func(c *Config) { c.Market.SeedFirstPlot = 11 }},
		{"bad price", func(c *Config) { c.Market.SeedPrice = "cheap" }},
		{"negative step", func(c *Config) { c.Market.PriceStep = "-0.1" }},
		{"monitor without treasury", func(c *Config) { c.Monitor.Enabled = true }},
		{"confirmation without rpc", func(c *Config) { c.Chain.RPCURL = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
