package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "farmstore", cfg.App.Name)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Cart.Step.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "file", cfg.Cart.Storage)
	assert.Equal(t, 30*time.Minute, cfg.Cart.SessionIdle)
	assert.Equal(t, time.Minute, cfg.Cart.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.PollInterval)
	assert.Equal(t, time.Second, cfg.Dashboard.PushDebounce)
	assert.Equal(t, 5, cfg.Dashboard.TopProductsLimit)
	assert.Equal(t, time.Minute, cfg.Offline.ReconcileInterval)
	assert.True(t, cfg.Offline.ReconcileEnabled)
	assert.Equal(t, "memory", cfg.Push.Backend)
	assert.Zero(t, cfg.HTTP.WriteTimeout)
	assert.Empty(t, cfg.Database.SeedFile)
	assert.Equal(t, ",", cfg.Database.SeedDelimiter)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FARM_APP_PORT", "9090")
	t.Setenv("FARM_DATABASE_DRIVER", "sqlite")
	t.Setenv("FARM_DATABASE_PATH", ":memory:")
	t.Setenv("FARM_CART_STEP", "0.25")
	t.Setenv("FARM_DASHBOARD_POLL_INTERVAL", "1m")
	t.Setenv("FARM_OFFLINE_RECONCILE_ENABLED", "false")
	t.Setenv("FARM_DATABASE_SEED_FILE", "/etc/farm/catalog.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.DSN())
	assert.True(t, cfg.Cart.Step.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, time.Minute, cfg.Dashboard.PollInterval)
	assert.False(t, cfg.Offline.ReconcileEnabled)
	assert.Equal(t, "/etc/farm/catalog.csv", cfg.Database.SeedFile)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
name = "ferme"

[redis]
enabled = true

[push]
backend = "redis"

[dashboard]
push_debounce = "2s"
top_products_limit = 3
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ferme", cfg.App.Name)
	assert.Equal(t, "redis", cfg.Push.Backend)
	assert.Equal(t, 2*time.Second, cfg.Dashboard.PushDebounce)
	assert.Equal(t, 3, cfg.Dashboard.TopProductsLimit)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"FARM_DATABASE_DRIVER": "mysql"}},
		{"negative step", map[string]string{"FARM_CART_STEP": "-0.5"}},
		{"unparsable step", map[string]string{"FARM_CART_STEP": "half"}},
		{"redis cart without redis", map[string]string{"FARM_CART_STORAGE": "redis"}},
		{"redis push without redis", map[string]string{"FARM_PUSH_BACKEND": "redis"}},
		{"unknown storage", map[string]string{"FARM_CART_STORAGE": "s3"}},
		{"poll too fast", map[string]string{"FARM_DASHBOARD_POLL_INTERVAL": "100ms"}},
		{"idle above open", map[string]string{"FARM_DATABASE_MAX_OPEN_CONNS": "2", "FARM_DATABASE_MAX_IDLE_CONNS": "3"}},
		{"negative session idle", map[string]string{"FARM_CART_SESSION_IDLE": "-1m"}},
		{"multi-character seed delimiter", map[string]string{"FARM_DATABASE_SEED_DELIMITER": ";;"}},
		{"production without password", map[string]string{"FARM_APP_ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "farm",
		Password: "p@ss word",
		DBName:   "farmstore",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://farm:p%40ss%20word@db:5432/farmstore?sslmode=require", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
