package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "communal-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "communal", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Redis.Enabled())
		assert.Equal(t, 3, cfg.Billing.Lookback)
		assert.Equal(t, 5*time.Minute, cfg.Billing.MaxDelay)
		assert.Equal(t, 30*time.Minute, cfg.Billing.StaleAfter)
		assert.Equal(t, 1, cfg.Billing.MonthlyDay)
		assert.Equal(t, 4, cfg.Scheduler.MaxConcurrentJobs)
	})

	t.Run("loads values from environment variables with COMMUNAL prefix", func(t *testing.T) {
		t.Setenv("COMMUNAL_APP_NAME", "test-app")
		t.Setenv("COMMUNAL_APP_PORT", "9000")
		t.Setenv("COMMUNAL_DATABASE_HOST", "testdb.local")
		t.Setenv("COMMUNAL_DATABASE_PORT", "5433")
		t.Setenv("COMMUNAL_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("COMMUNAL_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("COMMUNAL_REDIS_HOST", "cache.local")
		t.Setenv("COMMUNAL_BILLING_LOOKBACK", "6")
		t.Setenv("COMMUNAL_BILLING_LOCK_TTL", "2m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.Equal(t, 6, cfg.Billing.Lookback)
		assert.Equal(t, 2*time.Minute, cfg.Billing.LockTTL)
	})

	t.Run("fails when idle connections exceed open connections", func(t *testing.T) {
		t.Setenv("COMMUNAL_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("COMMUNAL_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("fails on negative lookback", func(t *testing.T) {
		t.Setenv("COMMUNAL_BILLING_LOOKBACK", "-1")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "billing.lookback")
	})

	t.Run("production requires a database password", func(t *testing.T) {
		t.Setenv("COMMUNAL_APP_ENV", "production")
		t.Setenv("COMMUNAL_DATABASE_SSLMODE", "require")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMMUNAL_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("COMMUNAL_TEST_DOTENV_VALUE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("COMMUNAL_TEST_DOTENV_VALUE"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")), "a missing file is not an error")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	assert.NoError(t, base().validate())

	cfg := base()
	cfg.Billing.MonthlyDay = 31
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.Billing.Heartbeat = time.Hour
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.Telemetry.SamplingRatio = 1.5
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.App.Env = "production"
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"
	cfg.HTTP.CORSAllowOrigins = []string{"*"}
	assert.Error(t, cfg.validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "communal", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/communal?sslmode=disable", d.DSN())
}
