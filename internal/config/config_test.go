package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.test/api")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("LOGOUT_TIMEOUT", "2s")
	t.Setenv("CORS_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("RATE_LIMIT_RPM", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, SessionBackendMemory, cfg.SessionBackend)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, 2*time.Second, cfg.LogoutTimeout)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, 300, cfg.RateLimitRPM, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:     "3000",
			BackendURL:     "http://backend.test",
			RequestTimeout: time.Second,
			BackendTimeout: time.Second,
			SessionTTL:     time.Hour,
			SessionBackend: SessionBackendMemory,
			LogFormat:      "pretty",
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.BackendURL = "backend.test"
	require.ErrorContains(t, cfg.Validate(), "BACKEND_URL")

	cfg = valid()
	cfg.SessionBackend = SessionBackendPostgres
	require.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg.DatabaseURL = "postgres://localhost/console"
	require.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")

	cfg.SessionSecret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.SessionBackend = "etcd"
	require.ErrorContains(t, cfg.Validate(), "SESSION_BACKEND")
}
