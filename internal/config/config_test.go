package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", "https://auth.example.com/")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		require.Equal(t, "https://auth.example.com", cfg.AuthlanderURI)
		require.Equal(t, ":8081", cfg.ListenAddress)
		require.Equal(t, []string{"http://*", "https://*"}, cfg.AllowedOrigins)
		require.Equal(t, 10*time.Second, cfg.AuthlanderTimeout)
		require.Equal(t, 1, cfg.RetryMaxAttempts)
		require.Equal(t, AuditDriverInMemory, cfg.AuditDriver)
		require.Equal(t, 168*time.Hour, cfg.AuditRetention)
		require.False(t, cfg.IsEnvProduction())
		require.True(t, cfg.AuditEnabled())
	})

	t.Run("missing authlander uri", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", " ")

		_, err := LoadFromEnv()
		require.ErrorIs(t, err, errNoAuthlanderURI)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", "https://auth.example.com")
		t.Setenv("GATEKEEPER_AUDIT_DRIVER", "postgres")

		_, err := LoadFromEnv()
		require.ErrorIs(t, err, errNoPostgresDSN)
	})

	t.Run("unknown audit driver", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", "https://auth.example.com")
		t.Setenv("GATEKEEPER_AUDIT_DRIVER", "mongo")

		_, err := LoadFromEnv()
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown audit driver")
	})

	t.Run("invalid retry attempts", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", "https://auth.example.com")
		t.Setenv("GATEKEEPER_RETRY_MAX_ATTEMPTS", "0")

		_, err := LoadFromEnv()
		require.Error(t, err)
	})

	t.Run("production", func(t *testing.T) {
		t.Setenv("GATEKEEPER_AUTHLANDER_URI", "https://auth.example.com")
		t.Setenv("GATEKEEPER_ENVIRONMENT", "Production")
		t.Setenv("GATEKEEPER_AUDIT_DRIVER", "none")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		require.True(t, cfg.IsEnvProduction())
		require.False(t, cfg.AuditEnabled())
	})
}
