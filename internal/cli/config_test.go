package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LODESTAR_API_URL", "https://api.lodestar.example")
	t.Setenv("LODESTAR_STORE", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store)
	require.Equal(t, 5*time.Second, cfg.InitTimeout)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigRequiresAPIURL(t *testing.T) {
	t.Setenv("LODESTAR_API_URL", "")
	t.Setenv("LODESTAR_STORE", "memory")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "LODESTAR_API_URL")
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("LODESTAR_API_URL", "https://api.lodestar.example")
	t.Setenv("LODESTAR_STORE", "etcd")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "LODESTAR_STORE")
}

func TestLoadConfigFileStoreNeedsPassphrase(t *testing.T) {
	t.Setenv("LODESTAR_API_URL", "https://api.lodestar.example")
	t.Setenv("LODESTAR_STORE", "file")
	t.Setenv("LODESTAR_STORE_PASSPHRASE", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "LODESTAR_STORE_PASSPHRASE")
}
