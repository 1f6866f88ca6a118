package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 20, cfg.Book.DefaultDepth)
	require.False(t, cfg.Book.AssertInvariants)
	require.Equal(t, 5000.0, cfg.RateLimit.RequestsPerSecond)
	require.True(t, cfg.Monitoring.Enabled)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
}
