package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseGlobals(t *testing.T, args ...string) (globalFlags, []string) {
	t.Helper()
	var g globalFlags
	flagSet := newGlobalFlagSet(&g)
	require.NoError(t, flagSet.Parse(args))
	g.devSet = flagSet.Changed("dev")
	return g, flagSet.Args()
}

func TestLoadConfigDevDefaultFollowsEnvironment(t *testing.T) {
	t.Run("outside production", func(t *testing.T) {
		t.Setenv("ENV", "development")
		g, rest := parseGlobals(t, "get", "items")
		assert.Equal(t, []string{"get", "items"}, rest)

		cfg, err := loadConfig(g)
		require.NoError(t, err)
		assert.True(t, cfg.Logging.Development)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("production", func(t *testing.T) {
		t.Setenv("ENV", "production")
		g, _ := parseGlobals(t, "get", "items")

		cfg, err := loadConfig(g)
		require.NoError(t, err)
		assert.False(t, cfg.Logging.Development)
	})

	t.Run("explicit flag in production", func(t *testing.T) {
		t.Setenv("ENV", "production")
		g, _ := parseGlobals(t, "--dev", "get", "items")

		cfg, err := loadConfig(g)
		require.NoError(t, err)
		assert.True(t, cfg.Logging.Development)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("explicitly off", func(t *testing.T) {
		t.Setenv("ENV", "development")
		g, _ := parseGlobals(t, "--dev=false", "get", "items")

		cfg, err := loadConfig(g)
		require.NoError(t, err)
		assert.False(t, cfg.Logging.Development)
	})
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	g, _ := parseGlobals(t, "--base-url", "https://api.example.com/v1", "--timeout", "5s", "--trace", "reach")

	cfg, err := loadConfig(g)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", cfg.Session.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Session.Timeout.Std())
	assert.True(t, cfg.Logging.Trace)
}

func TestBuildParams(t *testing.T) {
	values, err := buildParams([]string{"page=2"}, `{"q":"go"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"page": "2", "q": "go"}, values)

	values, err = buildParams(nil, "")
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = buildParams([]string{"novalue"}, "")
	assert.Error(t, err)

	_, err = buildParams(nil, "{bad")
	assert.Error(t, err)
}
