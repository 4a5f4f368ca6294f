package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(nil, env(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "allocator.db", cfg.DBPath)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	vars := map[string]string{
		"PORT":            "9000",
		"DB_PATH":         ":memory:",
		"LOG_LEVEL":       "debug",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example",
	}

	cfg, err := loadConfig([]string{"-port=3000"}, env(vars))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(nil, env(map[string]string{"PORT": "http"}))
	assert.Error(t, err)

	_, err = loadConfig([]string{"-log=loud"}, env(nil))
	assert.Error(t, err)
}
