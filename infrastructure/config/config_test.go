package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:8000", cfg.CanvasAPIURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.AutosaveDebounce)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CANVAS_API_URL", "https://canvas.example.com")
	t.Setenv("CANVAS_API_TOKEN", "tok-123")
	t.Setenv("AUTOSAVE_DEBOUNCE", "1s")
	t.Setenv("ASK_INTERVAL", "2s")
	t.Setenv("ASK_BURST", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://canvas.example.com", cfg.CanvasAPIURL)
	assert.Equal(t, "tok-123", cfg.CanvasAPIToken)
	assert.Equal(t, time.Second, cfg.AutosaveDebounce)
	assert.Equal(t, 2*time.Second, cfg.AskInterval)
	assert.Equal(t, 5, cfg.AskBurst)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }},
		{"non-http url", func(c *Config) { c.CanvasAPIURL = "ftp://canvas" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero debounce", func(c *Config) { c.AutosaveDebounce = 0 }},
		{"negative ask interval", func(c *Config) { c.AskInterval = -time.Second }},
		{"throttled with zero burst", func(c *Config) { c.AskInterval = time.Second; c.AskBurst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAskLimiter(t *testing.T) {
	cfg := &Config{AskInterval: 0}
	assert.Equal(t, rate.Inf, cfg.AskLimiter().Limit())

	cfg = &Config{AskInterval: 2 * time.Second, AskBurst: 5}
	limiter := cfg.AskLimiter()
	assert.Equal(t, rate.Every(2*time.Second), limiter.Limit())
	assert.Equal(t, 5, limiter.Burst())
}

func TestNewLogger(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "shouting"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}
