// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	pkgerrors "papertree/pkg/errors"
)

// Config is the full runtime configuration.
type Config struct {
	// Environment selects logger and default behavior: development,
	// production, or test.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// CanvasAPIURL is the base URL of the canvas backend.
	CanvasAPIURL string `env:"CANVAS_API_URL" envDefault:"http://localhost:8000"`
	// CanvasAPIToken, when set, is sent as a bearer token.
	CanvasAPIToken string        `env:"CANVAS_API_TOKEN"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// AutosaveDebounce is the quiet period before an autosave.
	AutosaveDebounce time.Duration `env:"AUTOSAVE_DEBOUNCE" envDefault:"2500ms"`

	// AskInterval is the minimum spacing between assistant requests.
	// Zero disables throttling.
	AskInterval time.Duration `env:"ASK_INTERVAL" envDefault:"0s"`
	AskBurst    int           `env:"ASK_BURST" envDefault:"3"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("parsing environment: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that env parsing cannot express.
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "production", "test":
	default:
		return pkgerrors.NewValidationError("ENVIRONMENT must be development, production, or test")
	}
	if !strings.HasPrefix(c.CanvasAPIURL, "http://") && !strings.HasPrefix(c.CanvasAPIURL, "https://") {
		return pkgerrors.NewValidationError("CANVAS_API_URL must be an http(s) URL")
	}
	if c.RequestTimeout <= 0 {
		return pkgerrors.NewValidationError("REQUEST_TIMEOUT must be positive")
	}
	if c.AutosaveDebounce <= 0 {
		return pkgerrors.NewValidationError("AUTOSAVE_DEBOUNCE must be positive")
	}
	if c.AskInterval < 0 {
		return pkgerrors.NewValidationError("ASK_INTERVAL must not be negative")
	}
	if c.AskInterval > 0 && c.AskBurst < 1 {
		return pkgerrors.NewValidationError("ASK_BURST must be at least 1 when throttling")
	}
	return nil
}

// IsProduction reports whether this is a production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AskLimiter builds the assistant request throttle from the config.
func (c *Config) AskLimiter() *rate.Limiter {
	if c.AskInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(c.AskInterval), c.AskBurst)
}

// NewLogger builds a zap logger for the configured environment.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, pkgerrors.NewValidationError("LOG_LEVEL must be a zap level: " + cfg.LogLevel)
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("building logger: " + err.Error())
	}
	return logger, nil
}
