package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime tunable. Values come from the environment with
// defaults suitable for local development.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Tenant Server"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// StoreDSN points at the durable store. A file path for local sqlite.
	StoreDSN string `env:"STORE_DSN" envDefault:"./data/tenant.db"`

	// SessionTTL is the fixed lifetime of a login session.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// HydrationTTL bounds how stale a tenant working set may get before the
	// next request triggers a reload from the durable store.
	HydrationTTL time.Duration `env:"HYDRATION_TTL" envDefault:"30s"`

	// WriteMaxAttempts caps durable write retries regardless of failure class.
	WriteMaxAttempts int           `env:"WRITE_MAX_ATTEMPTS" envDefault:"3"`
	WriteRetryDelay  time.Duration `env:"WRITE_RETRY_DELAY" envDefault:"250ms"`

	// SweepInterval controls the periodic expired-session sweep. Lazy deletion
	// on lookup is the primary mechanism; the sweep bounds durable growth.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("[config.Load] env.Parse: %w", err)
	}
	return c, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "DEV"
}
