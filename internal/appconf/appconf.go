// Package appconf holds the process configuration: defaults, the on-disk
// file format, and validation.
package appconf

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a flag or file value onto an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	}
	return Development, fmt.Errorf("unknown environment %q", env)
}

const DefaultBaseURL = "https://data.etabus.gov.hk/v1/transport/kmb"

// Config is the resolved configuration the application is built from.
type Config struct {
	Port      int         `validate:"gte=0,lte=65535"`
	Env       Environment `validate:"gte=0,lte=2"`
	Verbose   bool
	LogLevel  string `validate:"omitempty,oneof=debug info warn warning error"`
	RateLimit int    `validate:"gte=0"`
	// RateLimitExempt lists client addresses that bypass the server rate limit.
	RateLimitExempt []string

	// Upstream API
	BaseURL               string        `validate:"required,url"`
	RequestTimeout        time.Duration `validate:"gt=0"`
	UpstreamRatePerSecond float64       `validate:"gte=0"`
	UpstreamBurst         int           `validate:"gte=0"`
	MaxConcurrentFetches  int           `validate:"gte=0"`

	// Retry policy. RetryAttempts applies to the catalog fetch; the other
	// stages default to a single attempt.
	RetryAttempts int           `validate:"gte=1"`
	RetryDelay    time.Duration `validate:"gte=0"`
	ProbeAttempts int           `validate:"gte=1"`
	StopAttempts  int           `validate:"gte=1"`
	ETAAttempts   int           `validate:"gte=1"`

	CatalogTTL time.Duration `validate:"gte=0"`

	// Language selects which localized name the board prefers ("tc" or "en").
	Language string `validate:"oneof=tc en"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() Config {
	return Config{
		Port:                  4000,
		Env:                   Development,
		LogLevel:              "info",
		RateLimit:             100,
		BaseURL:               DefaultBaseURL,
		RequestTimeout:        10 * time.Second,
		UpstreamRatePerSecond: 20,
		UpstreamBurst:         20,
		MaxConcurrentFetches:  16,
		RetryAttempts:         3,
		RetryDelay:            time.Second,
		ProbeAttempts:         1,
		StopAttempts:          1,
		ETAAttempts:           1,
		CatalogTTL:            time.Hour,
		Language:              "tc",
	}
}

var validate = validator.New()

// Validate checks the struct tags above.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
