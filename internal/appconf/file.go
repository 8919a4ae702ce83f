package appconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk representation. Zero values fall back to Default().
type FileConfig struct {
	Port      int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Env       string `json:"env" yaml:"env" validate:"omitempty,oneof=development dev test production prod"`
	Verbose   bool   `json:"verbose" yaml:"verbose"`
	LogLevel  string `json:"log-level" yaml:"log-level" validate:"omitempty,oneof=debug info warn warning error"`
	RateLimit int    `json:"rate-limit" yaml:"rate-limit" validate:"gte=0"`

	RateLimitExempt []string `json:"rate-limit-exempt" yaml:"rate-limit-exempt" validate:"dive,ip"`

	BaseURL               string  `json:"base-url" yaml:"base-url" validate:"omitempty,url"`
	RequestTimeoutMS      int     `json:"request-timeout-ms" yaml:"request-timeout-ms" validate:"gte=0"`
	UpstreamRatePerSecond float64 `json:"upstream-rate-per-second" yaml:"upstream-rate-per-second" validate:"gte=0"`
	UpstreamBurst         int     `json:"upstream-burst" yaml:"upstream-burst" validate:"gte=0"`
	MaxConcurrentFetches  int     `json:"max-concurrent-fetches" yaml:"max-concurrent-fetches" validate:"gte=0"`

	RetryAttempts int `json:"retry-attempts" yaml:"retry-attempts" validate:"gte=0"`
	RetryDelayMS  int `json:"retry-delay-ms" yaml:"retry-delay-ms" validate:"gte=0"`
	ProbeAttempts int `json:"probe-attempts" yaml:"probe-attempts" validate:"gte=0"`
	StopAttempts  int `json:"stop-attempts" yaml:"stop-attempts" validate:"gte=0"`
	ETAAttempts   int `json:"eta-attempts" yaml:"eta-attempts" validate:"gte=0"`

	CatalogTTLSeconds int `json:"catalog-ttl-seconds" yaml:"catalog-ttl-seconds" validate:"gte=0"`

	Language string `json:"language" yaml:"language" validate:"omitempty,oneof=tc en"`
}

// LoadFromFile reads a .json, .yaml or .yml config file and validates it.
func LoadFromFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ToAppConfig overlays the file values on Default().
func (f *FileConfig) ToAppConfig() Config {
	cfg := Default()

	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if env, err := EnvFlagToEnvironment(f.Env); err == nil {
		cfg.Env = env
	}
	cfg.Verbose = f.Verbose
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.RateLimit != 0 {
		cfg.RateLimit = f.RateLimit
	}
	if len(f.RateLimitExempt) > 0 {
		cfg.RateLimitExempt = append([]string(nil), f.RateLimitExempt...)
	}
	if f.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(f.BaseURL, "/")
	}
	if f.RequestTimeoutMS != 0 {
		cfg.RequestTimeout = time.Duration(f.RequestTimeoutMS) * time.Millisecond
	}
	if f.UpstreamRatePerSecond != 0 {
		cfg.UpstreamRatePerSecond = f.UpstreamRatePerSecond
	}
	if f.UpstreamBurst != 0 {
		cfg.UpstreamBurst = f.UpstreamBurst
	}
	if f.MaxConcurrentFetches != 0 {
		cfg.MaxConcurrentFetches = f.MaxConcurrentFetches
	}
	if f.RetryAttempts != 0 {
		cfg.RetryAttempts = f.RetryAttempts
	}
	if f.RetryDelayMS != 0 {
		cfg.RetryDelay = time.Duration(f.RetryDelayMS) * time.Millisecond
	}
	if f.ProbeAttempts != 0 {
		cfg.ProbeAttempts = f.ProbeAttempts
	}
	if f.StopAttempts != 0 {
		cfg.StopAttempts = f.StopAttempts
	}
	if f.ETAAttempts != 0 {
		cfg.ETAAttempts = f.ETAAttempts
	}
	if f.CatalogTTLSeconds != 0 {
		cfg.CatalogTTL = time.Duration(f.CatalogTTLSeconds) * time.Second
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	return cfg
}
