// Package config provides configuration management for the TokenIpsum mock
// server. It handles loading and parsing the YAML configuration file and
// provides structured access to server, rate-limit, error-injection, auth,
// provider-enable, and content settings.
package config

import (
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ForceError names a fault kind that every request should receive,
// independent of request content.
type ForceError string

// Forced fault kinds. Empty or "none" disables forcing.
const (
	ForceNone         ForceError = "none"
	ForceUnauthorized ForceError = "unauthorized"
	ForceRateLimit    ForceError = "rate_limit"
	ForceServerError  ForceError = "server_error"
	ForceTimeout      ForceError = "timeout"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Server holds the listen port and artificial base latency.
	Server ServerConfig `yaml:"server"`

	// RateLimit holds rate-limit simulation settings.
	RateLimit RateLimitConfig `yaml:"rate-limit"`

	// Errors holds fault-injection settings.
	Errors ErrorConfig `yaml:"errors"`

	// Auth holds client authentication settings.
	Auth AuthConfig `yaml:"auth"`

	// Providers toggles which provider endpoints are mounted.
	Providers ProviderConfig `yaml:"providers"`

	// Content controls fake-content determinism.
	Content ContentConfig `yaml:"content"`

	// Logging controls log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `yaml:"port"`

	// LatencyMS is an artificial delay, in milliseconds, added to every
	// request before it is dispatched to a provider handler.
	LatencyMS int `yaml:"latency-ms"`
}

// RateLimitConfig holds rate-limit simulation settings.
type RateLimitConfig struct {
	// Enabled toggles rate-limit simulation.
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute is advisory only; it is echoed in startup logs and
	// rate-limit headers but never enforced.
	RequestsPerMinute int `yaml:"requests-per-minute"`

	// FailAfterRequests makes every request fail with a rate-limit fault
	// once the global request counter reaches this value. Zero disables the
	// threshold. Once crossed it never resets.
	FailAfterRequests uint64 `yaml:"fail-after-requests"`
}

// ErrorConfig holds fault-injection settings.
type ErrorConfig struct {
	// ErrorRate is the probability, in [0,1], that any given request is
	// failed with a randomly chosen fault.
	ErrorRate float64 `yaml:"error-rate"`

	// ForceError, when set to a fault kind, fails every request with that
	// fault regardless of any other setting.
	ForceError ForceError `yaml:"force-error"`
}

// AuthConfig holds client authentication settings.
type AuthConfig struct {
	// RequireAuth toggles bearer-token checking on every request.
	RequireAuth bool `yaml:"require-auth"`

	// ValidKeys is the set of accepted bearer tokens.
	ValidKeys []string `yaml:"valid-keys"`
}

// ProviderConfig toggles which provider endpoints are mounted.
type ProviderConfig struct {
	// Chat mounts POST /v1/chat/completions.
	Chat bool `yaml:"chat"`

	// Gemini mounts POST /v1beta/models/{model}:{action}.
	Gemini bool `yaml:"gemini"`

	// Claude mounts POST /v1/messages.
	Claude bool `yaml:"claude"`

	// Responses mounts POST /v1/responses.
	Responses bool `yaml:"responses"`
}

// ContentConfig controls fake-content determinism.
type ContentConfig struct {
	// Deterministic seeds the shared random generator from Seed instead of
	// system entropy, making fault decisions reproducible across runs.
	Deterministic bool `yaml:"deterministic"`

	// Seed is the seed used when Deterministic is true.
	Seed int64 `yaml:"seed"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// File, when non-empty, is a log file path written with rotation in
	// addition to stderr.
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8787,
			LatencyMS: 0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 60,
			FailAfterRequests: 0,
		},
		Errors: ErrorConfig{
			ErrorRate:  0,
			ForceError: ForceNone,
		},
		Auth: AuthConfig{
			RequireAuth: false,
		},
		Providers: ProviderConfig{
			Chat:      true,
			Gemini:    true,
			Claude:    true,
			Responses: true,
		},
		Content: ContentConfig{
			Deterministic: false,
			Seed:          42,
		},
	}
}

// Load reads the YAML config at path, falling back to defaults when the file
// is missing or unparsable. The PORT environment variable, when set to a
// valid integer, overrides the configured port.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Infof("no config file found at %s, using defaults", path)
	} else if err = yaml.Unmarshal(data, cfg); err != nil {
		log.Warnf("failed to parse config %s: %v, using defaults", path, err)
		cfg = Default()
	}

	if port := os.Getenv("PORT"); port != "" {
		if n, errAtoi := strconv.Atoi(port); errAtoi == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if cfg.Errors.ForceError == "" {
		cfg.Errors.ForceError = ForceNone
	}
	return cfg
}
