package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultAllowedOrigins is the CORS fallback used when ALLOWED_ORIGINS is
// unset. It matches the local dev frontend.
var DefaultAllowedOrigins = []string{"http://localhost:5173"}

// Config holds the gateway's runtime configuration, read from the
// environment.
type Config struct {
	// HTTPAddr is the listen address for the HTTP/WebSocket server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// JWTSecret signs and verifies connection credentials. Leaving it unset
	// is a misconfiguration: every handshake will fail closed.
	JWTSecret string `env:"JWT_SECRET"`

	// AllowedOrigins is the list of origins accepted for CORS and for the
	// websocket handshake's origin check
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// AutoJoinRooms joins each authenticated connection to all rooms its
	// user participates in
	AutoJoinRooms bool `env:"AUTO_JOIN_ROOMS" envDefault:"true"`

	// RedisURL, when set, enables the fanout adapter so broadcasts reach
	// peer gateway processes
	RedisURL string `env:"REDIS_URL"`

	// StorageType selects the membership store backend ("postgres",
	// "redis" or "memory"; defaults to memory for local development)
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`

	// DatabaseURL is the participant store connection string, required when
	// StorageType is postgres
	DatabaseURL string `env:"DATABASE_URL"`
}

// Load parses configuration from the environment and applies fallbacks
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	return cfg, nil
}

// FanoutEnabled reports whether a broker connection string was configured
func (c Config) FanoutEnabled() bool {
	return c.RedisURL != ""
}
