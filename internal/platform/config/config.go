// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token signing) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the authd API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing
	JWT JWTConfig `envPrefix:"JWT_"`

	// RefreshTokenExpiryDays is the refresh token lifetime in days.
	RefreshTokenExpiryDays int `env:"REFRESH_TOKEN_EXPIRY_DAYS" envDefault:"7"`

	// Account lockout policy
	Lockout LockoutConfig `envPrefix:"LOCKOUT_"`

	// Cross-Origin Resource Sharing (comma separated origins)
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// JWTConfig holds the access token signing parameters.
type JWTConfig struct {
	// SecretKey is the HMAC-SHA256 key. Must be at least 32 bytes.
	SecretKey     string `env:"SECRET_KEY,required,unset"`
	Issuer        string `env:"ISSUER"          envDefault:"authd"`
	Audience      string `env:"AUDIENCE"        envDefault:"authd-clients"`
	ExpiryMinutes int    `env:"EXPIRY_MINUTES"  envDefault:"15"`
}

// LockoutConfig holds the failed-login lockout policy.
type LockoutConfig struct {
	MaxFailedAttempts int           `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
	Duration          time.Duration `env:"DURATION"            envDefault:"15m"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects values the env tags cannot express.
func (c *Config) validate() error {
	switch {
	case len(c.JWT.SecretKey) < 32:
		return fmt.Errorf("config: JWT_SECRET_KEY must be at least 32 bytes")
	case c.JWT.ExpiryMinutes <= 0:
		return fmt.Errorf("config: JWT_EXPIRY_MINUTES must be positive")
	case c.RefreshTokenExpiryDays <= 0:
		return fmt.Errorf("config: REFRESH_TOKEN_EXPIRY_DAYS must be positive")
	case c.Lockout.MaxFailedAttempts <= 0:
		return fmt.Errorf("config: LOCKOUT_MAX_FAILED_ATTEMPTS must be positive")
	case c.Lockout.Duration <= 0:
		return fmt.Errorf("config: LOCKOUT_DURATION must be positive")
	}
	return nil
}

// AccessTokenTTL returns the access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiryMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiryDays) * 24 * time.Hour
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsOriginAllowed reports whether origin is listed in ALLOWED_ORIGINS.
func (c *Config) IsOriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}
