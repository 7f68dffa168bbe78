// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

// Package config loads and validates the server configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// Environment selects validation strictness: development or production.
	Environment string `koanf:"environment"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	// Path is the SQLite database file, or ":memory:" for an in-memory DB.
	Path string `koanf:"path"`
	// BusyTimeout is the SQLite busy_timeout pragma.
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// AuthConfig holds token and credential settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required in production.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL is the access-token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`
	// BcryptCost is the password hashing cost.
	BcryptCost int `koanf:"bcrypt_cost"`
	// RevocationStore selects the token revocation backend: memory or badger.
	RevocationStore string `koanf:"revocation_store"`
	// RevocationPath is the badger data directory when RevocationStore=badger.
	RevocationPath string `koanf:"revocation_path"`
}

// WebSocketConfig holds live-channel settings.
type WebSocketConfig struct {
	// SendQueueSize bounds each connection's outbound queue; updates are
	// dropped for that connection when the queue is full.
	SendQueueSize int `koanf:"send_queue_size"`
	// ReadLimit is the maximum inbound message size in bytes.
	ReadLimit int64 `koanf:"read_limit"`
	// PongWait is how long a connection may go without a pong before it is
	// considered dead and deregistered.
	PongWait time.Duration `koanf:"pong_wait"`
	// WriteWait is the per-write deadline.
	WriteWait time.Duration `koanf:"write_wait"`
	// ReportsPerSecond throttles position reports per connection.
	ReportsPerSecond float64 `koanf:"reports_per_second"`
	// ReportBurst is the throttle burst size.
	ReportBurst int `koanf:"report_burst"`
}

// PingPeriod derives the ping interval from PongWait. Pings must be sent
// more often than the pong deadline expires.
func (c WebSocketConfig) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string `koanf:"cors_origins"`
	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			Environment:  "development",
		},
		Database: DatabaseConfig{
			Path:        "/data/friendcircle.db",
			BusyTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:       "",
			TokenTTL:        30 * 24 * time.Hour,
			BcryptCost:      10,
			RevocationStore: "memory",
			RevocationPath:  "/data/revoked",
		},
		WebSocket: WebSocketConfig{
			SendQueueSize:    256,
			ReadLimit:        4096,
			PongWait:         60 * time.Second,
			WriteWait:        10 * time.Second,
			ReportsPerSecond: 10,
			ReportBurst:      20,
		},
		Security: SecurityConfig{
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for inconsistent or unusable settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Environment == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost %d out of range", c.Auth.BcryptCost)
	}
	switch c.Auth.RevocationStore {
	case "memory", "badger":
	default:
		return fmt.Errorf("auth.revocation_store must be memory or badger, got %q", c.Auth.RevocationStore)
	}
	if c.Auth.RevocationStore == "badger" && c.Auth.RevocationPath == "" {
		return fmt.Errorf("auth.revocation_path is required with the badger revocation store")
	}
	if c.WebSocket.SendQueueSize < 1 {
		return fmt.Errorf("websocket.send_queue_size must be positive")
	}
	if c.WebSocket.PongWait <= 0 {
		return fmt.Errorf("websocket.pong_wait must be positive")
	}
	if c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket.write_wait must be positive")
	}
	if c.WebSocket.ReportsPerSecond <= 0 {
		return fmt.Errorf("websocket.reports_per_second must be positive")
	}
	return nil
}
