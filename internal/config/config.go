// Package config loads and validates the watchdog's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/tradingstack/sentinel/internal/dockerdep"
	"github.com/tradingstack/sentinel/internal/logger"
)

// Defaults applied to any knob left unset.
const (
	DefaultCheckInterval       = 30 * time.Second
	DefaultMaxFailures         = 3
	DefaultRestartCooldown     = 60 * time.Second
	DefaultHealthTimeout       = 30 * time.Second
	DefaultStaleAfter          = 10 * time.Minute
	DefaultBackendStartTimeout = 180 * time.Second
	DefaultFrontendStart       = 30 * time.Second
	DefaultStopGrace           = 2 * time.Second
	DefaultSettleDelay         = 5 * time.Second
)

// Watchdog holds the loop's own knobs.
type Watchdog struct {
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	MaxFailures     int           `mapstructure:"max_failures"`
	RestartCooldown time.Duration `mapstructure:"restart_cooldown"`
}

// ServiceTarget describes one supervised service. LogFile, StaleAfter and
// ErrorLog only apply to the backend; they are ignored on the frontend.
type ServiceTarget struct {
	Name          string        `mapstructure:"name"`
	Port          int           `mapstructure:"port"`
	HealthURL     string        `mapstructure:"health_url"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
	Command       string        `mapstructure:"command"`
	WorkDir       string        `mapstructure:"workdir"`
	Env           []string      `mapstructure:"env"`
	LogFile       string        `mapstructure:"log_file"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	ErrorLog      string        `mapstructure:"error_log"`
	StartTimeout  time.Duration `mapstructure:"start_timeout"`
	StopGrace     time.Duration `mapstructure:"stop_grace"`
	Log           logger.Config `mapstructure:"log"`
}

// Enabled reports whether the target is configured at all. The frontend is
// optional; the backend is not.
func (s ServiceTarget) Enabled() bool { return s.HealthURL != "" }

// Compose configures the dependency bootstrapper.
type Compose struct {
	File        string        `mapstructure:"file"`
	WorkDir     string        `mapstructure:"workdir"`
	Services    []string      `mapstructure:"services"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// Server configures the read-only status API. Empty listen disables it.
type Server struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// History configures the SQLite event journal.
type History struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Config is the top-level TOML structure.
type Config struct {
	Watchdog     Watchdog               `mapstructure:"watchdog"`
	Backend      ServiceTarget          `mapstructure:"backend"`
	Frontend     ServiceTarget          `mapstructure:"frontend"`
	Dependencies []dockerdep.Dependency `mapstructure:"dependencies"`
	Compose      Compose                `mapstructure:"compose"`
	Log          logger.Options         `mapstructure:"log"`
	Server       Server                 `mapstructure:"server"`
	Metrics      Metrics                `mapstructure:"metrics"`
	History      History                `mapstructure:"history"`
}

// Load reads a TOML config file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Watchdog.CheckInterval <= 0 {
		c.Watchdog.CheckInterval = DefaultCheckInterval
	}
	if c.Watchdog.MaxFailures <= 0 {
		c.Watchdog.MaxFailures = DefaultMaxFailures
	}
	if c.Watchdog.RestartCooldown <= 0 {
		c.Watchdog.RestartCooldown = DefaultRestartCooldown
	}

	if c.Backend.Name == "" {
		c.Backend.Name = "backend"
	}
	if c.Backend.HealthTimeout <= 0 {
		c.Backend.HealthTimeout = DefaultHealthTimeout
	}
	if c.Backend.StaleAfter <= 0 {
		c.Backend.StaleAfter = DefaultStaleAfter
	}
	if c.Backend.StartTimeout <= 0 {
		c.Backend.StartTimeout = DefaultBackendStartTimeout
	}
	if c.Backend.StopGrace <= 0 {
		c.Backend.StopGrace = DefaultStopGrace
	}

	if c.Frontend.Name == "" {
		c.Frontend.Name = "frontend"
	}
	if c.Frontend.HealthTimeout <= 0 {
		c.Frontend.HealthTimeout = DefaultHealthTimeout
	}
	if c.Frontend.StartTimeout <= 0 {
		c.Frontend.StartTimeout = DefaultFrontendStart
	}
	if c.Frontend.StopGrace <= 0 {
		c.Frontend.StopGrace = DefaultStopGrace
	}

	if c.Compose.SettleDelay <= 0 {
		c.Compose.SettleDelay = DefaultSettleDelay
	}
}

// Validate rejects configurations the supervisor cannot act on.
func (c *Config) Validate() error {
	if c.Backend.HealthURL == "" {
		return errors.New("backend.health_url is required")
	}
	if c.Backend.Command == "" {
		return errors.New("backend.command is required")
	}
	if c.Backend.Port <= 0 {
		return errors.New("backend.port is required")
	}
	if c.Backend.LogFile == "" {
		return errors.New("backend.log_file is required (log freshness is the liveness signal)")
	}
	if c.Frontend.Enabled() {
		if c.Frontend.Command == "" {
			return errors.New("frontend.command is required when frontend.health_url is set")
		}
		if c.Frontend.Port <= 0 {
			return errors.New("frontend.port is required when frontend.health_url is set")
		}
	}
	for i, d := range c.Dependencies {
		if d.Name == "" {
			return fmt.Errorf("dependencies[%d].name is required", i)
		}
		if len(d.Containers) == 0 {
			return fmt.Errorf("dependency %q needs at least one candidate container", d.Name)
		}
		if d.PingCommand == "" {
			return fmt.Errorf("dependency %q needs a ping_command", d.Name)
		}
	}
	if c.History.Enabled && c.History.DSN == "" {
		return errors.New("history.dsn is required when history is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics are enabled")
	}
	return nil
}
