// Package sentinel is a supervisory watchdog for a backend/frontend service
// pair: it probes HTTP health and log freshness, distinguishes a busy backend
// from a stuck one, verifies container-hosted dependencies, and restarts the
// backend only when restarting can actually help.
package sentinel

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tradingstack/sentinel/internal/config"
	"github.com/tradingstack/sentinel/internal/dockerdep"
	"github.com/tradingstack/sentinel/internal/history"
	sqlitehist "github.com/tradingstack/sentinel/internal/history/sqlite"
	"github.com/tradingstack/sentinel/internal/logger"
	"github.com/tradingstack/sentinel/internal/metrics"
	"github.com/tradingstack/sentinel/internal/probe"
	"github.com/tradingstack/sentinel/internal/proc"
	iapi "github.com/tradingstack/sentinel/internal/server"
	"github.com/tradingstack/sentinel/internal/watchdog"
)

// Re-export core types for external consumers.

type Config = config.Config

type Snapshot = watchdog.Snapshot

type State = watchdog.State

type Event = history.Event

type HistoryStore = history.Store

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// SetupLogging installs the configured slog handler as the process default.
func SetupLogging(cfg *Config) error {
	_, err := logger.Setup(cfg.Log)
	return err
}

// Supervisor is the assembled watchdog: probes, controllers, dependency
// client and the loop itself, wired from one configuration.
type Supervisor struct {
	wd     *watchdog.Watchdog
	client *dockerdep.Client
	store  history.Store
}

// New assembles a Supervisor from configuration. store may be nil when the
// event journal is disabled.
func New(cfg *Config, store history.Store) *Supervisor {
	client := dockerdep.NewClient()
	compose := dockerdep.NewCompose(client, cfg.Compose.File, cfg.Compose.WorkDir, cfg.Compose.SettleDelay)

	backendHealth := probe.NewHTTPProbe(cfg.Backend.HealthURL, cfg.Backend.HealthTimeout).Check
	logFresh := probe.LogFreshnessProbe{
		Path:       cfg.Backend.LogFile,
		StaleAfter: cfg.Backend.StaleAfter,
	}.Check

	backend := proc.NewController(targetFor(cfg.Backend), backendHealth)

	opts := watchdog.Options{
		Interval:       cfg.Watchdog.CheckInterval,
		MaxFailures:    cfg.Watchdog.MaxFailures,
		Cooldown:       cfg.Watchdog.RestartCooldown,
		BackendName:    cfg.Backend.Name,
		FrontendName:   cfg.Frontend.Name,
		BackendHealth:  backendHealth,
		LogFreshness:   logFresh,
		Backend:        backend,
		Runtime:        client,
		Compose:        bootstrapper{compose: compose, services: cfg.Compose.Services},
		Dependencies:   cfg.Dependencies,
		ErrorLog:       cfg.Backend.ErrorLog,
		FindBackendPID: func() (int, bool) { return proc.FindPIDByPort(cfg.Backend.Port) },
		History:        store,
	}
	if cfg.Frontend.Enabled() {
		frontendHealth := probe.NewHTTPProbe(cfg.Frontend.HealthURL, cfg.Frontend.HealthTimeout).Check
		opts.FrontendHealth = frontendHealth
		opts.Frontend = proc.NewController(targetFor(cfg.Frontend), frontendHealth)
	}

	return &Supervisor{wd: watchdog.New(opts), client: client, store: store}
}

func targetFor(s config.ServiceTarget) proc.Target {
	return proc.Target{
		Name:         s.Name,
		Port:         s.Port,
		Command:      s.Command,
		WorkDir:      s.WorkDir,
		Env:          s.Env,
		StartTimeout: s.StartTimeout,
		StopGrace:    s.StopGrace,
		Log:          s.Log,
	}
}

// bootstrapper passes unreachable dependency names to compose, widened to
// the full configured service list when one is declared.
type bootstrapper struct {
	compose  watchdog.Bootstrapper
	services []string
}

func (b bootstrapper) Up(ctx context.Context, services []string) error {
	if len(b.services) > 0 {
		services = b.services
	}
	return b.compose.Up(ctx, services)
}

// RuntimeAvailable reports whether the container CLI can be resolved at all.
func (s *Supervisor) RuntimeAvailable() bool { return s.client.Available() }

// Bootstrap reconciles the stack once before the loop starts.
func (s *Supervisor) Bootstrap(ctx context.Context) error { return s.wd.Bootstrap(ctx) }

// Run drives the supervisor loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) { s.wd.Run(ctx) }

// Cache exposes the loop's last-known status snapshot.
func (s *Supervisor) Cache() *watchdog.StatusCache { return s.wd.Cache() }

// Close releases the event journal, if any.
func (s *Supervisor) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// NewHistorySink opens the SQLite event journal at dsn.
func NewHistorySink(dsn string) (history.Store, error) {
	return sqlitehist.New(dsn)
}

// NewHTTPServer starts the read-only status API on addr.
func NewHTTPServer(addr, basePath string, s *Supervisor) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.Cache(), s.store)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves /metrics on addr in the caller's goroutine.
func ServeMetrics(addr string) error { return metrics.Serve(addr) }

// Timeouts shared by the CLI client commands.
const DefaultAPITimeout = 5 * time.Second
