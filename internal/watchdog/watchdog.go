// Package watchdog holds the supervisor loop that keeps one backend/frontend
// pair alive: it correlates independent probes into a busy-vs-stuck verdict
// and restarts the backend only when the evidence says it has wedged.
package watchdog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tradingstack/sentinel/internal/dockerdep"
	"github.com/tradingstack/sentinel/internal/history"
	"github.com/tradingstack/sentinel/internal/metrics"
	"github.com/tradingstack/sentinel/internal/probe"
)

// A quiet operator log: the all-healthy status line appears only every
// statusLineEvery cycles.
const statusLineEvery = 10

// Controller starts and stops one supervised service.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// Runtime answers container-runtime liveness and dependency reachability.
type Runtime interface {
	DaemonRunning(ctx context.Context) bool
	CheckAll(ctx context.Context, deps []dockerdep.Dependency) []dockerdep.Status
}

// Bootstrapper brings up named dependency services.
type Bootstrapper interface {
	Up(ctx context.Context, services []string) error
}

// Options wires the loop's collaborators. Probes and controllers are
// injected so the loop can be driven in tests without real processes.
type Options struct {
	Interval    time.Duration
	MaxFailures int
	Cooldown    time.Duration

	BackendName  string
	FrontendName string

	BackendHealth  probe.Func
	FrontendHealth probe.Func
	LogFreshness   probe.Func

	Backend  Controller
	Frontend Controller

	Runtime      Runtime
	Compose      Bootstrapper
	Dependencies []dockerdep.Dependency

	// FindBackendPID locates the backend process for diagnosis only.
	// Optional; when nil the diagnosis makes no claim about the PID.
	FindBackendPID func() (int, bool)
	// ErrorLog is the secondary log whose tail feeds the diagnosis.
	ErrorLog string

	History history.Store // optional event journal
}

// Watchdog runs the supervisory loop. All mutable state (tracker, cache,
// cycle counter) is owned by the single loop goroutine; the status cache is
// the only cross-goroutine surface and carries its own lock.
type Watchdog struct {
	opts      Options
	tracker   *Tracker
	cache     *StatusCache
	lastState State
	cycles    int
}

func New(opts Options) *Watchdog {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.BackendName == "" {
		opts.BackendName = "backend"
	}
	if opts.FrontendName == "" {
		opts.FrontendName = "frontend"
	}
	return &Watchdog{
		opts:    opts,
		tracker: NewTracker(opts.MaxFailures, opts.Cooldown),
		cache:   NewStatusCache(),
	}
}

// Cache exposes the last-known status for the HTTP API.
func (w *Watchdog) Cache() *StatusCache { return w.cache }

// Bootstrap reconciles the stack once before the loop starts: verifies the
// container runtime, brings up unreachable dependencies, and starts the
// backend and frontend only when they are not already serving. A missing
// container runtime is unrecoverable here; the caller must not enter Run.
func (w *Watchdog) Bootstrap(ctx context.Context) error {
	if !w.opts.Runtime.DaemonRunning(ctx) {
		return errors.New("container runtime is not running")
	}
	statuses := w.opts.Runtime.CheckAll(ctx, w.opts.Dependencies)
	if names := dockerdep.Unreachable(statuses); len(names) > 0 {
		slog.Warn("dependencies not reachable, bringing up", "services", names)
		w.bringUp(ctx, names)
	}

	if res := w.opts.BackendHealth(ctx); res.OK {
		slog.Info("backend already running")
	} else {
		slog.Info("backend not serving, starting", "reason", res.Message)
		if err := w.opts.Backend.Start(ctx); err != nil {
			slog.Error("backend start failed", "error", err)
			metrics.IncRestartFailure(w.opts.BackendName)
		} else {
			w.tracker.RecordRestart(time.Now())
		}
	}

	if w.opts.Frontend != nil && w.opts.FrontendHealth != nil {
		if res := w.opts.FrontendHealth(ctx); res.OK {
			slog.Info("frontend already running")
		} else {
			slog.Info("frontend not serving, starting", "reason", res.Message)
			if err := w.opts.Frontend.Start(ctx); err != nil {
				slog.Error("frontend start failed", "error", err)
				metrics.IncRestartFailure(w.opts.FrontendName)
			}
		}
	}
	return nil
}

// Run drives the loop until ctx is cancelled. Cancellation stops the
// watchdog only: supervised services keep running, detached, because the
// watchdog is disposable and they are not.
func (w *Watchdog) Run(ctx context.Context) {
	slog.Info("watchdog running",
		"interval", w.opts.Interval,
		"max_failures", w.tracker.MaxFailures(),
		"cooldown", w.opts.Cooldown)
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("watchdog stopping; supervised services keep running")
			return
		case <-ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle executes one check cycle. The cycle is the last line of defense:
// nothing that happens inside it may take the loop down.
func (w *Watchdog) RunCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("check cycle panicked", "panic", r)
		}
		metrics.ObserveCycle(time.Since(start).Seconds())
	}()
	w.cycle(ctx)
}

func (w *Watchdog) cycle(ctx context.Context) {
	w.cycles++

	logRes := w.opts.LogFreshness(ctx)
	healthRes := w.opts.BackendHealth(ctx)
	frontRes := probe.Result{OK: true, Message: "not configured", ObservedAt: time.Now()}
	if w.opts.FrontendHealth != nil {
		frontRes = w.opts.FrontendHealth(ctx)
	}
	if !logRes.OK {
		metrics.IncProbeFailure("log_freshness")
	}
	if !healthRes.OK {
		metrics.IncProbeFailure("health")
	}
	if !frontRes.OK {
		metrics.IncProbeFailure("reachability")
	}

	// The companion frontend has no busy/stuck ambiguity: unreachable
	// means restart, immediately and without a counter.
	if !frontRes.OK && w.opts.Frontend != nil {
		slog.Warn("frontend unreachable, restarting", "reason", frontRes.Message)
		metrics.IncRestart(w.opts.FrontendName)
		if err := w.opts.Frontend.Start(ctx); err != nil {
			slog.Error("frontend restart failed", "error", err)
			metrics.IncRestartFailure(w.opts.FrontendName)
			w.record(ctx, w.opts.FrontendName, history.KindRestartFailed, err.Error())
		} else {
			w.record(ctx, w.opts.FrontendName, history.KindRestart, frontRes.Message)
		}
	}

	if w.tracker.InCooldown(time.Now()) {
		// Probing continues during cooldown, but no restart decision
		// is evaluated and the failure counter stays frozen.
		w.publish(ctx, StateCooldown, healthRes, frontRes, logRes, nil)
		return
	}

	state, restartDue := w.tracker.Observe(healthRes.OK, logRes.OK)
	if !restartDue {
		switch state {
		case StateHealthy:
			if w.cycles%statusLineEvery == 0 {
				slog.Info("backend healthy", "frontend_ok", frontRes.OK, "log", logRes.Message)
			}
		case StateBusy:
			slog.Info("backend busy, health probe failing but log still moving",
				"health", healthRes.Message, "log", logRes.Message)
		case StateStuck:
			slog.Warn("backend check failed",
				"failures", w.tracker.Failures(),
				"max", w.tracker.MaxFailures(),
				"health", healthRes.Message,
				"log", logRes.Message)
		}
		w.publish(ctx, state, healthRes, frontRes, logRes, nil)
		return
	}

	// Threshold crossed: collect evidence, then decide whether a restart
	// can help at all.
	daemonUp := w.opts.Runtime.DaemonRunning(ctx)
	var deps []dockerdep.Status
	if daemonUp {
		deps = w.opts.Runtime.CheckAll(ctx, w.opts.Dependencies)
	}
	pidPresent := true
	if w.opts.FindBackendPID != nil {
		_, pidPresent = w.opts.FindBackendPID()
	}
	logMsg := ""
	if !logRes.OK {
		logMsg = logRes.Message
	}
	diag := buildDiagnosis(daemonUp, deps, pidPresent, logMsg, lastErrorLine(w.opts.ErrorLog))
	slog.Error("restart threshold reached", "failures", w.tracker.Failures(), "diagnosis", diag)
	w.record(ctx, w.opts.BackendName, history.KindDiagnosis, diag)

	if !daemonUp {
		// Restarting against a guaranteed-to-fail target helps nobody.
		// Escalate to the operator and leave the counter untouched.
		slog.Error("container runtime down, restart withheld")
		w.tracker.Rollback()
		w.record(ctx, w.opts.BackendName, history.KindRestartWithheld, "container runtime not running")
		w.publish(ctx, StateStuck, healthRes, frontRes, logRes, deps)
		return
	}
	if names := dockerdep.Unreachable(deps); len(names) > 0 {
		slog.Warn("bringing up dependencies before restart", "services", names)
		w.bringUp(ctx, names)
	}

	w.publish(ctx, StateRestarting, healthRes, frontRes, logRes, deps)
	metrics.IncRestart(w.opts.BackendName)
	if err := w.opts.Backend.Start(ctx); err != nil {
		slog.Error("backend restart failed, waiting for next cycle", "error", err)
		metrics.IncRestartFailure(w.opts.BackendName)
		w.record(ctx, w.opts.BackendName, history.KindRestartFailed, err.Error())
		w.publish(ctx, StateStuck, healthRes, frontRes, logRes, deps)
		return
	}
	w.tracker.RecordRestart(time.Now())
	slog.Info("backend restarted", "cooldown", w.opts.Cooldown)
	w.record(ctx, w.opts.BackendName, history.KindRestart, diag)
	w.publish(ctx, StateCooldown, healthRes, frontRes, logRes, deps)
}

func (w *Watchdog) bringUp(ctx context.Context, names []string) {
	if err := w.opts.Compose.Up(ctx, names); err != nil {
		slog.Error("dependency bring-up failed", "error", err)
		return
	}
	metrics.IncBootstrap()
	w.record(ctx, w.opts.BackendName, history.KindBootstrap, strings.Join(names, ","))
}

func (w *Watchdog) publish(ctx context.Context, state State, backend, frontend, logRes probe.Result, deps []dockerdep.Status) {
	if state != w.lastState {
		w.record(ctx, w.opts.BackendName, history.KindState, string(state))
		w.lastState = state
	}
	for _, s := range AllStates {
		metrics.SetState(string(s), s == state)
	}
	w.cache.Set(Snapshot{
		State:        state,
		Failures:     w.tracker.Failures(),
		Backend:      backend,
		Frontend:     frontend,
		LogFreshness: logRes,
		Dependencies: deps,
		LastRestart:  w.tracker.LastRestart(),
		UpdatedAt:    time.Now(),
	})
}

func (w *Watchdog) record(ctx context.Context, target, kind, detail string) {
	if w.opts.History == nil {
		return
	}
	e := history.Event{OccurredAt: time.Now(), Target: target, Kind: kind, Detail: detail}
	if err := w.opts.History.Record(ctx, e); err != nil {
		slog.Warn("history write failed", "error", err)
	}
}
