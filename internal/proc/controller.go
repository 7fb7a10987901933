package proc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tradingstack/sentinel/internal/logger"
	"github.com/tradingstack/sentinel/internal/probe"
)

// Target is the immutable per-service launch description. Built once from
// configuration at startup; never mutated afterwards.
type Target struct {
	Name         string
	Port         int
	Command      string
	WorkDir      string
	Env          []string
	StartTimeout time.Duration
	StopGrace    time.Duration
	Log          logger.Config // optional rotated capture of child output
}

// Controller stops and starts one supervised service. Start is synchronous:
// it blocks, polling the service's check once per second, until the new
// instance answers or the start timeout elapses. That keeps the restart
// protocol race-free: no other cycle can act on the target mid-restart.
type Controller struct {
	target Target
	check  probe.Func

	// injected for tests
	findPID   func(port int) (int, bool)
	terminate func(pid int) error
	kill      func(pid int) error
}

func NewController(target Target, check probe.Func) *Controller {
	if target.StopGrace <= 0 {
		target.StopGrace = 2 * time.Second
	}
	if target.StartTimeout <= 0 {
		target.StartTimeout = 30 * time.Second
	}
	return &Controller{
		target:    target,
		check:     check,
		findPID:   FindPIDByPort,
		terminate: terminate,
		kill:      kill,
	}
}

// Stop terminates whatever currently owns the target's port: graceful signal,
// grace period, then forced kill if the same PID still holds the port.
// Calling Stop when nothing is bound is a no-op.
func (c *Controller) Stop(ctx context.Context) {
	pid, found := c.findPID(c.target.Port)
	if !found {
		return
	}
	slog.Info("stopping process", "name", c.target.Name, "pid", pid)
	if err := c.terminate(pid); err != nil {
		slog.Error("graceful stop failed", "name", c.target.Name, "pid", pid, "error", err)
	}
	sleepCtx(ctx, c.target.StopGrace)
	if cur, ok := c.findPID(c.target.Port); ok && cur == pid {
		if err := c.kill(pid); err != nil {
			slog.Error("forced kill failed", "name", c.target.Name, "pid", pid, "error", err)
		}
		sleepCtx(ctx, time.Second)
	}
}

// Start replaces any running instance with a fresh one. The old instance is
// always stopped first, guarding against orphans left by a previous watchdog
// generation. The child runs in its own session and inherits the watchdog's
// environment plus the target's extra variables.
func (c *Controller) Start(ctx context.Context) error {
	slog.Info("starting service", "name", c.target.Name)
	c.Stop(ctx)
	sleepCtx(ctx, time.Second)

	cmd := buildCommand(c.target.Command)
	if c.target.WorkDir != "" {
		cmd.Dir = c.target.WorkDir
	}
	cmd.Env = append(os.Environ(), c.target.Env...)
	detach(cmd)

	if c.target.Log.Dir != "" || c.target.Log.StdoutPath != "" || c.target.Log.StderrPath != "" {
		if c.target.Log.Dir != "" {
			_ = os.MkdirAll(c.target.Log.Dir, 0o750)
		}
		outW, errW, _ := c.target.Log.Writers(c.target.Name)
		if outW != nil {
			cmd.Stdout = outW
		}
		if errW != nil {
			cmd.Stderr = errW
		}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.target.Name, err)
	}
	pid := cmd.Process.Pid
	// Reap in the background: the child is session-detached but still ours.
	go func() { _ = cmd.Wait() }()

	deadline := time.Now().Add(c.target.StartTimeout)
	for time.Now().Before(deadline) {
		sleepCtx(ctx, time.Second)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if res := c.check(ctx); res.OK {
			slog.Info("service is up", "name", c.target.Name, "pid", pid)
			return nil
		}
	}
	return fmt.Errorf("%s did not answer within %s after start", c.target.Name, c.target.StartTimeout)
}

// Target returns the controller's launch description.
func (c *Controller) Target() Target { return c.target }

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
