// Package dockerdep checks the container-hosted services the supervised
// backend depends on, and brings them up through the compose CLI when they
// are not reachable.
package dockerdep

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

const daemonCheckTimeout = 5 * time.Second

// Dependency declares one container-hosted service the backend requires.
// Containers is a prioritized fallback chain of candidate container names,
// resolved at config load time: the resolvable name varies across deployment
// profiles, so each candidate is tried in order until one answers the ping.
type Dependency struct {
	Name        string        `mapstructure:"name"`
	Containers  []string      `mapstructure:"containers"`
	PingCommand string        `mapstructure:"ping_command"`
	PasswordEnv string        `mapstructure:"password_env"`
	Expect      string        `mapstructure:"expect"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Status is the reachability verdict for one dependency, recomputed on
// demand and never cached across check cycles.
type Status struct {
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
}

// runnerFunc executes one external command and returns its combined output.
// Injected in tests so no container runtime is needed.
type runnerFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- binary and arguments come from operator configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Client drives the docker and docker-compose CLIs. It is the only component
// that talks to the container runtime.
type Client struct {
	bin string
	run runnerFunc
}

func NewClient() *Client {
	return &Client{bin: "docker", run: runCombined}
}

// Available reports whether the docker binary can be resolved at all.
// When it cannot, dependency checking degrades to "unknown" and the
// supervisor must not enter its loop.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.bin)
	return err == nil
}

// DaemonRunning reports whether the container runtime daemon answers
// `docker info` within a short timeout.
func (c *Client) DaemonRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, daemonCheckTimeout)
	defer cancel()
	_, err := c.run(ctx, "", c.bin, "info")
	return err == nil
}

// Check pings one dependency inside each candidate container in priority
// order. The first candidate that runs the ping successfully (and matches
// Expect, when set) wins. Every failure mode is folded into
// Reachable=false; Check never returns an error.
func (c *Client) Check(ctx context.Context, dep Dependency) Status {
	args := dep.pingArgs()
	timeout := dep.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	for _, container := range dep.Containers {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := c.run(cctx, "", c.bin, append([]string{"exec", container}, args...)...)
		cancel()
		if err != nil {
			continue
		}
		if dep.Expect != "" && !strings.Contains(string(out), dep.Expect) {
			continue
		}
		return Status{Name: dep.Name, Reachable: true}
	}
	return Status{Name: dep.Name, Reachable: false}
}

// CheckAll probes every declared dependency sequentially.
func (c *Client) CheckAll(ctx context.Context, deps []Dependency) []Status {
	statuses := make([]Status, 0, len(deps))
	for _, d := range deps {
		statuses = append(statuses, c.Check(ctx, d))
	}
	return statuses
}

// pingArgs splits the configured ping command and substitutes the
// {password} placeholder from the configured environment variable.
func (d Dependency) pingArgs() []string {
	fields := strings.Fields(d.PingCommand)
	if d.PasswordEnv == "" {
		return fields
	}
	password := os.Getenv(d.PasswordEnv)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ReplaceAll(f, "{password}", password)
	}
	return out
}

// Unreachable returns the names of all dependencies with Reachable=false.
func Unreachable(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Reachable {
			names = append(names, s.Name)
		}
	}
	return names
}
