package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimal = `
[backend]
health_url = "http://127.0.0.1:8000/api/health"
command = "python main.py"
port = 8000
log_file = "/srv/app/logs/app.log"
`

func TestLoadMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watchdog.CheckInterval != 30*time.Second {
		t.Fatalf("check_interval = %s", cfg.Watchdog.CheckInterval)
	}
	if cfg.Watchdog.MaxFailures != 3 {
		t.Fatalf("max_failures = %d", cfg.Watchdog.MaxFailures)
	}
	if cfg.Watchdog.RestartCooldown != time.Minute {
		t.Fatalf("restart_cooldown = %s", cfg.Watchdog.RestartCooldown)
	}
	if cfg.Backend.Name != "backend" {
		t.Fatalf("backend name = %q", cfg.Backend.Name)
	}
	if cfg.Backend.HealthTimeout != 30*time.Second {
		t.Fatalf("health_timeout = %s", cfg.Backend.HealthTimeout)
	}
	if cfg.Backend.StaleAfter != 10*time.Minute {
		t.Fatalf("stale_after = %s", cfg.Backend.StaleAfter)
	}
	if cfg.Backend.StartTimeout != 180*time.Second {
		t.Fatalf("backend start_timeout = %s", cfg.Backend.StartTimeout)
	}
	if cfg.Frontend.StartTimeout != 30*time.Second {
		t.Fatalf("frontend start_timeout = %s", cfg.Frontend.StartTimeout)
	}
	if cfg.Backend.StopGrace != 2*time.Second {
		t.Fatalf("stop_grace = %s", cfg.Backend.StopGrace)
	}
	if cfg.Compose.SettleDelay != 5*time.Second {
		t.Fatalf("settle_delay = %s", cfg.Compose.SettleDelay)
	}
	if cfg.Frontend.Enabled() {
		t.Fatal("frontend enabled without health_url")
	}
}

func TestLoadFullConfig(t *testing.T) {
	body := `
[watchdog]
check_interval = "10s"
max_failures = 5
restart_cooldown = "2m"

[backend]
health_url = "http://127.0.0.1:8000/api/health"
health_timeout = "5s"
command = "python main.py"
workdir = "/srv/app"
port = 8000
env = ["APP_ENV=prod"]
log_file = "/srv/app/logs/app.log"
stale_after = "15m"
error_log = "/srv/app/logs/error.log"
start_timeout = "90s"

[backend.log]
dir = "/srv/app/logs/sentinel"

[frontend]
health_url = "http://127.0.0.1:3000/"
command = "npm run start"
workdir = "/srv/app/frontend"
port = 3000

[[dependencies]]
name = "redis"
containers = ["app-redis", "redis"]
ping_command = "redis-cli -a {password} ping"
password_env = "REDIS_PASSWORD"
expect = "PONG"
timeout = "8s"

[[dependencies]]
name = "postgres"
containers = ["app-postgres"]
ping_command = "pg_isready -U app"

[compose]
file = "/srv/app/docker-compose.yml"
workdir = "/srv/app"
settle_delay = "10s"

[log]
file = "/var/log/sentinel/sentinel.log"
level = "debug"
color = true

[server]
listen = "127.0.0.1:8917"
base_path = "/api"

[metrics]
enabled = true
listen = "127.0.0.1:9317"

[history]
enabled = true
dsn = "/var/lib/sentinel/events.db"
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watchdog.CheckInterval != 10*time.Second || cfg.Watchdog.MaxFailures != 5 {
		t.Fatalf("watchdog section not honored: %+v", cfg.Watchdog)
	}
	if cfg.Backend.StaleAfter != 15*time.Minute {
		t.Fatalf("stale_after = %s", cfg.Backend.StaleAfter)
	}
	if cfg.Backend.Log.Dir != "/srv/app/logs/sentinel" {
		t.Fatalf("backend log dir = %q", cfg.Backend.Log.Dir)
	}
	if !cfg.Frontend.Enabled() {
		t.Fatal("frontend should be enabled")
	}
	if len(cfg.Dependencies) != 2 {
		t.Fatalf("dependencies = %d", len(cfg.Dependencies))
	}
	d := cfg.Dependencies[0]
	if d.Name != "redis" || len(d.Containers) != 2 || d.PasswordEnv != "REDIS_PASSWORD" {
		t.Fatalf("redis dependency mangled: %+v", d)
	}
	if d.Timeout != 8*time.Second {
		t.Fatalf("dependency timeout = %s", d.Timeout)
	}
	if cfg.Dependencies[1].Timeout != 0 {
		t.Fatalf("unset timeout = %s, want 0", cfg.Dependencies[1].Timeout)
	}
	if cfg.Compose.File == "" || cfg.Compose.SettleDelay != 10*time.Second {
		t.Fatalf("compose section mangled: %+v", cfg.Compose)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Color {
		t.Fatalf("log section mangled: %+v", cfg.Log)
	}
	if cfg.Server.BasePath != "/api" {
		t.Fatalf("base_path = %q", cfg.Server.BasePath)
	}
	if !cfg.History.Enabled || cfg.History.DSN == "" {
		t.Fatalf("history section mangled: %+v", cfg.History)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing health_url", `
[backend]
command = "python main.py"
port = 8000
`, "backend.health_url"},
		{"missing command", `
[backend]
health_url = "http://127.0.0.1:8000/api/health"
port = 8000
`, "backend.command"},
		{"missing port", `
[backend]
health_url = "http://127.0.0.1:8000/api/health"
command = "python main.py"
`, "backend.port"},
		{"missing log_file", `
[backend]
health_url = "http://127.0.0.1:8000/api/health"
command = "python main.py"
port = 8000
`, "backend.log_file"},
		{"frontend without command", minimal + `
[frontend]
health_url = "http://127.0.0.1:3000/"
port = 3000
`, "frontend.command"},
		{"dependency without containers", minimal + `
[[dependencies]]
name = "redis"
ping_command = "redis-cli ping"
`, "candidate container"},
		{"dependency without ping", minimal + `
[[dependencies]]
name = "redis"
containers = ["redis"]
`, "ping_command"},
		{"history without dsn", minimal + `
[history]
enabled = true
`, "history.dsn"},
		{"metrics without listen", minimal + `
[metrics]
enabled = true
`, "metrics.listen"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
