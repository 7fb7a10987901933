package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestHelpersExposeSeries(t *testing.T) {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("Register: %v", err)
	}
	IncProbeFailure("health")
	IncRestart("backend")
	IncRestartFailure("backend")
	IncBootstrap()
	SetState("stuck", true)
	SetState("healthy", false)
	ObserveCycle(0.2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		`sentinel_watchdog_probe_failures_total{probe="health"}`,
		`sentinel_watchdog_restarts_total{target="backend"}`,
		`sentinel_watchdog_restart_failures_total{target="backend"}`,
		`sentinel_watchdog_dependency_bootstraps_total`,
		`sentinel_watchdog_current_state{state="stuck"} 1`,
		`sentinel_watchdog_cycle_duration_seconds_count`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
