package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	probeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "probe_failures_total",
			Help:      "Number of failed probe invocations.",
		}, []string{"probe"},
	)
	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "restarts_total",
			Help:      "Number of restart attempts per target.",
		}, []string{"target"},
	)
	restartFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "restart_failures_total",
			Help:      "Number of restart attempts that timed out or errored.",
		}, []string{"target"},
	)
	bootstraps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "dependency_bootstraps_total",
			Help:      "Number of compose bring-up operations triggered.",
		},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "current_state",
			Help:      "Current backend verdict (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "watchdog",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one full check cycle including any restart.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{probeFailures, restarts, restartFailures, bootstraps, currentState, cycleDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a standalone metrics server on addr exposing /metrics.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Helpers used by the watchdog; they no-op if Register hasn't been called.

func IncProbeFailure(probe string) {
	if regOK.Load() {
		probeFailures.WithLabelValues(probe).Inc()
	}
}

func IncRestart(target string) {
	if regOK.Load() {
		restarts.WithLabelValues(target).Inc()
	}
}

func IncRestartFailure(target string) {
	if regOK.Load() {
		restartFailures.WithLabelValues(target).Inc()
	}
}

func IncBootstrap() {
	if regOK.Load() {
		bootstraps.Inc()
	}
}

func SetState(state string, active bool) {
	if regOK.Load() {
		var v float64
		if active {
			v = 1
		}
		currentState.WithLabelValues(state).Set(v)
	}
}

func ObserveCycle(seconds float64) {
	if regOK.Load() {
		cycleDuration.Observe(seconds)
	}
}
