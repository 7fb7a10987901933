package watchdog

import "time"

// State is the aggregated verdict for the supervised backend.
type State string

const (
	StateHealthy    State = "healthy"
	StateBusy       State = "busy"
	StateStuck      State = "stuck"
	StateRestarting State = "restarting"
	StateCooldown   State = "cooldown"
)

// AllStates lists every state for gauge bookkeeping.
var AllStates = []State{StateHealthy, StateBusy, StateStuck, StateRestarting, StateCooldown}

// Tracker correlates the log-freshness and health probes into a restart
// decision. A fresh log always clears the failure counter regardless of the
// health probe: a slow health endpoint under load means busy, not stuck.
// Conversely a stale log increments the counter even when the health
// endpoint answers, because the log mtime is the trusted liveness proxy.
//
// The tracker lives only in memory; failure counts deliberately reset when
// the watchdog itself restarts.
type Tracker struct {
	maxFailures int
	cooldown    time.Duration

	failures    int
	lastRestart time.Time
}

func NewTracker(maxFailures int, cooldown time.Duration) *Tracker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &Tracker{maxFailures: maxFailures, cooldown: cooldown}
}

// InCooldown reports whether a restart completed less than the cooldown ago.
// While true, no new restart decision is evaluated.
func (t *Tracker) InCooldown(now time.Time) bool {
	return !t.lastRestart.IsZero() && now.Sub(t.lastRestart) < t.cooldown
}

// Observe folds one cycle's probe outcomes into the counter and returns the
// resulting state plus whether the restart threshold has been reached.
func (t *Tracker) Observe(healthOK, logFresh bool) (State, bool) {
	if logFresh {
		t.failures = 0
		if healthOK {
			return StateHealthy, false
		}
		return StateBusy, false
	}
	t.failures++
	return StateStuck, t.failures >= t.maxFailures
}

// Rollback undoes the current cycle's increment. Used when the container
// runtime itself is down and a restart would be pointless: the counter is
// left as it was, so the next fresh log observation still clears it
// normally and the escalation repeats until the operator intervenes.
func (t *Tracker) Rollback() {
	if t.failures > 0 {
		t.failures--
	}
}

// RecordRestart marks a successful restart: the counter clears and the
// cooldown window begins. A failed restart calls nothing, leaving the
// counter high so the operator sees repeated escalations.
func (t *Tracker) RecordRestart(now time.Time) {
	t.failures = 0
	t.lastRestart = now
}

// Failures returns the consecutive-failure count.
func (t *Tracker) Failures() int { return t.failures }

// MaxFailures returns the restart threshold.
func (t *Tracker) MaxFailures() int { return t.maxFailures }

// LastRestart returns the time of the last successful restart (zero if none).
func (t *Tracker) LastRestart() time.Time { return t.lastRestart }
