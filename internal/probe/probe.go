package probe

import (
	"context"
	"time"
)

// Result is the outcome of a single probe invocation. Probes fold every
// failure mode (timeout, connection refused, non-200, missing file) into
// OK=false with a reason message instead of returning errors; they never
// panic and never mutate supervisor state.
type Result struct {
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
	ObservedAt time.Time `json:"observed_at"`
}

// Func is a bound probe ready to be invoked by the supervisor loop.
type Func func(ctx context.Context) Result

func ok(msg string) Result {
	return Result{OK: true, Message: msg, ObservedAt: time.Now()}
}

func fail(msg string) Result {
	return Result{OK: false, Message: msg, ObservedAt: time.Now()}
}
