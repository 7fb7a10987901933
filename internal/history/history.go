// Package history defines the append-only event journal the watchdog writes
// restart decisions and diagnoses into, for operator inspection after the
// fact. The journal is advisory: a write failure never affects supervision.
package history

import (
	"context"
	"time"
)

// Event kinds recorded by the supervisor loop.
const (
	KindState           = "state"
	KindRestart         = "restart"
	KindRestartFailed   = "restart_failed"
	KindBootstrap       = "bootstrap"
	KindDiagnosis       = "diagnosis"
	KindRestartWithheld = "restart_withheld"
)

// Event is one journal entry.
type Event struct {
	ID         int64     `json:"id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Target     string    `json:"target"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
}

// Store persists events and answers recency queries for the status API.
type Store interface {
	Record(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	Close() error
}
