package watchdog

import (
	"sync"
	"time"

	"github.com/tradingstack/sentinel/internal/dockerdep"
	"github.com/tradingstack/sentinel/internal/probe"
)

// Snapshot is the last-known view of one check cycle, cheap to serve to
// status readers without re-probing.
type Snapshot struct {
	State        State              `json:"state"`
	Failures     int                `json:"consecutive_failures"`
	Backend      probe.Result       `json:"backend"`
	Frontend     probe.Result       `json:"frontend"`
	LogFreshness probe.Result       `json:"log_freshness"`
	Dependencies []dockerdep.Status `json:"dependencies,omitempty"`
	LastRestart  time.Time          `json:"last_restart,omitzero"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// StatusCache holds the most recent snapshot. It is written only by the
// supervisor loop and read by any status-reporting interface; the lock
// exists for the readers, not for competing writers.
type StatusCache struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStatusCache() *StatusCache { return &StatusCache{} }

func (c *StatusCache) Set(s Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

func (c *StatusCache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
