package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// LogFreshnessProbe treats the modification time of the service's primary
// log file as a liveness proxy: a recently written log proves the process is
// actively working even when its health endpoint is slow. The proxy is a
// heuristic with known blind spots (a wedged process with a periodic log
// writer reads as busy; a healthy process that stopped logging reads as
// stuck); this is accepted behavior, not a bug.
type LogFreshnessProbe struct {
	Path       string
	StaleAfter time.Duration
}

func (p LogFreshnessProbe) Check(_ context.Context) Result {
	fi, err := os.Stat(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First boot: the service has not written anything yet.
			// Must not be misread as staleness.
			return ok("no log yet")
		}
		return ok(fmt.Sprintf("cannot stat log: %v", err))
	}
	age := time.Since(fi.ModTime())
	if age > p.StaleAfter {
		return fail(fmt.Sprintf("log idle for %s", age.Round(time.Second)))
	}
	return ok(fmt.Sprintf("log written %s ago", age.Round(time.Second)))
}
