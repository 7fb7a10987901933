package watchdog

import (
	"os"
	"strings"

	"github.com/tradingstack/sentinel/internal/dockerdep"
)

const (
	errorMarker    = "ERROR"
	tailBytes      = 8 * 1024 // bounded read from the end of the error log
	tailLines      = 5
	maxDetailChars = 100
)

// buildDiagnosis assembles a human-readable cause string from whatever
// corroborating evidence is available. Purely observational: it never
// changes the restart decision and must never block the restart path.
func buildDiagnosis(daemonUp bool, deps []dockerdep.Status, pidPresent bool, logMsg, lastError string) string {
	var issues []string
	if !daemonUp {
		issues = append(issues, "container runtime not running")
	} else {
		for _, name := range dockerdep.Unreachable(deps) {
			issues = append(issues, name+" unreachable")
		}
	}
	if logMsg != "" {
		issues = append(issues, logMsg)
	}
	if !pidPresent {
		issues = append(issues, "backend process not found")
	}
	if lastError != "" {
		issues = append(issues, "recent error: "+truncate(lastError, maxDetailChars))
	}
	if len(issues) == 0 {
		return "cause unknown"
	}
	return strings.Join(issues, "; ")
}

// lastErrorLine returns the most recent line containing the error marker
// from the final few lines of path. Best-effort: any read problem yields "".
func lastErrorLine(path string) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return ""
	}
	offset := fi.Size() - tailBytes
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, fi.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], errorMarker) {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
