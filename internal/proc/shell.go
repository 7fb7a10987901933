//go:build !windows

package proc

import (
	"os/exec"
	"strings"
	"syscall"
)

// buildCommand constructs an *exec.Cmd for a configured start command.
// It avoids invoking a shell unless metacharacters require one.
func buildCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204 -- start command comes from operator configuration
	return exec.Command(name, args...)
}

// detach places the child in its own session so that the watchdog's own
// termination does not propagate to supervised services.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
