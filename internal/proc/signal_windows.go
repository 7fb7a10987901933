//go:build windows

package proc

import "os"

// terminate has no graceful equivalent for an arbitrary PID on Windows;
// it kills directly.
func terminate(pid int) error {
	return kill(pid)
}

func kill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}
