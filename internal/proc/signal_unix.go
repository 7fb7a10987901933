//go:build !windows

package proc

import (
	"errors"
	"syscall"
)

// terminate asks pid to exit gracefully. A vanished process is not an error.
func terminate(pid int) error {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err != nil && errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// kill forcefully removes pid.
func kill(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err != nil && errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
