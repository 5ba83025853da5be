// Package process terminates browser process trees left behind by a render.
package process

import "errors"

// ErrInvalidPID is returned for PIDs that cannot name a browser process.
// PIDs 0 and 1 would target the caller's own group or init.
var ErrInvalidPID = errors.New("invalid pid")

// KillProcessGroup kills pid and every child it spawned. Browsers fork
// renderer and GPU helpers that outlive the parent when only it is killed.
// A process that already exited is not an error.
func KillProcessGroup(pid int) error {
	if pid <= 1 {
		return ErrInvalidPID
	}
	return killTree(pid)
}
