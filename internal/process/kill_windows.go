//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// killTree uses taskkill: /F forces termination, /T includes child processes.
func killTree(pid int) error {
	// #nosec G204 -- pid is an integer formatted by strconv
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
	return nil
}
