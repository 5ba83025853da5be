//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop serve and watch. SIGHUP covers a closed terminal.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
