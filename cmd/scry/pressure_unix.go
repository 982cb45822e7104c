//go:build unix

package main

import (
	"os"
	"syscall"
)

// SIGUSR1 asks a running scry to drop its cached statistics.
var memoryPressureSignals = []os.Signal{syscall.SIGUSR1}
