//go:build !unix

package main

import "os"

var memoryPressureSignals []os.Signal
