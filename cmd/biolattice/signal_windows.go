//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals registers the signals that stop a running simulation.
// Windows only delivers os.Interrupt (Ctrl+C).
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
