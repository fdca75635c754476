//go:build !windows

package cli

import (
	"os"
	"syscall"
)

// shutdownSignals cancel a run. An owned daemon sits in its own process
// group and never sees the terminal hang up, so SIGHUP must reach teardown.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
