package supervisor

import (
	"errors"
	"fmt"
)

// Exit codes reported for fatal startup failures. They follow sysexits(3)
// where one fits, so scripts can tell them apart from the CLI's own codes.
const (
	ExitUsage           = 64
	ExitLaunchFailure   = 69
	ExitReadinessFailed = 75
	ExitProvisionFailed = 76
	ExitChildSpawn      = 127
	ExitInterrupted     = 130
	ExitInternal        = 1
)

// launchError means the daemon could not be started or died before it was ready.
type launchError struct {
	bin    string
	status string // exit status when the daemon exited early
	tail   string // stderr tail
	err    error
}

func (e *launchError) Error() string {
	msg := fmt.Sprintf("launch %s: %v", e.bin, e.err)
	if e.status != "" {
		msg += " (exit status " + e.status + ")"
	}
	if e.tail != "" {
		msg += "\n\ndaemon output:\n" + e.tail
	}
	return msg
}

func (e *launchError) Unwrap() error { return e.err }

// ErrLaunch constructs a launch failure for the daemon binary bin.
func ErrLaunch(bin string, err error) error { return &launchError{bin: bin, err: err} }

// IsLaunchFailure reports whether err is a daemon launch failure.
func IsLaunchFailure(err error) bool {
	var e *launchError
	return errors.As(err, &e)
}

// readinessError means the daemon never accepted connections in time.
type readinessError struct {
	target   Target
	attempts int
	err      error
}

func (e *readinessError) Error() string {
	return fmt.Sprintf("await ready %s: no listener after %d attempts: %v", e.target, e.attempts, e.err)
}

func (e *readinessError) Unwrap() error { return e.err }

// IsReadinessTimeout reports whether err is a readiness timeout.
func IsReadinessTimeout(err error) bool {
	var e *readinessError
	return errors.As(err, &e)
}

// provisionError means the model pull failed.
type provisionError struct {
	model  string
	status string // HTTP status, if the daemon replied
	err    error
}

func (e *provisionError) Error() string {
	msg := fmt.Sprintf("pull %s: %v", e.model, e.err)
	if e.status != "" {
		msg += " (http status " + e.status + ")"
	}
	return msg
}

func (e *provisionError) Unwrap() error { return e.err }

// IsProvisionFailure reports whether err is a model pull failure.
func IsProvisionFailure(err error) bool {
	var e *provisionError
	return errors.As(err, &e)
}

// warmupError is a failed warm-up request. Never fatal.
type warmupError struct {
	model  string
	status string
	err    error
}

func (e *warmupError) Error() string {
	msg := fmt.Sprintf("warm up %s: %v", e.model, e.err)
	if e.status != "" {
		msg += " (http status " + e.status + ")"
	}
	return msg
}

func (e *warmupError) Unwrap() error { return e.err }

// IsWarmupFailure reports whether err is a warm-up failure.
func IsWarmupFailure(err error) bool {
	var e *warmupError
	return errors.As(err, &e)
}

// childSpawnError means the downstream CLI could not be started.
type childSpawnError struct {
	path string
	err  error
}

func (e *childSpawnError) Error() string { return fmt.Sprintf("start %s: %v", e.path, e.err) }

func (e *childSpawnError) Unwrap() error { return e.err }

// ErrChildSpawn wraps err as a failure to start the CLI at path.
func ErrChildSpawn(path string, err error) error { return &childSpawnError{path: path, err: err} }

// IsChildSpawnFailure reports whether err is a downstream CLI spawn failure.
func IsChildSpawnFailure(err error) bool {
	var e *childSpawnError
	return errors.As(err, &e)
}

// teardownError means the owned daemon did not terminate cleanly.
type teardownError struct {
	pid int
	err error
}

func (e *teardownError) Error() string { return fmt.Sprintf("stop daemon pid %d: %v", e.pid, e.err) }

func (e *teardownError) Unwrap() error { return e.err }

// IsTeardownFailure reports whether err is a daemon teardown failure.
func IsTeardownFailure(err error) bool {
	var e *teardownError
	return errors.As(err, &e)
}

// interruptedError means the run was cancelled while step was in progress.
type interruptedError struct {
	step string
	err  error
}

func (e *interruptedError) Error() string { return fmt.Sprintf("interrupted during %s: %v", e.step, e.err) }

func (e *interruptedError) Unwrap() error { return e.err }

// IsInterrupted reports whether err is a cancelled run.
func IsInterrupted(err error) bool {
	var e *interruptedError
	return errors.As(err, &e)
}

// usageError is a bad flag, config file or setting.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// ErrUsage marks err as a usage or configuration error.
func ErrUsage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// IsUsage reports whether err is a usage or configuration error.
func IsUsage(err error) bool {
	var e *usageError
	return errors.As(err, &e)
}

// ExitCode maps a fatal run error to the supervisor's exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsUsage(err):
		return ExitUsage
	case IsInterrupted(err):
		return ExitInterrupted
	case IsLaunchFailure(err):
		return ExitLaunchFailure
	case IsReadinessTimeout(err):
		return ExitReadinessFailed
	case IsProvisionFailure(err):
		return ExitProvisionFailed
	case IsChildSpawnFailure(err):
		return ExitChildSpawn
	default:
		return ExitInternal
	}
}
