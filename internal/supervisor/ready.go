package supervisor

import (
	"context"
	"errors"
	"time"
)

const (
	defaultReadyAttempts = 180
	defaultReadyInterval = 250 * time.Millisecond
)

// Waiter polls a target until it accepts connections.
//
// At most MaxAttempts probes are made, Interval apart, and the whole wait is
// bounded by MaxAttempts*Interval.
type Waiter struct {
	Prober      Prober
	MaxAttempts int
	Interval    time.Duration
}

// Await blocks until t is listening. proc, when non-nil, is the owned
// daemon; if it exits before readiness the wait ends at once with a launch
// failure carrying its exit status.
func (w Waiter) Await(ctx context.Context, t Target, proc *ManagedProcess) error {
	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = defaultReadyAttempts
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultReadyInterval
	}
	prober := w.Prober
	if prober == nil {
		prober = TCPProber{}
	}
	var exited <-chan struct{}
	if proc != nil {
		exited = proc.Exited()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(attempts)*interval)
	defer cancel()

	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	for n := 1; n <= attempts; n++ {
		select {
		case <-exited:
			return proc.exitError()
		default:
		}
		if prober.Probe(ctx, t) {
			return nil
		}
		if n == attempts {
			break
		}
		timer.Reset(interval)
		select {
		case <-timer.C:
		case <-exited:
			return proc.exitError()
		case <-ctx.Done():
			return &readinessError{target: t, attempts: n, err: waitCause(ctx)}
		}
	}
	return &readinessError{target: t, attempts: attempts, err: waitCause(ctx)}
}

func waitCause(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return context.DeadlineExceeded
}
