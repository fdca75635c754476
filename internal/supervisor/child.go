package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/rs/zerolog"
)

// ChildRunner starts the downstream CLI and waits for it.
type ChildRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Signals overrides the supervisor's own signal subscription. Tests
	// use it to inject signals.
	Signals <-chan os.Signal

	Log       zerolog.Logger
	Metrics   *Metrics
	Publisher EventPublisher
}

// Run starts spec and blocks until the child exits, returning its exit
// code. The child shares the supervisor's process group, so terminal
// signals already reach it and are only noted here. Other signals are
// relayed; a second relayed signal kills the child.
func (r *ChildRunner) Run(spec ChildSpec) (int, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	// The supervisor's own files by default, so the CLI keeps the terminal.
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	sigs := r.Signals
	if sigs == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, forwardedSignals...)
		defer signal.Stop(ch)
		sigs = ch
	}

	r.Log.Info().Str("path", spec.Path).Strs("args", spec.Args).Msg("launching downstream CLI")
	if err := cmd.Start(); err != nil {
		return ExitChildSpawn, &childSpawnError{path: spec.Path, err: err}
	}
	r.publish(Event{Name: EventChildStart, Fields: map[string]any{"pid": cmd.Process.Pid, "path": spec.Path}})

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	relayed := 0
	var waitErr error
wait:
	for {
		select {
		case waitErr = <-done:
			break wait
		case sig := <-sigs:
			if terminalSignal(sig) {
				r.Log.Info().Str("signal", sig.String()).Msg("downstream CLI received signal from the terminal")
				r.publish(Event{Name: EventChildSignal, Fields: map[string]any{"signal": sig.String(), "relayed": false}})
				continue
			}
			relayed++
			if relayed > 1 {
				r.Log.Warn().Str("signal", sig.String()).Msg("second signal, killing downstream CLI")
				_ = cmd.Process.Kill()
			} else {
				r.Log.Info().Str("signal", sig.String()).Msg("forwarding signal to downstream CLI")
				if err := forwardSignal(cmd.Process, sig); err != nil {
					r.Log.Debug().Err(err).Msg("forward signal")
				}
			}
			r.publish(Event{Name: EventChildSignal, Fields: map[string]any{"signal": sig.String(), "relayed": true, "n": relayed}})
		}
	}

	code := childExitCode(cmd.ProcessState, waitErr)
	r.Metrics.observeChildExit(code)
	r.publish(Event{Name: EventChildExit, Fields: map[string]any{"code": code}})
	r.Log.Info().Int("code", code).Msg("downstream CLI exited")
	return code, nil
}

func (r *ChildRunner) publish(e Event) {
	if r.Publisher == nil {
		return
	}
	r.Publisher.Publish(e)
}

func childExitCode(state *os.ProcessState, waitErr error) int {
	if state == nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			state = ee.ProcessState
		}
	}
	if state == nil {
		return ExitInternal
	}
	if code, ok := signalExitCode(state); ok {
		return code
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return ExitInternal
}
