package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTeardownGrace = 5 * time.Second
	stderrTailBytes      = 8192
)

// Launcher spawns the model-serving daemon.
type Launcher struct {
	Bin  string
	Args []string
	// Env is added to the inherited environment, after the host/port variables.
	Env map[string]string
	// Detach sends daemon output to LogPath instead of the logger so the
	// daemon can outlive the supervisor.
	Detach  bool
	LogPath string

	Log       zerolog.Logger
	Metrics   *Metrics
	Publisher EventPublisher
}

// EnsureRunning returns (nil, nil) when prober finds something already
// listening on t; that daemon is not owned. Otherwise it spawns one and
// returns the owned process.
func (l *Launcher) EnsureRunning(ctx context.Context, prober Prober, t Target) (*ManagedProcess, error) {
	if prober == nil {
		prober = TCPProber{}
	}
	if prober.Probe(ctx, t) {
		return nil, nil
	}
	return l.Start(ctx, t)
}

// Start spawns the daemon bound to t. It does not wait for readiness.
func (l *Launcher) Start(ctx context.Context, t Target) (*ManagedProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrLaunch(l.Bin, err)
	}
	if strings.TrimSpace(l.Bin) == "" {
		return nil, ErrLaunch(l.Bin, errors.New("daemon executable is empty"))
	}
	args := l.Args
	if len(args) == 0 {
		args = []string{"serve"}
	}
	cmd := exec.Command(l.Bin, args...)
	cmd.Env = mergeEnv(os.Environ(), daemonEnv(t, l.Env))
	configureDaemonProcess(cmd)

	tail := &limitedBuffer{max: stderrTailBytes}
	var lines []*lineLogger
	var logFile *os.File
	if l.Detach {
		path := l.LogPath
		if path == "" {
			path = os.DevNull
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, ErrLaunch(l.Bin, fmt.Errorf("open daemon log: %w", err))
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	} else {
		dlog := l.Log.With().Str("component", "daemon").Logger()
		stdout, stderr := newLineLogger(dlog, "stdout"), newLineLogger(dlog, "stderr")
		lines = append(lines, stdout, stderr)
		cmd.Stdout = stdout
		cmd.Stderr = io.MultiWriter(stderr, tail)
	}

	l.Log.Info().Str("bin", l.Bin).Strs("args", args).Str("addr", t.Addr()).Msg("starting daemon")
	err := cmd.Start()
	if logFile != nil {
		_ = logFile.Close()
	}
	if err != nil {
		return nil, ErrLaunch(l.Bin, err)
	}
	l.Metrics.observeLaunch()

	p := &ManagedProcess{
		cmd:       cmd,
		bin:       l.Bin,
		pid:       cmd.Process.Pid,
		owned:     true,
		done:      make(chan struct{}),
		tail:      tail,
		log:       l.Log,
		metrics:   l.Metrics,
		publisher: l.publisher(),
	}
	go func() {
		p.waitErr = cmd.Wait()
		for _, lw := range lines {
			lw.Flush()
		}
		close(p.done)
	}()
	l.publish(Event{Name: EventDaemonSpawn, Fields: map[string]any{"pid": p.pid, "addr": t.Addr()}})
	return p, nil
}

func (l *Launcher) publisher() EventPublisher {
	if l.Publisher == nil {
		return noopPublisher{}
	}
	return l.Publisher
}

func (l *Launcher) publish(e Event) { l.publisher().Publish(e) }

// daemonEnv binds the daemon to t. OLLAMA_HOST carries host:port since that
// is what `ollama serve` listens on.
func daemonEnv(t Target, extra map[string]string) map[string]string {
	env := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		env[k] = v
	}
	env["OLLAMA_HOST"] = t.Addr()
	env["OLLAMA_PORT"] = strconv.Itoa(t.Port)
	return env
}

// ManagedProcess is a daemon spawned by this run. Only owned processes are
// ever terminated, and at most once.
type ManagedProcess struct {
	cmd   *exec.Cmd
	bin   string
	pid   int
	owned bool

	done    chan struct{}
	waitErr error // valid once done is closed
	tail    *limitedBuffer

	stopOnce sync.Once
	stopErr  error

	log       zerolog.Logger
	metrics   *Metrics
	publisher EventPublisher
}

func (p *ManagedProcess) PID() int { return p.pid }

// Owned reports whether this run spawned the process.
func (p *ManagedProcess) Owned() bool { return p != nil && p.owned }

// Exited is closed once the process has exited and been reaped.
func (p *ManagedProcess) Exited() <-chan struct{} { return p.done }

// exitError describes an early exit, for launch diagnostics.
func (p *ManagedProcess) exitError() error {
	<-p.done
	le := &launchError{bin: p.bin, err: errors.New("daemon exited before it was ready"), tail: strings.TrimSpace(p.tail.String())}
	var ee *exec.ExitError
	switch {
	case errors.As(p.waitErr, &ee):
		le.status = exitStatusText(ee.ProcessState)
	case p.waitErr == nil && p.cmd.ProcessState != nil:
		le.status = exitStatusText(p.cmd.ProcessState)
	case p.waitErr != nil:
		le.err = fmt.Errorf("daemon exited before it was ready: %w", p.waitErr)
	}
	return le
}

// Terminate sends the daemon SIGTERM, waits up to grace, then kills it.
// Only the first call acts; later calls return the first result.
func (p *ManagedProcess) Terminate(grace time.Duration) error {
	if !p.Owned() {
		return nil
	}
	p.stopOnce.Do(func() {
		p.stopErr = p.terminate(grace)
		p.metrics.observeTeardown(p.stopErr == nil)
		fields := map[string]any{"pid": p.pid}
		if p.stopErr != nil {
			fields["error"] = p.stopErr.Error()
		}
		p.publisher.Publish(Event{Name: EventDaemonStop, Fields: fields})
	})
	return p.stopErr
}

func (p *ManagedProcess) terminate(grace time.Duration) error {
	if grace <= 0 {
		grace = defaultTeardownGrace
	}
	select {
	case <-p.done:
		p.log.Info().Int("pid", p.pid).Msg("daemon already exited")
		return nil
	default:
	}
	p.log.Info().Int("pid", p.pid).Dur("grace", grace).Msg("stopping daemon")
	if err := terminateProcess(p.cmd.Process); err != nil {
		select {
		case <-p.done:
			return nil
		default:
		}
		p.log.Warn().Err(err).Int("pid", p.pid).Msg("terminate signal failed, killing")
		return p.kill(fmt.Errorf("signal: %w", err), grace)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
		p.log.Warn().Int("pid", p.pid).Msg("daemon did not stop gracefully, killing")
		return p.kill(fmt.Errorf("still running after %s", grace), grace)
	}
}

func (p *ManagedProcess) kill(cause error, wait time.Duration) error {
	if err := killProcess(p.cmd.Process); err != nil {
		cause = fmt.Errorf("%v; kill: %w", cause, err)
	}
	select {
	case <-p.done:
	case <-time.After(wait):
		cause = fmt.Errorf("%v; not reaped after kill", cause)
	}
	return &teardownError{pid: p.pid, err: cause}
}

// Detach gives up supervision of a live daemon; the caller owns it from here.
func (p *ManagedProcess) Detach() {
	p.log.Info().Int("pid", p.pid).Msg("leaving daemon running")
	p.publisher.Publish(Event{Name: EventDaemonDetach, Fields: map[string]any{"pid": p.pid}})
}

// exitStatusText renders a process state the way users expect: the numeric
// code, or "signal" when the process was killed.
func exitStatusText(state *os.ProcessState) string {
	if state == nil {
		return "unknown"
	}
	if code := state.ExitCode(); code >= 0 {
		return strconv.Itoa(code)
	}
	return "signal"
}
