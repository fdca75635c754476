package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Options configure one supervised run.
type Options struct {
	Target  Target
	Plan    ProvisionPlan
	Profile Profile
	// Child is the resolved downstream CLI; its Env is filled in by Run.
	Child ChildSpec
	// ServeOnly stops after provisioning and leaves the daemon running.
	ServeOnly     bool
	TeardownGrace time.Duration
}

// Runner drives the bootstrap sequence:
//
//	idle → probing → (launching) → awaiting_ready → provisioning → running → terminating → done
//
// Any fatal failure jumps to terminating, which stops an owned daemon.
type Runner struct {
	Opts        Options
	Prober      Prober
	Launcher    *Launcher
	Waiter      Waiter
	Provisioner *Provisioner
	Child       *ChildRunner

	Log       zerolog.Logger
	Metrics   *Metrics
	Publisher EventPublisher

	state      State
	stateSince time.Time
}

// Run executes the sequence once. On the success path the outcome's exit
// code is the downstream CLI's. A fatal error is returned together with an
// outcome whose exit code is ExitCode(err); an owned daemon has already
// been stopped by then.
func (r *Runner) Run(ctx context.Context) (out RunOutcome, err error) {
	if r.Publisher == nil {
		r.Publisher = noopPublisher{}
	}
	r.state, r.stateSince = StateIdle, time.Now()
	t := r.Opts.Target
	if err := t.Validate(); err != nil {
		return RunOutcome{ExitCode: ExitUsage}, ErrUsage(err)
	}
	prober := r.Prober
	if prober == nil {
		prober = TCPProber{}
	}
	prober = countingProber{next: prober, metrics: r.Metrics}

	var daemon *ManagedProcess
	handedOff := false
	defer func() {
		if err != nil {
			r.Log.Error().Err(err).Str("state", string(r.state)).Msg("run failed")
			out.ExitCode = ExitCode(err)
		}
		if daemon.Owned() && !handedOff {
			r.enter(StateTerminating)
			if terr := daemon.Terminate(r.Opts.TeardownGrace); terr != nil {
				r.Log.Warn().Err(terr).Msg("daemon teardown")
				out.DaemonErr = terr
			}
		}
		r.enter(StateDone)
	}()

	launcher := r.Launcher
	if launcher == nil {
		launcher = &Launcher{Log: r.Log, Metrics: r.Metrics, Publisher: r.Publisher}
	}
	r.enter(StateProbing)
	probe := ProberFunc(func(ctx context.Context, t Target) bool {
		ok := prober.Probe(ctx, t)
		if !ok {
			r.enter(StateLaunching)
		}
		return ok
	})
	daemon, err = launcher.EnsureRunning(ctx, probe, t)
	if err != nil {
		return out, err
	}
	if daemon.Owned() {
		r.enter(StateAwaitingReady)
		r.Log.Info().Str("addr", t.Addr()).Int("attempts", r.Waiter.MaxAttempts).Dur("interval", r.Waiter.Interval).Msg("waiting for daemon")
		w := r.Waiter
		w.Prober = prober
		if err = w.Await(ctx, t, daemon); err != nil {
			return out, err
		}
		r.Publisher.Publish(Event{Name: EventDaemonReady, Fields: map[string]any{"addr": t.Addr(), "pid": daemon.PID()}})
		r.Log.Info().Str("addr", t.Addr()).Int("pid", daemon.PID()).Msg("daemon ready")
	} else {
		r.Publisher.Publish(Event{Name: EventDaemonFound, Fields: map[string]any{"addr": t.Addr()}})
		r.Log.Info().Str("addr", t.Addr()).Msg("detected existing daemon")
	}

	r.enter(StateProvisioning)
	prov := r.Provisioner
	if prov == nil {
		prov = &Provisioner{Log: r.Log, Metrics: r.Metrics, Publisher: r.Publisher}
	}
	if perr := prov.Provision(ctx, t, r.Opts.Plan); perr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return out, &interruptedError{step: string(StateProvisioning), err: cerr}
		}
		if !IsWarmupFailure(perr) {
			return out, perr
		}
	}

	if r.Opts.ServeOnly {
		r.Log.Info().Str("addr", t.Addr()).Msg("daemon is ready; not launching downstream CLI")
		if daemon.Owned() {
			daemon.Detach()
			handedOff = true
			out.Daemon = daemon
		}
		return out, nil
	}

	r.enter(StateRunning)
	spec := r.Opts.Child
	spec.Env = Compose(t, r.Opts.Profile)
	child := r.Child
	if child == nil {
		child = &ChildRunner{Log: r.Log, Metrics: r.Metrics, Publisher: r.Publisher}
	}
	code, err := child.Run(spec)
	if err != nil {
		return out, err
	}
	out.ExitCode = code
	return out, nil
}

func (r *Runner) enter(s State) {
	if r.state == s {
		return
	}
	now := time.Now()
	r.Metrics.observePhase(r.state, now.Sub(r.stateSince))
	r.Log.Debug().Str("from", string(r.state)).Str("to", string(s)).Msg("state")
	r.state, r.stateSince = s, now
	r.Publisher.Publish(Event{Name: EventState, State: s})
}
