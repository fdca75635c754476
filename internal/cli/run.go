package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"mover/internal/config"
	"mover/internal/supervisor"
)

// runSupervisor performs one run for cfg. args are passed to codex verbatim.
func runSupervisor(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
	reg := prometheus.NewRegistry()
	metrics := supervisor.NewMetrics(reg)
	if cfg.MetricsFile != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
				log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("write metrics")
			}
		}()
	}

	var child supervisor.ChildSpec
	if cfg.ServeOnly {
		if len(args) > 0 {
			log.Warn().Strs("args", args).Msg("ignoring codex arguments in serve-only mode")
		}
	} else {
		// Resolved before anything is started so a missing CLI never leaves
		// a daemon behind.
		path, err := fnResolveCodex(cfg.CodexBin, config.DefaultCodexBin, cfg.CodexInstallDir)
		if err != nil {
			return supervisor.ExitChildSpawn, supervisor.ErrChildSpawn(cfg.CodexBin, err)
		}
		child = supervisor.ChildSpec{Path: path, Args: args}
	}

	r := newRunner(cfg, child, log, metrics)
	out, err := r.Run(ctx)
	if out.Daemon != nil {
		log.Info().Int("pid", out.Daemon.PID()).Str("addr", r.Opts.Target.Addr()).Msg("daemon left running")
	}
	return out.ExitCode, err
}

func newRunner(cfg config.Config, child supervisor.ChildSpec, log zerolog.Logger, metrics *supervisor.Metrics) *supervisor.Runner {
	pub := supervisor.LogPublisher{Log: log.With().Str("component", "events").Logger()}
	return &supervisor.Runner{
		Opts: supervisor.Options{
			Target: supervisor.Target{Host: cfg.Host, Port: cfg.Port},
			Plan: supervisor.ProvisionPlan{
				Model:      cfg.Model,
				Pull:       !cfg.SkipPull,
				Warm:       !cfg.NoWarmup && cfg.Model != "",
				WarmPrompt: cfg.WarmPrompt,
			},
			Profile:       supervisor.Profile{APIKey: cfg.APIKey, Extra: cfg.Env},
			Child:         child,
			ServeOnly:     cfg.ServeOnly,
			TeardownGrace: time.Duration(cfg.TeardownGrace),
		},
		Launcher: &supervisor.Launcher{
			Bin:       cfg.OllamaBin,
			Args:      cfg.DaemonArgs,
			Detach:    cfg.ServeOnly,
			LogPath:   cfg.DaemonLog,
			Log:       log,
			Metrics:   metrics,
			Publisher: pub,
		},
		Waiter: supervisor.Waiter{
			MaxAttempts: cfg.ReadyAttempts,
			Interval:    time.Duration(cfg.ReadyInterval),
		},
		Provisioner: &supervisor.Provisioner{
			Client:      &http.Client{},
			PullTimeout: time.Duration(cfg.PullTimeout),
			Log:         log,
			Metrics:     metrics,
			Publisher:   pub,
		},
		Child: &supervisor.ChildRunner{
			Log:       log,
			Metrics:   metrics,
			Publisher: pub,
		},
		Log:       log,
		Metrics:   metrics,
		Publisher: pub,
	}
}
