// Package cli is the mover command line: flag and config handling around a
// single supervised run.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"mover/internal/config"
	"mover/internal/launcher"
	"mover/internal/logging"
	"mover/internal/supervisor"
)

// Swappable for tests.
var (
	fnRun          = runSupervisor
	fnResolveCodex = launcher.Resolve
)

// flagValues mirrors the command line before it is folded into a Config.
type flagValues struct {
	configPath    string
	ollamaBin     string
	daemonArgs    []string
	daemonLog     string
	codexBin      string
	model         string
	host          string
	port          int
	apiKey        string
	readyAttempts int
	readyInterval time.Duration
	teardownGrace time.Duration
	warmPrompt    string
	skipPull      bool
	noWarmup      bool
	serveOnly     bool
	metricsFile   string
	logLevel      string
	logFormat     string
}

// buildRootCmd constructs the command tree. exit receives the process exit
// code once a run has happened.
func buildRootCmd(stdout, stderr io.Writer, exit *int) *cobra.Command {
	var fv flagValues
	def := config.Default()
	root := &cobra.Command{
		Use:   "mover [flags] [-- codex args...]",
		Short: "Run the codex CLI against a local Ollama daemon",
		Long: "mover makes sure an Ollama daemon is listening, starting one if needed,\n" +
			"pulls and warms the model, then runs codex pointed at it. A daemon started\n" +
			"by mover is stopped when codex exits.",
		Example: "  mover\n  mover --model qwen2.5-coder:7b -- exec \"fix the tests\"\n  mover --serve-only",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv)
			if err != nil {
				*exit = supervisor.ExitUsage
				return err
			}
			log := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()
			code, err := fnRun(ctx, cfg, args, log)
			*exit = code
			return err
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.Flags()
	// Everything after the first positional argument belongs to codex.
	f.SetInterspersed(false)
	f.StringVar(&fv.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml); defaults to MOVER_CONFIG")
	f.StringVar(&fv.ollamaBin, "ollama-bin", def.OllamaBin, "Ollama executable used to start the daemon (OLLAMA_BIN)")
	f.StringArrayVar(&fv.daemonArgs, "daemon-arg", def.DaemonArgs, "Argument for the daemon command line (repeatable)")
	f.StringVar(&fv.daemonLog, "daemon-log", "", "File receiving daemon output in serve-only mode (default: discard)")
	f.StringVar(&fv.codexBin, "codex-bin", def.CodexBin, "codex executable, or a directory holding it (CODEX_BIN)")
	f.StringVar(&fv.model, "model", def.Model, "Model to pull and warm (MOVER_MODEL)")
	f.StringVar(&fv.host, "host", def.Host, "Daemon host (MOVER_HOST)")
	f.IntVar(&fv.port, "port", def.Port, "Daemon port (MOVER_PORT)")
	f.StringVar(&fv.apiKey, "api-key", def.APIKey, "Value exported as OPENAI_API_KEY")
	f.IntVar(&fv.readyAttempts, "ready-attempts", def.ReadyAttempts, "Maximum readiness probes")
	f.DurationVar(&fv.readyInterval, "ready-interval", time.Duration(def.ReadyInterval), "Delay between readiness probes")
	f.DurationVar(&fv.teardownGrace, "teardown-grace", time.Duration(def.TeardownGrace), "Time the daemon gets to exit before it is killed")
	f.StringVar(&fv.warmPrompt, "warm-prompt", def.WarmPrompt, "Prompt sent to warm the model")
	f.BoolVar(&fv.skipPull, "skip-pull", false, "Do not pull the model")
	f.BoolVar(&fv.noWarmup, "no-warmup", false, "Do not warm the model")
	f.BoolVar(&fv.serveOnly, "serve-only", false, "Prepare the daemon and model, then exit leaving the daemon running")
	f.StringVar(&fv.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	f.StringVar(&fv.logLevel, "log-level", def.LogLevel, "Log level: debug|info|warn|error (MOVER_LOG_LEVEL)")
	f.StringVar(&fv.logFormat, "log-format", def.LogFormat, "Log format: console|json (MOVER_LOG_FORMAT)")

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// resolveConfig layers defaults, the config file, the environment and then
// the flags the user actually set.
func resolveConfig(cmd *cobra.Command, fv flagValues) (config.Config, error) {
	cfg, err := config.Resolve(fv.configPath)
	if err != nil {
		return cfg, supervisor.ErrUsage(err)
	}
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("ollama-bin", func() { cfg.OllamaBin = fv.ollamaBin })
	set("daemon-arg", func() { cfg.DaemonArgs = fv.daemonArgs })
	set("daemon-log", func() { cfg.DaemonLog = fv.daemonLog })
	set("codex-bin", func() { cfg.CodexBin = fv.codexBin })
	set("model", func() { cfg.Model = fv.model })
	set("host", func() { cfg.Host = fv.host })
	set("port", func() { cfg.Port = fv.port })
	set("api-key", func() { cfg.APIKey = fv.apiKey })
	set("ready-attempts", func() { cfg.ReadyAttempts = fv.readyAttempts })
	set("ready-interval", func() { cfg.ReadyInterval = config.Duration(fv.readyInterval) })
	set("teardown-grace", func() { cfg.TeardownGrace = config.Duration(fv.teardownGrace) })
	set("warm-prompt", func() { cfg.WarmPrompt = fv.warmPrompt })
	set("skip-pull", func() { cfg.SkipPull = fv.skipPull })
	set("no-warmup", func() { cfg.NoWarmup = fv.noWarmup })
	set("serve-only", func() { cfg.ServeOnly = fv.serveOnly })
	set("metrics-file", func() { cfg.MetricsFile = fv.metricsFile })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })
	set("log-format", func() { cfg.LogFormat = fv.logFormat })
	cfg, err = cfg.ExpandPaths()
	if err != nil {
		return cfg, supervisor.ErrUsage(err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, supervisor.ErrUsage(err)
	}
	return cfg, nil
}

func execute(args []string, stdout, stderr io.Writer) int {
	exit := -1
	root := buildRootCmd(stdout, stderr, &exit)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	switch {
	case exit >= 0:
		return exit
	case err == nil:
		return 0
	default:
		// Flag parsing failed before a run started.
		return supervisor.ExitUsage
	}
}

// MainWithArgs runs mover with the given arguments and returns the process
// exit code.
func MainWithArgs(args []string) int { return execute(args, os.Stdout, os.Stderr) }

// Main returns an exit code for use by cmd/mover.
func Main() int { return MainWithArgs(os.Args[1:]) }
