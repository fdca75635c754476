package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mover/internal/common/fsutil"
)

// Defaults for a run against a local daemon.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 11434
	DefaultModel         = "llama3.2:3b"
	DefaultOllamaBin     = "ollama"
	DefaultCodexBin      = "codex"
	DefaultAPIKey        = "ollama"
	DefaultReadyAttempts = 180
	DefaultReadyInterval = 250 * time.Millisecond
	DefaultPullTimeout   = 30 * time.Minute
	DefaultTeardownGrace = 5 * time.Second
	DefaultWarmPrompt    = "Codex warm-up ping."
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Environment variables that override file values.
const (
	EnvConfig          = "MOVER_CONFIG"
	EnvOllamaBin       = "OLLAMA_BIN"
	EnvCodexBin        = "CODEX_BIN"
	EnvCodexInstallDir = "CODEX_INSTALL_DIR"
	EnvModel           = "MOVER_MODEL"
	EnvHost            = "MOVER_HOST"
	EnvPort            = "MOVER_PORT"
	EnvLogLevel        = "MOVER_LOG_LEVEL"
	EnvLogFormat       = "MOVER_LOG_FORMAT"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		Model:         DefaultModel,
		OllamaBin:     DefaultOllamaBin,
		DaemonArgs:    []string{"serve"},
		CodexBin:      DefaultCodexBin,
		APIKey:        DefaultAPIKey,
		ReadyAttempts: DefaultReadyAttempts,
		ReadyInterval: Duration(DefaultReadyInterval),
		PullTimeout:   Duration(DefaultPullTimeout),
		TeardownGrace: Duration(DefaultTeardownGrace),
		WarmPrompt:    DefaultWarmPrompt,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// Merge overlays the non-zero fields of o on c. Booleans can only be
// switched on by an overlay.
func (c Config) Merge(o Config) Config {
	setStr(&c.Host, o.Host)
	setStr(&c.Model, o.Model)
	setStr(&c.OllamaBin, o.OllamaBin)
	setStr(&c.DaemonLog, o.DaemonLog)
	setStr(&c.CodexBin, o.CodexBin)
	setStr(&c.CodexInstallDir, o.CodexInstallDir)
	setStr(&c.APIKey, o.APIKey)
	setStr(&c.WarmPrompt, o.WarmPrompt)
	setStr(&c.MetricsFile, o.MetricsFile)
	setStr(&c.LogLevel, o.LogLevel)
	setStr(&c.LogFormat, o.LogFormat)
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.ReadyAttempts != 0 {
		c.ReadyAttempts = o.ReadyAttempts
	}
	if o.ReadyInterval != 0 {
		c.ReadyInterval = o.ReadyInterval
	}
	if o.PullTimeout != 0 {
		c.PullTimeout = o.PullTimeout
	}
	if o.TeardownGrace != 0 {
		c.TeardownGrace = o.TeardownGrace
	}
	if len(o.DaemonArgs) > 0 {
		c.DaemonArgs = append([]string(nil), o.DaemonArgs...)
	}
	c.SkipPull = c.SkipPull || o.SkipPull
	c.NoWarmup = c.NoWarmup || o.NoWarmup
	c.ServeOnly = c.ServeOnly || o.ServeOnly
	if len(o.Env) > 0 {
		env := make(map[string]string, len(c.Env)+len(o.Env))
		for k, v := range c.Env {
			env[k] = v
		}
		for k, v := range o.Env {
			env[k] = v
		}
		c.Env = env
	}
	return c
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// FromEnv returns the overlay described by the process environment.
// A malformed MOVER_PORT is an error rather than silently ignored.
func FromEnv() (Config, error) {
	var c Config
	c.OllamaBin = envStr(EnvOllamaBin, "")
	c.CodexBin = envStr(EnvCodexBin, "")
	c.CodexInstallDir = envStr(EnvCodexInstallDir, "")
	c.Model = envStr(EnvModel, "")
	c.Host = envStr(EnvHost, "")
	c.LogLevel = envStr(EnvLogLevel, "")
	c.LogFormat = envStr(EnvLogFormat, "")
	port, err := envInt(EnvPort, 0)
	if err != nil {
		return c, err
	}
	c.Port = port
	return c, nil
}

// Resolve builds the effective configuration from defaults, an optional
// file and the environment, in increasing precedence. Flags are applied by
// the caller on top.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = envStr(EnvConfig, "")
	}
	if path != "" {
		p, err := fsutil.ExpandHome(path)
		if err != nil {
			return cfg, err
		}
		fc, err := Load(p)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.Merge(fc)
	}
	ec, err := FromEnv()
	if err != nil {
		return cfg, err
	}
	return cfg.Merge(ec), nil
}

// ExpandPaths resolves a leading "~" in every path-valued field.
func (c Config) ExpandPaths() (Config, error) {
	err := fsutil.ExpandHomeAll(&c.OllamaBin, &c.CodexBin, &c.CodexInstallDir, &c.DaemonLog, &c.MetricsFile)
	return c, err
}

// Validate checks the values a run depends on.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.OllamaBin) == "" {
		errs = append(errs, errors.New("ollama_bin is empty"))
	}
	if !c.ServeOnly && strings.TrimSpace(c.CodexBin) == "" {
		errs = append(errs, errors.New("codex_bin is empty"))
	}
	if !c.SkipPull && strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is empty"))
	}
	if c.ReadyAttempts < 1 {
		errs = append(errs, fmt.Errorf("ready_attempts must be positive, got %d", c.ReadyAttempts))
	}
	if c.ReadyInterval <= 0 {
		errs = append(errs, errors.New("ready_interval must be positive"))
	}
	if c.TeardownGrace <= 0 {
		errs = append(errs, errors.New("teardown_grace must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Env helpers
func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
