package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mover/internal/config"
	"mover/internal/supervisor"
)

func withCLIStubs(t *testing.T, stubs func()) func() {
	t.Helper()
	oldRun := fnRun
	oldResolveCodex := fnResolveCodex
	stubs()
	return func() {
		fnRun = oldRun
		fnResolveCodex = oldResolveCodex
	}
}

// clearEnv keeps the caller's environment out of config resolution.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvOllamaBin, config.EnvCodexBin, config.EnvCodexInstallDir,
		config.EnvModel, config.EnvHost, config.EnvPort, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(k, "")
	}
}

func TestExecute_DefaultsReachRun(t *testing.T) {
	clearEnv(t)
	var got config.Config
	var gotArgs []string
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			got, gotArgs = cfg, args
			return 0, nil
		}
	})
	defer cleanup()

	var out, errb bytes.Buffer
	if code := execute(nil, &out, &errb); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errb.String())
	}
	if got.Host != config.DefaultHost || got.Port != config.DefaultPort || got.Model != config.DefaultModel {
		t.Fatalf("unexpected config: %+v", got)
	}
	if len(gotArgs) != 0 {
		t.Fatalf("expected no passthrough args, got %v", gotArgs)
	}
}

func TestExecute_FlagsAndPassthrough(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvModel, "from-env")
	t.Setenv(config.EnvHost, "10.1.1.1")
	var got config.Config
	var gotArgs []string
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			got, gotArgs = cfg, args
			return 0, nil
		}
	})
	defer cleanup()

	args := []string{"--model", "qwen2:7b", "--port", "9000", "--skip-pull", "--ready-interval", "100ms",
		"--daemon-arg", "serve", "--daemon-arg", "--verbose", "--", "exec", "--full-auto", "hi"}
	var out, errb bytes.Buffer
	if code := execute(args, &out, &errb); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errb.String())
	}
	if got.Model != "qwen2:7b" {
		t.Fatalf("flag should beat env, got model %q", got.Model)
	}
	if got.Host != "10.1.1.1" {
		t.Fatalf("env should beat default, got host %q", got.Host)
	}
	if got.Port != 9000 || !got.SkipPull || time.Duration(got.ReadyInterval) != 100*time.Millisecond {
		t.Fatalf("flags not applied: %+v", got)
	}
	if strings.Join(got.DaemonArgs, " ") != "serve --verbose" {
		t.Fatalf("daemon args: %v", got.DaemonArgs)
	}
	if strings.Join(gotArgs, " ") != "exec --full-auto hi" {
		t.Fatalf("passthrough args: %v", gotArgs)
	}
}

func TestExecute_PositionalArgsStopFlagParsing(t *testing.T) {
	clearEnv(t)
	var gotArgs []string
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			gotArgs = args
			return 0, nil
		}
	})
	defer cleanup()

	var out, errb bytes.Buffer
	if code := execute([]string{"exec", "--model", "x"}, &out, &errb); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errb.String())
	}
	if strings.Join(gotArgs, " ") != "exec --model x" {
		t.Fatalf("passthrough args: %v", gotArgs)
	}
}

func TestExecute_ChildExitCodeIsReturned(t *testing.T) {
	clearEnv(t)
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			return 3, nil
		}
	})
	defer cleanup()

	var out, errb bytes.Buffer
	if code := execute(nil, &out, &errb); code != 3 {
		t.Fatalf("expected exit 3, got %d", code)
	}
	if errb.Len() != 0 && strings.Contains(errb.String(), "Error:") {
		t.Fatalf("unexpected error output: %q", errb.String())
	}
}

func TestExecute_RunErrorIsReported(t *testing.T) {
	clearEnv(t)
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			err := supervisor.ErrLaunch("ollama", errors.New("exec: not found"))
			return supervisor.ExitCode(err), err
		}
	})
	defer cleanup()

	var out, errb bytes.Buffer
	code := execute([]string{"--log-level", "off"}, &out, &errb)
	if code != supervisor.ExitLaunchFailure {
		t.Fatalf("expected exit %d, got %d", supervisor.ExitLaunchFailure, code)
	}
	if !strings.Contains(errb.String(), "Error:") || !strings.Contains(errb.String(), "not found") {
		t.Fatalf("stderr missing error: %q", errb.String())
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	clearEnv(t)
	called := false
	cleanup := withCLIStubs(t, func() {
		fnRun = func(ctx context.Context, cfg config.Config, args []string, log zerolog.Logger) (int, error) {
			called = true
			return 0, nil
		}
	})
	defer cleanup()

	cases := [][]string{
		{"--no-such-flag"},
		{"--port", "0"},
		{"--port", "notanumber"},
		{"--log-format", "xml"},
		{"--config", "/definitely/missing/mover.yaml"},
	}
	for _, args := range cases {
		var out, errb bytes.Buffer
		if code := execute(args, &out, &errb); code != supervisor.ExitUsage {
			t.Fatalf("%v: expected exit %d, got %d", args, supervisor.ExitUsage, code)
		}
		if !strings.Contains(errb.String(), "Error:") {
			t.Fatalf("%v: stderr missing error: %q", args, errb.String())
		}
	}
	if called {
		t.Fatalf("run should not start on usage errors")
	}
}

func TestExecute_Help(t *testing.T) {
	var out, errb bytes.Buffer
	if code := execute([]string{"--help"}, &out, &errb); code != 0 {
		t.Fatalf("expected exit 0 for help, got %d", code)
	}
	if !strings.Contains(out.String(), "--serve-only") {
		t.Fatalf("help missing flags: %q", out.String())
	}
}

func TestExecute_Completion(t *testing.T) {
	var out, errb bytes.Buffer
	if code := execute([]string{"completion", "bash"}, &out, &errb); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errb.String())
	}
	if !strings.Contains(out.String(), "bash completion") {
		t.Fatalf("unexpected completion output: %.200q", out.String())
	}
}
