package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mover/internal/config"
	"mover/internal/supervisor"
	"mover/pkg/types"
)

// TestHelperProcess stands in for codex when re-executed by a test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if want := os.Getenv("HELPER_WANT_API_BASE"); want != "" && os.Getenv("OPENAI_API_BASE") != want {
		os.Exit(90)
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		os.Exit(91)
	}
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT_CODE"))
	os.Exit(code)
}

func fakeDaemon(t *testing.T) (*httptest.Server, string, int) {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.PullResponse{Status: "success"})
	})
	r.Post("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.GenerateResponse{Done: true})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return srv, host, port
}

func TestRunSupervisor_ExistingDaemonRunsChild(t *testing.T) {
	_, host, port := fakeDaemon(t)
	metricsPath := filepath.Join(t.TempDir(), "mover.prom")

	cfg := config.Default()
	cfg.Host, cfg.Port = host, port
	cfg.MetricsFile = metricsPath
	cfg.Env = map[string]string{
		"GO_WANT_HELPER_PROCESS": "1",
		"HELPER_EXIT_CODE":       "7",
		"HELPER_WANT_API_BASE":   "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/v1",
	}
	cleanup := withCLIStubs(t, func() {
		fnResolveCodex = func(path, defaultName, installDir string) (string, error) { return os.Args[0], nil }
	})
	defer cleanup()

	code, err := runSupervisor(context.Background(), cfg, []string{"-test.run=TestHelperProcess"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 7 {
		t.Fatalf("expected child exit code 7, got %d", code)
	}
	b, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	for _, want := range []string{
		`mover_model_requests_total{result="ok",step="pull"} 1`,
		`mover_model_requests_total{result="ok",step="warmup"} 1`,
		`mover_daemon_launches_total 0`,
		`mover_child_exit_code 7`,
	} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("metrics missing %q:\n%s", want, b)
		}
	}
}

func TestRunSupervisor_MissingCodexFailsBeforeLaunch(t *testing.T) {
	cfg := config.Default()
	cfg.OllamaBin = filepath.Join(t.TempDir(), "no-such-ollama")
	cleanup := withCLIStubs(t, func() {
		fnResolveCodex = func(path, defaultName, installDir string) (string, error) {
			return "", errors.New("codex not found")
		}
	})
	defer cleanup()

	code, err := runSupervisor(context.Background(), cfg, nil, zerolog.Nop())
	if code != supervisor.ExitChildSpawn || !supervisor.IsChildSpawnFailure(err) {
		t.Fatalf("expected child spawn failure, got %d %v", code, err)
	}
}

func TestRunSupervisor_ServeOnlySkipsCodex(t *testing.T) {
	_, host, port := fakeDaemon(t)
	cfg := config.Default()
	cfg.Host, cfg.Port = host, port
	cfg.ServeOnly = true
	cfg.NoWarmup = true
	cleanup := withCLIStubs(t, func() {
		fnResolveCodex = func(path, defaultName, installDir string) (string, error) {
			t.Fatalf("codex should not be resolved in serve-only mode")
			return "", nil
		}
	})
	defer cleanup()

	code, err := runSupervisor(context.Background(), cfg, []string{"ignored"}, zerolog.Nop())
	if err != nil || code != 0 {
		t.Fatalf("expected clean serve-only run, got %d %v", code, err)
	}
}
