// Package e2e runs the mover binary against fake daemon and CLI binaries.
package e2e

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"
)

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/internal/e2e/helpers_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

// buildBinary builds pkg (relative to the module root) into dir/name.
func buildBinary(t *testing.T, pkg, dir, name string) string {
	t.Helper()
	bin := filepath.Join(dir, name)
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Dir = projectRootFromThisFile(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(out))
	}
	return bin
}

type binaries struct {
	mover    string
	ollama   string
	codexDir string // holds the fake CLI as "codex"
}

func buildAll(t *testing.T) binaries {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("signals and process groups are unix-only here")
	}
	out := t.TempDir()
	codexDir := filepath.Join(out, "codex-install")
	if err := os.MkdirAll(codexDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return binaries{
		mover:    buildBinary(t, "./cmd/mover", out, "mover"),
		ollama:   buildBinary(t, "./internal/e2e/testdata/fake_ollama.go", out, "ollama"),
		codexDir: filepath.Dir(buildBinary(t, "./internal/e2e/testdata/fake_codex.go", codexDir, "codex")),
	}
}

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func listening(port int) bool {
	c, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

type result struct {
	code   int
	stderr string
}

// runMover runs the binary with args and extra environment entries.
func runMover(t *testing.T, bin string, env []string, args ...string) result {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start mover: %v", err)
	}
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(60 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatalf("mover did not exit; stderr:\n%s", stderr.String())
	}
	return result{code: cmd.ProcessState.ExitCode(), stderr: stderr.String()}
}
