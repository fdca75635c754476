// Package launcher turns a user-supplied executable setting into a single
// runnable path. It knows about the wrapper shims package managers install
// next to a CLI (name.cmd, name.ps1, ...), so callers never branch on platform.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// shimSuffixes are tried, in order, when a directory is given.
var shimSuffixes = []string{"", ".exe", ".cmd", ".ps1", ".bat"}

// ErrEmptyPath is returned for an empty executable setting.
var ErrEmptyPath = errors.New("executable path is empty")

// Candidates lists the file names probed for name inside a directory.
func Candidates(name string) []string {
	out := make([]string, 0, len(shimSuffixes))
	for _, s := range shimSuffixes {
		out = append(out, name+s)
	}
	return out
}

// Resolve finds the executable for path.
//
//   - a directory is searched for one of Candidates(defaultName);
//   - an existing file is returned as is;
//   - otherwise installDir and installDir/bin are searched, then PATH.
func Resolve(path, defaultName, installDir string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if st, err := os.Stat(path); err == nil {
		if !st.IsDir() {
			return path, nil
		}
		name := defaultName
		if name == "" {
			name = filepath.Base(path)
		}
		if p, ok := findIn(path, name); ok {
			return p, nil
		}
		return "", fmt.Errorf("%s is a directory but contains none of %v; point at the executable or one of those files", path, Candidates(name))
	}
	if installDir != "" && !strings.ContainsRune(path, os.PathSeparator) {
		for _, dir := range []string{installDir, filepath.Join(installDir, "bin")} {
			if p, ok := findIn(dir, path); ok {
				return p, nil
			}
		}
	}
	p, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("locate %s on PATH: %w", path, err)
	}
	return p, nil
}

func findIn(dir, name string) (string, bool) {
	for _, c := range Candidates(name) {
		p := filepath.Join(dir, c)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
