package supervisor

import (
	"sort"
	"strconv"
	"strings"
)

// Variables handed to the downstream CLI.
const (
	EnvAPIBase    = "OPENAI_API_BASE"
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvDaemonHost = "OLLAMA_HOST"
	EnvDaemonPort = "OLLAMA_PORT"

	// DefaultAPIKey is a placeholder; the local daemon does not authenticate.
	DefaultAPIKey = "ollama"
)

// Profile tunes the composed environment.
type Profile struct {
	APIKey string
	// Extra variables for the CLI. They never replace the four connection
	// variables.
	Extra map[string]string
}

// Compose returns the environment that points the downstream CLI at t.
func Compose(t Target, prof Profile) map[string]string {
	env := make(map[string]string, len(prof.Extra)+4)
	for k, v := range prof.Extra {
		env[k] = v
	}
	key := prof.APIKey
	if key == "" {
		key = DefaultAPIKey
	}
	env[EnvAPIBase] = t.APIBase()
	env[EnvAPIKey] = key
	env[EnvDaemonHost] = t.Host
	env[EnvDaemonPort] = strconv.Itoa(t.Port)
	return env
}

// mergeEnv overlays env on base (KEY=VALUE entries). Overlay values win and
// replace any earlier entry for the same key.
func mergeEnv(base []string, env map[string]string) []string {
	out := make([]string, 0, len(base)+len(env))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := env[k]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
