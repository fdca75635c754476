package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads from strings like "250ms" or "5s"
// in every supported file format.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// Config holds runtime parameters for a run.
// Zero values mean "unspecified"; Default supplies the real defaults.
type Config struct {
	Host            string            `json:"host" yaml:"host" toml:"host"`
	Port            int               `json:"port" yaml:"port" toml:"port"`
	Model           string            `json:"model" yaml:"model" toml:"model"`
	OllamaBin       string            `json:"ollama_bin" yaml:"ollama_bin" toml:"ollama_bin"`
	DaemonArgs      []string          `json:"daemon_args" yaml:"daemon_args" toml:"daemon_args"`
	DaemonLog       string            `json:"daemon_log" yaml:"daemon_log" toml:"daemon_log"`
	CodexBin        string            `json:"codex_bin" yaml:"codex_bin" toml:"codex_bin"`
	CodexInstallDir string            `json:"codex_install_dir" yaml:"codex_install_dir" toml:"codex_install_dir"`
	APIKey          string            `json:"api_key" yaml:"api_key" toml:"api_key"`
	ReadyAttempts   int               `json:"ready_attempts" yaml:"ready_attempts" toml:"ready_attempts"`
	ReadyInterval   Duration          `json:"ready_interval" yaml:"ready_interval" toml:"ready_interval"`
	PullTimeout     Duration          `json:"pull_timeout" yaml:"pull_timeout" toml:"pull_timeout"`
	TeardownGrace   Duration          `json:"teardown_grace" yaml:"teardown_grace" toml:"teardown_grace"`
	WarmPrompt      string            `json:"warm_prompt" yaml:"warm_prompt" toml:"warm_prompt"`
	SkipPull        bool              `json:"skip_pull" yaml:"skip_pull" toml:"skip_pull"`
	NoWarmup        bool              `json:"no_warmup" yaml:"no_warmup" toml:"no_warmup"`
	ServeOnly       bool              `json:"serve_only" yaml:"serve_only" toml:"serve_only"`
	MetricsFile     string            `json:"metrics_file" yaml:"metrics_file" toml:"metrics_file"`
	LogLevel        string            `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string            `json:"log_format" yaml:"log_format" toml:"log_format"`
	// Env holds extra variables for the downstream CLI.
	Env map[string]string `json:"env" yaml:"env" toml:"env"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
