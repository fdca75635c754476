package main

import (
	"encoding/json"
	"os"
	"strconv"
)

// A stand-in for the codex CLI: records what it was given and exits with
// FAKE_CODEX_EXIT.
func main() {
	if p := os.Getenv("FAKE_CODEX_OUT"); p != "" {
		rec := map[string]any{
			"args": os.Args[1:],
			"env": map[string]string{
				"OPENAI_API_BASE": os.Getenv("OPENAI_API_BASE"),
				"OPENAI_API_KEY":  os.Getenv("OPENAI_API_KEY"),
				"OLLAMA_HOST":     os.Getenv("OLLAMA_HOST"),
				"OLLAMA_PORT":     os.Getenv("OLLAMA_PORT"),
			},
		}
		b, _ := json.Marshal(rec)
		_ = os.WriteFile(p, b, 0o644)
	}
	code, _ := strconv.Atoi(os.Getenv("FAKE_CODEX_EXIT"))
	os.Exit(code)
}
