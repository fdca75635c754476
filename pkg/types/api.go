package types

// PullRequest is the payload for POST /api/pull on the model daemon.
type PullRequest struct {
	// Model reference to download, name[:tag].
	// example: llama3.2:3b
	Model string `json:"model" example:"llama3.2:3b"`
	// When false the daemon replies once, after the pull has finished.
	// example: false
	Stream bool `json:"stream"`
	// Allow pulling from registries without TLS.
	Insecure bool `json:"insecure,omitempty"`
}

// PullResponse is the final (non-streamed) reply to a pull.
type PullResponse struct {
	// Progress or completion marker. A finished pull reports "success".
	// example: success
	Status string `json:"status" example:"success"`
	// Set when the daemon rejected or failed the pull.
	// example: pull model manifest: file does not exist
	Error string `json:"error,omitempty"`
}

// GenerateOptions are the sampling knobs used by warm-up requests.
type GenerateOptions struct {
	// Sampling temperature; warm-up uses 0 for a deterministic, short reply.
	// example: 0
	Temperature float64 `json:"temperature"`
	// Maximum number of tokens to predict.
	// example: 16
	NumPredict int `json:"num_predict"`
}

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	// Model to load and run.
	// example: llama3.2:3b
	Model string `json:"model" example:"llama3.2:3b"`
	// Prompt text.
	// example: Codex warm-up ping.
	Prompt string `json:"prompt" example:"Codex warm-up ping."`
	// Streamed replies are never requested by mover.
	Stream bool `json:"stream"`
	// Sampling options.
	Options GenerateOptions `json:"options"`
}

// GenerateResponse is the non-streamed reply to /api/generate.
type GenerateResponse struct {
	// Model that produced the reply.
	Model string `json:"model,omitempty"`
	// Generated text.
	Response string `json:"response,omitempty"`
	// True once generation has completed.
	Done bool `json:"done"`
	// Set when the daemon could not run the model.
	// example: model "nope" not found, try pulling it first
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the error shape the daemon uses for non-2xx replies.
type ErrorResponse struct {
	// Error message.
	// example: invalid model name
	Error string `json:"error" example:"invalid model name"`
}
