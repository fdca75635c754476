package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mover/pkg/types"
)

const (
	defaultPullTimeout   = 30 * time.Minute
	defaultWarmupTimeout = 35 * time.Second
	defaultWarmPrompt    = "Codex warm-up ping."
	warmNumPredict       = 16
)

// Provisioner pulls and warms a model on a ready daemon.
type Provisioner struct {
	// Client is used for both requests. Timeouts come from the contexts,
	// so a client-level timeout is not needed.
	Client        *http.Client
	PullTimeout   time.Duration
	WarmupTimeout time.Duration

	Log       zerolog.Logger
	Metrics   *Metrics
	Publisher EventPublisher
}

// Provision runs the pull and warm-up steps the plan asks for. A pull
// failure is returned as fatal. A warm-up failure is logged and returned
// as a warm-up error so callers can tell the two apart.
func (p *Provisioner) Provision(ctx context.Context, t Target, plan ProvisionPlan) error {
	if plan.Pull {
		if err := p.Pull(ctx, t, plan.Model); err != nil {
			return err
		}
	}
	if plan.Warm {
		if err := p.Warm(ctx, t, plan.Model, plan.WarmPrompt); err != nil {
			p.Log.Warn().Err(err).Str("model", plan.Model).Msg("warm-up failed; model will load on first request")
			return err
		}
	}
	return nil
}

// Pull asks the daemon to download model and blocks until it is done.
func (p *Provisioner) Pull(ctx context.Context, t Target, model string) error {
	ref := types.ParseModelRef(model)
	if ref.Name == "" {
		p.observe(EventPull, model, errors.New("empty model name"))
		return &provisionError{model: model, err: errors.New("empty model name")}
	}
	timeout := p.PullTimeout
	if timeout <= 0 {
		timeout = defaultPullTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.Log.Info().Str("model", ref.String()).Msg("pulling model")
	start := time.Now()
	var out types.PullResponse
	status, err := p.postJSON(ctx, t.BaseURL()+"/api/pull", types.PullRequest{Model: model, Stream: false}, &out)
	if err == nil {
		switch {
		case out.Error != "":
			err = errors.New(out.Error)
		case out.Status != "success":
			err = fmt.Errorf("unexpected pull status %q", out.Status)
		}
	}
	p.observe(EventPull, model, err)
	if err != nil {
		return &provisionError{model: model, status: status, err: err}
	}
	p.Log.Info().Str("model", ref.String()).Dur("took", time.Since(start)).Msg("model pulled")
	return nil
}

// Warm sends a tiny generation request so the daemon loads model weights.
func (p *Provisioner) Warm(ctx context.Context, t Target, model, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultWarmPrompt
	}
	timeout := p.WarmupTimeout
	if timeout <= 0 {
		timeout = defaultWarmupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.Log.Info().Str("model", model).Msg("warming model with a short prompt")
	req := types.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: types.GenerateOptions{Temperature: 0, NumPredict: warmNumPredict},
	}
	var out types.GenerateResponse
	status, err := p.postJSON(ctx, t.BaseURL()+"/api/generate", req, &out)
	if err == nil && out.Error != "" {
		err = errors.New(out.Error)
	}
	p.observe(EventWarmup, model, err)
	if err != nil {
		return &warmupError{model: model, status: status, err: err}
	}
	return nil
}

// postJSON posts body and decodes a 2xx reply into out. On a non-2xx reply
// it returns the HTTP status text and the daemon's error message.
func (p *Provisioner) postJSON(ctx context.Context, url string, body, out any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var er types.ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			return resp.Status, errors.New(er.Error)
		}
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = "empty reply"
		}
		return resp.Status, errors.New(msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Status, fmt.Errorf("decode reply: %w", err)
	}
	return "", nil
}

func (p *Provisioner) observe(step, model string, err error) {
	p.Metrics.observeProvision(step, err == nil)
	fields := map[string]any{"model": model, "ok": err == nil}
	if err != nil {
		fields["error"] = err.Error()
	}
	pub := p.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	pub.Publish(Event{Name: step, Fields: fields})
}
