package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/abelbrown/newslens/internal/httpclient"
	"github.com/abelbrown/newslens/internal/logging"
)

// Compile-time interface satisfaction check
var _ Backend = (*HTTPBackend)(nil)

// BackendConfig defines how to talk to a JSON-over-HTTP generation API.
type BackendConfig struct {
	Name         string
	Endpoint     string
	APIKey       string            // resolved from env, never from config files
	KeyRequired  bool              // false for local endpoints such as Ollama
	AuthHeader   string            // "x-api-key" or "Authorization"
	AuthPrefix   string            // "" or "Bearer "
	ExtraHeaders map[string]string // Additional headers

	// Request building
	BuildBody func(model string, req Request) map[string]any

	// Response parsing
	ParseResponse func(body []byte) (content, model string, err error)
}

// HTTPBackend is a generic HTTP-based backend driven by a BackendConfig.
type HTTPBackend struct {
	config *BackendConfig
	client *http.Client
}

// NewHTTPBackend creates a backend from config. A nil client uses the
// shared long-timeout client; per-attempt deadlines come from the context.
func NewHTTPBackend(cfg *BackendConfig, client *http.Client) *HTTPBackend {
	if client == nil {
		client = httpclient.LongTimeout()
	}
	return &HTTPBackend{config: cfg, client: client}
}

func (p *HTTPBackend) Name() string {
	return p.config.Name
}

func (p *HTTPBackend) Available() bool {
	if p.config.Endpoint == "" {
		return false
	}
	return !p.config.KeyRequired || p.config.APIKey != ""
}

func (p *HTTPBackend) Generate(ctx context.Context, model string, req Request) (Response, error) {
	if !p.Available() {
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: p.config.Name, Model: model}
	}

	logging.Debug("HTTP backend request", "backend", p.config.Name, "model", model)

	jsonBody, err := json.Marshal(p.config.BuildBody(model, req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, &GenerationError{Kind: KindTransport, Backend: p.config.Name, Model: model, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Response{}, &GenerationError{Kind: KindTransport, Backend: p.config.Name, Model: model, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		kind := kindForStatus(resp.StatusCode)
		// Ollama and OpenAI-compatible servers report unknown models as 400/404
		// with the reason in the body.
		if kind == KindTransport && resp.StatusCode == http.StatusBadRequest && kindForMessage(string(respBody)) == KindModelUnavailable {
			kind = KindModelUnavailable
		}
		logging.Warn("API error", "backend", p.config.Name, "model", model, "status", resp.StatusCode)
		return Response{}, &GenerationError{
			Kind:    kind,
			Backend: p.config.Name,
			Model:   model,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%s", truncateBody(respBody)),
		}
	}

	content, respModel, err := p.config.ParseResponse(respBody)
	if err != nil {
		return Response{}, &GenerationError{Kind: KindTransport, Backend: p.config.Name, Model: model, Err: fmt.Errorf("parse response: %w", err)}
	}
	if strings.TrimSpace(content) == "" {
		return Response{}, &GenerationError{Kind: KindEmpty, Backend: p.config.Name, Model: model}
	}
	if respModel == "" {
		respModel = model
	}

	logging.Debug("API response", "backend", p.config.Name, "model", respModel, "content_len", len(content))
	return Response{Content: content, Model: respModel}, nil
}

func (p *HTTPBackend) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httpclient.UserAgent())

	if p.config.AuthHeader != "" && p.config.APIKey != "" {
		req.Header.Set(p.config.AuthHeader, p.config.AuthPrefix+p.config.APIKey)
	}
	for k, v := range p.config.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

func truncateBody(b []byte) string {
	const max = 300
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
