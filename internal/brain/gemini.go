package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/abelbrown/newslens/internal/logging"
)

var _ Backend = (*GeminiBackend)(nil)

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend creates a Gemini backend. An empty key yields an
// unavailable backend rather than an error.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return &GeminiBackend{}, nil
	}
	return newGeminiBackend(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGeminiBackend(ctx context.Context, cfg *genai.ClientConfig) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (g *GeminiBackend) Name() string {
	return ProviderGemini
}

func (g *GeminiBackend) Available() bool {
	return g.client != nil
}

func (g *GeminiBackend) Generate(ctx context.Context, model string, req Request) (Response, error) {
	if !g.Available() {
		logging.Warn("Gemini backend not configured")
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: ProviderGemini, Model: model}
	}

	logging.Debug("Gemini API request starting", "model", model)

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(maxTokensOr(req.MaxTokens, 2048)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return Response{}, classifyGemini(model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, &GenerationError{Kind: KindEmpty, Backend: ProviderGemini, Model: model}
	}

	logging.Debug("Gemini API response", "model", resp.ModelVersion, "content_len", len(text))
	return Response{Content: text, Model: model}, nil
}

func classifyGemini(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &GenerationError{
			Kind:    kindForStatus(apiErr.Code),
			Backend: ProviderGemini,
			Model:   model,
			Status:  apiErr.Code,
			Err:     err,
		}
	}
	return wrap(ProviderGemini, model, err)
}
