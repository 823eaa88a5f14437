package brain

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abelbrown/newslens/internal/logging"
)

var _ Backend = (*ClaudeBackend)(nil)

// ClaudeBackend calls Anthropic's Messages API.
type ClaudeBackend struct {
	apiKey string
	client anthropic.Client
}

// NewClaudeBackend creates a Claude backend. An empty key yields an
// unavailable backend. opts are applied after the key.
func NewClaudeBackend(apiKey string, opts ...option.RequestOption) *ClaudeBackend {
	b := &ClaudeBackend{apiKey: apiKey}
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
		b.client = anthropic.NewClient(opts...)
	}
	return b
}

func (c *ClaudeBackend) Name() string {
	return ProviderClaude
}

func (c *ClaudeBackend) Available() bool {
	return c.apiKey != ""
}

func (c *ClaudeBackend) Generate(ctx context.Context, model string, req Request) (Response, error) {
	if !c.Available() {
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: ProviderClaude, Model: model}
	}

	logging.Debug("Claude API request starting", "model", model)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokensOr(req.MaxTokens, 2048)),
		Temperature: anthropic.Float(req.Temperature),
	}
	system := req.System
	if req.JSON {
		// No native JSON mode; the instruction already asks for an object.
		system += "\n\nRespond with the JSON object only."
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyClaude(model, err)
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	content := strings.Join(texts, "\n\n")
	if strings.TrimSpace(content) == "" {
		return Response{}, &GenerationError{Kind: KindEmpty, Backend: ProviderClaude, Model: model}
	}

	logging.Debug("Claude API response", "model", msg.Model, "content_len", len(content))
	return Response{Content: content, Model: string(msg.Model)}, nil
}

func classifyClaude(model string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &GenerationError{
			Kind:    kindForStatus(apiErr.StatusCode),
			Backend: ProviderClaude,
			Model:   model,
			Status:  apiErr.StatusCode,
			Err:     err,
		}
	}
	return wrap(ProviderClaude, model, err)
}
