package brain

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/abelbrown/newslens/internal/logging"
)

var _ Backend = (*OpenAIBackend)(nil)

// OpenAIBackend calls the Chat Completions API.
type OpenAIBackend struct {
	apiKey string
	client openai.Client
}

// NewOpenAIBackend creates an OpenAI backend. An empty key yields an
// unavailable backend. opts are applied after the key, so a base URL can
// point the client at a compatible endpoint.
func NewOpenAIBackend(apiKey string, opts ...option.RequestOption) *OpenAIBackend {
	b := &OpenAIBackend{apiKey: apiKey}
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
		b.client = openai.NewClient(opts...)
	}
	return b
}

func (o *OpenAIBackend) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIBackend) Available() bool {
	return o.apiKey != ""
}

func (o *OpenAIBackend) Generate(ctx context.Context, model string, req Request) (Response, error) {
	if !o.Available() {
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: ProviderOpenAI, Model: model}
	}

	logging.Debug("OpenAI API request starting", "model", model)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(maxTokensOr(req.MaxTokens, 2048))),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, classifyOpenAI(model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Response{}, &GenerationError{Kind: KindEmpty, Backend: ProviderOpenAI, Model: model}
	}

	content := resp.Choices[0].Message.Content
	logging.Debug("OpenAI API response", "model", resp.Model, "content_len", len(content))
	return Response{Content: content, Model: resp.Model}, nil
}

func classifyOpenAI(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &GenerationError{
			Kind:    kindForStatus(apiErr.StatusCode),
			Backend: ProviderOpenAI,
			Model:   model,
			Status:  apiErr.StatusCode,
			Err:     err,
		}
	}
	return wrap(ProviderOpenAI, model, err)
}
