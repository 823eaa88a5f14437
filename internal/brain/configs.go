package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/abelbrown/newslens/internal/httpclient"
)

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGrok   = "grok"
	ProviderOllama = "ollama"
)

// Providers lists every known provider name.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderClaude, ProviderGrok, ProviderOllama}

// Credentials are read from the process environment only.
type Credentials struct {
	Gemini     string
	OpenAI     string
	Anthropic  string
	XAI        string
	OllamaHost string
}

// CredentialsFromEnv reads API keys and the Ollama host from the environment.
func CredentialsFromEnv() Credentials {
	gemini := os.Getenv("GEMINI_API_KEY")
	if gemini == "" {
		gemini = os.Getenv("GOOGLE_API_KEY")
	}
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return Credentials{
		Gemini:     gemini,
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Anthropic:  os.Getenv("ANTHROPIC_API_KEY"),
		XAI:        os.Getenv("XAI_API_KEY"),
		OllamaHost: strings.TrimRight(host, "/"),
	}
}

// DefaultModels is the primary model followed by fallback candidates for
// each provider. Catalogs change, so the Client probes these in order.
var DefaultModels = map[string][]string{
	ProviderGemini: {"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash", "gemini-1.5-flash"},
	ProviderOpenAI: {"gpt-4o-mini", "gpt-4.1-mini", "gpt-4o"},
	ProviderClaude: {"claude-haiku-4-5", "claude-sonnet-4-5", "claude-3-5-haiku-latest"},
	ProviderGrok:   {"grok-3-fast", "grok-3-mini", "grok-3"},
	ProviderOllama: {"llama3.2", "qwen2.5", "gemma2"},
}

// NewBackend constructs the backend for a provider name.
func NewBackend(ctx context.Context, provider string, creds Credentials) (Backend, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiBackend(ctx, creds.Gemini)
	case ProviderOpenAI:
		return NewOpenAIBackend(creds.OpenAI), nil
	case ProviderClaude:
		return NewClaudeBackend(creds.Anthropic), nil
	case ProviderGrok:
		return NewHTTPBackend(GrokConfig(creds.XAI), nil), nil
	case ProviderOllama:
		return NewHTTPBackend(OllamaConfig(creds.OllamaHost), nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// GrokConfig targets xAI's OpenAI-compatible chat completions endpoint.
func GrokConfig(apiKey string) *BackendConfig {
	return &BackendConfig{
		Name:          ProviderGrok,
		Endpoint:      "https://api.x.ai/v1/chat/completions",
		APIKey:        apiKey,
		KeyRequired:   true,
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildOpenAICompatBody,
		ParseResponse: parseOpenAICompatResponse,
	}
}

// OllamaConfig targets a local Ollama server's chat endpoint.
func OllamaConfig(host string) *BackendConfig {
	endpoint := ""
	if host != "" {
		endpoint = strings.TrimRight(host, "/") + "/api/chat"
	}
	return &BackendConfig{
		Name:          ProviderOllama,
		Endpoint:      endpoint,
		BuildBody:     buildOllamaBody,
		ParseResponse: parseOllamaResponse,
	}
}

// DetectOllamaModels lists the models installed on an Ollama server,
// instruct models first. Used to seed the candidate list when none is
// configured.
func DetectOllamaModels(ctx context.Context, host string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(host, "/")+"/api/tags", nil)
	if err != nil {
		return nil
	}
	resp, err := httpclient.Default().Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil
	}

	var instruct, rest []string
	for _, m := range tags.Models {
		if strings.Contains(strings.ToLower(m.Name), "instruct") {
			instruct = append(instruct, m.Name)
		} else {
			rest = append(rest, m.Name)
		}
	}
	return append(instruct, rest...)
}

// Body builders

func chatMessages(req Request) []map[string]string {
	messages := make([]map[string]string, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}
	return messages
}

func buildOpenAICompatBody(model string, req Request) map[string]any {
	body := map[string]any{
		"model":       model,
		"max_tokens":  maxTokensOr(req.MaxTokens, 2048),
		"temperature": req.Temperature,
		"messages":    chatMessages(req),
	}
	if req.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return body
}

func buildOllamaBody(model string, req Request) map[string]any {
	body := map[string]any{
		"model":    model,
		"messages": chatMessages(req),
		"stream":   false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": maxTokensOr(req.MaxTokens, 2048),
		},
	}
	if req.JSON {
		body["format"] = "json"
	}
	return body
}

// Response parsers

func parseOpenAICompatResponse(body []byte) (string, string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, resp.Model, nil
	}
	return "", resp.Model, nil
}

func parseOllamaResponse(body []byte) (string, string, error) {
	var resp struct {
		Model   string `json:"model"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	return resp.Message.Content, resp.Model, nil
}
