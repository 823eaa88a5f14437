// Package brain talks to text-generation backends and decides, at runtime,
// which model identifier currently works.
package brain

import (
	"context"
)

// Backend is one generation API (Gemini, OpenAI, Claude, Ollama, Grok).
// A backend serves many model identifiers; the Client picks which.
type Backend interface {
	// Name returns the provider name (e.g., "gemini", "ollama")
	Name() string

	// Available returns true if the backend has what it needs to be called
	Available() bool

	// Generate sends one request to the given model and returns its text
	Generate(ctx context.Context, model string, req Request) (Response, error)
}

// Message is one prior turn of a conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a prompt request to a backend.
type Request struct {
	System      string
	Messages    []Message // history followed by the current user turn
	Temperature float64
	MaxTokens   int
	JSON        bool // ask the backend for a JSON object when it supports it
}

// Response is the backend's reply.
type Response struct {
	Content string
	Model   string
}

// userText returns the last user message, for backends that take a single
// prompt string.
func (r Request) userText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

func maxTokensOr(v, defaultVal int) int {
	if v > 0 {
		return v
	}
	return defaultVal
}
