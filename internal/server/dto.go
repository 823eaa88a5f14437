package server

import (
	"time"

	"github.com/abelbrown/newslens/internal/insight"
)

type CategoryResponse struct {
	Name  string `json:"name"`
	Feeds int    `json:"feeds"`
}

type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

type ChatResponse struct {
	Answer      *insight.ChatTurn  `json:"answer,omitempty"`
	Thread      []insight.ChatTurn `json:"thread"`
	Unavailable bool               `json:"unavailable,omitempty"`
	Notice      string             `json:"notice,omitempty"`
}

type CompareRequest struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

type HistoryResponse struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	EntryID   string    `json:"entry_id"`
	OtherID   string    `json:"other_id,omitempty"`
	Language  string    `json:"language"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`

	Analysis   *insight.Analysis   `json:"analysis,omitempty"`
	Comparison *insight.Comparison `json:"comparison,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Phase    string `json:"phase"`
	Model    string `json:"model,omitempty"`
	Sessions int    `json:"sessions"`
}
