// Package narrative produces the free-text analysis paragraph block of a
// report from a statistics record, using a pluggable model runtime.
package narrative

import "context"

// Provider names accepted by NewRuntime.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderBedrock    = "bedrock"
)

// Runtime turns a chat request into a completion. OpenRouter, Ollama and
// Bedrock implement it.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

type (
	// Message is one chat turn; Role is system, user or assistant.
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// GenerateRequest uses the chat-completions field names so the
	// OpenRouter and Bedrock bodies can be sent as is.
	GenerateRequest struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature,omitempty"`
		TopP        float64   `json:"top_p,omitempty"`
	}

	Choice struct {
		Message Message `json:"message"`
	}

	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}

	GenerateResponse struct {
		ID      string   `json:"id"`
		Choices []Choice `json:"choices"`
		Usage   Usage    `json:"usage"`
		// RequestID comes from response headers, not the body.
		RequestID string `json:"-"`
	}
)

// Text is the content of the first choice, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r != nil && len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}
