package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

var ollamaRetry = retryPolicy{Attempts: 2, Base: 200 * time.Millisecond, Ceiling: time.Second}

// OllamaClient calls the /api/chat endpoint of a local Ollama daemon.
type OllamaClient struct {
	t    *transport
	host string
}

// NewOllamaClient targets host, defaulting to the local daemon.
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = defaultOllamaHost
	}
	policy := retryPolicy{Attempts: retryMax, Base: baseDelay, Ceiling: maxDelay}.or(ollamaRetry)
	return &OllamaClient{t: newTransport(httpTimeout, policy), host: strings.TrimSuffix(host, "/")}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         Message `json:"message"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// sampling maps the shared knobs onto Ollama option names; zero means unset.
func sampling(req GenerateRequest) map[string]any {
	opts := map[string]any{}
	set := func(name string, v float64) {
		if v > 0 {
			opts[name] = v
		}
	}
	set("temperature", req.Temperature)
	set("top_p", req.TopP)
	set("num_predict", float64(req.MaxTokens))
	return opts
}

// Generate performs one non-streaming chat exchange.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	body := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Options: sampling(req)}
	var chat ollamaChatResponse
	err := c.t.post(ctx, c.host+"/api/chat", body, func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&chat)
	})
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: chat.Message.Content}}},
		Usage: Usage{
			PromptTokens:     chat.PromptEvalCount,
			CompletionTokens: chat.EvalCount,
			TotalTokens:      chat.PromptEvalCount + chat.EvalCount,
		},
		RequestID: "ollama-" + uuid.NewString(),
	}, nil
}
