package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1"

var openRouterRetry = retryPolicy{Attempts: 3, Base: 500 * time.Millisecond, Ceiling: 4 * time.Second}

// OpenRouterClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenRouterClient struct {
	t       *transport
	apiKey  string
	baseURL string
}

// NewOpenRouterClient uses the stock timeout and retry policy.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return NewClient(apiKey, 0, 0, 0, 0)
}

// NewClient builds an OpenRouter client. Zero arguments fall back to
// 60s, 3 attempts, 500ms and 4s.
func NewClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenRouterClient {
	return NewClientWithBaseURL(apiKey, httpTimeout, retryMax, baseDelay, maxDelay, "")
}

// NewClientWithBaseURL points the client at another compatible server.
func NewClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *OpenRouterClient {
	policy := retryPolicy{Attempts: retryMax, Base: baseDelay, Ceiling: maxDelay}.or(openRouterRetry)
	t := newTransport(httpTimeout, policy)
	t.headers.Set("Authorization", "Bearer "+apiKey)
	t.headers.Set("HTTP-Referer", "https://github.com/KaramelBytes/scoreloom-cli")
	t.headers.Set("X-Title", "scoreloom")
	if baseURL == "" {
		baseURL = openRouterURL
	}
	return &OpenRouterClient{t: t, apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Generate posts req once per attempt. A Retry-After on a 429 replaces the
// computed backoff.
func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	switch {
	case c.apiKey == "":
		return nil, errors.New("OPENROUTER_API_KEY is missing")
	case req.Model == "":
		return nil, errors.New("model cannot be empty")
	}
	var out GenerateResponse
	err := c.t.post(ctx, c.baseURL+"/chat/completions", req, func(resp *http.Response) error {
		out = GenerateResponse{RequestID: extractRequestID(resp)}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
