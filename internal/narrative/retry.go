package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// retryPolicy bounds how often and how long a runtime call is retried.
type retryPolicy struct {
	Attempts int
	Base     time.Duration
	Ceiling  time.Duration
}

func (p retryPolicy) or(def retryPolicy) retryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Base <= 0 {
		p.Base = def.Base
	}
	if p.Ceiling <= 0 {
		p.Ceiling = def.Ceiling
	}
	return p
}

// delay returns the jittered wait before retry number n (1-based).
func (p retryPolicy) delay(n int) time.Duration {
	d := p.Base
	for i := 1; i < n && d < p.Ceiling; i++ {
		d *= 2
	}
	d = min(d, p.Ceiling)
	d = time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if d > p.Ceiling {
		d = p.Ceiling
	}
	return d
}

// transport posts JSON to a runtime endpoint. Status 429, 5xx, timeouts and
// undecodable bodies are retried; everything else fails on first sight.
type transport struct {
	client  *http.Client
	policy  retryPolicy
	headers http.Header
}

func newTransport(timeout time.Duration, policy retryPolicy) *transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &transport{client: &http.Client{Timeout: timeout}, policy: policy, headers: http.Header{}}
}

// post sends body to endpoint and hands a 2xx response to decode.
func (t *transport) post(ctx context.Context, endpoint string, body any, decode func(*http.Response) error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var lastErr error
	for attempt := 1; attempt <= t.policy.Attempts; attempt++ {
		if attempt > 1 {
			wait := t.policy.delay(attempt - 1)
			var rl *RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
				wait = rl.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		retry, err := t.once(ctx, endpoint, payload, decode)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (t *transport) once(ctx context.Context, endpoint string, payload []byte, decode func(*http.Response) error) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header = t.headers.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return transient(err), &UnreachableError{Host: hostOf(endpoint), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		code := resp.StatusCode
		return code == http.StatusTooManyRequests || code >= 500, classifyAPIError(readAPIError(resp), resp.Header)
	}
	if err := decode(resp); err != nil {
		return true, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func transient(err error) bool {
	var nerr net.Error
	return (errors.As(err, &nerr) && nerr.Timeout()) || errors.Is(err, io.EOF)
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Scheme + "://" + u.Host
}

// readAPIError decodes a non-2xx body. Nested {"error":{"message","code"}}
// and flat {"error":"..."} or {"message":"..."} shapes are accepted.
func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    any             `json:"code"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return apiErr
	}
	apiErr.Message, apiErr.Code = envelope.Message, codeString(envelope.Code)
	var flat string
	var nested struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	}
	switch {
	case json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
		apiErr.Message = flat
	case json.Unmarshal(envelope.Error, &nested) == nil:
		if nested.Message != "" {
			apiErr.Message = nested.Message
		}
		if c := codeString(nested.Code); c != "" {
			apiErr.Code = c
		}
	}
	return apiErr
}

func codeString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.Itoa(int(c))
	}
	return ""
}

// parseRetryAfterSeconds reads Retry-After as delta seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, fmt.Errorf("invalid Retry-After: %q", v)
	}
	return int(max(time.Until(t), 0).Seconds()), nil
}

var requestIDHeaders = []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"}

func extractRequestID(resp *http.Response) string {
	for _, k := range requestIDHeaders {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
