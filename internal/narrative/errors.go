package narrative

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx answer from a model runtime.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("status=%d", e.StatusCode)}
	for _, kv := range [][2]string{{"code", e.Code}, {"request_id", e.RequestID}, {"message", e.Message}} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	return "runtime responded " + strings.Join(parts, " ")
}

func describe(kind string, e *APIError) string {
	if e == nil {
		return kind
	}
	return kind + ": " + e.Error()
}

type (
	// AuthError is a rejected or missing credential (401/403).
	AuthError struct{ *APIError }
	// ModelNotFoundError means the runtime does not serve the requested model.
	ModelNotFoundError struct{ *APIError }
	BadRequestError    struct{ *APIError }
	QuotaExceededError struct{ *APIError }
	// ServerError is any 5xx.
	ServerError struct{ *APIError }
)

func (e *AuthError) Error() string          { return describe("credentials rejected", e.APIError) }
func (e *ModelNotFoundError) Error() string { return describe("unknown model", e.APIError) }
func (e *BadRequestError) Error() string    { return describe("request refused", e.APIError) }
func (e *QuotaExceededError) Error() string { return describe("account quota reached", e.APIError) }
func (e *ServerError) Error() string        { return describe("runtime failure", e.APIError) }

// RateLimitError is a 429. RetryAfter is zero when the runtime gave no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	kind := "throttled"
	if e.RetryAfter > 0 {
		kind = fmt.Sprintf("throttled for %s", e.RetryAfter.Round(time.Second))
	}
	return describe(kind, e.APIError)
}

// UnreachableError means no HTTP exchange happened at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	where := "runtime"
	if e.Host != "" {
		where = e.Host
	}
	return fmt.Sprintf("cannot reach %s: %v", where, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

var quotaHints = []string{"quota", "billing", "limit exceeded", "insufficient credits"}

// classifyAPIError picks the typed error for apiErr. The header supplies
// Retry-After on 429s.
func classifyAPIError(apiErr *APIError, header http.Header) error {
	code := apiErr.StatusCode
	msg := strings.ToLower(apiErr.Message)
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return &AuthError{apiErr}
	case code == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: retryAfter(header)}
	case code == http.StatusNotFound && (apiErr.Code == "model_not_found" || mentionsMissingModel(msg)):
		return &ModelNotFoundError{apiErr}
	case code == http.StatusNotFound:
		return apiErr
	case code == http.StatusBadRequest:
		return &BadRequestError{apiErr}
	case apiErr.Code == "quota_exceeded" || hasAny(msg, quotaHints):
		return &QuotaExceededError{apiErr}
	case code >= 500 && code < 600:
		return &ServerError{apiErr}
	}
	return apiErr
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := parseRetryAfterSeconds(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func mentionsMissingModel(msg string) bool {
	return strings.Contains(msg, "model") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}

func hasAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
