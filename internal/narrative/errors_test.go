package narrative

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func response(status int, body string, hdr http.Header) *http.Response {
	if hdr == nil {
		hdr = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: hdr, Body: io.NopCloser(strings.NewReader(body))}
}

func TestReadAPIErrorShapes(t *testing.T) {
	cases := []struct {
		body, msg, code string
	}{
		{`{"error":{"message":"nested","code":"bad_request"}}`, "nested", "bad_request"},
		{`{"error":{"message":"numeric","code":402}}`, "numeric", "402"},
		{`{"error":"flat"}`, "flat", ""},
		{`{"message":"top level","code":"x"}`, "top level", "x"},
		{`<html>gateway</html>`, "", ""},
	}
	for _, tc := range cases {
		e := readAPIError(response(400, tc.body, http.Header{"X-Request-Id": {"rid"}}))
		if e.Message != tc.msg || e.Code != tc.code || e.RequestID != "rid" {
			t.Errorf("%s: got %+v", tc.body, e)
		}
	}
}

func TestClassifyAPIError(t *testing.T) {
	rl := classifyAPIError(&APIError{StatusCode: 429}, http.Header{"Retry-After": {"3"}})
	var rate *RateLimitError
	if !errors.As(rl, &rate) || rate.RetryAfter != 3*time.Second {
		t.Fatalf("429: got %#v", rl)
	}
	if !strings.Contains(rl.Error(), "throttled for 3s") {
		t.Fatalf("429 text: %v", rl)
	}

	cases := []struct {
		in   *APIError
		want string
	}{
		{&APIError{StatusCode: 401}, "*narrative.AuthError"},
		{&APIError{StatusCode: 403}, "*narrative.AuthError"},
		{&APIError{StatusCode: 404, Message: "Model not found"}, "*narrative.ModelNotFoundError"},
		{&APIError{StatusCode: 404, Code: "model_not_found"}, "*narrative.ModelNotFoundError"},
		{&APIError{StatusCode: 404, Message: "no route"}, "*narrative.APIError"},
		{&APIError{StatusCode: 400}, "*narrative.BadRequestError"},
		{&APIError{StatusCode: 402, Message: "Insufficient credits"}, "*narrative.QuotaExceededError"},
		{&APIError{StatusCode: 503}, "*narrative.ServerError"},
		{&APIError{StatusCode: 418}, "*narrative.APIError"},
	}
	for _, tc := range cases {
		got := classifyAPIError(tc.in, http.Header{})
		if name := typeName(got); name != tc.want {
			t.Errorf("%+v: got %s, want %s", tc.in, name, tc.want)
		}
	}
}

func typeName(err error) string {
	switch err.(type) {
	case *AuthError:
		return "*narrative.AuthError"
	case *ModelNotFoundError:
		return "*narrative.ModelNotFoundError"
	case *BadRequestError:
		return "*narrative.BadRequestError"
	case *QuotaExceededError:
		return "*narrative.QuotaExceededError"
	case *ServerError:
		return "*narrative.ServerError"
	case *APIError:
		return "*narrative.APIError"
	}
	return "other"
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	p := retryPolicy{Attempts: 5, Base: 100 * time.Millisecond, Ceiling: 300 * time.Millisecond}
	for n := 1; n <= 40; n++ {
		if d := p.delay(n); d <= 0 || d > p.Ceiling {
			t.Fatalf("delay(%d) = %v", n, d)
		}
	}
	if got := (retryPolicy{}).or(ollamaRetry); got != ollamaRetry {
		t.Fatalf("defaults not applied: %+v", got)
	}
}
