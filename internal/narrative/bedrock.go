package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/aws/aws-sdk-go/service/bedrockruntime/bedrockruntimeiface"
)

// DefaultBedrockModel is used when no model is configured for Bedrock.
const DefaultBedrockModel = "deepseek.v3-v1:0"

// BedrockClient invokes chat-style models through the AWS Bedrock runtime.
type BedrockClient struct {
	api bedrockruntimeiface.BedrockRuntimeAPI
}

// NewBedrockClient builds a client from the default AWS credential chain.
func NewBedrockClient(region string) (*BedrockClient, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return &BedrockClient{api: bedrockruntime.New(sess)}, nil
}

// NewBedrockClientWithAPI wraps an existing Bedrock runtime API (used in tests).
func NewBedrockClientWithAPI(api bedrockruntimeiface.BedrockRuntimeAPI) *BedrockClient {
	return &BedrockClient{api: api}
}

// Generate sends the request body in chat-completions form and expects an
// OpenAI-compatible response document.
func (c *BedrockClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	model := req.Model
	if model == "" {
		model = DefaultBedrockModel
	}
	body, err := json.Marshal(struct {
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature,omitempty"`
		TopP        float64   `json:"top_p,omitempty"`
	}{req.Messages, req.MaxTokens, req.Temperature, req.TopP})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	out, err := c.api.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, bedrockError(err)
	}
	var resp GenerateResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("bedrock response has no choices")
	}
	return &resp, nil
}

// bedrockError maps AWS request failures onto the shared typed errors.
func bedrockError(err error) error {
	var rf awserr.RequestFailure
	if !errors.As(err, &rf) {
		return fmt.Errorf("invoke model: %w", err)
	}
	apiErr := &APIError{
		StatusCode: rf.StatusCode(),
		Code:       rf.Code(),
		Message:    rf.Message(),
		RequestID:  rf.RequestID(),
	}
	if rf.Code() == bedrockruntime.ErrCodeResourceNotFoundException {
		return &ModelNotFoundError{APIError: apiErr}
	}
	if rf.Code() == bedrockruntime.ErrCodeServiceQuotaExceededException {
		return &QuotaExceededError{APIError: apiErr}
	}
	return classifyAPIError(apiErr, http.Header{})
}
