package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Options are the sampling parameters for one narrative request.
type Options struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// DefaultOptions mirrors the parameters the analysis prompt was tuned with.
func DefaultOptions() Options {
	return Options{MaxTokens: 2048, Temperature: 0.7, TopP: 0.9}
}

const promptTemplate = `You are a professional data analyst. Based on the following statistics from a class's final exam scores, write a detailed analysis report.

Statistics summary:
%s
Please cover:
1. Overall performance: the class's overall level and how each subject went
2. Top students: what the leaders in each category have in common
3. Subject analysis: relative difficulty of each subject and the shape of its score distribution
4. Recommendations: suggestions for the class and for individual students
5. Outlook: likely trends suggested by the data

Write in a professional, objective tone with a clear structure (roughly 500-800 words). Separate paragraphs with a blank line.`

// BuildPrompt wraps the record's digest in the analyst instructions.
func BuildPrompt(rec *stats.Record) string {
	return fmt.Sprintf(promptTemplate, rec.Summary())
}

// Generate asks rt for a narrative about rec and returns its text.
// Failures are returned unchanged so callers can surface the typed error.
func Generate(ctx context.Context, rt Runtime, model string, rec *stats.Record, opt Options) (string, error) {
	if rt == nil {
		return "", errors.New("no narrative runtime configured")
	}
	if rec == nil {
		return "", errors.New("nil record")
	}
	resp, err := rt.Generate(ctx, GenerateRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: BuildPrompt(rec)}},
		MaxTokens:   opt.MaxTokens,
		Temperature: opt.Temperature,
		TopP:        opt.TopP,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("narrative runtime returned no content")
	}
	return text, nil
}
