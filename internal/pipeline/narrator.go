package pipeline

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/narrative"
	"github.com/KaramelBytes/scoreloom-cli/internal/parser"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Narrator produces the free-text section of the report.
type Narrator interface {
	Narrate(ctx context.Context, rec *stats.Record) (string, error)
	// Source names where the text came from, for logs and the run index.
	Source() string
}

// FileNarrator reads pre-written narrative text (.txt, .md, .docx) from the host.
type FileNarrator struct {
	Host host.Host
	Path string
}

func (n FileNarrator) Narrate(_ context.Context, _ *stats.Record) (string, error) {
	b, err := n.Host.ReadFile(n.Path)
	if err != nil {
		return "", fmt.Errorf("read narrative file: %w", err)
	}
	text, err := parser.Parse(n.Path, b)
	if err != nil {
		return "", fmt.Errorf("parse narrative file: %w", err)
	}
	return text, nil
}

func (n FileNarrator) Source() string { return "file:" + n.Path }

// RuntimeNarrator asks a model runtime to write the narrative.
type RuntimeNarrator struct {
	Runtime  narrative.Runtime
	Provider string
	Model    string
	Options  narrative.Options
}

func (n RuntimeNarrator) Narrate(ctx context.Context, rec *stats.Record) (string, error) {
	return narrative.Generate(ctx, n.Runtime, n.Model, rec, n.Options)
}

func (n RuntimeNarrator) Source() string { return n.Provider + ":" + n.Model }
