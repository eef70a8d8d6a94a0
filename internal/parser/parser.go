// Package parser extracts plain narrative text from the document formats a
// user may hand in with --narrative-file.
package parser

import (
	"errors"
	"strings"
)

// Parser turns the bytes of one document format into plain text.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte) (string, error)
}

var registry []Parser

// Register appends p; earlier registrations win on overlapping extensions.
func Register(p Parser) {
	registry = append(registry, p)
}

// Parse selects a parser by filename and returns normalized text. Unknown
// extensions are treated as plain text.
func Parse(filename string, content []byte) (string, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			text, err := p.Parse(content)
			if err != nil {
				return "", err
			}
			return normalize(text), nil
		}
	}
	return normalize(string(content)), nil
}

// IsMarkdown reports whether filename carries Markdown.
func IsMarkdown(filename string) bool {
	return markdownParser{}.CanParse(filename)
}

// normalize unifies line endings and collapses runs of blank lines so that
// paragraphs are separated by exactly one blank line.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

func init() {
	Register(txtParser{})
	Register(markdownParser{})
	Register(docxParser{})
}

// ErrUnsupported wraps content that looks like a known format but cannot be read.
var ErrUnsupported = errors.New("unsupported document format")
