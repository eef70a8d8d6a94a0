package parser

import (
	"path/filepath"
	"strings"
)

var markdownExts = map[string]bool{".md": true, ".markdown": true, ".mdown": true}

type markdownParser struct{}

func (markdownParser) CanParse(filename string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(filename))]
}

// Parse returns the Markdown source for the report to render, minus a BOM and
// any leading "---" front matter block.
func (markdownParser) Parse(content []byte) (string, error) {
	src := strings.TrimPrefix(string(content), "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if rest, ok := strings.CutPrefix(src, "---\n"); ok {
		if end := strings.Index(rest, "\n---\n"); end >= 0 {
			src = rest[end+len("\n---\n"):]
		}
	}
	return src, nil
}
