package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

type docxParser struct{}

func (docxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".docx")
}

var (
	docxParaEnd = regexp.MustCompile(`</w:p>`)
	docxBreak   = regexp.MustCompile(`<w:(br|cr)\s*/>`)
	docxTag     = regexp.MustCompile(`<[^>]+>`)
)

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

// Parse extracts word/document.xml and turns each paragraph into a block of
// text separated by a blank line.
func (docxParser) Parse(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		break
	}
	if len(docXML) == 0 {
		return "", fmt.Errorf("document.xml not found in DOCX: %w", ErrUnsupported)
	}
	text := docxParaEnd.ReplaceAllString(string(docXML), "\n\n")
	text = docxBreak.ReplaceAllString(text, "\n")
	text = docxTag.ReplaceAllString(text, "")
	return xmlEntities.Replace(text), nil
}
