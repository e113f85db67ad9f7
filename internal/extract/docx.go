package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/notelm/notelm/internal/core/domain"
)

// extractDOCX unpacks word/document.xml and flattens its paragraphs
// into a single page.
func (e *Extractor) extractDOCX(path string) ([]domain.Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: reading document.xml: %v", domain.ErrExtractionFailed, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading document.xml: %v", domain.ErrExtractionFailed, err)
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
		return []domain.Page{{Number: 1, Text: text}}, nil
	}

	return nil, fmt.Errorf("%w: %s has no word/document.xml", domain.ErrExtractionFailed, path)
}

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML joins paragraph text with newlines.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return b.String(), nil
}
