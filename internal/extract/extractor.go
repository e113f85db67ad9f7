// Package extract converts uploaded documents into ordered
// (page number, text) pairs.
//
// Paginated formats (pdf, image) get a per-page OCR fallback: the
// native text layer is assessed with a quality heuristic, and any page
// below QualityGood is rasterised and run through tesseract, with the
// OCR output concatenated after whatever native text existed. PDF
// tooling (poppler) and tesseract are invoked through the CommandRunner
// port so the policy is testable without the binaries.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// ErrToolNotFound indicates the poppler/tesseract binaries are missing
// from PATH.
var ErrToolNotFound = fmt.Errorf("pdftotext/pdftoppm/tesseract not found in PATH")

// requiredTools are the external binaries extraction shells out to.
var requiredTools = []string{"pdftotext", "pdfinfo", "pdftoppm", "tesseract"}

// Extractor turns a staged upload into pages of text.
type Extractor struct {
	runner driven.CommandRunner
}

// execRunner is the default CommandRunner backed by os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// New creates an extractor using the system binaries.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with an injected runner.
// Used by tests to substitute canned tool output.
func NewWithRunner(runner driven.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable verifies the external tools are installed.
func CheckAvailable() error {
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: missing %s", ErrToolNotFound, tool)
		}
	}
	return nil
}

// InstallInstructions returns a hint for installing the external tools.
func InstallInstructions() string {
	return strings.Join([]string{
		"Text extraction requires poppler (pdftotext, pdfinfo, pdftoppm) and tesseract:",
		"  macOS:  brew install poppler tesseract",
		"  Debian: apt install poppler-utils tesseract-ocr",
	}, "\n")
}

// Extract converts the file at path into ordered pages, numbered from
// 1. Unpaginated formats return the whole document as a single page.
// Fails with domain.ErrUnsupportedFormat for unknown declared types and
// with domain.ErrExtractionFailed for unreadable sources.
func (e *Extractor) Extract(ctx context.Context, path string, declared domain.FileType) ([]domain.Page, error) {
	switch declared {
	case domain.FileTypeTXT:
		return e.extractText(path)
	case domain.FileTypeDOCX:
		return e.extractDOCX(path)
	case domain.FileTypePDF:
		return e.extractPDF(ctx, path)
	case domain.FileTypeImage:
		return e.extractImage(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, declared)
	}
}

// extractText reads a plain-text document as a single page.
func (e *Extractor) extractText(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrExtractionFailed, path, err)
	}
	return []domain.Page{{Number: 1, Text: string(data)}}, nil
}
