package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/logger"
)

// ocrDPI is the fixed rasterisation resolution for OCR fallback.
const ocrDPI = "300"

// extractPDF extracts the native text layer page by page, assessing
// each page and OCRing the ones below QualityGood. A page whose OCR
// fails keeps whatever native text existed; only an unreadable
// container aborts the document.
func (e *Extractor) extractPDF(ctx context.Context, path string) ([]domain.Page, error) {
	total, err := e.pageCount(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	pages := make([]domain.Page, 0, total)
	for n := 1; n <= total; n++ {
		text := e.nativePageText(ctx, path, n)

		if q := AssessQuality(text); q.NeedsOCR() {
			logger.Debug("page %d quality %s, running OCR", n, q)
			ocrText, ocrErr := e.ocrPDFPage(ctx, path, n)
			switch {
			case ocrErr != nil:
				logger.Warn("OCR failed for page %d of %s: %v", n, path, ocrErr)
			case strings.TrimSpace(text) == "":
				text = ocrText
			default:
				text = text + "\n" + ocrText
			}
		}

		pages = append(pages, domain.Page{Number: n, Text: text})
	}

	return pages, nil
}

// pageCount reads the page count from pdfinfo output.
func (e *Extractor) pageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		rest, ok := strings.CutPrefix(line, "Pages:")
		if !ok {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, fmt.Errorf("parsing page count %q: %w", rest, err)
		}
		return count, nil
	}
	return 0, fmt.Errorf("pdfinfo output for %s has no page count", path)
}

// nativePageText extracts one page's text layer. A pdftotext failure is
// treated as an empty layer so the OCR fallback can still run.
func (e *Extractor) nativePageText(ctx context.Context, path string, page int) string {
	n := strconv.Itoa(page)
	out, err := e.runner.Run(ctx, "pdftotext", "-f", n, "-l", n, path, "-")
	if err != nil {
		logger.Debug("pdftotext failed for page %d of %s: %v", page, path, err)
		return ""
	}
	return string(out)
}
