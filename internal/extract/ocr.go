package extract

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/logger"
)

// ocrPDFPage rasterises one PDF page at the fixed DPI and runs
// tesseract over the image.
func (e *Extractor) ocrPDFPage(ctx context.Context, path string, page int) (string, error) {
	n := strconv.Itoa(page)
	png, err := e.runner.Run(ctx, "pdftoppm", "-png", "-r", ocrDPI, "-f", n, "-l", n, path)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w", page, err)
	}

	// tesseract reads from a file path, so the rasterised page is
	// staged to a temp file.
	tmp, err := os.CreateTemp("", "notelm-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("staging OCR image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return "", fmt.Errorf("staging OCR image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("staging OCR image: %w", err)
	}

	return e.runTesseract(ctx, tmp.Name())
}

// extractImage OCRs a standalone raster image as a single page. Like
// the per-page PDF fallback, an OCR failure degrades to the native
// text, which for an image is empty; only an unreadable source file is
// fatal.
func (e *Extractor) extractImage(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	text, err := e.runTesseract(ctx, path)
	if err != nil {
		logger.Warn("OCR failed for %s: %v", path, err)
		text = ""
	}
	return []domain.Page{{Number: 1, Text: text}}, nil
}

// runTesseract OCRs one image file.
func (e *Extractor) runTesseract(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner.Run(ctx, "tesseract", imagePath, "stdout")
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w", imagePath, err)
	}
	return string(out), nil
}
