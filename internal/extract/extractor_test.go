package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelm/notelm/internal/core/domain"
)

// scriptedRunner dispatches canned output per tool invocation.
type scriptedRunner struct {
	calls   [][]string
	respond func(name string, args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.respond(name, args)
}

// pageFlag returns the value following "-f" in a poppler invocation.
func pageFlag(args []string) string {
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

var goodPageText = strings.Repeat("This is a clean page of extracted prose text ", 6)

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "/tmp/x.bin", domain.FileType("bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_TXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\nworld"), 0600))

	e := New()
	pages, err := e.Extract(context.Background(), path, domain.FileTypeTXT)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "hello\nworld", pages[0].Text)
}

func TestExtract_TXT_MissingFile(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "/nonexistent/notes.txt", domain.FileTypeTXT)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func writeTestDOCX(t *testing.T, paragraphs []string) string {
	t.Helper()

	var runs strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&runs, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	docXML := `<?xml version="1.0"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + runs.String() + `</w:body></w:document>`

	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(docXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_DOCX(t *testing.T) {
	path := writeTestDOCX(t, []string{"First paragraph.", "Second paragraph."})

	e := New()
	pages, err := e.Extract(context.Background(), path, domain.FileTypeDOCX)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", pages[0].Text)
}

func TestExtract_DOCX_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0600))

	e := New()
	_, err := e.Extract(context.Background(), path, domain.FileTypeDOCX)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

// Three-page PDF where page 2 is a scanned image with no text layer:
// extraction must OCR page 2 only and keep its output.
func TestExtract_PDF_OCRFallbackOnScannedPage(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(name string, args []string) ([]byte, error) {
			switch name {
			case "pdfinfo":
				return []byte("Title: sample\nPages:          3\nEncrypted: no\n"), nil
			case "pdftotext":
				if pageFlag(args) == "2" {
					return []byte(""), nil
				}
				return []byte(goodPageText), nil
			case "pdftoppm":
				return []byte("fake-png-bytes"), nil
			case "tesseract":
				return []byte("Recovered scanned text from page two"), nil
			}
			return nil, fmt.Errorf("unexpected tool %s", name)
		},
	}

	e := NewWithRunner(runner)
	pages, err := e.Extract(context.Background(), "/tmp/sample.pdf", domain.FileTypePDF)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, goodPageText, pages[0].Text)
	assert.Equal(t, "Recovered scanned text from page two", pages[1].Text)
	assert.Equal(t, goodPageText, pages[2].Text)

	// OCR ran exactly once, for page 2
	rasterised := 0
	for _, call := range rCalls(runner, "pdftoppm") {
		rasterised++
		assert.Equal(t, "2", pageFlag(call[1:]))
	}
	assert.Equal(t, 1, rasterised)
}

// Noisy native text below QualityGood gets OCR output concatenated
// after it.
func TestExtract_PDF_OCRAppendsToNativeText(t *testing.T) {
	noisy := "Sh0rt n0isy l@yer text"
	runner := &scriptedRunner{
		respond: func(name string, args []string) ([]byte, error) {
			switch name {
			case "pdfinfo":
				return []byte("Pages: 1\n"), nil
			case "pdftotext":
				return []byte(noisy), nil
			case "pdftoppm":
				return []byte("png"), nil
			case "tesseract":
				return []byte("Clean OCR text"), nil
			}
			return nil, fmt.Errorf("unexpected tool %s", name)
		},
	}

	e := NewWithRunner(runner)
	pages, err := e.Extract(context.Background(), "/tmp/noisy.pdf", domain.FileTypePDF)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, noisy+"\nClean OCR text", pages[0].Text)
}

// A page whose OCR fails keeps its native text rather than aborting the
// document.
func TestExtract_PDF_OCRFailureDegrades(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(name string, args []string) ([]byte, error) {
			switch name {
			case "pdfinfo":
				return []byte("Pages: 1\n"), nil
			case "pdftotext":
				return []byte("thin text layer"), nil
			case "pdftoppm":
				return nil, errors.New("rasterisation failed")
			}
			return nil, fmt.Errorf("unexpected tool %s", name)
		},
	}

	e := NewWithRunner(runner)
	pages, err := e.Extract(context.Background(), "/tmp/bad.pdf", domain.FileTypePDF)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "thin text layer", pages[0].Text)
}

func TestExtract_PDF_UnreadableContainerFatal(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(name string, _ []string) ([]byte, error) {
			return nil, errors.New("corrupt file")
		},
	}

	e := NewWithRunner(runner)
	_, err := e.Extract(context.Background(), "/tmp/corrupt.pdf", domain.FileTypePDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

// writeTestImage stages a dummy raster file; content is irrelevant as
// tesseract is scripted in these tests.
func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("not a real png"), 0600))
	return path
}

func TestExtract_Image(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(name string, _ []string) ([]byte, error) {
			require.Equal(t, "tesseract", name)
			return []byte("text from scan"), nil
		},
	}

	e := NewWithRunner(runner)
	pages, err := e.Extract(context.Background(), writeTestImage(t), domain.FileTypeImage)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "text from scan", pages[0].Text)
}

func TestExtract_Image_OCRFailureDegrades(t *testing.T) {
	// An image has no native text layer, so a failed OCR run degrades
	// to a single empty page rather than failing the document.
	runner := &scriptedRunner{
		respond: func(string, []string) ([]byte, error) {
			return nil, errors.New("tesseract: command not found")
		},
	}

	e := NewWithRunner(runner)
	pages, err := e.Extract(context.Background(), writeTestImage(t), domain.FileTypeImage)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Empty(t, pages[0].Text)
}

func TestExtract_Image_MissingFileFatal(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(string, []string) ([]byte, error) {
			t.Fatal("OCR must not run for an unreadable source")
			return nil, nil
		},
	}

	e := NewWithRunner(runner)
	_, err := e.Extract(context.Background(), "/nonexistent/scan.png", domain.FileTypeImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

// rCalls filters recorded runner calls by tool name.
func rCalls(r *scriptedRunner, tool string) [][]string {
	var out [][]string
	for _, call := range r.calls {
		if call[0] == tool {
			out = append(out, call)
		}
	}
	return out
}
