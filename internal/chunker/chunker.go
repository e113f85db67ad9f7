// Package chunker splits extracted pages into overlapping content
// windows using a recursive separator cascade, with heading detection
// for citation titles.
package chunker

import (
	"regexp"
	"strings"

	"github.com/notelm/notelm/internal/core/domain"
)

// DefaultChunkSize is the default target chunk size in tokens.
const DefaultChunkSize = 300

// DefaultOverlap is the default overlap between chunks in tokens.
const DefaultOverlap = 50

// charsPerToken is the approximate token-to-character ratio used to
// convert the token budget into character counts.
const charsPerToken = 4

// maxHeadingLen bounds how long a line can be and still count as a
// heading.
const maxHeadingLen = 100

// separators is the split cascade, coarsest first. The empty string
// means fixed-size character windows as the last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

var (
	chapterPattern  = regexp.MustCompile(`(?i)^(CHAPTER|SECTION|PART)\s+\d+`)
	numberedPattern = regexp.MustCompile(`^\d+\.`)
)

// Span is one chunk of page text with its detected heading and source
// page range (inclusive).
type Span struct {
	Content   string
	Title     string
	PageStart int
	PageEnd   int
}

// Chunker splits page text into overlapping spans.
type Chunker struct {
	chunkSize int // characters
	overlap   int // characters
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in tokens.
func WithChunkSize(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.chunkSize = tokens * charsPerToken
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(tokens int) Option {
	return func(c *Chunker) {
		if tokens >= 0 {
			c.overlap = tokens * charsPerToken
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize * charsPerToken,
		overlap:   DefaultOverlap * charsPerToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room to advance
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkPages splits each page independently; page boundaries never
// merge. Pages that are empty after trimming produce zero spans.
func (c *Chunker) ChunkPages(pages []domain.Page) []Span {
	var spans []Span
	for _, page := range pages {
		spans = append(spans, c.chunkPage(page)...)
	}
	return spans
}

// chunkPage splits a single page. The page heading propagates to every
// span unless a span detects its own.
func (c *Chunker) chunkPage(page domain.Page) []Span {
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return nil
	}

	pageTitle := DetectHeading(text)

	pieces := c.split(text, separators)
	spans := make([]Span, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		title := DetectHeading(piece)
		if title == "" {
			title = pageTitle
		}
		spans = append(spans, Span{
			Content:   piece,
			Title:     title,
			PageStart: page.Number,
			PageEnd:   page.Number,
		})
	}
	return spans
}

// DetectHeading returns the first line of text if it looks like a
// heading: short, and either fully upper-case or carrying a
// numbered/chapter-style prefix. Returns "" otherwise.
func DetectHeading(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if line == "" || len(line) >= maxHeadingLen {
		return ""
	}

	if isUpperLine(line) {
		return line
	}
	if chapterPattern.MatchString(line) || numberedPattern.MatchString(line) {
		return line
	}
	return ""
}

// isUpperLine reports whether the line contains letters and none of
// them are lower-case.
func isUpperLine(line string) bool {
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'Ý') {
			hasLetter = true
		}
	}
	return hasLetter
}

// split recursively breaks text along the separator cascade, then
// greedily merges the resulting pieces into chunks of at most chunkSize
// characters with overlap carried between neighbours.
func (c *Chunker) split(text string, seps []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return c.windowed(text)
	}

	parts := strings.Split(text, sep)

	// Pieces still over budget recurse on finer separators before
	// merging, so a giant paragraph cannot produce a giant chunk.
	var pieces []string
	for _, part := range parts {
		if len(part) > c.chunkSize {
			pieces = append(pieces, c.split(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}

	return c.merge(pieces, sep)
}

// pickSeparator returns the first separator of the cascade present in
// text, plus the finer remainder of the cascade.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily joins pieces into chunks, retaining a tail of roughly
// overlap characters between consecutive chunks.
func (c *Chunker) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece) + len(sep)
		if total+pieceLen > c.chunkSize && total > 0 {
			flush()
			// Drop from the front until the retained tail fits the
			// overlap budget.
			for total > c.overlap || (total > 0 && total+pieceLen > c.chunkSize) {
				total -= len(window[0]) + len(sep)
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += pieceLen
	}
	flush()

	return chunks
}

// windowed is the last-resort fixed-size split for text with no usable
// separator.
func (c *Chunker) windowed(text string) []string {
	step := c.chunkSize - c.overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
