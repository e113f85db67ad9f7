package domain

import "fmt"

// RetrievedContext is one ranked chunk of supporting material handed to
// the answer generator. Citation ordinals are assigned 1..N in final
// relevance order.
type RetrievedContext struct {
	Content  string
	Title    string
	Filename string

	// PageStart and PageEnd mirror the source chunk's page range.
	// Zero means the bound is unknown.
	PageStart int
	PageEnd   int

	// Score is the cosine similarity against the query.
	Score float32

	// Citation is the ordinal used in answer text, e.g. [2].
	Citation int
}

// Source is the citation record exposed alongside an answer so the
// presentation layer can resolve [n] markers back to documents.
type Source struct {
	FileID    string
	ChunkID   string
	Filename  string
	Title     string
	Content   string
	PageStart int
	PageEnd   int
	Citation  int
}

// PageLabel renders the page range for citation display: empty when both
// bounds are unknown, a single page when they agree or the end is
// unknown, a range otherwise.
func PageLabel(start, end int) string {
	switch {
	case start == 0 && end == 0:
		return ""
	case end == 0 || start == end:
		return fmt.Sprintf("p. %d", start)
	default:
		return fmt.Sprintf("pp. %d-%d", start, end)
	}
}

// CitationLine renders the citation map entry for a context, e.g.
// "[1] report.pdf - pp. 3-4".
func (c RetrievedContext) CitationLine() string {
	line := fmt.Sprintf("[%d] %s", c.Citation, c.Filename)
	if label := PageLabel(c.PageStart, c.PageEnd); label != "" {
		line += " - " + label
	}
	return line
}
