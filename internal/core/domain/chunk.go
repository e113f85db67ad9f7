package domain

import "time"

// Page is one unit of extracted text. Pages are numbered from 1.
// Unpaginated formats (txt, docx) produce a single page.
type Page struct {
	Number int
	Text   string
}

// Chunk is a searchable span of extracted text. Chunks are created in a
// single batch per file after embeddings are produced, never mutated
// afterwards, and deleted only as part of whole-file deletion.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// FileID links to the owning File.
	FileID string

	// Title is the detected heading, if any.
	Title string

	// Content is the extracted text span.
	Content string

	// PageStart and PageEnd are the inclusive page range the chunk was
	// sourced from.
	PageStart int
	PageEnd   int

	// VectorID is the integer ID under which this chunk's embedding
	// lives in the vector index. One-to-one, never shared, never reused.
	VectorID int64

	// EmbeddingDim records the dimension the embedding was produced at.
	EmbeddingDim int

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}
