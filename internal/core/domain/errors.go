package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file type outside
	// {pdf, txt, docx, image}. Surfaced at upload; no File record
	// progresses past that point.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed indicates an unreadable or corrupt source
	// document. Fatal to that file only.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmbeddingFailed indicates an embedding provider error or
	// timeout. Fatal to that file only.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector whose length disagrees
	// with the configured embedding dimension. It means the provider is
	// misconfigured, so it is fatal to the file that surfaced it.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexCorrupt indicates the persisted vector index failed to
	// load. Recovery replaces it with an empty index, which silently
	// discards previously indexed vectors; callers must log it loudly.
	ErrIndexCorrupt = errors.New("vector index corrupt")
)
