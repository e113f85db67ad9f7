package domain

import "time"

// FileStatus tracks a file through the ingestion lifecycle.
type FileStatus string

// Ingestion lifecycle states. Indexed and Failed are terminal; a failed
// file is never resurrected; a retry creates a new File.
const (
	StatusUploaded   FileStatus = "uploaded"
	StatusProcessing FileStatus = "processing"
	StatusIndexed    FileStatus = "indexed"
	StatusFailed     FileStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s FileStatus) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// FileType identifies a supported upload format.
type FileType string

// Supported upload formats.
const (
	FileTypePDF   FileType = "pdf"
	FileTypeTXT   FileType = "txt"
	FileTypeDOCX  FileType = "docx"
	FileTypeImage FileType = "image"
)

// imageExtensions maps raster extensions onto FileTypeImage.
var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tiff": true,
}

// FileTypeFromExtension maps a lowercase filename extension (without the
// dot) to a FileType. Returns ErrUnsupportedFormat for anything else.
func FileTypeFromExtension(ext string) (FileType, error) {
	switch ext {
	case "pdf":
		return FileTypePDF, nil
	case "txt", "md":
		return FileTypeTXT, nil
	case "docx", "doc":
		return FileTypeDOCX, nil
	}
	if imageExtensions[ext] {
		return FileTypeImage, nil
	}
	return "", ErrUnsupportedFormat
}

// File represents an uploaded document and its ingestion state.
// Mutation is owned exclusively by the ingestion pipeline; everything
// else reads.
type File struct {
	// ID is the opaque unique identifier generated at upload.
	ID string

	// Filename is the original name as uploaded.
	Filename string

	// Type is the declared format, derived from the filename extension.
	Type FileType

	// Size is the upload size in bytes.
	Size int64

	// Status is the current lifecycle state.
	Status FileStatus

	// TotalPages is 0 until extraction completes.
	TotalPages int

	// ChunkCount is recorded when the file reaches StatusIndexed.
	ChunkCount int

	// Error is set only when Status is StatusFailed.
	Error string

	// StoredPath is where the original bytes live in blob storage.
	StoredPath string

	// CreatedAt is when the file was uploaded.
	CreatedAt time.Time
}
