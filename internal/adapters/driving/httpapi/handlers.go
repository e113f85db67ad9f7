package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

// fileResponse is the wire shape of a file record.
type fileResponse struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	Status     string    `json:"status"`
	TotalPages int       `json:"total_pages"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toFileResponse(file *domain.File) fileResponse {
	return fileResponse{
		FileID:     file.ID,
		Filename:   file.Filename,
		FileType:   string(file.Type),
		Size:       file.Size,
		Status:     string(file.Status),
		TotalPages: file.TotalPages,
		ChunkCount: file.ChunkCount,
		Error:      file.Error,
		CreatedAt:  file.CreatedAt,
	}
}

// askRequest is the ask endpoint payload.
type askRequest struct {
	Question string   `json:"question" binding:"required"`
	TopK     int      `json:"top_k"`
	FileIDs  []string `json:"file_ids"`
	History  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

// handleUpload accepts one file and schedules background ingestion.
func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	req, err := s.stage(c, header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	file, err := s.ingest.IngestAsync(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toFileResponse(file))
}

// handleUploadBatch accepts several files, ingested concurrently and
// independently.
func (s *Server) handleUploadBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form is required"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}

	type batchEntry struct {
		Filename string `json:"filename"`
		FileID   string `json:"file_id,omitempty"`
		Status   string `json:"status"`
		Error    string `json:"error,omitempty"`
	}

	var reqs []driving.IngestRequest
	var staged []batchEntry
	for _, header := range headers {
		req, err := s.stage(c, header)
		if err != nil {
			staged = append(staged, batchEntry{Filename: header.Filename, Status: string(domain.StatusFailed), Error: err.Error()})
			continue
		}
		reqs = append(reqs, req)
	}

	results := s.ingest.IngestBatch(c.Request.Context(), reqs)
	for i, res := range results {
		entry := batchEntry{Filename: reqs[i].Filename}
		if res.Err != nil && res.File == nil {
			entry.Status = string(domain.StatusFailed)
			entry.Error = res.Err.Error()
		} else {
			entry.FileID = res.File.ID
			entry.Status = string(res.File.Status)
			entry.Error = res.File.Error
		}
		staged = append(staged, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(headers),
		"results": staged,
	})
}

// handleListFiles returns all files, newest first.
func (s *Server) handleListFiles(c *gin.Context) {
	files, err := s.library.ListFiles(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]fileResponse, len(files))
	for i := range files {
		out[i] = toFileResponse(&files[i])
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

// handleGetFile returns one file record.
func (s *Server) handleGetFile(c *gin.Context) {
	file, err := s.library.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileResponse(file))
}

// handleDeleteFile runs phase one of the delete and reports counts.
func (s *Server) handleDeleteFile(c *gin.Context) {
	id := c.Param("id")
	file, err := s.library.GetFile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	deleted, err := s.library.DeleteFile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "file deleted",
		"file_id":        id,
		"filename":       file.Filename,
		"chunks_deleted": deleted,
	})
}

// handleAsk streams an answer over SSE. Sources are sent first so the
// client can render citations while tokens arrive.
func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history := make([]driven.Message, len(req.History))
	for i, msg := range req.History {
		history[i] = driven.Message{Role: msg.Role, Content: msg.Content}
	}

	events, sources, err := s.chat.Ask(c.Request.Context(), req.Question, history, driving.RetrieveOptions{
		TopK:    req.TopK,
		FileIDs: req.FileIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	writeSSE(c, "sources", gin.H{"sources": sources})
	c.Writer.Flush()

	for event := range events {
		switch event.Type {
		case driven.StreamToken:
			writeSSE(c, "token", gin.H{"content": event.Content})
		case driven.StreamDone:
			writeSSE(c, "done", gin.H{})
		case driven.StreamError:
			writeSSE(c, "error", gin.H{"error": event.Content})
		}
		c.Writer.Flush()
	}
}

// searchRequest is the search endpoint payload.
type searchRequest struct {
	Query   string   `json:"query" binding:"required"`
	TopK    int      `json:"top_k"`
	FileIDs []string `json:"file_ids"`
}

// contextResponse is the wire shape of one retrieved passage.
type contextResponse struct {
	Content   string  `json:"content"`
	Title     string  `json:"title,omitempty"`
	Filename  string  `json:"filename"`
	PageStart int     `json:"page_start,omitempty"`
	PageEnd   int     `json:"page_end,omitempty"`
	Score     float32 `json:"score"`
	Citation  int     `json:"citation"`
}

// handleSearch returns ranked passages without generating an answer.
func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contexts, _, err := s.retrieval.Retrieve(c.Request.Context(), req.Query, driving.RetrieveOptions{
		TopK:    req.TopK,
		FileIDs: req.FileIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]contextResponse, len(contexts))
	for i, rc := range contexts {
		out[i] = contextResponse{
			Content:   rc.Content,
			Title:     rc.Title,
			Filename:  rc.Filename,
			PageStart: rc.PageStart,
			PageEnd:   rc.PageEnd,
			Score:     rc.Score,
			Citation:  rc.Citation,
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// handleHealth reports service liveness and library counts.
func (s *Server) handleHealth(c *gin.Context) {
	out := gin.H{"status": "ok"}
	if files, err := s.library.ListFiles(c.Request.Context()); err == nil {
		indexed := 0
		chunks := 0
		for i := range files {
			if files[i].Status == domain.StatusIndexed {
				indexed++
				chunks += files[i].ChunkCount
			}
		}
		out["files"] = len(files)
		out["indexed_files"] = indexed
		out["indexed_chunks"] = chunks
	}
	c.JSON(http.StatusOK, out)
}

// stage copies an upload into the staging directory for the pipeline.
func (s *Server) stage(c *gin.Context, header *multipart.FileHeader) (driving.IngestRequest, error) {
	if err := os.MkdirAll(s.stagingDir, 0700); err != nil {
		return driving.IngestRequest{}, fmt.Errorf("creating staging directory: %w", err)
	}

	localPath := filepath.Join(s.stagingDir, uuid.New().String()+filepath.Ext(header.Filename))
	if err := c.SaveUploadedFile(header, localPath); err != nil {
		return driving.IngestRequest{}, fmt.Errorf("staging upload: %w", err)
	}

	return driving.IngestRequest{
		LocalPath: localPath,
		Filename:  header.Filename,
		Size:      header.Size,
	}, nil
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// writeSSE writes one named SSE event with a JSON payload.
func writeSSE(c *gin.Context, event string, payload any) {
	c.SSEvent(event, payload)
}
