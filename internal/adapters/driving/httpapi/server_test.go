package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

// stubIngest records requests and returns canned files.
type stubIngest struct {
	lastReq driving.IngestRequest
	fail    bool
}

var _ driving.IngestService = (*stubIngest)(nil)

func (s *stubIngest) Ingest(_ context.Context, req driving.IngestRequest) (*domain.File, error) {
	s.lastReq = req
	if s.fail {
		return nil, domain.ErrUnsupportedFormat
	}
	return &domain.File{ID: "id-" + req.Filename, Filename: req.Filename, Status: domain.StatusIndexed}, nil
}

func (s *stubIngest) IngestAsync(_ context.Context, req driving.IngestRequest) (*domain.File, error) {
	s.lastReq = req
	if s.fail {
		return nil, domain.ErrUnsupportedFormat
	}
	return &domain.File{ID: "id-" + req.Filename, Filename: req.Filename, Status: domain.StatusProcessing}, nil
}

func (s *stubIngest) IngestBatch(ctx context.Context, reqs []driving.IngestRequest) []driving.BatchResult {
	results := make([]driving.BatchResult, len(reqs))
	for i, req := range reqs {
		file, err := s.Ingest(ctx, req)
		results[i] = driving.BatchResult{File: file, Err: err}
	}
	return results
}

func (s *stubIngest) Wait() {}

// stubLibrary serves a fixed set of files.
type stubLibrary struct {
	files map[string]*domain.File
}

var _ driving.LibraryService = (*stubLibrary)(nil)

func (s *stubLibrary) GetFile(_ context.Context, id string) (*domain.File, error) {
	file, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return file, nil
}

func (s *stubLibrary) ListFiles(context.Context) ([]domain.File, error) {
	var out []domain.File
	for _, file := range s.files {
		out = append(out, *file)
	}
	return out, nil
}

func (s *stubLibrary) DeleteFile(_ context.Context, id string) (int, error) {
	if _, ok := s.files[id]; !ok {
		return 0, domain.ErrNotFound
	}
	delete(s.files, id)
	return 3, nil
}

// stubChat streams a scripted answer.
type stubChat struct {
	events  []driven.StreamEvent
	sources []domain.Source
}

var _ driving.ChatService = (*stubChat)(nil)

func (s *stubChat) Ask(context.Context, string, []driven.Message, driving.RetrieveOptions) (<-chan driven.StreamEvent, []domain.Source, error) {
	events := make(chan driven.StreamEvent, len(s.events))
	for _, event := range s.events {
		events <- event
	}
	close(events)
	return events, s.sources, nil
}

func newTestServer(t *testing.T, ingest *stubIngest, library *stubLibrary, chat *stubChat) *Server {
	t.Helper()
	if ingest == nil {
		ingest = &stubIngest{}
	}
	if library == nil {
		library = &stubLibrary{files: map[string]*domain.File{}}
	}
	if chat == nil {
		chat = &stubChat{}
	}
	return NewServer(ingest, library, chat, nil, t.TempDir())
}

// multipartBody builds a form with the given field/filename/content tuples.
func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	ingest := &stubIngest{}
	server := newTestServer(t, ingest, nil, nil)

	body, contentType := multipartBody(t, "file", map[string]string{"doc.txt": "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "id-doc.txt", resp["file_id"])
	assert.Equal(t, "processing", resp["status"])
	assert.Equal(t, "doc.txt", ingest.lastReq.Filename)
	assert.NotEmpty(t, ingest.lastReq.LocalPath)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpload_UnsupportedFormat(t *testing.T) {
	server := newTestServer(t, &stubIngest{fail: true}, nil, nil)

	body, contentType := multipartBody(t, "file", map[string]string{"doc.zip": "zip"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadBatch(t *testing.T) {
	server := newTestServer(t, &stubIngest{}, nil, nil)

	body, contentType := multipartBody(t, "files", map[string]string{
		"a.txt": "first",
		"b.txt": "second",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total   int `json:"total"`
		Results []struct {
			Filename string `json:"filename"`
			Status   string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	for _, res := range resp.Results {
		assert.Equal(t, "indexed", res.Status)
	}
}

func TestHandleListAndGetFiles(t *testing.T) {
	library := &stubLibrary{files: map[string]*domain.File{
		"f1": {ID: "f1", Filename: "one.pdf", Status: domain.StatusIndexed, ChunkCount: 4},
	}}
	server := newTestServer(t, nil, library, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "one.pdf")

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/f1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(4), resp["chunk_count"])

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteFile(t *testing.T) {
	library := &stubLibrary{files: map[string]*domain.File{
		"f1": {ID: "f1", Filename: "one.pdf", Status: domain.StatusIndexed},
	}}
	server := newTestServer(t, nil, library, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/files/f1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "one.pdf", resp["filename"])
	assert.Equal(t, float64(3), resp["chunks_deleted"])

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/files/f1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAsk_StreamsSSE(t *testing.T) {
	chat := &stubChat{
		events: []driven.StreamEvent{
			{Type: driven.StreamToken, Content: "Answer"},
			{Type: driven.StreamToken, Content: " text [1]"},
			{Type: driven.StreamDone},
		},
		sources: []domain.Source{{FileID: "f1", Filename: "one.pdf", Citation: 1}},
	}
	server := newTestServer(t, nil, nil, chat)

	payload, err := json.Marshal(map[string]any{"question": "what?"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event:sources")
	assert.Contains(t, body, "one.pdf")
	assert.Contains(t, body, "event:token")
	assert.Contains(t, body, "Answer")
	assert.Contains(t, body, "event:done")

	// sources must precede the first token.
	assert.Less(t, strings.Index(body, "event:sources"), strings.Index(body, "event:token"))
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestUploadBatch_NoFiles(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)

	body, contentType := multipartBody(t, "other", map[string]string{"x.txt": "y"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubRetrieval serves scripted contexts.
type stubRetrieval struct {
	contexts []domain.RetrievedContext
	lastOpts driving.RetrieveOptions
}

var _ driving.RetrievalService = (*stubRetrieval)(nil)

func (s *stubRetrieval) Retrieve(_ context.Context, _ string, opts driving.RetrieveOptions) ([]domain.RetrievedContext, []domain.Source, error) {
	s.lastOpts = opts
	return s.contexts, nil, nil
}

func TestHandleSearch_ReturnsRankedPassages(t *testing.T) {
	retrieval := &stubRetrieval{contexts: []domain.RetrievedContext{
		{Content: "Berlin is the capital.", Filename: "geo.pdf", PageStart: 4, PageEnd: 4, Score: 0.91, Citation: 1},
	}}
	server := NewServer(&stubIngest{}, &stubLibrary{files: map[string]*domain.File{}}, &stubChat{}, retrieval, t.TempDir())

	body := `{"query": "capital?", "top_k": 3, "file_ids": ["f1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, retrieval.lastOpts.TopK)
	assert.Equal(t, []string{"f1"}, retrieval.lastOpts.FileIDs)

	var out struct {
		Results []struct {
			Content  string  `json:"content"`
			Filename string  `json:"filename"`
			Score    float32 `json:"score"`
			Citation int     `json:"citation"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Berlin is the capital.", out.Results[0].Content)
	assert.Equal(t, 1, out.Results[0].Citation)
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	server := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth_ReportsLibraryCounts(t *testing.T) {
	library := &stubLibrary{files: map[string]*domain.File{
		"f1": {ID: "f1", Status: domain.StatusIndexed, ChunkCount: 10},
		"f2": {ID: "f2", Status: domain.StatusProcessing},
	}}
	server := newTestServer(t, nil, library, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Status        string `json:"status"`
		Files         int    `json:"files"`
		IndexedFiles  int    `json:"indexed_files"`
		IndexedChunks int    `json:"indexed_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, 2, out.Files)
	assert.Equal(t, 1, out.IndexedFiles)
	assert.Equal(t, 10, out.IndexedChunks)
}
