package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

type mockLibrary struct {
	files     []domain.File
	getErr    error
	delChunks int
	delErr    error
	deleted   []string
}

var _ driving.LibraryService = (*mockLibrary)(nil)

func (m *mockLibrary) GetFile(_ context.Context, id string) (*domain.File, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.files {
		if m.files[i].ID == id {
			return &m.files[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockLibrary) ListFiles(_ context.Context) ([]domain.File, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.files, nil
}

func (m *mockLibrary) DeleteFile(_ context.Context, id string) (int, error) {
	if m.delErr != nil {
		return 0, m.delErr
	}
	m.deleted = append(m.deleted, id)
	return m.delChunks, nil
}

type mockIngest struct {
	reqs    []driving.IngestRequest
	results []driving.BatchResult
}

var _ driving.IngestService = (*mockIngest)(nil)

func (m *mockIngest) Ingest(_ context.Context, req driving.IngestRequest) (*domain.File, error) {
	m.reqs = append(m.reqs, req)
	return &domain.File{Filename: req.Filename, Status: domain.StatusIndexed}, nil
}

func (m *mockIngest) IngestAsync(_ context.Context, req driving.IngestRequest) (*domain.File, error) {
	m.reqs = append(m.reqs, req)
	return &domain.File{Filename: req.Filename, Status: domain.StatusProcessing}, nil
}

func (m *mockIngest) IngestBatch(_ context.Context, reqs []driving.IngestRequest) []driving.BatchResult {
	m.reqs = append(m.reqs, reqs...)
	if m.results != nil {
		return m.results
	}
	results := make([]driving.BatchResult, len(reqs))
	for i, req := range reqs {
		results[i] = driving.BatchResult{File: &domain.File{
			ID:         "file-" + req.Filename,
			Filename:   req.Filename,
			Status:     domain.StatusIndexed,
			ChunkCount: 2,
			TotalPages: 1,
		}}
	}
	return results
}

func (m *mockIngest) Wait() {}

type mockChat struct {
	events  []driven.StreamEvent
	sources []domain.Source
	err     error
	lastQ   string
	lastOpt driving.RetrieveOptions
}

var _ driving.ChatService = (*mockChat)(nil)

func (m *mockChat) Ask(_ context.Context, question string, _ []driven.Message, opts driving.RetrieveOptions) (<-chan driven.StreamEvent, []domain.Source, error) {
	m.lastQ = question
	m.lastOpt = opts
	if m.err != nil {
		return nil, nil, m.err
	}
	events := make(chan driven.StreamEvent, len(m.events))
	for _, event := range m.events {
		events <- event
	}
	close(events)
	return events, m.sources, nil
}

type mockRetrieval struct {
	contexts []domain.RetrievedContext
	err      error
	lastOpt  driving.RetrieveOptions
}

var _ driving.RetrievalService = (*mockRetrieval)(nil)

func (m *mockRetrieval) Retrieve(_ context.Context, _ string, opts driving.RetrieveOptions) ([]domain.RetrievedContext, []domain.Source, error) {
	m.lastOpt = opts
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.contexts, nil, nil
}
