package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notelm/notelm/internal/adapters/driven/storage/memory"
	"github.com/notelm/notelm/internal/adapters/driven/vector/flat"
	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/extract"
)

const testDim = 4

// stubEmbedder produces deterministic vectors without a provider.
type stubEmbedder struct {
	failBatch bool
	failQuery bool
	calls     int

	// queryVec, when set, is returned for single Embed calls.
	queryVec []float32
}

var _ driven.EmbeddingService = (*stubEmbedder)(nil)

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.failQuery {
		return nil, fmt.Errorf("provider unavailable: %w", domain.ErrEmbeddingFailed)
	}
	if e.queryVec != nil {
		return e.queryVec, nil
	}
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.failBatch {
		return nil, fmt.Errorf("provider unavailable: %w", domain.ErrEmbeddingFailed)
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = embedText(text)
	}
	return vecs, nil
}

func (e *stubEmbedder) Dimensions() int   { return testDim }
func (e *stubEmbedder) ModelName() string { return "stub" }
func (e *stubEmbedder) Close() error      { return nil }

// embedText maps text onto a crude but deterministic direction.
func embedText(text string) []float32 {
	vec := make([]float32, testDim)
	for i, r := range text {
		vec[i%testDim] += float32(r % 13)
	}
	vec[0] += 1 // never the zero vector
	return vec
}

// stubBlobStore records puts and deletes in memory.
type stubBlobStore struct {
	objects map[string]bool
	failPut bool
}

var _ driven.BlobStore = (*stubBlobStore)(nil)

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{objects: make(map[string]bool)}
}

func (b *stubBlobStore) Put(_ context.Context, _, key string) (string, error) {
	if b.failPut {
		return "", fmt.Errorf("object store unreachable")
	}
	b.objects[key] = true
	return key, nil
}

func (b *stubBlobStore) Delete(_ context.Context, storedPath string) error {
	delete(b.objects, storedPath)
	return nil
}

// testEnv wires real in-memory stores and a real flat index around the
// services under test.
type testEnv struct {
	files    *memory.FileStore
	chunks   *memory.ChunkStore
	queue    *memory.RemovalQueue
	purger   *memory.Purger
	vectors  *flat.Store
	embedder *stubEmbedder
	blobs    *stubBlobStore
	ingest   *IngestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	vectors, err := flat.Open(filepath.Join(t.TempDir(), "index.db"), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	env := &testEnv{
		files:    memory.NewFileStore(),
		chunks:   memory.NewChunkStore(),
		queue:    memory.NewRemovalQueue(),
		vectors:  vectors,
		embedder: &stubEmbedder{},
		blobs:    newStubBlobStore(),
	}
	env.purger = memory.NewPurger(env.files, env.chunks, env.queue)
	env.ingest = NewIngestService(env.files, env.chunks, vectors, env.embedder, env.blobs, env.queue, extract.New())
	return env
}

// stageFile writes content to a temp file posing as a staged upload.
func stageFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
