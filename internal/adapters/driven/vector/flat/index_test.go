package flat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelm/notelm/internal/core/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, 3)
	require.NoError(t, err)
	return s, path
}

func TestOpen_InvalidDimension(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdd_ContiguousMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	ids, err := s.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, ids)

	more, err := s.Add(ctx, [][]float32{{1, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, more)
}

func TestAdd_NoReuseAfterRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	ids, err := s.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Len())

	next, err := s.Add(ctx, [][]float32{{0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, next)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Add(context.Background(), [][]float32{{1, 0, 0}, {1, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	// Nothing committed from the failed batch
	assert.Equal(t, 0, s.Len())
}

func TestSearch_SelfSimilarityIsOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	v := []float32{2, 3, 6} // non-unit on purpose
	ids, err := s.Add(ctx, [][]float32{v})
	require.NoError(t, err)

	hits, err := s.Search(ctx, v, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[0], hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestSearch_RankedDescending(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Add(ctx, [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(0), hits[0].ID)
	assert.Equal(t, int64(1), hits[1].ID)
	assert.Equal(t, int64(2), hits[2].ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestSearch_EmptyIndex(t *testing.T) {
	s, _ := newTestStore(t)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRemove_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	ids, err := s.Add(ctx, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	first, err := s.Remove(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := s.Remove(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestRemove_UnknownIDsIgnored(t *testing.T) {
	s, _ := newTestStore(t)

	removed, err := s.Remove(context.Background(), []int64{42, 99})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestPersist_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	ids, err := s.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}})
	require.NoError(t, err)
	_, err = s.Remove(ctx, []int64{ids[1]})
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx))

	// Fresh instance over the same file
	reloaded, err := Open(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	// Identical search results
	want, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	got, err := reloaded.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Counter survived: the next ID is strictly greater than any
	// previously persisted one, despite the removal.
	next, err := reloaded.Add(ctx, [][]float32{{0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, next)
}

func TestOpen_CorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a bbolt file"), 0600))

	s, err := Open(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	// Still usable after recovery
	ids, err := s.Add(context.Background(), [][]float32{{1, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, ids)
}

func TestOpen_DimensionChangeTreatedAsCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path, 3)
	require.NoError(t, err)
	_, err = s.Add(ctx, [][]float32{{1, 0, 0}})
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx))

	reopened, err := Open(path, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestNormalise_ZeroVector(t *testing.T) {
	out := normalise([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, out)
}
