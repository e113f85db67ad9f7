// Package flat provides an exact similarity index over fixed-dimension
// vectors, persisted with bbolt.
//
// Vectors are L2-normalised on insert so inner-product search realises
// cosine similarity. IDs are allocated from a monotonic counter that is
// never rewound, even across removals and restarts: the persisted
// metadata record stores the next ID to allocate, not the live count.
// A corrupt index file is replaced with an empty index at load time so
// it cannot prevent service start; callers are warned through a
// high-severity log line since this discards previously indexed
// vectors.
package flat

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Bucket and key names in the index file.
var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")

	keyNextID      = []byte("total_vectors")
	keyDimension   = []byte("embedding_dim")
	keyLastUpdated = []byte("last_updated")
)

// Store is the flat index. A single mutex guards every operation; each
// add/search/remove/persist call is one critical section so ID
// allocation can never interleave with a search snapshot.
type Store struct {
	mu   sync.Mutex
	path string
	dim  int

	nextID  int64
	ids     []int64
	vectors [][]float32
	pos     map[int64]int
}

// Open loads a persisted index from path, or creates an empty one when
// the file is absent or unreadable. Load failure is recovered, not
// returned: a corrupt file must not prevent startup.
func Open(path string, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, dim)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	s := &Store{
		path: path,
		dim:  dim,
		pos:  make(map[int64]int),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("no vector index at %s, starting empty", path)
		return s, nil
	}

	if err := s.load(); err != nil {
		// Recovered locally but loudly: previously indexed vectors are
		// gone until their files are re-ingested.
		logger.Error("vector index at %s failed to load: %v; replacing with an empty index (%v)",
			path, err, domain.ErrIndexCorrupt)
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("could not remove corrupt index file: %v", rmErr)
		}
		s.reset()
	}
	return s, nil
}

// reset discards in-memory state.
func (s *Store) reset() {
	s.nextID = 0
	s.ids = nil
	s.vectors = nil
	s.pos = make(map[int64]int)
}

// load reads the persisted index file into memory.
func (s *Store) load() error {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		vectors := tx.Bucket(bucketVectors)
		if meta == nil || vectors == nil {
			return fmt.Errorf("index file missing buckets")
		}

		if raw := meta.Get(keyDimension); raw != nil {
			if dim := int(decodeInt64(raw)); dim != s.dim {
				return fmt.Errorf("index dimension %d, configured %d", dim, s.dim)
			}
		}

		count := 0
		err := vectors.ForEach(func(k, v []byte) error {
			vec, err := bytesToFloat32Slice(v)
			if err != nil {
				return err
			}
			if len(vec) != s.dim {
				return fmt.Errorf("stored vector has dimension %d, want %d", len(vec), s.dim)
			}
			id := decodeInt64(k)
			s.pos[id] = len(s.ids)
			s.ids = append(s.ids, id)
			s.vectors = append(s.vectors, vec)
			count++
			return nil
		})
		if err != nil {
			return err
		}

		// The counter is seeded from the metadata record; absent that,
		// fall back to the stored vector count so IDs still cannot
		// collide with anything on disk.
		if raw := meta.Get(keyNextID); raw != nil {
			s.nextID = decodeInt64(raw)
		} else {
			s.nextID = int64(count)
		}

		logger.Info("loaded vector index: %d vectors, next ID %d", count, s.nextID)
		return nil
	})
}

// Add normalises each vector and inserts it under a freshly allocated
// contiguous ID range. Returns the IDs in input order.
func (s *Store) Add(_ context.Context, vectors [][]float32) ([]int64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	for i, vec := range vectors {
		if len(vec) != s.dim {
			return nil, fmt.Errorf("%w: vector %d has length %d, want %d",
				domain.ErrDimensionMismatch, i, len(vec), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(vectors))
	for i, vec := range vectors {
		id := s.nextID + int64(i)
		ids[i] = id
		s.pos[id] = len(s.ids)
		s.ids = append(s.ids, id)
		s.vectors = append(s.vectors, normalise(vec))
	}
	s.nextID += int64(len(vectors))

	logger.Debug("added %d vectors, IDs %d..%d", len(vectors), ids[0], ids[len(ids)-1])
	return ids, nil
}

// Search returns up to k nearest vectors by cosine similarity,
// descending. An empty index yields an empty result.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has length %d, want %d",
			domain.ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalise(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := make([]driven.VectorHit, len(s.ids))
	for i, vec := range s.vectors {
		hits[i] = driven.VectorHit{ID: s.ids[i], Score: dot(q, vec)}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Remove deletes the given IDs if present; absent IDs are ignored.
// Removed IDs are never reclaimed.
func (s *Store) Remove(_ context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		i, ok := s.pos[id]
		if !ok {
			continue
		}

		// Swap-remove keeps the slices dense.
		last := len(s.ids) - 1
		s.ids[i] = s.ids[last]
		s.vectors[i] = s.vectors[last]
		s.pos[s.ids[i]] = i
		s.ids = s.ids[:last]
		s.vectors = s.vectors[:last]
		delete(s.pos, id)
		removed++
	}

	if removed > 0 {
		logger.Debug("removed %d vectors", removed)
	}
	return removed, nil
}

// Persist writes the full index and its metadata record in one bbolt
// transaction. The persisted counter is nextID, preserving no-reuse
// across restarts.
func (s *Store) Persist(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		// Full rewrite: the in-memory index is the source of truth.
		if tx.Bucket(bucketVectors) != nil {
			if err := tx.DeleteBucket(bucketVectors); err != nil {
				return err
			}
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}
		for i, id := range s.ids {
			if err := vectors.Put(encodeInt64(id), float32SliceToBytes(s.vectors[i])); err != nil {
				return err
			}
		}

		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyNextID, encodeInt64(s.nextID)); err != nil {
			return err
		}
		if err := meta.Put(keyDimension, encodeInt64(int64(s.dim))); err != nil {
			return err
		}
		return meta.Put(keyLastUpdated, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("persisting vector index: %w", err)
	}

	logger.Debug("persisted vector index: %d vectors, next ID %d", len(s.ids), s.nextID)
	return nil
}

// Dimensions returns the configured vector dimension.
func (s *Store) Dimensions() int {
	return s.dim
}

// Len returns the number of live vectors.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Close persists and releases the store.
func (s *Store) Close() error {
	return s.Persist(context.Background())
}

// normalise returns a unit-L2 copy of vec. The zero vector is returned
// unchanged.
func normalise(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
