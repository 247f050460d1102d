package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"landmarks/internal/domain"
	"landmarks/internal/embedding"
	"landmarks/internal/vectorstore"
)

// Storage is an in-process passage index using brute-force cosine similarity.
// Vectors are assumed L2-normalised, so similarity is a dot product.
type Storage struct {
	mu        sync.RWMutex
	embedder  embedding.Embedder
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// NewStorage creates an empty index that embeds queries with embedder.
func NewStorage(embedder embedding.Embedder) *Storage { return &Storage{embedder: embedder} }

// Init resets the index for vectors of the given dimension.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks with their vectors.
func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), s.dimension)
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Clear drops every indexed chunk.
func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Len returns the number of indexed chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Query embeds the text and returns the best chunks, optionally restricted to one landmark.
func (s *Storage) Query(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error) {
	vector, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(s.chunks))
	for i := range s.chunks {
		if q.LandmarkID != "" && s.chunks[i].LandmarkID != q.LandmarkID {
			continue
		}
		score := dot(s.vectors[i], vector)
		if score < q.MinScore {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: score})
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].score > candidates[b].score })
	if topK > len(candidates) {
		topK = len(candidates)
	}

	hits := make([]vectorstore.Hit, 0, topK)
	for _, c := range candidates[:topK] {
		chunk := s.chunks[c.idx]
		hits = append(hits, vectorstore.Hit{
			ID:       chunkID(chunk),
			Text:     chunk.Text,
			Score:    c.score,
			Metadata: vectorstore.ChunkMetadata(chunk),
		})
	}
	return hits, nil
}

func chunkID(c domain.Chunk) string {
	if c.ChunkID != "" {
		return c.ChunkID
	}
	return fmt.Sprintf("%s:%d", c.DocumentID, c.Index)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
