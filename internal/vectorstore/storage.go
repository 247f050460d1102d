package vectorstore

import (
	"context"

	"landmarks/internal/domain"
)

// Query is one semantic search against a passage backend.
type Query struct {
	Text       string
	TopK       int
	LandmarkID string
	MinScore   float64
}

// Hit is a raw scored result. Metadata is the backend's loosely typed sub-mapping
// (title, page, landmark_id and anything else it carries).
type Hit struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// Storage answers semantic queries over designation-report passages.
type Storage interface {
	Query(ctx context.Context, q Query) ([]Hit, error)
}

// Indexer is implemented by backends that can be populated from local files.
type Indexer interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Clear(ctx context.Context) error
}

// ChunkMetadata is the payload stored with an indexed chunk and returned as Hit.Metadata.
func ChunkMetadata(c domain.Chunk) map[string]any {
	m := map[string]any{
		"document_id": c.DocumentID,
		"chunk_id":    c.ChunkID,
		"index":       c.Index,
	}
	if c.Title != "" {
		m["title"] = c.Title
	}
	if c.LandmarkID != "" {
		m["landmark_id"] = c.LandmarkID
	}
	if c.Page > 0 {
		m["page"] = c.Page
	}
	return m
}
