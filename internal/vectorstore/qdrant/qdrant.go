package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"landmarks/internal/domain"
	"landmarks/internal/embedding"
	"landmarks/internal/restclient"
	"landmarks/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on Init.
type Storage struct {
	rest       *restclient.Client
	embedder   embedding.Embedder
	collection string
	logger     *zap.Logger
}

// NewStorage builds a Qdrant-backed passage store. rest must carry the api-key header if one is needed.
func NewStorage(rest *restclient.Client, embedder embedding.Embedder, collection string, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{rest: rest, embedder: embedder, collection: collection, logger: logger.Named("qdrant")}
}

func (s *Storage) collectionPath() string { return "/collections/" + s.collection }

// Init creates the collection for vectors of the given dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.rest.PutJSON(ctx, s.collectionPath(), body, nil)
}

// Upsert writes chunks as points. Point ids are name-based UUIDs of the chunk id
// so re-ingesting a file overwrites its points.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		id := c.ChunkID
		if id == "" {
			id = fmt.Sprintf("%s:%d", c.DocumentID, c.Index)
		}
		payload := vectorstore.ChunkMetadata(c)
		payload["chunk_id"] = id
		payload["text"] = c.Text
		points[i] = map[string]any{
			"id":      uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String(),
			"vector":  vectors[i],
			"payload": payload,
		}
	}
	return s.rest.PutJSON(ctx, s.collectionPath()+"/points?wait=true", map[string]any{"points": points}, nil)
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Query embeds the text and searches the collection.
func (s *Storage) Query(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error) {
	vector, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if q.MinScore > 0 {
		req["score_threshold"] = q.MinScore
	}
	if q.LandmarkID != "" {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{"key": "landmark_id", "match": map[string]any{"value": q.LandmarkID}},
			},
		}
	}
	var resp searchResponse
	if err := s.rest.PostJSON(ctx, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := vectorstore.Hit{Score: r.Score, Metadata: map[string]any{}}
		for k, v := range r.Payload {
			switch k {
			case "chunk_id":
				h.ID, _ = v.(string)
			case "text":
				h.Text, _ = v.(string)
			default:
				h.Metadata[k] = v
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.rest.Delete(ctx, s.collectionPath())
	if domain.IsType(err, domain.ErrorTypeNotFound) {
		return nil
	}
	return err
}
