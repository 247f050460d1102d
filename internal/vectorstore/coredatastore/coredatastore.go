package coredatastore

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"landmarks/internal/domain"
	"landmarks/internal/restclient"
	"landmarks/internal/vectorstore"
)

// Storage queries the hosted CoreDataStore vector search API.
type Storage struct {
	rest   *restclient.Client
	logger *zap.Logger
}

// NewStorage wraps a configured REST client.
func NewStorage(rest *restclient.Client, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{rest: rest, logger: logger.Named("coredatastore")}
}

type queryRequest struct {
	Query    string            `json:"query"`
	TopK     int               `json:"top_k"`
	Filters  map[string]string `json:"filters,omitempty"`
	MinScore float64           `json:"min_score,omitempty"`
}

type queryResponse struct {
	Results []any `json:"results"`
}

// Query posts to {base}/query. The landmark filter and min_score are only sent when set.
func (s *Storage) Query(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error) {
	req := queryRequest{Query: q.Text, TopK: q.TopK, MinScore: q.MinScore}
	if q.LandmarkID != "" {
		req.Filters = map[string]string{"landmark_id": q.LandmarkID}
	}
	var resp queryResponse
	if err := s.rest.PostJSON(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}
	return s.decodeHits(resp.Results), nil
}

// GetDocument fetches one stored document by id, or nil when it does not exist.
func (s *Storage) GetDocument(ctx context.Context, id string) (map[string]any, error) {
	var doc map[string]any
	err := s.rest.GetJSON(ctx, "/document/"+url.PathEscape(id), nil, &doc)
	if domain.IsType(err, domain.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("document lookup failed", zap.String("document_id", id), zap.Error(err))
		return nil, err
	}
	return doc, nil
}

// LandmarkChunks returns up to topK chunks of one landmark using a wildcard query.
func (s *Storage) LandmarkChunks(ctx context.Context, landmarkID string, topK int) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		topK = 10
	}
	req := queryRequest{Query: "*", TopK: topK, Filters: map[string]string{"landmark_id": landmarkID}}
	var resp queryResponse
	if err := s.rest.PostJSON(ctx, "/query", req, &resp); err != nil {
		s.logger.Error("landmark chunk lookup failed", zap.String("landmark_id", landmarkID), zap.Error(err))
		return nil, err
	}
	return s.decodeHits(resp.Results), nil
}

func (s *Storage) decodeHits(items []any) []vectorstore.Hit {
	hits := make([]vectorstore.Hit, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			s.logger.Warn("skipping non-object search result")
			continue
		}
		score, ok := m["score"].(float64)
		if !ok {
			s.logger.Warn("skipping search result without numeric score")
			continue
		}
		h := vectorstore.Hit{Score: score}
		switch id := m["id"].(type) {
		case string:
			h.ID = id
		case float64:
			h.ID = strconv.FormatFloat(id, 'f', -1, 64)
		}
		h.Text, _ = m["text"].(string)
		h.Metadata, _ = m["metadata"].(map[string]any)
		hits = append(hits, h)
	}
	return hits
}
