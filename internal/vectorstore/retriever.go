package vectorstore

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"landmarks/internal/domain"
)

const (
	// RelevanceFloor is the lowest score a passage may have to reach a prompt.
	RelevanceFloor = 0.6
	defaultTopK    = 10
)

// Retriever turns raw backend hits into SourcePassages. Search never fails:
// backend errors are logged and produce an empty result.
type Retriever struct {
	storage  Storage
	minScore float64
	logger   *zap.Logger
}

// NewRetriever wraps storage. A minScore below RelevanceFloor is raised to it.
func NewRetriever(storage Storage, logger *zap.Logger, minScore float64) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minScore < RelevanceFloor {
		minScore = RelevanceFloor
	}
	return &Retriever{storage: storage, minScore: minScore, logger: logger.Named("retriever")}
}

// MinScore returns the effective relevance floor.
func (r *Retriever) MinScore() float64 { return r.minScore }

// Search returns passages scoring at least the floor, in backend order.
func (r *Retriever) Search(ctx context.Context, query string, topK int, landmarkID string) []domain.SourcePassage {
	if topK <= 0 {
		topK = defaultTopK
	}
	hits, err := r.storage.Query(ctx, Query{Text: query, TopK: topK, LandmarkID: landmarkID, MinScore: r.minScore})
	if err != nil {
		r.logger.Error("passage search failed", zap.String("landmark_id", landmarkID), zap.Error(err))
		return []domain.SourcePassage{}
	}
	passages := make([]domain.SourcePassage, 0, len(hits))
	for _, h := range hits {
		p, ok := toPassage(h)
		if !ok {
			r.logger.Warn("skipping malformed hit", zap.String("id", h.ID))
			continue
		}
		if p.RelevanceScore < r.minScore {
			continue
		}
		passages = append(passages, p)
	}
	r.logger.Debug("passages found", zap.Int("count", len(passages)), zap.Int("hits", len(hits)))
	return passages
}

func toPassage(h Hit) (domain.SourcePassage, bool) {
	if h.ID == "" || math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
		return domain.SourcePassage{}, false
	}
	meta := h.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	title, _ := meta["title"].(string)
	landmarkID, _ := meta["landmark_id"].(string)
	return domain.SourcePassage{
		Text:           h.Text,
		SourceID:       h.ID,
		SourceTitle:    title,
		PageNumber:     pageNumber(meta["page"]),
		ChunkID:        h.ID,
		RelevanceScore: h.Score,
		LandmarkID:     landmarkID,
		Metadata:       meta,
	}, true
}

func pageNumber(v any) *int {
	var n int
	switch p := v.(type) {
	case int:
		n = p
	case float64:
		if p != math.Trunc(p) {
			return nil
		}
		n = int(p)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	if n <= 0 {
		return nil
	}
	return &n
}
