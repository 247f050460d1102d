package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
	"landmarks/internal/restclient"
	"landmarks/internal/vectorstore"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Name() string { return "fixed" }
func (fixedEmbedder) Prepare([]string) error { return nil }
func (fixedEmbedder) Dimension() int { return 2 }
func (fixedEmbedder) Embed(context.Context, string) ([]float64, error) { return []float64{1, 0}, nil }

func newStorage(t *testing.T, h http.HandlerFunc) *Storage {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rest := restclient.New(restclient.Config{
		Name:    "qdrant",
		BaseURL: srv.URL,
		Headers: map[string]string{"api-key": "k"},
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}, zap.NewNop())
	return NewStorage(rest, fixedEmbedder{}, "landmarks", zap.NewNop())
}

func TestQueryBuildsFilterAndDecodesPayload(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/landmarks/points/search", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 0.6, body["score_threshold"])
		assert.Equal(t, float64(3), body["limit"])
		filter := body["filter"].(map[string]any)["must"].([]any)[0].(map[string]any)
		assert.Equal(t, "landmark_id", filter["key"])
		_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{"chunk_id":"flatiron:0","text":"steel frame","landmark_id":"LP-00004","title":"Flatiron","page":1}}]}`))
	})

	hits, err := s.Query(context.Background(), vectorstore.Query{Text: "frame", TopK: 3, LandmarkID: "LP-00004", MinScore: 0.6})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "flatiron:0", hits[0].ID)
	assert.Equal(t, "steel frame", hits[0].Text)
	assert.Equal(t, "LP-00004", hits[0].Metadata["landmark_id"])
	assert.NotContains(t, hits[0].Metadata, "text")
}

func TestUpsertUsesStableUUIDs(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		defer mu.Unlock()
		for _, p := range body.Points {
			ids = append(ids, p.ID)
			assert.Equal(t, "LP-00004", p.Payload["landmark_id"])
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	chunk := domain.Chunk{DocumentID: "flatiron", ChunkID: "flatiron:0", LandmarkID: "LP-00004", Text: "t"}
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk}, [][]float64{{1, 0}}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk}, [][]float64{{1, 0}}))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	assert.Len(t, ids[0], 36)
}

func TestClearIgnoresMissingCollection(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, s.Clear(context.Background()))
}
