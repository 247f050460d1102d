package coredatastore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/restclient"
	"landmarks/internal/vectorstore"
)

func newStorage(t *testing.T, h http.HandlerFunc) *Storage {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rest := restclient.New(restclient.Config{
		Name:    "vectors",
		BaseURL: srv.URL,
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}, zap.NewNop())
	return NewStorage(rest, zap.NewNop())
}

func TestQuerySendsFiltersAndDecodes(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Flatiron history", body["query"])
		assert.Equal(t, float64(10), body["top_k"])
		assert.Equal(t, 0.6, body["min_score"])
		assert.Equal(t, map[string]any{"landmark_id": "LP-00004"}, body["filters"])
		_, _ = w.Write([]byte(`{"results":[
			{"id":"doc-1","text":"Built in 1902.","score":0.95,"metadata":{"title":"Designation Report","page":2}},
			{"id":7,"text":"numeric id","score":0.7},
			{"id":"doc-3","text":"no score"},
			"junk"
		]}`))
	})

	hits, err := s.Query(context.Background(), vectorstore.Query{Text: "Flatiron history", TopK: 10, LandmarkID: "LP-00004", MinScore: 0.6})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-1", hits[0].ID)
	assert.Equal(t, 0.95, hits[0].Score)
	assert.Equal(t, "Designation Report", hits[0].Metadata["title"])
	assert.Equal(t, "7", hits[1].ID)
	assert.Nil(t, hits[1].Metadata)
}

func TestQueryOmitsEmptyOptionalFields(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "filters")
		assert.NotContains(t, body, "min_score")
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	hits, err := s.Query(context.Background(), vectorstore.Query{Text: "q", TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLandmarkChunksUsesWildcard(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "*", body["query"])
		assert.Equal(t, map[string]any{"landmark_id": "LP-00001"}, body["filters"])
		_, _ = w.Write([]byte(`{"results":[{"id":"c1","text":"t","score":1}]}`))
	})
	hits, err := s.LandmarkChunks(context.Background(), "LP-00001", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)
}

func TestGetDocument(t *testing.T) {
	s := newStorage(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/document/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "/document/doc-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"doc-1","text":"full text"}`))
	})
	ctx := context.Background()

	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "full text", doc["text"])

	doc, err = s.GetDocument(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
