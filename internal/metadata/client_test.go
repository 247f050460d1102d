package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
	"landmarks/internal/restclient"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rest := restclient.New(restclient.Config{
		Name:    "metadata",
		BaseURL: srv.URL,
		Retry:   config.RetryConfig{MaxAttempts: 3, InitialDelayMS: 1, MaxDelayMS: 2},
	}, zap.NewNop())
	return NewClient(rest, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetLandmarkByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/LPCReport/LP-00001", r.URL.Path)
		writeJSON(w, map[string]any{
			"lpcNumber":      "LP-00001",
			"name":           "Flatiron Building",
			"borough":        "Manhattan",
			"architect":      "Daniel Burnham",
			"dateBuilt":      "1902",
			"dateDesignated": "1966-09-20T00:00:00",
			"latitude":       40.7411,
			"street":         "175 Fifth Avenue",
		})
	})

	d, err := c.GetLandmarkByID(context.Background(), "LP-00001")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "LP-00001", d.LPCID)
	assert.Equal(t, "Flatiron Building", d.Name)
	assert.Equal(t, "Manhattan", d.Location.Borough)
	assert.Equal(t, "175 Fifth Avenue", d.Location.Address)
	assert.InDelta(t, 40.7411, d.Location.Latitude, 1e-9)
	require.NotNil(t, d.Architect)
	assert.Equal(t, "Daniel Burnham", d.Architect.Name)
	require.NotNil(t, d.YearBuilt)
	assert.Equal(t, 1902, *d.YearBuilt)
	assert.Equal(t, time.Date(1966, 9, 20, 0, 0, 0, 0, time.UTC), d.Designation.DesignationDate)
	assert.Equal(t, "LP-00001", d.Designation.NYCLNumber)
}

func TestGetLandmarkByIDPrefersObjectID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"objectId": "LP-00002", "lpcNumber": "LP-99999", "name": "X"})
	})
	d, err := c.GetLandmarkByID(context.Background(), "LP-00002")
	require.NoError(t, err)
	assert.Equal(t, "LP-00002", d.LPCID)
}

func TestGetLandmarkByIDAbsent(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		d, err := c.GetLandmarkByID(context.Background(), "LP-00404")
		assert.NoError(t, err)
		assert.Nil(t, d)
	})
	t.Run("empty object", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{})
		})
		d, err := c.GetLandmarkByID(context.Background(), "LP-00404")
		assert.NoError(t, err)
		assert.Nil(t, d)
	})
}

func TestGetLandmarkByIDRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.GetLandmarkByID(context.Background(), "LP-00001")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeTransport))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchLandmarks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/LPCReports", r.URL.Path)
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "bank", q.Get("SearchText"))
		assert.Equal(t, "Brooklyn", q.Get("Borough"))
		assert.False(t, q.Has("Neighborhood"))
		assert.False(t, q.Has("ParentStyleList"))
		writeJSON(w, map[string]any{
			"total": 21,
			"results": []any{
				map[string]any{"lpcNumber": "LP-00010", "name": "Williamsburgh Savings Bank", "borough": "Brooklyn"},
				"garbage",
				map[string]any{"objectId": "LP-00011", "name": "Dime Savings Bank", "borough": "Brooklyn"},
			},
		})
	})

	page, err := c.SearchLandmarks(context.Background(), domain.LandmarkFilter{Query: "bank", Borough: "Brooklyn", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "LP-00010", page.Results[0].LPCID)
	assert.Equal(t, "LP-00011", page.Results[1].LPCID)
}

func TestGetLandmarkPhotos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "LP-00001", q.Get("LpcId"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "1", q.Get("page"))
		writeJSON(w, map[string]any{"results": []any{
			map[string]any{"url": "https://img/1.jpg", "title": "Front", "year": 1905, "is_historical": true},
			map[string]any{"title": "no url"},
		}})
	})

	photos, err := c.GetLandmarkPhotos(context.Background(), "LP-00001")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "https://img/1.jpg", photos[0].URL)
	assert.True(t, photos[0].IsHistorical)
	require.NotNil(t, photos[0].Year)
	assert.Equal(t, 1905, *photos[0].Year)
}

func TestGetLandmarkPhotosEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []any{}})
	})
	photos, err := c.GetLandmarkPhotos(context.Background(), "LP-00001")
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestFindLandmarkByName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, map[string]any{"total": 2, "results": []any{
			map[string]any{"lpcNumber": "LP-00100", "name": "Chrysler Building Annex"},
			map[string]any{"lpcNumber": "LP-00101", "name": "Flatiron Building"},
		}})
	})
	ctx := context.Background()

	got, err := c.FindLandmarkByName(ctx, "flatiron", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "LP-00101", got.LPCID)

	got, err = c.FindLandmarkByName(ctx, "FLATIRON BUILDING", true)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "LP-00101", got.LPCID)

	got, err = c.FindLandmarkByName(ctx, "Flatiron", true)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.FindLandmarkByName(ctx, "zzz", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "LP-00100", got.LPCID, "falls back to the first result")
}
