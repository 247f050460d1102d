package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
)

func fastRetry(attempts int) config.RetryConfig {
	return config.RetryConfig{MaxAttempts: attempts, InitialDelayMS: 1, MaxDelayMS: 5, Multiplier: 2}
}

func TestGetJSONDecodesAndSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "Flatiron"})
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL + "/", Headers: map[string]string{"api-key": "secret"}, Retry: fastRetry(3)}, zap.NewNop())
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/api/items", url.Values{"page": {"2"}}, &out))
	assert.Equal(t, "Flatiron", out["name"])
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(3)}, zap.NewNop())
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/query", map[string]any{"q": 1}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(3)}, zap.NewNop())
	err := c.GetJSON(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeTransport))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(3)}, zap.NewNop())
	err := c.GetJSON(context.Background(), "/missing", nil, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad filter", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(3)}, zap.NewNop())
	err := c.GetJSON(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "bad filter")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedBodyIsDataError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(2)}, zap.NewNop())
	var out map[string]any
	err := c.GetJSON(context.Background(), "/x", nil, &out)
	assert.True(t, domain.IsType(err, domain.ErrorTypeData))
}

func TestEmptyBodyLeavesOutUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(1)}, zap.NewNop())
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/x", nil, &out))
	assert.Nil(t, out)
}

func TestRetryAfterIsHonoredWithinCap(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{Name: "test", BaseURL: srv.URL, Retry: fastRetry(2)}, zap.NewNop())
	start := time.Now()
	require.NoError(t, c.GetJSON(context.Background(), "/x", nil, nil))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{
		Name:    "flaky",
		BaseURL: srv.URL,
		Retry:   fastRetry(1),
		Breaker: config.BreakerConfig{Enabled: true, MaxRequests: 1, IntervalSecs: 60, TimeoutSecs: 60, FailureThreshold: 0.5, MinRequests: 2},
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_ = c.GetJSON(context.Background(), "/x", nil, nil)
	}
	err := c.GetJSON(context.Background(), "/x", nil, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnavailable))
	assert.Equal(t, int32(2), calls.Load())
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var outcomes []string
	c := New(Config{Name: "obs", BaseURL: srv.URL, Retry: fastRetry(2)}, zap.NewNop(),
		WithObserver(func(upstream, outcome string, _ time.Duration) {
			assert.Equal(t, "obs", upstream)
			outcomes = append(outcomes, outcome)
		}))
	_ = c.GetJSON(context.Background(), "/x", nil, nil)
	assert.Equal(t, []string{"503", "503"}, outcomes)
}
