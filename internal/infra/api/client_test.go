package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/resilience/circuitbreaker"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"localhost:8001", "ftp://host/api", "http://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := New(Config{BaseURL: raw})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, 15*time.Second, c.cfg.Timeout)
	assert.Nil(t, c.limiter, "zero RateLimit disables limiting")

	limited, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, limited.limiter)
}

func TestClient_SendsHeaders(t *testing.T) {
	// Arrange
	var got http.Header
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.Path
		writeOK(w, map[string]any{"id": "a1", "title": "hello"})
	})
	ctx := requestid.WithRequestID(context.Background(), "req-from-daemon")

	// Act
	a, err := c.GetArticle(ctx, "a1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hello", a.Title)
	assert.Equal(t, "/api/v1/wx/articles/a1", path)
	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, "req-from-daemon", got.Get("X-Request-ID"))
	assert.Equal(t, defaultUserAgent, got.Get("User-Agent"))
}

func TestClient_GeneratesRequestID(t *testing.T) {
	var id string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id = r.Header.Get("X-Request-ID")
		writeOK(w, map[string]any{"list": []any{}, "total": 0})
	})

	_, err := c.CountArticles(context.Background())

	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestClient_RetriesGETOnServerError(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeOK(w, map[string]any{"list": []any{}, "total": 42})
	})

	// Act
	total, err := c.CountArticles(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.DeleteArticle(context.Background(), "a1")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeDetail(w, http.StatusNotFound, 40401, "article does not exist")
	})

	_, err := c.GetArticle(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "article does not exist", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(cfg *Config) {
		cfg.Retry.MaxAttempts = 1
		cfg.Breaker = circuitbreaker.Config{
			Name:             "test-api",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      2,
		}
	})
	ctx := context.Background()

	// Act
	_, err1 := c.CountArticles(ctx)
	_, err2 := c.CountArticles(ctx)
	_, err3 := c.CountArticles(ctx)

	// Assert
	require.Error(t, err1)
	require.Error(t, err2)
	assert.ErrorIs(t, err3, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the server")
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeDetail(w, http.StatusNotFound, 40401, "gone")
	}, func(cfg *Config) {
		cfg.Breaker = circuitbreaker.Config{
			Name: "test-api", MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute,
			FailureThreshold: 0.5, MinRequests: 2,
		}
	})

	for i := 0; i < 5; i++ {
		_, err := c.GetArticle(context.Background(), "x")
		require.ErrorIs(t, err, ErrNotFound)
	}

	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_RecordsSpan(t *testing.T) {
	// Arrange
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotAcceptable, 40403, "no previous article")
	})

	// Act
	_, err := c.PrevArticle(context.Background(), "a1")

	// Assert
	require.ErrorIs(t, err, ErrNoAdjacentArticle)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "api GET /wx/articles/{id}/prev", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestClient_RecordsMetrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, nil)
	})
	counter := apiRequestsTotal.WithLabelValues(http.MethodPut, "/wx/message_tasks/job/fresh", "200")
	before := counterValue(t, counter)

	require.NoError(t, c.RefreshJobs(context.Background()))

	assert.Equal(t, before+1, counterValue(t, counter))
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, nil)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListTags(ctx, 0, 0)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_FeedURL(t *testing.T) {
	tests := []struct {
		base string
		mpID string
		want string
	}{
		{base: "http://localhost:8001/api/v1", mpID: "MP_WXS_123", want: "http://localhost:8001/feed/MP_WXS_123.rss"},
		{base: "https://rss.example.com/api/v1/", mpID: "abc", want: "https://rss.example.com/feed/abc.rss"},
		{base: "https://rss.example.com/api/v1", mpID: "a b", want: "https://rss.example.com/feed/a%20b.rss"},
	}
	for _, tt := range tests {
		c, err := New(Config{BaseURL: tt.base})
		require.NoError(t, err)

		assert.Equal(t, tt.want, c.FeedURL(tt.mpID))
	}
}
