package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

func TestErrorTypes_RetryClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rate limit", err: &RateLimitError{RetryAfter: time.Second}, retryable: true},
		{name: "server error", err: &ServerError{StatusCode: 502, Message: "bad gateway"}, retryable: true},
		{name: "client error", err: &ClientError{StatusCode: 400, Message: "bad request"}, retryable: false},
		{name: "wrapped server error", err: errors.Join(errors.New("send"), &ServerError{StatusCode: 500}), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retry.IsRetryable(tt.err))
		})
	}
}

func TestRateLimitError_Error(t *testing.T) {
	assert.Equal(t, "rate limit exceeded (retry after 5s)", (&RateLimitError{RetryAfter: 5 * time.Second}).Error())
	assert.Equal(t, "Discord rate limit exceeded (retry after 2s)",
		(&RateLimitError{Message: "Discord rate limit exceeded", RetryAfter: 2 * time.Second}).Error())

	var httpErr *retry.HTTPError
	assert.True(t, errors.As(&RateLimitError{RetryAfter: 3 * time.Second}, &httpErr))
	assert.Equal(t, 3*time.Second, httpErr.RetryAfter)
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{name: "json body", body: `{"retry_after": 2.5}`, want: 2500 * time.Millisecond},
		{name: "header", header: "10", body: `{}`, want: 10 * time.Second},
		{name: "default", body: `not json`, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, extractRetryAfter(resp, []byte(tt.body)))
		})
	}
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10, "..."))
	assert.Equal(t, "abcdefg...", truncateText("abcdefghijklmnop", 10, "..."))
	// Multi-byte runes are never split.
	assert.Equal(t, "新...", truncateText("新文章通知", 8, "..."))
}

func TestAlertLines_Untitled(t *testing.T) {
	lines := alertLines(entity.ArticleAlert{Recent: []entity.Article{{Title: "  "}}}, "- [%s](%s)")

	assert.Equal(t, []string{"- (untitled)"}, lines)
}

func TestPostJSON_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
	}))
	defer server.Close()

	err := postJSON(context.Background(), server.Client(), "Test", server.URL, map[string]string{"a": "b"}, nil)

	assert.ErrorContains(t, err, "unexpected status code 300")
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("burst passes immediately", func(t *testing.T) {
		limiter := NewRateLimiter(2.0, 3)
		start := time.Now()
		for i := 0; i < 3; i++ {
			assert.NoError(t, limiter.Allow(context.Background()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("exhausted bucket waits for context", func(t *testing.T) {
		limiter := NewRateLimiter(0.1, 1)
		assert.NoError(t, limiter.Allow(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.Error(t, limiter.Allow(ctx))
	})
}

func TestNoOpNotifier(t *testing.T) {
	var n Notifier = NewNoOpNotifier()
	assert.NoError(t, n.NotifyAlert(context.Background(), sampleAlert()))
}
