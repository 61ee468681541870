package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
)

func newTestDiscord(url string) *DiscordNotifier {
	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: url, Timeout: 5 * time.Second})
	n.retry = fastRetry()
	return n
}

func TestDiscordNotifier_buildEmbedPayload(t *testing.T) {
	// Arrange
	n := newTestDiscord("https://discord.example/webhook")
	alert := sampleAlert()

	// Act
	payload := n.buildEmbedPayload(alert)

	// Assert
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, "WeRSS - 2 new articles", embed.Title)
	assert.Equal(t, "https://mp.weixin.qq.com/s/a1", embed.URL)
	assert.Equal(t, discordBlueColor, embed.Color)
	assert.Equal(t, "2025-03-01T08:00:00Z", embed.Timestamp)
	assert.Equal(t, strings.Join([]string{
		"Detected 2 new articles (total 120).",
		"- [Gopher Weekly · Go 1.25 released](https://mp.weixin.qq.com/s/a1)",
		"- [Draft](https://mp.weixin.qq.com/s/a2)",
	}, "\n"), embed.Description)
}

func TestDiscordNotifier_buildEmbedPayload_TruncatesDescription(t *testing.T) {
	n := newTestDiscord("https://discord.example/webhook")
	alert := entity.ArticleAlert{Count: 500, Total: 500}
	for i := 0; i < 500; i++ {
		alert.Recent = append(alert.Recent, entity.Article{Title: strings.Repeat("x", 40), URL: "https://example.com/" + strings.Repeat("y", 20)})
	}

	payload := n.buildEmbedPayload(alert)

	desc := payload.Embeds[0].Description
	assert.LessOrEqual(t, len(desc), maxDescriptionLength)
	assert.True(t, strings.HasSuffix(desc, truncationSuffix))
}

func TestDiscordNotifier_NotifyAlert(t *testing.T) {
	t.Run("posts embed with request id", func(t *testing.T) {
		// Arrange
		h := &recordingHandler{t: t, statuses: []int{http.StatusNoContent}}
		server := httptest.NewServer(h)
		defer server.Close()
		n := newTestDiscord(server.URL)
		ctx := requestid.WithRequestID(context.Background(), "req-42")

		// Act
		err := n.NotifyAlert(ctx, sampleAlert())

		// Assert
		require.NoError(t, err)
		assert.EqualValues(t, 1, h.calls.Load())
		assert.Equal(t, "application/json", h.lastHeader().Get("Content-Type"))
		assert.Equal(t, "req-42", h.lastHeader().Get(requestid.RequestIDHeader))
		var payload DiscordWebhookPayload
		h.decode(&payload)
		assert.Equal(t, "WeRSS - 2 new articles", payload.Embeds[0].Title)
	})

	t.Run("retries server errors", func(t *testing.T) {
		h := &recordingHandler{t: t, statuses: []int{http.StatusBadGateway, http.StatusOK}}
		server := httptest.NewServer(h)
		defer server.Close()

		err := newTestDiscord(server.URL).NotifyAlert(context.Background(), sampleAlert())

		require.NoError(t, err)
		assert.EqualValues(t, 2, h.calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		h := &recordingHandler{t: t, statuses: []int{http.StatusBadRequest}, body: `{"message":"Invalid Form Body"}`}
		server := httptest.NewServer(h)
		defer server.Close()

		err := newTestDiscord(server.URL).NotifyAlert(context.Background(), sampleAlert())

		require.Error(t, err)
		var clientErr *ClientError
		require.True(t, errors.As(err, &clientErr))
		assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
		assert.Contains(t, clientErr.Message, "Invalid Form Body")
		assert.EqualValues(t, 1, h.calls.Load())
	})

	t.Run("honours retry_after on 429", func(t *testing.T) {
		h := &recordingHandler{t: t, statuses: []int{http.StatusTooManyRequests, http.StatusOK}, body: `{"retry_after":0.01}`}
		server := httptest.NewServer(h)
		defer server.Close()
		n := newTestDiscord(server.URL)
		n.retry.InitialDelay = time.Hour

		start := time.Now()
		err := n.NotifyAlert(context.Background(), sampleAlert())

		require.NoError(t, err)
		assert.EqualValues(t, 2, h.calls.Load())
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		h := &recordingHandler{t: t, statuses: []int{http.StatusServiceUnavailable}}
		server := httptest.NewServer(h)
		defer server.Close()

		err := newTestDiscord(server.URL).NotifyAlert(context.Background(), sampleAlert())

		require.Error(t, err)
		var serverErr *ServerError
		assert.True(t, errors.As(err, &serverErr))
		assert.Contains(t, err.Error(), "discord notification failed")
		assert.EqualValues(t, 2, h.calls.Load())
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		h := &recordingHandler{t: t, statuses: []int{http.StatusOK}}
		server := httptest.NewServer(h)
		defer server.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTestDiscord(server.URL).NotifyAlert(ctx, sampleAlert())

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, h.calls.Load())
	})
}

func TestNewDiscordNotifier(t *testing.T) {
	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: "https://discord.example", Timeout: 15 * time.Second})

	assert.Equal(t, 15*time.Second, n.httpClient.Timeout)
	assert.Equal(t, 3, n.rateLimiter.Burst())
	assert.Equal(t, 2, n.retry.MaxAttempts)
}
