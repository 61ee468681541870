package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/resilience/retry"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// Common webhook error types shared by every notifier.

// RateLimitError represents a 429 rate limit error from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// Unwrap exposes the wait hint to retry.WithBackoff.
func (e *RateLimitError) Unwrap() error {
	return &retry.HTTPError{StatusCode: http.StatusTooManyRequests, Message: e.Message, RetryAfter: e.RetryAfter}
}

// ClientError represents a 4xx client error, or a 2xx reply whose body
// reports a failure. It is never retried.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Unwrap lets retry.WithBackoff classify the failure as retryable.
func (e *ServerError) Unwrap() error {
	return &retry.HTTPError{StatusCode: e.StatusCode, Message: e.Message}
}

// is429Error checks if the error is a rate limit error and extracts retry_after.
func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// webhookRetryConfig is the delivery policy shared by all webhook notifiers:
// two attempts, 5s then 10s backoff.
func webhookRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    2,
		InitialDelay:   5 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

// postJSON sends payload to url and classifies the response.
//
// Error types:
//   - 429: RateLimitError (retryable, carries the wait hint)
//   - 4xx: ClientError (not retryable)
//   - 5xx: ServerError (retryable)
//   - Network error: returned as is, retried when transient
//
// check, when set, inspects a 2xx body for service-level failures.
func postJSON(ctx context.Context, client *http.Client, service, url string, payload any, check func(body []byte) error) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.RequestIDHeader, id)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if check != nil {
			return check(body)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", service, truncateText(string(body), maxErrorBody, truncationSuffix)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", service, truncateText(string(body), maxErrorBody, truncationSuffix)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter reads the wait hint from a JSON body (retry_after, in
// seconds) or from the Retry-After header. It defaults to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var hint struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &hint); err == nil && hint.RetryAfter > 0 {
		return time.Duration(hint.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

// deliver rate-limits and then sends with retries. All attempts are logged
// with the request id carried by ctx.
func deliver(ctx context.Context, limiter *RateLimiter, cfg retry.Config, service string, alert entity.ArticleAlert, send func(context.Context) error) error {
	ctx, requestID := requestid.Ensure(ctx)
	logger := slog.With(
		slog.String("request_id", requestID),
		slog.String("service", service),
		slog.Int("new_articles", alert.Count))

	logger.Info("Starting webhook notification")

	if err := limiter.Allow(ctx); err != nil {
		logger.Error("Rate limiter error", slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	attempt := 0
	err := retry.WithBackoff(ctx, cfg, func() error {
		attempt++
		err := send(ctx)
		if rl, ok := is429Error(err); ok {
			logger.Warn("Webhook rate limit hit, backing off",
				slog.Duration("retry_after", rl.RetryAfter),
				slog.Int("attempt", attempt))
		}
		return err
	})
	if err != nil {
		logger.Error("Webhook notification failed",
			slog.Any("error", err),
			slog.Int("attempts", attempt))
		return fmt.Errorf("%s notification failed: %w", strings.ToLower(service), err)
	}

	logger.Info("Webhook notification successful", slog.Int("attempt", attempt))
	return nil
}

const truncationSuffix = "..."

// truncateText truncates text to maxLength bytes without splitting a rune.
// If truncated, suffix is appended to indicate continuation.
func truncateText(text string, maxLength int, suffix string) string {
	if len(text) <= maxLength {
		return text
	}

	truncateAt := maxLength - len(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}
	for truncateAt > 0 && !utf8.RuneStart(text[truncateAt]) {
		truncateAt--
	}
	return text[:truncateAt] + suffix
}

// alertHeadline is the one-line summary used as message title.
func alertHeadline(alert entity.ArticleAlert) string {
	return fmt.Sprintf("WeRSS - %d new articles", alert.Count)
}

// alertLines renders the recent articles as markdown list items.
// linkFormat receives the title and the link, in that order.
func alertLines(alert entity.ArticleAlert, linkFormat string) []string {
	lines := make([]string, 0, len(alert.Recent))
	for i := range alert.Recent {
		a := &alert.Recent[i]
		title := strings.TrimSpace(a.Title)
		if title == "" {
			title = "(untitled)"
		}
		if a.MpName != "" {
			title = fmt.Sprintf("%s · %s", a.MpName, title)
		}
		if link := a.SourceURL(); link != "" {
			lines = append(lines, fmt.Sprintf(linkFormat, title, link))
			continue
		}
		lines = append(lines, "- "+title)
	}
	return lines
}

// alertSummary is the plain sentence every channel starts with.
func alertSummary(alert entity.ArticleAlert) string {
	return fmt.Sprintf("Detected %d new articles (total %d).", alert.Count, alert.Total)
}
