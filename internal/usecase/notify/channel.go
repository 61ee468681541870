// Package notify fans new-article alerts out to remote delivery channels.
// Each channel (Discord, Slack, chat robot webhooks) is served by its own
// goroutine with a bounded worker pool, a per-channel circuit breaker and
// Prometheus metrics.
package notify

import (
	"context"

	"werss-client/internal/domain/entity"
)

// Channel represents a notification delivery channel.
// Each channel implementation handles its own rate limiting, retries, and
// error handling.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): Retry with exponential backoff (max 2 attempts)
//   - Rate limits (429): Wait for retry_after, then retry
//   - Client errors (4xx except 429): No retry
//   - Context timeout: No retry
//
// All methods must be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier used in logs, metrics labels and
	// the health endpoint. It must be unique within a Service.
	Name() string

	// IsEnabled reports whether the channel should receive alerts.
	IsEnabled() bool

	// Send delivers alert to this channel.
	//
	// Returns:
	//   - ErrChannelDisabled: If Send() is called on a disabled channel
	//   - ErrInvalidAlert: If alert.Count is not positive
	//   - Network/API errors: Wrapped with context
	Send(ctx context.Context, alert entity.ArticleAlert) error
}
