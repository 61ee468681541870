// Package notifier delivers new-article alerts to chat webhooks.
// It defines the Notifier interface so Discord, Slack and the WeCom, DingTalk
// and Feishu robots can be used interchangeably through dependency injection.
//
// The package also provides a no-op notifier for when a channel is disabled.
package notifier

import (
	"context"

	"werss-client/internal/domain/entity"
)

// Notifier sends alerts about newly detected articles.
// Implementations handle rate limiting, retries and error logging internally.
type Notifier interface {
	// NotifyAlert sends one message summarizing alert.
	//
	// Implementations should:
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Log attempts with the request id found in ctx
	//   - Respect context cancellation
	NotifyAlert(ctx context.Context, alert entity.ArticleAlert) error
}
