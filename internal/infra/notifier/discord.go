package notifier

import (
	"context"
	"net/http"
	"strings"
	"time"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier sends alerts to Discord via webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retry.Config
}

// NewDiscordNotifier creates a new DiscordNotifier with the specified configuration.
//
// The notifier is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 0.5 requests/second with burst of 3
//     (Discord Webhook limit: 30 requests per minute = 0.5 req/s)
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(0.5, 3), // 0.5 req/s (30 req/min), burst of 3
		retry:       webhookRetryConfig(),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url,omitempty"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096

	// Discord blue color (#5865F2)
	discordBlueColor = 5793266
)

// buildEmbedPayload creates a Discord webhook payload from an alert.
//
// The payload includes:
//   - Title: "WeRSS - N new articles"
//   - Description: summary sentence followed by linked recent titles
//     (truncated to 4096 chars)
//   - URL: link of the newest article, when known
//   - Footer: observed total
//   - Timestamp: detection time in RFC3339 format
func (d *DiscordNotifier) buildEmbedPayload(alert entity.ArticleAlert) DiscordWebhookPayload {
	title := truncateText(alertHeadline(alert), maxTitleLength, "")

	parts := append([]string{alertSummary(alert)}, alertLines(alert, "- [%s](%s)")...)
	description := truncateText(strings.Join(parts, "\n"), maxDescriptionLength, truncationSuffix)

	embed := DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       discordBlueColor,
		Footer: DiscordEmbedFooter{
			Text: "WeRSS",
		},
		Timestamp: alert.DetectedAt.Format(time.RFC3339),
	}
	if len(alert.Recent) > 0 {
		embed.URL = alert.Recent[0].SourceURL()
	}

	return DiscordWebhookPayload{
		Embeds: []DiscordEmbed{embed},
	}
}

// sendWebhookRequest posts one embed message.
func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, alert entity.ArticleAlert) error {
	return postJSON(ctx, d.httpClient, "Discord", d.config.WebhookURL, d.buildEmbedPayload(alert), nil)
}

// NotifyAlert sends a Discord notification for newly detected articles.
// This method implements the Notifier interface.
//
// Retry strategy:
//   - Max attempts: 2
//   - 429 errors: wait for retry_after from the Discord response
//   - Server errors (5xx): backoff of 5s
//   - Client errors (4xx): no retry
func (d *DiscordNotifier) NotifyAlert(ctx context.Context, alert entity.ArticleAlert) error {
	return deliver(ctx, d.rateLimiter, d.retry, "Discord", alert, func(ctx context.Context) error {
		return d.sendWebhookRequest(ctx, alert)
	})
}
