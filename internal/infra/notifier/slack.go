package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier sends alerts to Slack via Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retry.Config
}

// NewSlackNotifier creates a new SlackNotifier.
// The rate limiter allows 1 request/second with burst of 1, Slack's webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
		retry:       webhookRetryConfig(),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxFallbackLength    = 150
)

// buildBlockKitPayload creates a Block Kit message with a section listing the
// recent articles and a context line carrying the detection time.
func (s *SlackNotifier) buildBlockKitPayload(alert entity.ArticleAlert) SlackWebhookPayload {
	fallbackText := truncateText(alertHeadline(alert), maxFallbackLength, truncationSuffix)

	parts := append([]string{"*" + alertHeadline(alert) + "*", alertSummary(alert)}, alertLines(alert, "- <%[2]s|%[1]s>")...)
	sectionText := truncateText(strings.Join(parts, "\n"), maxSectionTextLength, truncationSuffix)

	contextText := fmt.Sprintf("WeRSS • %s", alert.DetectedAt.Format(time.RFC3339))

	return SlackWebhookPayload{
		Text: fallbackText,
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: &SlackTextObject{Type: "mrkdwn", Text: sectionText},
			},
			{
				Type:     "context",
				Elements: []SlackTextObject{{Type: "mrkdwn", Text: contextText}},
			},
		},
	}
}

// NotifyAlert sends a Slack notification for newly detected articles.
// This method implements the Notifier interface.
func (s *SlackNotifier) NotifyAlert(ctx context.Context, alert entity.ArticleAlert) error {
	return deliver(ctx, s.rateLimiter, s.retry, "Slack", alert, func(ctx context.Context) error {
		return postJSON(ctx, s.httpClient, "Slack", s.config.WebhookURL, s.buildBlockKitPayload(alert), nil)
	})
}
