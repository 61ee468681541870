package notify

import (
	"context"

	"werss-client/internal/domain/entity"
	"werss-client/internal/infra/notifier"
)

// NotifierChannel adapts a notifier.Notifier to the Channel interface.
// A disabled channel wraps a NoOpNotifier so the contract always holds.
type NotifierChannel struct {
	name     string
	notifier notifier.Notifier
	enabled  bool
}

// NewNotifierChannel wraps n under the given channel name.
func NewNotifierChannel(name string, n notifier.Notifier, enabled bool) *NotifierChannel {
	if !enabled || n == nil {
		n = notifier.NewNoOpNotifier()
	}
	return &NotifierChannel{name: name, notifier: n, enabled: enabled}
}

// NewDiscordChannel creates the "discord" channel.
func NewDiscordChannel(config notifier.DiscordConfig) *NotifierChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewDiscordNotifier(config)
	}
	return NewNotifierChannel("discord", n, config.Enabled)
}

// NewSlackChannel creates the "slack" channel.
func NewSlackChannel(config notifier.SlackConfig) *NotifierChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewSlackNotifier(config)
	}
	return NewNotifierChannel("slack", n, config.Enabled)
}

// NewWebhookChannel creates a chat robot channel. The name defaults to the
// detected robot kind (wecom, dingtalk, feishu or custom).
func NewWebhookChannel(name string, config notifier.WebhookConfig) *NotifierChannel {
	if name == "" {
		name = string(notifier.DetectWebhookKind(config.URL))
	}
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewWebhookNotifier(config)
	}
	return NewNotifierChannel(name, n, config.Enabled)
}

// Name returns the channel identifier.
func (c *NotifierChannel) Name() string {
	return c.name
}

// IsEnabled returns whether the channel is enabled via configuration.
func (c *NotifierChannel) IsEnabled() bool {
	return c.enabled
}

// Send validates the alert and delegates to the underlying notifier, which
// handles rate limiting, retries and context cancellation.
func (c *NotifierChannel) Send(ctx context.Context, alert entity.ArticleAlert) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if alert.Count <= 0 {
		return ErrInvalidAlert
	}
	return c.notifier.NotifyAlert(ctx, alert)
}
