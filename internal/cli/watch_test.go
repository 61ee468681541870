package cli

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"werss-client/internal/config"
)

func TestBuildChannels(t *testing.T) {
	// Arrange
	cc := config.ChannelsConfig{
		Discord: config.WebhookEndpoint{Enabled: true, URL: "https://discord.com/api/webhooks/1/x"},
		Slack:   config.WebhookEndpoint{Enabled: false, URL: "https://hooks.slack.com/services/T/B/X"},
		Webhooks: []config.WebhookEndpoint{
			{Enabled: true, URL: "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=k"},
			{Name: "ops", Enabled: true, URL: "https://example.com/hook", Timeout: time.Second},
			{Name: "off", Enabled: false, URL: "https://example.com/off"},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Act
	channels := buildChannels(cc, logger)

	// Assert
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
		assert.True(t, ch.IsEnabled(), ch.Name())
	}
	assert.Equal(t, []string{"discord", "wecom", "ops"}, names)
}

func TestBuildChannels_NoneEnabled(t *testing.T) {
	channels := buildChannels(config.Default().Channels, slog.Default())

	assert.Empty(t, channels)
}
