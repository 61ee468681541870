package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

// ErrEmptyWebhookURL is returned when a webhook notifier has no target URL.
var ErrEmptyWebhookURL = errors.New("webhook url is empty")

// WebhookKind identifies the chat robot behind a webhook URL.
type WebhookKind string

const (
	KindWeCom    WebhookKind = "wecom"
	KindDingTalk WebhookKind = "dingtalk"
	KindFeishu   WebhookKind = "feishu"
	KindCustom   WebhookKind = "custom"
)

// DetectWebhookKind picks the payload format from the webhook host.
// Self-hosted Feishu deployments (open.feishu.<corp>.com) are recognised too.
func DetectWebhookKind(webhookURL string) WebhookKind {
	switch {
	case strings.Contains(webhookURL, "qyapi.weixin.qq.com"):
		return KindWeCom
	case strings.Contains(webhookURL, "oapi.dingtalk.com"):
		return KindDingTalk
	case strings.Contains(webhookURL, "open.feishu."):
		return KindFeishu
	default:
		return KindCustom
	}
}

// WebhookConfig contains configuration for a chat robot webhook.
type WebhookConfig struct {
	// Enabled indicates whether the webhook receives alerts
	Enabled bool

	// URL is the robot webhook address; its host selects the payload format
	URL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// WebhookNotifier sends alerts to WeCom, DingTalk, Feishu or a custom endpoint.
type WebhookNotifier struct {
	config      WebhookConfig
	kind        WebhookKind
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retry.Config
}

// NewWebhookNotifier creates a WebhookNotifier with the Discord delivery
// policy: 0.5 req/s with a burst of 3 and two attempts.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config: config,
		kind:   DetectWebhookKind(config.URL),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(0.5, 3),
		retry:       webhookRetryConfig(),
	}
}

// Kind reports the detected robot type.
func (w *WebhookNotifier) Kind() WebhookKind {
	return w.kind
}

type markdownBody struct {
	Title   string `json:"title,omitempty"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

type markdownPayload struct {
	MsgType  string       `json:"msgtype"`
	Markdown markdownBody `json:"markdown"`
}

type feishuPayload struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type customPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// FormatMarkdown renders the message body shared by every robot type.
func FormatMarkdown(title, text string) string {
	return fmt.Sprintf("### %s notification\n%s", title, text)
}

// BuildWebhookPayload returns the JSON body expected by the given robot type.
func BuildWebhookPayload(kind WebhookKind, title, markdown string) any {
	switch kind {
	case KindWeCom:
		return markdownPayload{MsgType: "markdown", Markdown: markdownBody{Content: markdown}}
	case KindDingTalk:
		return markdownPayload{MsgType: "markdown", Markdown: markdownBody{Title: title, Text: markdown}}
	case KindFeishu:
		p := feishuPayload{MsgType: "text"}
		p.Content.Text = markdown
		return p
	default:
		return customPayload{Title: title, Content: markdown}
	}
}

// robotReply covers the status fields of the WeCom, DingTalk and Feishu replies.
// They answer 200 even when the message is rejected.
type robotReply struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Code    *int   `json:"code"`
	Msg     string `json:"msg"`
}

func checkRobotReply(kind WebhookKind) func([]byte) error {
	if kind == KindCustom {
		return nil
	}
	return func(body []byte) error {
		var reply robotReply
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil
		}
		switch {
		case reply.ErrCode != nil && *reply.ErrCode != 0:
			return &ClientError{StatusCode: http.StatusOK, Message: fmt.Sprintf("%s robot error %d: %s", kind, *reply.ErrCode, reply.ErrMsg)}
		case reply.Code != nil && *reply.Code != 0:
			return &ClientError{StatusCode: http.StatusOK, Message: fmt.Sprintf("%s robot error %d: %s", kind, *reply.Code, reply.Msg)}
		}
		return nil
	}
}

// Send delivers an arbitrary titled markdown message. It is the building
// block for NotifyAlert and for system notices sent from the CLI.
func (w *WebhookNotifier) Send(ctx context.Context, title, text string) error {
	if strings.TrimSpace(w.config.URL) == "" {
		return ErrEmptyWebhookURL
	}
	payload := BuildWebhookPayload(w.kind, title, FormatMarkdown(title, text))
	return postJSON(ctx, w.httpClient, string(w.kind), w.config.URL, payload, checkRobotReply(w.kind))
}

// NotifyAlert implements Notifier.
func (w *WebhookNotifier) NotifyAlert(ctx context.Context, alert entity.ArticleAlert) error {
	if strings.TrimSpace(w.config.URL) == "" {
		return ErrEmptyWebhookURL
	}

	lines := append([]string{alertSummary(alert)}, alertLines(alert, "- [%s](%s)")...)
	text := strings.Join(lines, "\n")

	return deliver(ctx, w.rateLimiter, w.retry, string(w.kind), alert, func(ctx context.Context) error {
		return w.Send(ctx, "New articles", text)
	})
}
