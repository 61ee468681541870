package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"werss-client/internal/handler/http/control"
	"werss-client/internal/handler/http/respond"
	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/usecase/monitor"
)

// controlClient drives a running `werss watch` through its control endpoints.
type controlClient struct {
	baseURL string
	http    *resty.Client
}

func newControlClient(baseURL string, timeout time.Duration) *controlClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &controlClient{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *controlClient) call(ctx context.Context, method, path string, out any) error {
	ctx, reqID := requestid.Ensure(ctx)
	var apiErr respond.ErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(requestid.RequestIDHeader, reqID).
		SetResult(out).
		SetError(&apiErr).
		Execute(method, path)
	if err != nil {
		return fmt.Errorf("reach watcher at %s: %w", c.baseURL, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("watcher answered %d: %s", resp.StatusCode(), msg)
	}
	return nil
}

func (c *controlClient) Status(ctx context.Context) (*monitor.Status, error) {
	var st monitor.Status
	if err := c.call(ctx, http.MethodGet, "/monitor", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Do posts a state change (enable, disable, toggle or reset-title).
func (c *controlClient) Do(ctx context.Context, action string) (*monitor.Status, error) {
	var st monitor.Status
	if err := c.call(ctx, http.MethodPost, "/monitor/"+action, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ChannelHealth reads the channel report. A 503 carrying a report means an
// open breaker, not a failed call.
func (c *controlClient) ChannelHealth(ctx context.Context) (*control.ChannelHealthResponse, error) {
	ctx, reqID := requestid.Ensure(ctx)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(requestid.RequestIDHeader, reqID).
		Get("/health/channels")
	if err != nil {
		return nil, fmt.Errorf("reach watcher at %s: %w", c.baseURL, err)
	}

	var out control.ChannelHealthResponse
	if resp.StatusCode() == http.StatusOK || resp.StatusCode() == http.StatusServiceUnavailable {
		if err := json.Unmarshal(resp.Body(), &out); err == nil && out.Channels != nil {
			return &out, nil
		}
	}
	var apiErr respond.ErrorBody
	_ = json.Unmarshal(resp.Body(), &apiErr)
	if apiErr.Error == "" {
		apiErr.Error = http.StatusText(resp.StatusCode())
	}
	return nil, fmt.Errorf("watcher answered %d: %s", resp.StatusCode(), apiErr.Error)
}

func (a *app) notifyCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "notify",
		Short:   "Control a running watcher",
		GroupID: groupDaemon,
		Long: `Control the monitor of a running "werss watch".

The watcher is reached at control_url (WERSS_CONTROL_URL).`,
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	client := func() *controlClient { return newControlClient(a.cfg.ControlURL, timeout) }

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the monitor state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.printStatus(st)
		},
	})

	for _, action := range []struct{ use, short string }{
		{"enable", "Start polling for new articles"},
		{"disable", "Stop polling and restore the title"},
		{"toggle", "Flip the enabled state"},
		{"reset-title", "Stop a title flash in progress"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := client().Do(cmd.Context(), action.use)
				if err != nil {
					return err
				}
				return a.printStatus(st)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "channels",
		Short: "Show alert channel health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := client().ChannelHealth(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Channels))
			for _, ch := range res.Channels {
				until := "-"
				if ch.DisabledUntil != nil {
					until = ch.DisabledUntil.Format(time.RFC3339)
				}
				rows = append(rows, []string{ch.Name, boolMark(ch.Enabled), boolMark(ch.CircuitBreakerOpen), until})
			}
			if err := a.printer.table(res, []string{"CHANNEL", "ENABLED", "OPEN", "DISABLED UNTIL"}, rows); err != nil {
				return err
			}
			if !res.Healthy {
				return errors.New("one or more alert channels are disabled by their circuit breaker")
			}
			return nil
		},
	})
	return cmd
}

func (a *app) printStatus(st *monitor.Status) error {
	lastPoll := "-"
	if !st.LastPollAt.IsZero() {
		lastPoll = st.LastPollAt.Format(time.RFC3339)
	}
	lastErr := st.LastError
	if lastErr == "" {
		lastErr = "-"
	}
	return a.printer.fields(st,
		"Enabled", boolMark(st.Enabled),
		"Polling", boolMark(st.Running),
		"Last count", fmt.Sprint(st.LastCount),
		"Flashing", boolMark(st.Flashing),
		"Last poll", lastPoll,
		"Last error", lastErr,
	)
}
