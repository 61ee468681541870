package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
)

func TestMessageTaskEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		call       func(context.Context, *Client) error
		wantMethod string
		wantPath   string
		wantQuery  string
	}{
		{
			name: "list",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.ListMessageTasks(ctx, 1, 0)
				return err
			},
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/wx/message_tasks",
			wantQuery:  "limit=10&offset=10",
		},
		{
			name: "get",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.GetMessageTask(ctx, "m1")
				return err
			},
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/wx/message_tasks/m1",
		},
		{
			name:       "run as test",
			call:       func(ctx context.Context, c *Client) error { return c.RunMessageTask(ctx, "m1", true) },
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/wx/message_tasks/m1/run",
			wantQuery:  "isTest=true",
		},
		{
			name:       "test message",
			call:       func(ctx context.Context, c *Client) error { return c.TestMessageTask(ctx, "m1") },
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/wx/message_tasks/message/test/m1",
		},
		{
			name:       "delete",
			call:       func(ctx context.Context, c *Client) error { return c.DeleteMessageTask(ctx, "m1") },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/v1/wx/message_tasks/m1",
		},
		{
			name:       "refresh all jobs",
			call:       func(ctx context.Context, c *Client) error { return c.RefreshJobs(ctx) },
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/wx/message_tasks/job/fresh",
		},
		{
			name:       "refresh one job",
			call:       func(ctx context.Context, c *Client) error { return c.RefreshJob(ctx, "m1", nil) },
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/wx/message_tasks/job/fresh/m1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path, query string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				method, path, query = r.Method, r.URL.Path, r.URL.RawQuery
				writeOK(w, map[string]any{"id": "m1", "list": []any{}, "total": 0})
			})

			require.NoError(t, tt.call(context.Background(), c))
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantQuery, query)
		})
	}
}

func TestRefreshJob_SendsUpdateBody(t *testing.T) {
	// Arrange
	var (
		method, path string
		body         map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeOK(w, nil)
	})
	cron := "0 8 * * *"
	status := 1

	// Act
	err := c.RefreshJob(context.Background(), "m1", &entity.MessageTaskUpdate{CronExp: &cron, Status: &status})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/v1/wx/message_tasks/job/fresh/m1", path)
	assert.Equal(t, map[string]any{"cron_exp": "0 8 * * *", "status": float64(1)}, body)
}

func TestRefreshJob_ValidatesUpdate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeOK(w, nil)
	})
	bad := "not a url"

	err := c.RefreshJob(context.Background(), "m1", &entity.MessageTaskUpdate{WebHookURL: &bad})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestCreateMessageTask_ValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeOK(w, map[string]any{"id": "m2"})
	})
	ctx := context.Background()
	in := entity.MessageTaskCreate{
		Name:        "digest",
		MessageType: entity.MessageTypeWebhook,
		WebHookURL:  "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=k",
		CronExp:     "every day",
	}

	_, err := c.CreateMessageTask(ctx, in)
	assert.ErrorIs(t, err, entity.ErrInvalidCronExpression)
	assert.Zero(t, calls.Load())

	in.CronExp = "0 9 * * 1-5"
	task, err := c.CreateMessageTask(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "m2", task.ID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunMessageTask_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.RunMessageTask(context.Background(), "m1", false)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpdateMessageTask_RejectsBadCron(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { writeOK(w, nil) })
	bad := "* * *"

	err := c.UpdateMessageTask(context.Background(), "m1", entity.MessageTaskUpdate{CronExp: &bad})

	assert.ErrorIs(t, err, ErrValidation)
}
