package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"werss-client/internal/domain/entity"
)

// ListMessageTasks returns a page of message tasks.
func (c *Client) ListMessageTasks(ctx context.Context, page, pageSize int) (*entity.ListResult[entity.MessageTask], error) {
	q := pageQuery(page, pageSize, entity.DefaultMessageTaskPageSize)
	var out entity.ListResult[entity.MessageTask]
	if err := c.do(ctx, get("/wx/message_tasks", "/wx/message_tasks", q), &out); err != nil {
		return nil, fmt.Errorf("list message tasks: %w", err)
	}
	return &out, nil
}

// GetMessageTask returns one message task.
func (c *Client) GetMessageTask(ctx context.Context, id string) (*entity.MessageTask, error) {
	pid, err := pathID("task id", id)
	if err != nil {
		return nil, err
	}
	var out entity.MessageTask
	if err := c.do(ctx, get("/wx/message_tasks/{id}", "/wx/message_tasks/"+pid, nil), &out); err != nil {
		return nil, fmt.Errorf("get message task %s: %w", id, err)
	}
	return &out, nil
}

// RunMessageTask triggers a task immediately. With isTest the backend sends
// to the webhook without marking articles as delivered.
func (c *Client) RunMessageTask(ctx context.Context, id string, isTest bool) error {
	pid, err := pathID("task id", id)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("isTest", strconv.FormatBool(isTest))
	// Not idempotent despite the GET verb.
	req := request{method: http.MethodGet, route: "/wx/message_tasks/{id}/run", path: "/wx/message_tasks/" + pid + "/run", query: q, once: true}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("run message task %s: %w", id, err)
	}
	return nil
}

// TestMessageTask sends a test message through the task's webhook.
func (c *Client) TestMessageTask(ctx context.Context, id string) error {
	pid, err := pathID("task id", id)
	if err != nil {
		return err
	}
	req := request{method: http.MethodPost, route: "/wx/message_tasks/message/test/{id}", path: "/wx/message_tasks/message/test/" + pid}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("test message task %s: %w", id, err)
	}
	return nil
}

// CreateMessageTask validates and creates a message task.
func (c *Client) CreateMessageTask(ctx context.Context, in entity.MessageTaskCreate) (*entity.MessageTask, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req := request{method: http.MethodPost, route: "/wx/message_tasks", path: "/wx/message_tasks", body: in}
	var out entity.MessageTask
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("create message task %s: %w", in.Name, err)
	}
	return &out, nil
}

// UpdateMessageTask applies a partial update.
func (c *Client) UpdateMessageTask(ctx context.Context, id string, in entity.MessageTaskUpdate) error {
	pid, err := pathID("task id", id)
	if err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req := request{method: http.MethodPut, route: "/wx/message_tasks/{id}", path: "/wx/message_tasks/" + pid, body: in}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("update message task %s: %w", id, err)
	}
	return nil
}

// DeleteMessageTask removes a message task.
func (c *Client) DeleteMessageTask(ctx context.Context, id string) error {
	pid, err := pathID("task id", id)
	if err != nil {
		return err
	}
	req := request{method: http.MethodDelete, route: "/wx/message_tasks/{id}", path: "/wx/message_tasks/" + pid}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("delete message task %s: %w", id, err)
	}
	return nil
}

// RefreshJobs reloads every task schedule in the backend scheduler.
func (c *Client) RefreshJobs(ctx context.Context) error {
	req := request{method: http.MethodPut, route: "/wx/message_tasks/job/fresh", path: "/wx/message_tasks/job/fresh"}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("refresh message jobs: %w", err)
	}
	return nil
}

// RefreshJob reloads the schedule of one task. A non-nil update is sent
// along and applied before the job is rescheduled.
func (c *Client) RefreshJob(ctx context.Context, id string, in *entity.MessageTaskUpdate) error {
	pid, err := pathID("task id", id)
	if err != nil {
		return err
	}
	req := request{method: http.MethodPut, route: "/wx/message_tasks/job/fresh/{id}", path: "/wx/message_tasks/job/fresh/" + pid}
	if in != nil {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		req.body = in
	}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("refresh message job %s: %w", id, err)
	}
	return nil
}
