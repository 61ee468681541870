package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"werss-client/internal/domain/entity"
)

// DefaultSubscriptionPageSize is the page size used by the subscription list.
const DefaultSubscriptionPageSize = 10

// codeSyncTooFrequent shares its value with codeNoNextArticle; the meaning
// depends on the route.
const codeSyncTooFrequent = 40402

// ListSubscriptions returns a page of subscriptions whose name contains kw.
// The first page starts with the featured-articles pseudo subscription.
func (c *Client) ListSubscriptions(ctx context.Context, page, pageSize int, kw string) (*entity.ListResult[entity.Subscription], error) {
	q := pageQuery(page, pageSize, DefaultSubscriptionPageSize)
	if kw != "" {
		q.Set("kw", kw)
	}
	var out entity.ListResult[entity.Subscription]
	if err := c.do(ctx, get("/wx/mps", "/wx/mps", q), &out); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return &out, nil
}

// SearchSubscriptions is ListSubscriptions with the keyword first.
func (c *Client) SearchSubscriptions(ctx context.Context, kw string, page, pageSize int) (*entity.ListResult[entity.Subscription], error) {
	return c.ListSubscriptions(ctx, page, pageSize, kw)
}

// GetSubscription returns one subscription.
func (c *Client) GetSubscription(ctx context.Context, mpID string) (*entity.Subscription, error) {
	pid, err := pathID("mp id", mpID)
	if err != nil {
		return nil, err
	}
	var out entity.Subscription
	if err := c.do(ctx, get("/wx/mps/{mp_id}", "/wx/mps/"+pid, nil), &out); err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", mpID, err)
	}
	return &out, nil
}

// AddSubscription subscribes to an official account. Adding an existing
// account updates its metadata.
func (c *Client) AddSubscription(ctx context.Context, in entity.SubscriptionCreate) (*entity.Subscription, error) {
	if err := entity.ValidateStruct(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req := request{method: http.MethodPost, route: "/wx/mps", path: "/wx/mps", body: in}
	var out entity.Subscription
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("add subscription %s: %w", in.MpName, err)
	}
	return &out, nil
}

// AddSubscriptionByArticle resolves the official account behind an article
// link. The backend returns the scraped article metadata verbatim.
func (c *Client) AddSubscriptionByArticle(ctx context.Context, articleURL string) (map[string]any, error) {
	articleURL = strings.TrimSpace(articleURL)
	if err := entity.ValidateURL(articleURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	q := url.Values{}
	q.Set("url", articleURL)
	req := request{method: http.MethodPost, route: "/wx/mps/by_article", path: "/wx/mps/by_article", query: q}
	var out map[string]any
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("resolve subscription by article: %w", err)
	}
	return out, nil
}

// AddFeaturedArticle queues a single article for the featured collection.
// Links that are not WeChat article pages are rejected without a request.
func (c *Client) AddFeaturedArticle(ctx context.Context, articleURL string) (*entity.FeaturedArticleTask, error) {
	if err := entity.ValidateFeaturedArticleURL(articleURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	body := map[string]string{"url": strings.TrimSpace(articleURL)}
	req := request{method: http.MethodPost, route: "/wx/mps/featured/article", path: "/wx/mps/featured/article", body: body}
	var out entity.FeaturedArticleTask
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("add featured article: %w", err)
	}
	return &out, nil
}

// FeaturedArticleTaskStatus returns the state of an add-featured-article task.
func (c *Client) FeaturedArticleTaskStatus(ctx context.Context, taskID string) (*entity.FeaturedArticleTask, error) {
	pid, err := pathID("task id", taskID)
	if err != nil {
		return nil, err
	}
	var out entity.FeaturedArticleTask
	err = c.do(ctx, get("/wx/mps/featured/article/tasks/{task_id}", "/wx/mps/featured/article/tasks/"+pid, nil), &out)
	if err != nil {
		return nil, fmt.Errorf("featured article task %s: %w", taskID, err)
	}
	return &out, nil
}

// WaitFeaturedArticleTask polls until the task succeeds or fails.
func (c *Client) WaitFeaturedArticleTask(ctx context.Context, taskID string, interval time.Duration) (*entity.FeaturedArticleTask, error) {
	return waitTask(ctx, interval, func(ctx context.Context) (*entity.FeaturedArticleTask, entity.TaskStatus, error) {
		t, err := c.FeaturedArticleTaskStatus(ctx, taskID)
		if err != nil {
			return nil, "", err
		}
		return t, t.Status, nil
	})
}

// DeleteSubscription removes a subscription. The featured collection
// cannot be deleted.
func (c *Client) DeleteSubscription(ctx context.Context, mpID string) error {
	pid, err := c.mutableSubscription(mpID)
	if err != nil {
		return err
	}
	req := request{method: http.MethodDelete, route: "/wx/mps/{mp_id}", path: "/wx/mps/" + pid}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("delete subscription %s: %w", mpID, err)
	}
	return nil
}

// UpdateSubscription applies a partial update.
func (c *Client) UpdateSubscription(ctx context.Context, mpID string, in entity.SubscriptionUpdate) error {
	pid, err := c.mutableSubscription(mpID)
	if err != nil {
		return err
	}
	req := request{method: http.MethodPut, route: "/wx/mps/{mp_id}", path: "/wx/mps/" + pid, body: in}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("update subscription %s: %w", mpID, err)
	}
	return nil
}

// SetSubscriptionStatus enables (1) or disables (0) a subscription.
func (c *Client) SetSubscriptionStatus(ctx context.Context, mpID string, status int) error {
	return c.UpdateSubscription(ctx, mpID, entity.SubscriptionUpdate{Status: &status})
}

func (c *Client) mutableSubscription(mpID string) (string, error) {
	pid, err := pathID("mp id", mpID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(mpID) == entity.FeaturedMpID {
		return "", validationErrorf("the featured collection cannot be modified")
	}
	return pid, nil
}

// SyncSubscription asks the backend to fetch new articles for mpID, or for
// every subscription when mpID is empty. Pages are zero-based; endPage is
// exclusive. The fetch continues in the background after the call returns.
func (c *Client) SyncSubscription(ctx context.Context, mpID string, startPage, endPage int) (*entity.SyncResult, error) {
	target := strings.TrimSpace(mpID)
	if target == "" {
		target = "all"
	}
	if startPage < 0 {
		startPage = 0
	}
	if endPage <= startPage {
		endPage = startPage + 1
	}
	q := url.Values{}
	q.Set("start_page", strconv.Itoa(startPage))
	q.Set("end_page", strconv.Itoa(endPage))

	req := get("/wx/mps/update/{mp_id}", "/wx/mps/update/"+url.PathEscape(target), q)
	req.once = true

	var out entity.SyncResult
	err := c.do(ctx, req, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeSyncTooFrequent {
			return nil, fmt.Errorf("sync subscription %s: %w", target, ErrSyncTooFrequent)
		}
		return nil, fmt.Errorf("sync subscription %s: %w", target, err)
	}
	return &out, nil
}

// SearchBiz searches WeChat for official accounts matching kw. The backend
// needs a valid WeChat login for this to succeed.
func (c *Client) SearchBiz(ctx context.Context, kw string, page, pageSize int) (*entity.ListResult[entity.BizAccount], error) {
	pid, err := pathID("keyword", kw)
	if err != nil {
		return nil, err
	}
	var out entity.ListResult[entity.BizAccount]
	err = c.do(ctx, get("/wx/mps/search/{kw}", "/wx/mps/search/"+pid, pageQuery(page, pageSize, DefaultSubscriptionPageSize)), &out)
	if err != nil {
		return nil, fmt.Errorf("search official accounts %q: %w", kw, err)
	}
	return &out, nil
}
