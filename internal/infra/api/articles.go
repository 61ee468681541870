package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"werss-client/internal/domain/entity"
)

// CleanupResult is the summary returned by the article cleanup endpoints.
type CleanupResult struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}

// ArticleWithNeighbors is an article together with the previous and next
// article of the same subscription. Missing neighbours are nil.
type ArticleWithNeighbors struct {
	Article *entity.Article
	Prev    *entity.Article
	Next    *entity.Article
}

// ListArticles returns one page of articles matching q.
func (c *Client) ListArticles(ctx context.Context, q entity.ArticleQuery) (*entity.ListResult[entity.Article], error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset()))
	params.Set("limit", strconv.Itoa(q.Limit()))
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Status != nil {
		params.Set("status", strconv.Itoa(*q.Status))
	}
	if q.MpID != "" {
		params.Set("mp_id", q.MpID)
	}
	if q.OnlyFavorite {
		params.Set("only_favorite", "true")
	}
	if q.WithContent {
		params.Set("has_content", "true")
	}

	var out entity.ListResult[entity.Article]
	if err := c.do(ctx, get("/wx/articles", "/wx/articles", params), &out); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return &out, nil
}

// CountArticles returns the total number of articles known to the backend.
// It requests a single-row page and reads only the total.
func (c *Client) CountArticles(ctx context.Context) (int, error) {
	res, err := c.ListArticles(ctx, entity.ArticleQuery{Page: 0, PageSize: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// GetArticle returns a single article, content included.
func (c *Client) GetArticle(ctx context.Context, id string) (*entity.Article, error) {
	return c.articleAt(ctx, id, "", "get article")
}

// PrevArticle returns the article published before id in the same
// subscription, or ErrNoAdjacentArticle.
func (c *Client) PrevArticle(ctx context.Context, id string) (*entity.Article, error) {
	return c.articleAt(ctx, id, "/prev", "previous article")
}

// NextArticle returns the article published after id in the same
// subscription, or ErrNoAdjacentArticle.
func (c *Client) NextArticle(ctx context.Context, id string) (*entity.Article, error) {
	return c.articleAt(ctx, id, "/next", "next article")
}

func (c *Client) articleAt(ctx context.Context, id, suffix, op string) (*entity.Article, error) {
	pid, err := pathID("article id", id)
	if err != nil {
		return nil, err
	}
	var out entity.Article
	err = c.do(ctx, get("/wx/articles/{id}"+suffix, "/wx/articles/"+pid+suffix, nil), &out)
	if err != nil {
		var apiErr *APIError
		if suffix != "" && errors.As(err, &apiErr) &&
			(apiErr.Code == codeNoNextArticle || apiErr.Code == codeNoPrevArticle) {
			return nil, fmt.Errorf("%s %s: %w", op, id, ErrNoAdjacentArticle)
		}
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return &out, nil
}

// GetArticleWithNeighbors fetches an article and its neighbours concurrently.
// Only a failure to fetch the article itself is an error.
func (c *Client) GetArticleWithNeighbors(ctx context.Context, id string) (*ArticleWithNeighbors, error) {
	if _, err := pathID("article id", id); err != nil {
		return nil, err
	}

	var res ArticleWithNeighbors
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.GetArticle(gctx, id)
		res.Article = a
		return err
	})
	g.Go(func() error {
		res.Prev = c.neighbour(gctx, id, c.PrevArticle)
		return nil
	})
	g.Go(func() error {
		res.Next = c.neighbour(gctx, id, c.NextArticle)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) neighbour(ctx context.Context, id string, fetch func(context.Context, string) (*entity.Article, error)) *entity.Article {
	a, err := fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNoAdjacentArticle) && !errors.Is(err, context.Canceled) {
			c.logger.Debug("neighbour article unavailable", "article_id", id, "error", err)
		}
		return nil
	}
	return a
}

// DeleteArticle soft-deletes an article.
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	pid, err := pathID("article id", id)
	if err != nil {
		return err
	}
	req := request{method: http.MethodDelete, route: "/wx/articles/{id}", path: "/wx/articles/" + pid}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("delete article %s: %w", id, err)
	}
	return nil
}

// RefreshArticle asks the backend to re-fetch an article's content. The
// refresh runs asynchronously; poll RefreshTaskStatus or WaitRefreshTask.
func (c *Client) RefreshArticle(ctx context.Context, id string) (*entity.RefreshTask, error) {
	pid, err := pathID("article id", id)
	if err != nil {
		return nil, err
	}
	req := request{method: http.MethodPost, route: "/wx/articles/{id}/refresh", path: "/wx/articles/" + pid + "/refresh"}
	var out entity.RefreshTask
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("refresh article %s: %w", id, err)
	}
	return &out, nil
}

// RefreshTaskStatus returns the current state of a refresh task.
func (c *Client) RefreshTaskStatus(ctx context.Context, taskID string) (*entity.RefreshTask, error) {
	pid, err := pathID("task id", taskID)
	if err != nil {
		return nil, err
	}
	var out entity.RefreshTask
	err = c.do(ctx, get("/wx/articles/refresh/tasks/{task_id}", "/wx/articles/refresh/tasks/"+pid, nil), &out)
	if err != nil {
		return nil, fmt.Errorf("refresh task %s: %w", taskID, err)
	}
	return &out, nil
}

// WaitRefreshTask polls a refresh task every interval until it reaches a
// terminal status or ctx is done.
func (c *Client) WaitRefreshTask(ctx context.Context, taskID string, interval time.Duration) (*entity.RefreshTask, error) {
	return waitTask(ctx, interval, func(ctx context.Context) (*entity.RefreshTask, entity.TaskStatus, error) {
		t, err := c.RefreshTaskStatus(ctx, taskID)
		if err != nil {
			return nil, "", err
		}
		return t, t.Status, nil
	})
}

// ClearArticles removes articles whose subscription no longer exists.
func (c *Client) ClearArticles(ctx context.Context) (*CleanupResult, error) {
	return c.cleanup(ctx, "/wx/articles/clean", "clear articles")
}

// ClearDuplicateArticles removes duplicate articles.
func (c *Client) ClearDuplicateArticles(ctx context.Context) (*CleanupResult, error) {
	return c.cleanup(ctx, "/wx/articles/clean_duplicate_articles", "clear duplicate articles")
}

func (c *Client) cleanup(ctx context.Context, path, op string) (*CleanupResult, error) {
	var out CleanupResult
	if err := c.do(ctx, request{method: http.MethodDelete, route: path, path: path}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// SetArticleRead marks an article as read or unread.
func (c *Client) SetArticleRead(ctx context.Context, id string, read bool) error {
	return c.setArticleFlag(ctx, id, "read", "is_read", read)
}

// SetArticleFavorite marks an article as favorite or not.
func (c *Client) SetArticleFavorite(ctx context.Context, id string, favorite bool) error {
	return c.setArticleFlag(ctx, id, "favorite", "is_favorite", favorite)
}

func (c *Client) setArticleFlag(ctx context.Context, id, segment, param string, v bool) error {
	pid, err := pathID("article id", id)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set(param, strconv.FormatBool(v))
	req := request{
		method: http.MethodPut,
		route:  "/wx/articles/{id}/" + segment,
		path:   "/wx/articles/" + pid + "/" + segment,
		query:  q,
	}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("set article %s %s: %w", id, segment, err)
	}
	return nil
}

// waitTask polls until the task reaches a terminal status.
func waitTask[T any](ctx context.Context, interval time.Duration, poll func(context.Context) (*T, entity.TaskStatus, error)) (*T, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, status, err := poll(ctx)
		if err != nil {
			return nil, err
		}
		if status.Terminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}
