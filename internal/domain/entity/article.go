// Package entity defines the domain objects exchanged with the WeRSS backend.
// It contains articles, subscriptions, message tasks and tags, along with
// their validation rules and domain-specific errors.
package entity

import "time"

// DefaultArticlePageSize is the page size used when a query does not set one.
const DefaultArticlePageSize = 10

// Article represents an article collected from a WeChat subscription.
type Article struct {
	ID          string `json:"id"`
	MpID        string `json:"mp_id,omitempty"`
	MpName      string `json:"mp_name,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	PicURL      string `json:"pic_url,omitempty"`
	URL         string `json:"url,omitempty"`
	Link        string `json:"link,omitempty"`
	Status      int    `json:"status"`
	PublishTime int64  `json:"publish_time"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	IsExport    int    `json:"is_export,omitempty"`
	IsRead      int    `json:"is_read"`
	IsFavorite  int    `json:"is_favorite"`
}

// PublishedAt converts the unix publish time into a time.Time.
// A zero publish time yields the zero time.
func (a *Article) PublishedAt() time.Time {
	if a.PublishTime <= 0 {
		return time.Time{}
	}
	return time.Unix(a.PublishTime, 0)
}

// SourceURL returns the best known link to the original article.
func (a *Article) SourceURL() string {
	if a.URL != "" {
		return a.URL
	}
	return a.Link
}

// Read reports whether the article has been marked as read.
func (a *Article) Read() bool { return a.IsRead == 1 }

// Favorite reports whether the article has been marked as favorite.
func (a *Article) Favorite() bool { return a.IsFavorite == 1 }

// ArticleQuery holds the filters accepted by the article list endpoint.
// Page is zero-based.
type ArticleQuery struct {
	Page         int
	PageSize     int
	Search       string
	Status       *int
	MpID         string
	OnlyFavorite bool

	// WithContent asks the backend to include article bodies in the page.
	WithContent bool
}

// Limit returns the effective page size.
func (q ArticleQuery) Limit() int {
	if q.PageSize <= 0 {
		return DefaultArticlePageSize
	}
	return q.PageSize
}

// Offset returns the row offset for the query's page.
func (q ArticleQuery) Offset() int {
	if q.Page <= 0 {
		return 0
	}
	return q.Page * q.Limit()
}

// PageInfo mirrors the pagination block some list endpoints return.
type PageInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListResult is a page of items together with the total number of rows.
type ListResult[T any] struct {
	Items []T       `json:"list"`
	Total int       `json:"total"`
	Page  *PageInfo `json:"page,omitempty"`
}

// TaskStatus is the lifecycle state of a backend background task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskSuccess TaskStatus = "success"
	TaskFailed  TaskStatus = "failed"
)

// Terminal reports whether the task has finished, successfully or not.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailed
}

// RefreshTask tracks an asynchronous single-article re-fetch.
type RefreshTask struct {
	TaskID    string     `json:"task_id"`
	ArticleID string     `json:"article_id"`
	Status    TaskStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
}

// FeedItem is one entry of a subscription's RSS feed.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// ArticleAlert describes a batch of newly detected articles.
// Count is the number of new articles since the previous poll and Total the
// article count observed by that poll. Recent is optional enrichment.
type ArticleAlert struct {
	Count      int
	Total      int
	DetectedAt time.Time
	Recent     []Article
}
