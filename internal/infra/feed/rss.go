// Package feed reads the RSS feeds published by the backend and turns article
// pages and HTML bodies into plain text for terminal output.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/circuitbreaker"
	"werss-client/internal/resilience/retry"
)

const userAgent = "werss-client/1.0"

// RSSReader fetches and parses RSS, Atom and JSON feeds.
// It includes circuit breaker and retry logic for improved reliability.
type RSSReader struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	now            func() time.Time
}

// NewRSSReader creates an RSSReader. A nil client uses a 30s timeout client.
func NewRSSReader(client *http.Client) *RSSReader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RSSReader{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		now:            time.Now,
	}
}

// Fetch retrieves and parses the feed at feedURL.
// Items without a publish date are stamped with the fetch time.
func (r *RSSReader) Fetch(ctx context.Context, feedURL string) ([]entity.FeedItem, error) {
	if !strings.HasPrefix(feedURL, "http://") && !strings.HasPrefix(feedURL, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, feedURL)
	}

	var items []entity.FeedItem
	err := retry.WithBackoff(ctx, r.retryConfig, func() error {
		res, err := circuitbreaker.Run(r.circuitBreaker, func() ([]entity.FeedItem, error) {
			return r.doFetch(ctx, feedURL)
		})
		if err != nil {
			if circuitbreaker.IsRejected(err) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
					slog.String("state", r.circuitBreaker.State().String()))
			}
			return err
		}
		items = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	return items, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (r *RSSReader) doFetch(ctx context.Context, feedURL string) ([]entity.FeedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = r.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			// Lets retry.WithBackoff classify 5xx and 429 as transient.
			return nil, &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
		}
		return nil, err
	}

	fetchedAt := r.now()
	items := make([]entity.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := fetchedAt
		switch {
		case it.PublishedParsed != nil:
			pubAt = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			pubAt = *it.UpdatedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		items = append(items, entity.FeedItem{
			Title:       strings.TrimSpace(it.Title),
			URL:         it.Link,
			Content:     content,
			PublishedAt: pubAt,
		})
	}
	return items, nil
}
