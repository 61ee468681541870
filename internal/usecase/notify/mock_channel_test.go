package notify

import (
	"context"
	"sync"
	"time"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
)

// mockChannel is a test double for Channel that records every Send call.
type mockChannel struct {
	name    string
	enabled bool

	mu         sync.Mutex
	sendErr    error
	panicOn    bool
	delay      time.Duration
	sent       []entity.ArticleAlert
	requestIDs []string
}

func (m *mockChannel) Name() string    { return m.name }
func (m *mockChannel) IsEnabled() bool { return m.enabled }

func (m *mockChannel) Send(ctx context.Context, alert entity.ArticleAlert) error {
	m.mu.Lock()
	m.sent = append(m.sent, alert)
	m.requestIDs = append(m.requestIDs, requestid.FromContext(ctx))
	err, shouldPanic, delay := m.sendErr, m.panicOn, m.delay
	m.mu.Unlock()

	if shouldPanic {
		panic("channel exploded")
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *mockChannel) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockChannel) lastAlert() entity.ArticleAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func (m *mockChannel) lastRequestID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestIDs[len(m.requestIDs)-1]
}

func (m *mockChannel) setSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

type stubLister struct {
	mu    sync.Mutex
	items []entity.Article
	err   error
	query entity.ArticleQuery
}

func (s *stubLister) ListArticles(_ context.Context, q entity.ArticleQuery) (*entity.ListResult[entity.Article], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	if s.err != nil {
		return nil, s.err
	}
	n := min(q.Limit(), len(s.items))
	return &entity.ListResult[entity.Article]{Items: s.items[:n], Total: len(s.items)}, nil
}

func (s *stubLister) lastQuery() entity.ArticleQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func testAlert(count int) entity.ArticleAlert {
	return entity.ArticleAlert{Count: count, Total: 100 + count, DetectedAt: time.Now()}
}

// blockingChannel ignores context cancellation until release is closed.
type blockingChannel struct {
	release <-chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingChannel) Name() string    { return "blocking" }
func (b *blockingChannel) IsEnabled() bool { return true }

func (b *blockingChannel) Send(context.Context, entity.ArticleAlert) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}
