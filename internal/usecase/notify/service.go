package notify

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
)

// Circuit breaker and pool defaults
const (
	circuitBreakerThreshold = 5                // Number of consecutive failures before opening
	circuitBreakerTimeout   = 5 * time.Minute  // Duration to keep circuit breaker open
	workerPoolTimeout       = 5 * time.Second  // Timeout for acquiring worker slot
	notificationTimeout     = 30 * time.Second // Timeout for individual notification
)

// Service dispatches new-article alerts to every enabled channel.
type Service interface {
	// NotifyNewArticles sends alert to all enabled channels.
	//
	// This method is non-blocking and returns immediately. Notifications
	// are sent in background goroutines, and failures are logged but do
	// not propagate to the caller. The request id is inherited from ctx
	// when present.
	NotifyNewArticles(ctx context.Context, alert entity.ArticleAlert) error

	// GetChannelHealth returns the circuit breaker state of every channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown stops accepting work and waits for in-flight notifications
	// until ctx expires.
	Shutdown(ctx context.Context) error
}

// RecentArticleLister returns the newest articles. *api.Client satisfies it.
type RecentArticleLister interface {
	ListArticles(ctx context.Context, q entity.ArticleQuery) (*entity.ListResult[entity.Article], error)
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	CircuitBreakerOpen bool       `json:"circuit_breaker_open"`
	DisabledUntil      *time.Time `json:"disabled_until,omitempty"` // nil while closed
}

// Option customizes a Service.
type Option func(*service)

// WithRecentArticles attaches up to limit of the newest articles to alerts
// that arrive without any. A lister failure is logged and the alert is sent
// as is.
func WithRecentArticles(lister RecentArticleLister, limit int) Option {
	return func(s *service) {
		s.recent = lister
		s.recentLimit = limit
	}
}

// WithCircuitBreaker overrides the consecutive failure threshold and the
// open duration.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(s *service) {
		if threshold > 0 {
			s.breakerThreshold = threshold
		}
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
	}
}

// WithTimeouts overrides the worker slot wait and the per-send timeout.
func WithTimeouts(poolWait, send time.Duration) Option {
	return func(s *service) {
		if poolWait > 0 {
			s.poolTimeout = poolWait
		}
		if send > 0 {
			s.sendTimeout = send
		}
	}
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// service is the concrete implementation of Service interface.
type service struct {
	channels       []Channel                 // Notification channels
	workerPool     chan struct{}             // Semaphore for limiting concurrent notifications
	channelHealth  map[string]*channelHealth // Circuit breaker state per channel
	healthMu       sync.RWMutex              // Protects channelHealth map
	wg             sync.WaitGroup            // Track in-flight notifications
	shutdownCtx    context.Context           // Context for signaling shutdown
	shutdownCancel context.CancelFunc        // Cancel function for shutdown

	recent      RecentArticleLister
	recentLimit int

	breakerThreshold int
	breakerTimeout   time.Duration
	poolTimeout      time.Duration
	sendTimeout      time.Duration
	logger           *slog.Logger
}

// channelHealth tracks circuit breaker state for a channel
type channelHealth struct {
	consecutiveFailures int        // Number of consecutive failures
	disabledUntil       time.Time  // Time until circuit breaker is open
	mu                  sync.Mutex // Protects this struct's fields
}

// NewService creates a notification service with the given channels.
// maxConcurrent bounds the number of sends in flight (recommended: 10-20).
func NewService(channels []Channel, maxConcurrent int, opts ...Option) Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:         channels,
		workerPool:       make(chan struct{}, maxConcurrent),
		channelHealth:    make(map[string]*channelHealth),
		shutdownCtx:      shutdownCtx,
		shutdownCancel:   shutdownCancel,
		breakerThreshold: circuitBreakerThreshold,
		breakerTimeout:   circuitBreakerTimeout,
		poolTimeout:      workerPoolTimeout,
		sendTimeout:      notificationTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}

	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
	}

	return svc
}

// NotifyNewArticles implements Service.NotifyNewArticles.
func (s *service) NotifyNewArticles(ctx context.Context, alert entity.ArticleAlert) error {
	if alert.Count <= 0 {
		s.logger.Warn("Invalid alert ignored", slog.Int("count", alert.Count))
		return nil
	}

	requestID := requestid.FromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	enabledCount := 0
	for _, ch := range s.channels {
		if ch.IsEnabled() {
			enabledCount++
		}
	}
	SetChannelsEnabled(float64(enabledCount))

	if enabledCount == 0 {
		s.logger.Debug("No notification channels enabled",
			slog.String("request_id", requestID),
			slog.Int("count", alert.Count))
		return nil
	}

	s.logger.Info("Dispatching new-article alert",
		slog.String("request_id", requestID),
		slog.Int("count", alert.Count),
		slog.Int("total", alert.Total),
		slog.Int("enabled_channels", enabledCount))

	if s.recent == nil || s.recentLimit <= 0 || len(alert.Recent) > 0 {
		s.fanOut(requestID, alert)
		return nil
	}

	// Enrichment performs a network call, so it runs off the caller's goroutine.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fanOut(requestID, s.enrich(requestID, alert))
	}()
	return nil
}

func (s *service) enrich(requestID string, alert entity.ArticleAlert) entity.ArticleAlert {
	ctx, cancel := context.WithTimeout(s.shutdownCtx, s.sendTimeout)
	defer cancel()
	ctx = requestid.WithRequestID(ctx, requestID)

	res, err := s.recent.ListArticles(ctx, entity.ArticleQuery{Page: 0, PageSize: min(alert.Count, s.recentLimit)})
	if err != nil {
		RecordEnrichmentFailure()
		s.logger.Warn("Failed to list recent articles for alert",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return alert
	}
	alert.Recent = res.Items
	return alert
}

func (s *service) fanOut(requestID string, alert entity.ArticleAlert) {
	for _, ch := range s.channels {
		if ch.IsEnabled() {
			s.wg.Add(1)
			go s.notifyChannel(requestID, ch, alert)
		}
	}
}

// notifyChannel sends notification to a single channel in a goroutine.
func (s *service) notifyChannel(requestID string, channel Channel, alert entity.ArticleAlert) {
	defer s.wg.Done()

	IncrementActiveGoroutines()
	defer DecrementActiveGoroutines()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in notification channel",
				slog.String("request_id", requestID),
				slog.String("channel", channel.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	// Acquire worker slot (with timeout to prevent blocking)
	timer := time.NewTimer(s.poolTimeout)
	defer timer.Stop()
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-timer.C:
		s.logger.Warn("Notification dropped: worker pool full",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Any("error", ErrNotificationDropped))
		RecordDropped(channel.Name(), "pool_full")
		return
	}

	health := s.getChannelHealth(channel.Name())
	health.mu.Lock()
	if time.Now().Before(health.disabledUntil) {
		s.logger.Warn("Channel temporarily disabled due to circuit breaker",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Time("disabled_until", health.disabledUntil),
			slog.Any("error", ErrCircuitBreakerOpen))
		health.mu.Unlock()
		RecordDropped(channel.Name(), "circuit_open")
		return
	}
	health.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.shutdownCtx, s.sendTimeout)
	defer cancel()
	ctx = requestid.WithRequestID(ctx, requestID)

	startTime := time.Now()
	RecordDispatch(channel.Name())

	err := channel.Send(ctx, alert)
	duration := time.Since(startTime)

	health.mu.Lock()
	if err != nil {
		health.consecutiveFailures++
		if health.consecutiveFailures >= s.breakerThreshold {
			health.disabledUntil = time.Now().Add(s.breakerTimeout)
			s.logger.Error("Circuit breaker opened for channel",
				slog.String("request_id", requestID),
				slog.String("channel", channel.Name()),
				slog.Int("consecutive_failures", health.consecutiveFailures))
			RecordCircuitBreakerOpen(channel.Name())
		}
	} else {
		health.consecutiveFailures = 0
	}
	health.mu.Unlock()

	if err != nil {
		RecordFailure(channel.Name(), duration)
		s.logger.Warn("Channel notification failed",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Int("count", alert.Count),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return
	}

	RecordSuccess(channel.Name(), duration)
	s.logger.Info("Channel notification sent successfully",
		slog.String("request_id", requestID),
		slog.String("channel", channel.Name()),
		slog.Int("count", alert.Count),
		slog.Duration("send_duration", duration))
}

// getChannelHealth returns circuit breaker state for a channel
func (s *service) getChannelHealth(channelName string) *channelHealth {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.channelHealth[channelName]
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	now := time.Now()

	for _, ch := range s.channels {
		health := s.channelHealth[ch.Name()]

		health.mu.Lock()
		var disabledUntil *time.Time
		open := now.Before(health.disabledUntil)
		if open {
			until := health.disabledUntil
			disabledUntil = &until
		}
		health.mu.Unlock()

		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: open,
			DisabledUntil:      disabledUntil,
		})
	}

	return statuses
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down notification service")

	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Notification service shutdown timeout")
		return ctx.Err()
	}
}
