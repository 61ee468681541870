// Package monitor watches the WeRSS backend for newly published articles.
//
// A Monitor polls the article count on a fixed interval and compares it with
// the previous reading. When the count grows it announces the difference
// through independent best-effort channels: a sound, a flashing title, an OS
// notification and, optionally, remote alert channels. The enabled flag is
// persisted so the monitor can resume after a restart.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"werss-client/internal/domain/entity"
)

const (
	defaultPollInterval      = 60 * time.Second
	defaultFlashInterval     = 1 * time.Second
	defaultFlashDuration     = 10 * time.Second
	defaultFallbackTitle     = "WeRSS"
	defaultNotificationTitle = "WeRSS - New articles"
	defaultPreferenceKey     = "notification.enabled"
)

// Dependencies are the collaborators of a Monitor.
// Articles, Preferences and Title are required; the rest fall back to no-ops.
type Dependencies struct {
	Articles    ArticleCounter
	Preferences PreferenceStore
	Title       TitleSurface

	Sound   SoundPlayer
	Desktop DesktopNotifier
	Alerts  AlertDispatcher
	Logger  *slog.Logger
}

// Options tune timing and presentation. Zero values select the defaults.
type Options struct {
	PollInterval      time.Duration
	FlashInterval     time.Duration
	FlashDuration     time.Duration
	FallbackTitle     string
	NotificationTitle string
	NotificationIcon  string
	PreferenceKey     string
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.FlashInterval <= 0 {
		o.FlashInterval = defaultFlashInterval
	}
	if o.FlashDuration <= 0 {
		o.FlashDuration = defaultFlashDuration
	}
	if o.FallbackTitle == "" {
		o.FallbackTitle = defaultFallbackTitle
	}
	if o.NotificationTitle == "" {
		o.NotificationTitle = defaultNotificationTitle
	}
	if o.PreferenceKey == "" {
		o.PreferenceKey = defaultPreferenceKey
	}
	return o
}

// Status is a point-in-time snapshot used by health endpoints and the CLI.
type Status struct {
	Enabled    bool      `json:"enabled"`
	Running    bool      `json:"running"`
	LastCount  int       `json:"last_count"`
	Flashing   bool      `json:"flashing"`
	LastPollAt time.Time `json:"last_poll_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// loopHandle owns a background goroutine started by the monitor.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newLoopHandle() (context.Context, *loopHandle) {
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, &loopHandle{cancel: cancel, done: make(chan struct{})}
}

// stop cancels the loop and waits for it to exit. It must not be called with
// Monitor.mu held because the poll loop takes the mutex.
func (h *loopHandle) stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *loopHandle) running() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Monitor detects new articles by polling and announces them.
// All methods are safe for concurrent use.
type Monitor struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger

	mu            sync.Mutex
	enabled       bool
	lastCount     int
	poll          *loopHandle
	flash         *loopHandle
	baselineTitle string
	hasBaseline   bool
	generation    uint64
	lastPollAt    time.Time
	lastErr       error

	// unsynced is set while the stored preference may disagree with enabled
	// because the last write failed.
	unsynced bool
}

// New builds a Monitor. The current title is captured as the initial baseline.
func New(deps Dependencies, opts Options) (*Monitor, error) {
	switch {
	case deps.Articles == nil:
		return nil, fmt.Errorf("%w: article counter", ErrMissingDependency)
	case deps.Preferences == nil:
		return nil, fmt.Errorf("%w: preference store", ErrMissingDependency)
	case deps.Title == nil:
		return nil, fmt.Errorf("%w: title surface", ErrMissingDependency)
	}
	if deps.Sound == nil {
		deps.Sound = noopSound{}
	}
	if deps.Desktop == nil {
		deps.Desktop = noopDesktop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	m := &Monitor{
		deps:   deps,
		opts:   opts.withDefaults(),
		logger: deps.Logger.With(slog.String("component", "monitor")),
	}
	if base := stripFlashPrefix(deps.Title.Title()); base != "" {
		m.baselineTitle = base
		m.hasBaseline = true
	}
	return m, nil
}

// IsEnabled re-reads the persisted preference and returns it.
// Storage is the source of truth; on a read error the cached flag is returned.
func (m *Monitor) IsEnabled(ctx context.Context) bool {
	value, ok, err := m.deps.Preferences.Get(ctx, m.opts.PreferenceKey)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsynced {
		return m.enabled
	}
	if err != nil {
		m.logger.Warn("failed to read notification preference",
			slog.String("key", m.opts.PreferenceKey),
			slog.Any("error", err))
		return m.enabled
	}
	if ok {
		m.enabled = value == "true"
	}
	return m.enabled
}

// Enable establishes a fresh baseline and starts polling.
//
// Calling Enable while already enabled restarts the baseline and the loop.
// A permission request error, a failed baseline fetch or a failed preference
// write leaves the monitor disabled with no loop running, and the preference
// is persisted as "false". While a write keeps failing, IsEnabled reports the
// in-memory state instead of the stale stored value.
// If Disable or another Enable ran while the baseline was being fetched,
// Enable returns ErrSuperseded without starting anything.
func (m *Monitor) Enable(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	previous := m.poll
	m.poll = nil
	m.enabled = false
	setEnabled(false)
	m.mu.Unlock()

	previous.stop()

	if err := m.ensurePermission(ctx); err != nil {
		return m.failEnable(ctx, gen, fmt.Errorf("request notification permission: %w", err))
	}

	total, err := m.deps.Articles.CountArticles(ctx)
	if err != nil {
		return m.failEnable(ctx, gen, fmt.Errorf("fetch baseline article count: %w", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		m.logger.Info("discarding stale baseline", slog.Int("total", total))
		return false, ErrSuperseded
	}
	if err := m.persist(ctx, true); err != nil {
		err = fmt.Errorf("persist notification preference: %w", err)
		m.lastErr = err
		if perr := m.persist(ctx, false); perr != nil {
			m.logger.Warn("failed to persist notification preference", slog.Any("error", perr))
		}
		return false, err
	}

	m.lastCount = total
	m.lastErr = nil
	m.enabled = true
	m.poll = m.startPoll(gen)
	setEnabled(true)
	lastCountGauge.Set(float64(total))

	m.logger.Info("new-article notifications enabled",
		slog.Int("baseline", total),
		slog.Duration("interval", m.opts.PollInterval))
	return true, nil
}

// ensurePermission asks for desktop notification consent when undecided.
// A denied outcome is not an error: sound and title flash still work.
func (m *Monitor) ensurePermission(ctx context.Context) error {
	if m.deps.Desktop.Permission(ctx) != entity.PermissionDefault {
		return nil
	}
	perm, err := m.deps.Desktop.RequestPermission(ctx)
	if err != nil {
		return err
	}
	m.logger.Debug("notification permission resolved", slog.String("permission", string(perm)))
	return nil
}

func (m *Monitor) failEnable(ctx context.Context, gen uint64, err error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastErr = err
	if m.generation == gen {
		m.enabled = false
		if perr := m.persist(ctx, false); perr != nil {
			m.logger.Warn("failed to persist notification preference",
				slog.Any("error", perr))
		}
	}
	m.logger.Error("failed to enable new-article notifications", slog.Any("error", err))
	return false, err
}

// persist writes the preference. Callers hold m.mu.
func (m *Monitor) persist(ctx context.Context, enabled bool) error {
	if err := m.deps.Preferences.Set(ctx, m.opts.PreferenceKey, strconv.FormatBool(enabled)); err != nil {
		m.unsynced = true
		return err
	}
	m.unsynced = false
	return nil
}

// Disable stops polling and flashing, restores the title and persists "false".
// It never fails; a persistence error is logged.
func (m *Monitor) Disable(ctx context.Context) {
	m.mu.Lock()
	m.generation++
	poll, flash := m.poll, m.flash
	m.poll, m.flash = nil, nil
	m.enabled = false
	m.lastCount = 0
	setEnabled(false)
	lastCountGauge.Set(0)
	if err := m.persist(ctx, false); err != nil {
		m.logger.Warn("failed to persist notification preference", slog.Any("error", err))
	}
	m.mu.Unlock()

	poll.stop()
	flash.stop()
	m.restoreTitle()

	m.logger.Info("new-article notifications disabled")
}

// Toggle inverts the current preference. The enable path may fail, in which
// case the monitor stays disabled and the error is returned.
func (m *Monitor) Toggle(ctx context.Context) (bool, error) {
	if m.IsEnabled(ctx) {
		m.Disable(ctx)
		return false, nil
	}
	return m.Enable(ctx)
}

// Initialize resumes polling when the persisted preference is "true".
// A fresh baseline is always fetched.
func (m *Monitor) Initialize(ctx context.Context) error {
	value, ok, err := m.deps.Preferences.Get(ctx, m.opts.PreferenceKey)
	if err != nil {
		return fmt.Errorf("read notification preference: %w", err)
	}
	if !ok || value != "true" {
		m.logger.Debug("new-article notifications not enabled at startup")
		return nil
	}
	if _, err := m.Enable(ctx); err != nil {
		return err
	}
	return nil
}

// ResetTitle stops any flash and restores the baseline title, or the
// fallback title when no baseline was ever captured.
func (m *Monitor) ResetTitle() {
	m.mu.Lock()
	flash := m.flash
	m.flash = nil
	m.mu.Unlock()

	flash.stop()
	m.restoreTitle()
}

// Dispose ends the monitor's lifecycle. Both loops are stopped and the title
// restored; the persisted preference is left as is.
func (m *Monitor) Dispose(_ context.Context) {
	m.mu.Lock()
	m.generation++
	poll, flash := m.poll, m.flash
	m.poll, m.flash = nil, nil
	m.enabled = false
	setEnabled(false)
	m.mu.Unlock()

	poll.stop()
	flash.stop()
	m.restoreTitle()
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Enabled:    m.enabled,
		Running:    m.poll.running(),
		LastCount:  m.lastCount,
		Flashing:   m.flash.running(),
		LastPollAt: m.lastPollAt,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

func (m *Monitor) restoreTitle() {
	m.mu.Lock()
	title := m.opts.FallbackTitle
	if m.hasBaseline {
		title = m.baselineTitle
	}
	m.mu.Unlock()

	m.deps.Title.SetTitle(title)
}

// startPoll must be called with m.mu held.
func (m *Monitor) startPoll(gen uint64) *loopHandle {
	ctx, h := newLoopHandle()

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(m.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.detect(ctx, gen)
			}
		}
	}()
	return h
}

// detect runs one poll tick. Every failure is contained so the loop survives.
func (m *Monitor) detect(ctx context.Context, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in new-article poll",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	total, err := m.deps.Articles.CountArticles(ctx)
	now := time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		recordPoll(pollResultError)
		m.mu.Lock()
		m.lastPollAt = now
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Warn("failed to check for new articles", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		recordPoll(pollResultStale)
		return
	}
	last := m.lastCount
	delta := total - last
	m.lastCount = total
	m.lastPollAt = now
	m.lastErr = nil
	m.mu.Unlock()

	lastCountGauge.Set(float64(total))

	if last <= 0 || delta <= 0 {
		recordPoll(pollResultUnchanged)
		return
	}

	recordPoll(pollResultNewArticles)
	newArticlesTotal.Add(float64(delta))
	m.logger.Info("new articles detected",
		slog.Int("count", delta),
		slog.Int("total", total))

	m.announce(ctx, gen, entity.ArticleAlert{Count: delta, Total: total, DetectedAt: now})
}

// announce fires the side effects in order: sound, title flash, desktop
// notification, remote alerts. Each one is isolated from the others.
func (m *Monitor) announce(ctx context.Context, gen uint64, alert entity.ArticleAlert) {
	m.sideEffect("sound", func() error {
		return m.deps.Sound.Play(ctx)
	})
	m.sideEffect("title", func() error {
		m.startFlash(gen, alert.Count)
		return nil
	})
	m.sideEffect("desktop", func() error {
		if m.deps.Desktop.Permission(ctx) != entity.PermissionGranted {
			return nil
		}
		body := fmt.Sprintf("Detected %d new articles", alert.Count)
		return m.deps.Desktop.Notify(m.opts.NotificationTitle, body, m.opts.NotificationIcon)
	})
	if m.deps.Alerts != nil {
		m.sideEffect("alerts", func() error {
			return m.deps.Alerts.NotifyNewArticles(ctx, alert)
		})
	}
}

func (m *Monitor) sideEffect(effect string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			sideEffectFailures.WithLabelValues(effect).Inc()
			m.logger.Error("panic in notification side effect",
				slog.String("effect", effect),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := fn(); err != nil {
		sideEffectFailures.WithLabelValues(effect).Inc()
		m.logger.Warn("notification side effect failed",
			slog.String("effect", effect),
			slog.Any("error", err))
	}
}

// startFlash replaces any running flash with a new one announcing n articles.
// The flash goroutine only touches the title surface, never m.mu. Nothing is
// started once gen is stale, so a Disable racing with a poll tick wins.
func (m *Monitor) startFlash(gen uint64, n int) {
	m.mu.Lock()
	previous := m.flash
	m.flash = nil
	m.mu.Unlock()

	previous.stop()

	base := stripFlashPrefix(m.deps.Title.Title())
	flashed := flashPrefix(n) + base

	ctx, h := newLoopHandle()

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		h.cancel()
		return
	}
	m.baselineTitle = base
	m.hasBaseline = true
	m.flash = h
	m.mu.Unlock()

	title := m.deps.Title
	interval, duration := m.opts.FlashInterval, m.opts.FlashDuration

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		deadline := time.NewTimer(duration)
		defer deadline.Stop()

		showPrefix := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				title.SetTitle(flashed)
				return
			case <-ticker.C:
				if showPrefix {
					title.SetTitle(flashed)
				} else {
					title.SetTitle(base)
				}
				showPrefix = !showPrefix
			}
		}
	}()
}
