package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"werss-client/internal/config"
	"werss-client/internal/handler/http/control"
	"werss-client/internal/infra/desktop"
	"werss-client/internal/infra/notifier"
	"werss-client/internal/infra/prefs"
	"werss-client/internal/infra/worker"
	"werss-client/internal/usecase/monitor"
	"werss-client/internal/usecase/notify"
)

const (
	defaultChannelTimeout = 10 * time.Second
	disposeTimeout        = 10 * time.Second
)

type watchOptions struct {
	listen  string
	enable  bool
	noSound bool
}

func (a *app) watchCommand() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Run the new-article monitor in the foreground",
		GroupID: groupDaemon,
		Long: `Run the new-article monitor until interrupted.

The monitor resumes in the state it was left in. The control and health
endpoints listen on the worker health port, and the backend sync runs on
worker.sync_cron when it is set.`,
		Example: `  werss watch
  werss watch --enable --no-sound`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "127.0.0.1", "Host the control server binds to")
	cmd.Flags().BoolVar(&opts.enable, "enable", false, "Turn notifications on at startup")
	cmd.Flags().BoolVar(&opts.noSound, "no-sound", false, "Do not play the chime")
	return cmd
}

func (a *app) runWatch(parent context.Context, opts watchOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger

	store, err := prefs.Open(cfg.Prefs)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close preference store", slog.Any("error", err))
		}
	}()

	client, err := a.apiClient()
	if err != nil {
		return err
	}

	deps := monitor.Dependencies{
		Articles:    client,
		Preferences: store,
		Title:       desktop.NewTerminalTitle(nil, cfg.Monitor.Title),
		Desktop:     desktop.NewNotifier(store, cfg.Desktop.Permission, logger),
		Logger:      logger,
	}
	if cfg.Desktop.SoundEnabled && !opts.noSound {
		player := desktop.NewSoundPlayer(desktop.SoundConfig{File: cfg.Desktop.SoundFile, Volume: cfg.Desktop.Volume}, logger)
		defer player.Close()
		deps.Sound = player
	}

	channels := buildChannels(cfg.Channels, logger)
	alerts := notify.NewService(channels, cfg.Worker.NotifyMaxConcurrent,
		notify.WithRecentArticles(client, cfg.Monitor.RecentArticles),
		notify.WithLogger(logger))
	deps.Alerts = alerts

	mon, err := monitor.New(deps, monitor.Options{
		PollInterval:      cfg.Monitor.PollInterval,
		FlashInterval:     cfg.Monitor.FlashInterval,
		FlashDuration:     cfg.Monitor.FlashDuration,
		FallbackTitle:     cfg.Monitor.Title,
		NotificationTitle: cfg.Monitor.NotificationTitle,
		NotificationIcon:  cfg.Monitor.NotificationIcon,
	})
	if err != nil {
		return err
	}

	// A backend outage at startup must not keep the control server down.
	if err := mon.Initialize(ctx); err != nil {
		logger.Warn("monitor could not resume", slog.Any("error", err))
	}
	if opts.enable {
		if _, err := mon.Enable(ctx); err != nil {
			logger.Warn("monitor could not be enabled", slog.Any("error", err))
		}
	}

	health := worker.NewHealthServer(
		net.JoinHostPort(opts.listen, strconv.Itoa(cfg.Worker.HealthPort)),
		&control.Handler{Monitor: mon, Channels: alerts, Logger: logger},
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := health.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		addr, err := health.Addr(gctx)
		if err != nil {
			return nil
		}
		health.SetReady(true)
		logger.Info("watching for new articles",
			slog.String("control_addr", addr.String()),
			slog.String("backend", client.BaseURL()),
			slog.Int("channels", len(channels)),
			slog.Bool("enabled", mon.Status().Enabled))
		return nil
	})
	if cfg.Worker.SyncCron != "" {
		job := worker.NewSyncJob(client, cfg.Worker.SyncTimeout, daemonMetrics(), logger)
		g.Go(func() error {
			return job.RunScheduler(gctx, cfg.Worker.SyncCron, cfg.Worker.Location())
		})
	}

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()
	mon.Dispose(shutdownCtx)
	if err := alerts.Shutdown(shutdownCtx); err != nil {
		logger.Warn("alert service did not drain", slog.Any("error", err))
	}
	logger.Info("watch stopped")
	return runErr
}

// buildChannels turns the enabled endpoints into alert channels.
func buildChannels(cc config.ChannelsConfig, logger *slog.Logger) []notify.Channel {
	timeout := func(d time.Duration) time.Duration {
		if d <= 0 {
			return defaultChannelTimeout
		}
		return d
	}

	var channels []notify.Channel
	if cc.Discord.Enabled {
		channels = append(channels, notify.NewDiscordChannel(notifier.DiscordConfig{
			Enabled:    true,
			WebhookURL: cc.Discord.URL,
			Timeout:    timeout(cc.Discord.Timeout),
		}))
	}
	if cc.Slack.Enabled {
		channels = append(channels, notify.NewSlackChannel(notifier.SlackConfig{
			Enabled:    true,
			WebhookURL: cc.Slack.URL,
			Timeout:    timeout(cc.Slack.Timeout),
		}))
	}
	for _, wh := range cc.Webhooks {
		if !wh.Enabled {
			continue
		}
		channels = append(channels, notify.NewWebhookChannel(wh.Name, notifier.WebhookConfig{
			Enabled: true,
			URL:     wh.URL,
			Timeout: timeout(wh.Timeout),
		}))
	}

	for _, ch := range channels {
		logger.Info("alert channel enabled", slog.String("channel", ch.Name()))
	}
	return channels
}
