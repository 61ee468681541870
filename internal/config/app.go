// Package config assembles the client configuration from an optional YAML
// file and WERSS_* environment variables. Environment values win over the
// file, and rejected environment values fall back to the file value.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"werss-client/internal/infra/api"
	"werss-client/internal/infra/desktop"
	"werss-client/internal/infra/prefs"
	"werss-client/internal/infra/worker"
	pkgconfig "werss-client/internal/pkg/config"
)

// Environment variables read by Load, in addition to the worker ones.
const (
	EnvAPIURL         = "WERSS_API_URL"
	EnvToken          = "WERSS_TOKEN"
	EnvAPITimeout     = "WERSS_API_TIMEOUT"
	EnvPollInterval   = "WERSS_POLL_INTERVAL"
	EnvPrefsDriver    = "WERSS_PREFS_DRIVER"
	EnvPrefsPath      = "WERSS_PREFS_PATH"
	EnvPermission     = "WERSS_NOTIFICATION_PERMISSION"
	EnvSoundFile      = "WERSS_SOUND_FILE"
	EnvSoundEnabled   = "WERSS_SOUND_ENABLED"
	EnvDiscordWebhook = "WERSS_DISCORD_WEBHOOK_URL"
	EnvSlackWebhook   = "WERSS_SLACK_WEBHOOK_URL"
	EnvWebhookURL     = "WERSS_WEBHOOK_URL"
	EnvControlURL     = "WERSS_CONTROL_URL"
	EnvLogFile        = "WERSS_LOG_FILE"
)

// AppConfig is the full client configuration.
type AppConfig struct {
	API      APIConfig           `yaml:"api"`
	Prefs    prefs.Config        `yaml:"prefs"`
	Monitor  MonitorConfig       `yaml:"monitor"`
	Desktop  DesktopConfig       `yaml:"desktop"`
	Channels ChannelsConfig      `yaml:"channels"`
	Logging  LoggingConfig       `yaml:"logging"`
	Worker   worker.WorkerConfig `yaml:"worker"`

	// ControlURL is where `werss notify` reaches a running daemon.
	ControlURL string `yaml:"control_url"`
}

// APIConfig locates and authenticates the backend.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
}

// MonitorConfig tunes polling and the announcement of new articles.
type MonitorConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	FlashInterval     time.Duration `yaml:"flash_interval"`
	FlashDuration     time.Duration `yaml:"flash_duration"`
	Title             string        `yaml:"title"`
	NotificationTitle string        `yaml:"notification_title"`
	NotificationIcon  string        `yaml:"notification_icon"`

	// RecentArticles is how many article titles remote alerts include.
	RecentArticles int `yaml:"recent_articles"`
}

// DesktopConfig controls the local notification surfaces.
type DesktopConfig struct {
	Permission   desktop.PermissionPolicy `yaml:"permission"`
	SoundEnabled bool                     `yaml:"sound_enabled"`
	SoundFile    string                   `yaml:"sound_file"`
	Volume       float64                  `yaml:"volume"`
}

// WebhookEndpoint is a single remote alert destination.
type WebhookEndpoint struct {
	Name    string        `yaml:"name"`
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChannelsConfig lists the remote alert channels. All are off by default.
type ChannelsConfig struct {
	Discord  WebhookEndpoint   `yaml:"discord"`
	Slack    WebhookEndpoint   `yaml:"slack"`
	Webhooks []WebhookEndpoint `yaml:"webhooks"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

const defaultChannelTimeout = 10 * time.Second

// Default returns the configuration used when nothing is set.
func Default() AppConfig {
	apiDefaults := api.DefaultConfig()
	return AppConfig{
		API: APIConfig{
			BaseURL:   apiDefaults.BaseURL,
			Timeout:   apiDefaults.Timeout,
			RateLimit: apiDefaults.RateLimit,
			RateBurst: apiDefaults.RateBurst,
		},
		Prefs: prefs.Config{Driver: prefs.DriverBolt},
		Monitor: MonitorConfig{
			PollInterval:      60 * time.Second,
			FlashInterval:     time.Second,
			FlashDuration:     10 * time.Second,
			Title:             "WeRSS",
			NotificationTitle: "WeRSS - New articles",
			RecentArticles:    5,
		},
		Desktop: DesktopConfig{
			Permission:   desktop.PolicyAllow,
			SoundEnabled: true,
			Volume:       desktop.DefaultVolume,
		},
		Channels: ChannelsConfig{
			Discord: WebhookEndpoint{Name: "discord", Timeout: defaultChannelTimeout},
			Slack:   WebhookEndpoint{Name: "slack", Timeout: defaultChannelTimeout},
		},
		Logging:    LoggingConfig{Format: "json"},
		Worker:     worker.DefaultConfig(),
		ControlURL: "http://127.0.0.1:9091",
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result. metrics may be nil.
// The path is expected to come from the command line or a fixed default.
func Load(path string, logger *slog.Logger, metrics *worker.WorkerMetrics) (*AppConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path comes from the --config flag
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for _, w := range cfg.applyEnv() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	cfg.Worker = worker.LoadConfigFromEnv(cfg.Worker, logger, metrics)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnv overlays the WERSS_* variables and returns fallback warnings.
func (c *AppConfig) applyEnv() []string {
	var warnings []string
	collect := func(w []string) { warnings = append(warnings, w...) }

	baseURL := pkgconfig.LoadEnvWithFallback(EnvAPIURL, c.API.BaseURL, pkgconfig.ValidateHTTPURL)
	collect(baseURL.Warnings)
	c.API.BaseURL = baseURL.Value

	c.API.Token = pkgconfig.LoadEnvString(EnvToken, c.API.Token)

	timeout := pkgconfig.LoadEnvDuration(EnvAPITimeout, c.API.Timeout, pkgconfig.ValidatePositiveDuration)
	collect(timeout.Warnings)
	c.API.Timeout = timeout.Value

	poll := pkgconfig.LoadEnvDuration(EnvPollInterval, c.Monitor.PollInterval, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 24*time.Hour)
	})
	collect(poll.Warnings)
	c.Monitor.PollInterval = poll.Value

	driver := pkgconfig.LoadEnvWithFallback(EnvPrefsDriver, c.Prefs.Driver,
		pkgconfig.OneOf(prefs.DriverBolt, prefs.DriverSQLite, prefs.DriverMemory))
	collect(driver.Warnings)
	c.Prefs.Driver = driver.Value
	c.Prefs.Path = pkgconfig.LoadEnvString(EnvPrefsPath, c.Prefs.Path)

	policy := pkgconfig.LoadEnvWithFallback(EnvPermission, string(c.Desktop.Permission),
		pkgconfig.OneOf(string(desktop.PolicyAllow), string(desktop.PolicyDeny)))
	collect(policy.Warnings)
	c.Desktop.Permission = desktop.PermissionPolicy(policy.Value)

	sound := pkgconfig.LoadEnvBool(EnvSoundEnabled, c.Desktop.SoundEnabled)
	collect(sound.Warnings)
	c.Desktop.SoundEnabled = sound.Value
	c.Desktop.SoundFile = pkgconfig.LoadEnvString(EnvSoundFile, c.Desktop.SoundFile)

	// A webhook URL in the environment switches its channel on.
	if v := pkgconfig.LoadEnvString(EnvDiscordWebhook, ""); v != "" {
		c.Channels.Discord.URL, c.Channels.Discord.Enabled = v, true
	}
	if v := pkgconfig.LoadEnvString(EnvSlackWebhook, ""); v != "" {
		c.Channels.Slack.URL, c.Channels.Slack.Enabled = v, true
	}
	if v := pkgconfig.LoadEnvString(EnvWebhookURL, ""); v != "" {
		c.Channels.Webhooks = append(c.Channels.Webhooks, WebhookEndpoint{Enabled: true, URL: v})
	}

	control := pkgconfig.LoadEnvWithFallback(EnvControlURL, c.ControlURL, pkgconfig.ValidateHTTPURL)
	collect(control.Warnings)
	c.ControlURL = control.Value

	c.Logging.File = pkgconfig.LoadEnvString(EnvLogFile, c.Logging.File)
	return warnings
}

// Validate reports every invalid field at once.
func (c *AppConfig) Validate() error {
	var errs []error

	if err := pkgconfig.ValidateHTTPURL(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.API.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("api.timeout: %w", err))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if err := pkgconfig.ValidateDuration(c.Monitor.PollInterval, time.Second, 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("monitor.poll_interval: %w", err))
	}
	if c.Monitor.RecentArticles < 0 || c.Monitor.RecentArticles > 20 {
		errs = append(errs, fmt.Errorf("monitor.recent_articles must be between 0 and 20, got %d", c.Monitor.RecentArticles))
	}
	if err := pkgconfig.OneOf(string(desktop.PolicyAllow), string(desktop.PolicyDeny))(string(c.Desktop.Permission)); err != nil {
		errs = append(errs, fmt.Errorf("desktop.permission: %w", err))
	}
	if c.Desktop.Volume < 0 || c.Desktop.Volume > 1 {
		errs = append(errs, fmt.Errorf("desktop.volume must be between 0 and 1, got %v", c.Desktop.Volume))
	}
	for _, ep := range c.endpoints() {
		if !ep.Enabled {
			continue
		}
		if err := pkgconfig.ValidateHTTPURL(ep.URL); err != nil {
			errs = append(errs, fmt.Errorf("channels.%s.url: %w", ep.label(), err))
		}
	}
	if err := pkgconfig.OneOf("", "json", "text")(strings.ToLower(c.Logging.Format)); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}
	if err := c.Worker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("worker: %w", err))
	}

	return errors.Join(errs...)
}

func (c *AppConfig) endpoints() []WebhookEndpoint {
	eps := []WebhookEndpoint{c.Channels.Discord, c.Channels.Slack}
	return append(eps, c.Channels.Webhooks...)
}

func (e WebhookEndpoint) label() string {
	if e.Name != "" {
		return e.Name
	}
	return "webhook"
}

// APIClientConfig converts the API section into an api.Config.
func (c *AppConfig) APIClientConfig(logger *slog.Logger) api.Config {
	cfg := api.DefaultConfig()
	cfg.BaseURL = c.API.BaseURL
	cfg.Token = c.API.Token
	cfg.Timeout = c.API.Timeout
	cfg.RateLimit = c.API.RateLimit
	if c.API.RateBurst > 0 {
		cfg.RateBurst = c.API.RateBurst
	}
	cfg.Logger = logger
	return cfg
}
