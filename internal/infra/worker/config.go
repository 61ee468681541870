package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"werss-client/internal/pkg/config"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvSyncCron            = "WERSS_SYNC_CRON"
	EnvTimezone            = "WERSS_TIMEZONE"
	EnvNotifyMaxConcurrent = "WERSS_NOTIFY_MAX_CONCURRENT"
	EnvSyncTimeout         = "WERSS_SYNC_TIMEOUT"
	EnvHealthPort          = "WERSS_HEALTH_PORT"
)

// WorkerConfig controls the watch daemon.
type WorkerConfig struct {
	// SyncCron schedules a backend-wide subscription sync, e.g. "0 */2 * * *".
	// Empty disables scheduled syncs.
	SyncCron string `yaml:"sync_cron"`

	// Timezone is the IANA zone SyncCron is evaluated in.
	// Default: "Asia/Shanghai"
	Timezone string `yaml:"timezone"`

	// NotifyMaxConcurrent bounds in-flight alert sends. Range 1-50.
	// Default: 10
	NotifyMaxConcurrent int `yaml:"notify_max_concurrent"`

	// SyncTimeout cancels a sync run that takes longer. Range 1m-2h.
	// Default: 10m
	SyncTimeout time.Duration `yaml:"sync_timeout"`

	// HealthPort is the control/health server port. Range 1024-65535.
	// Default: 9091
	HealthPort int `yaml:"health_port"`
}

// DefaultConfig returns the daemon defaults. Scheduled syncs are off.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		SyncCron:            "",
		Timezone:            "Asia/Shanghai",
		NotifyMaxConcurrent: 10,
		SyncTimeout:         10 * time.Minute,
		HealthPort:          9091,
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every invalid field at once.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if c.SyncCron != "" {
		if err := config.ValidateCronSchedule(c.SyncCron); err != nil {
			errs = append(errs, fmt.Errorf("sync cron: %w", err))
		}
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := config.ValidateDuration(c.SyncTimeout, time.Minute, 2*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("sync timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfigFromEnv overlays WERSS_* variables on base. It never fails:
// a rejected value keeps the base value, logs a warning and is counted in
// metrics. metrics may be nil.
func LoadConfigFromEnv(base WorkerConfig, logger *slog.Logger, metrics *WorkerMetrics) WorkerConfig {
	if logger == nil {
		logger = slog.Default()
	}
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	cfg := base

	warn := func(field string, warnings []string) {
		for _, w := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", w))
		}
	}

	cron := config.LoadEnvWithFallback(EnvSyncCron, cfg.SyncCron, config.ValidateCronSchedule)
	warn("SyncCron", cron.Warnings)
	cfg.SyncCron = config.Observe(cm, "sync_cron", cron)

	tz := config.LoadEnvWithFallback(EnvTimezone, cfg.Timezone, config.ValidateTimezone)
	warn("Timezone", tz.Warnings)
	cfg.Timezone = config.Observe(cm, "timezone", tz)

	workers := config.LoadEnvInt(EnvNotifyMaxConcurrent, cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	warn("NotifyMaxConcurrent", workers.Warnings)
	cfg.NotifyMaxConcurrent = config.Observe(cm, "notify_max_concurrent", workers)

	timeout := config.LoadEnvDuration(EnvSyncTimeout, cfg.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 2*time.Hour)
	})
	warn("SyncTimeout", timeout.Warnings)
	cfg.SyncTimeout = config.Observe(cm, "sync_timeout", timeout)

	port := config.LoadEnvInt(EnvHealthPort, cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	warn("HealthPort", port.Warnings)
	cfg.HealthPort = config.Observe(cm, "health_port", port)

	if cm != nil {
		cm.RecordLoadTimestamp()
	}
	return cfg
}
