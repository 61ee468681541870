package feed

import (
	"fmt"
	"time"

	pkgconfig "werss-client/internal/pkg/config"
)

// ContentFetchConfig holds the limits applied when loading article pages.
type ContentFetchConfig struct {
	// Timeout is the maximum duration for a single HTTP request.
	// Default: 10s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// It is enforced while reading, not from Content-Length.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is validated like the original URL.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private, loopback or link-local
	// addresses. The CLI turns it off for self-hosted backends on a LAN.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns the default configuration for content fetching.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Timeout:        10 * time.Second,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks that the configuration values are usable.
//
// Validation rules:
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
func (c *ContentFetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv overlays WERSS_CONTENT_FETCH_* variables on the defaults.
// Invalid values fall back to the default and produce a warning.
//
// Environment variables:
//   - WERSS_CONTENT_FETCH_TIMEOUT: duration string (default: 10s)
//   - WERSS_CONTENT_FETCH_MAX_BODY_SIZE: integer bytes (default: 10485760)
//   - WERSS_CONTENT_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - WERSS_CONTENT_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv() (ContentFetchConfig, []string) {
	cfg := DefaultConfig()
	var warnings []string

	timeout := pkgconfig.LoadEnvDuration("WERSS_CONTENT_FETCH_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	cfg.Timeout = timeout.Value
	warnings = append(warnings, timeout.Warnings...)

	size := pkgconfig.LoadEnvInt("WERSS_CONTENT_FETCH_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1024, 100*1024*1024)
	})
	cfg.MaxBodySize = int64(size.Value)
	warnings = append(warnings, size.Warnings...)

	redirects := pkgconfig.LoadEnvInt("WERSS_CONTENT_FETCH_MAX_REDIRECTS", cfg.MaxRedirects, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 10)
	})
	cfg.MaxRedirects = redirects.Value
	warnings = append(warnings, redirects.Warnings...)

	deny := pkgconfig.LoadEnvBool("WERSS_CONTENT_FETCH_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	cfg.DenyPrivateIPs = deny.Value
	warnings = append(warnings, deny.Warnings...)

	return cfg, warnings
}
