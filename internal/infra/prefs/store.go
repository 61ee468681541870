// Package prefs persists client preferences such as the notification
// toggle and the desktop notification permission.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown preference store driver")

	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("preference store is closed")
)

// Store is a durable string key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Config selects and locates the store.
type Config struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// DefaultPath returns the per-user location for the given driver.
func DefaultPath(driver string) string {
	name := "prefs.db"
	if driver == DriverSQLite {
		name = "prefs.sqlite"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", name)
	}
	return filepath.Join(dir, "werss", name)
}

// Open creates the store described by cfg. An empty driver selects bolt.
func Open(cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverBolt
	}
	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	if driver != DriverBolt && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath(driver)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create preference directory: %w", err)
	}

	if driver == DriverSQLite {
		return OpenSQLite(path)
	}
	return OpenBolt(path)
}
