// Package config loads environment overrides with validation and fail-open
// fallbacks. A rejected value never aborts startup: the default is kept and
// a warning describes what was ignored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
//
//	res := LoadEnvDuration("WERSS_SYNC_TIMEOUT", 10*time.Minute, ValidatePositiveDuration)
//	for _, w := range res.Warnings {
//	    slog.Warn("configuration fallback", slog.String("detail", w))
//	}
//	timeout := res.Value
type Result[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// Load reads envKey, parses it and validates it. An unset or empty variable
// yields def without a warning; a parse or validation failure yields def
// with a warning.
func Load[T any](envKey string, def T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[T]{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return Result[T]{
			Value:           def,
			Warnings:        []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, def)},
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: v}
}

// LoadEnvString returns the variable's value or def when unset. No validation.
func LoadEnvString(envKey, def string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}

// LoadEnvWithFallback loads a string checked by validator, which may be nil.
func LoadEnvWithFallback(envKey, def string, validator func(string) error) Result[string] {
	return Load(envKey, def, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string such as "90s" or "1h30m".
func LoadEnvDuration(envKey string, def time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return Load(envKey, def, time.ParseDuration, validator)
}

// LoadEnvInt loads a base 10 integer. Surrounding spaces are rejected.
func LoadEnvInt(envKey string, def int, validator func(int) error) Result[int] {
	return Load(envKey, def, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a decimal number.
func LoadEnvFloat(envKey string, def float64, validator func(float64) error) Result[float64] {
	return Load(envKey, def, func(s string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return v, nil
	}, validator)
}

// LoadEnvBool loads a boolean in any form accepted by strconv.ParseBool.
func LoadEnvBool(envKey string, def bool) Result[bool] {
	return Load(envKey, def, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}
