// Package config loads process settings from the environment with
// fail-open semantics: an invalid value never stops a binary from
// starting, it falls back to the default and leaves a warning behind.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is one loaded setting.
type LoadResult[T any] struct {
	Value T
	// Warning explains the fallback; empty when FallbackApplied is false.
	Warning         string
	FallbackApplied bool
}

func fallback[T any](key, raw string, def T, reason error) LoadResult[T] {
	return LoadResult[T]{
		Value:           def,
		Warning:         fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", key, raw, reason, def),
		FallbackApplied: true,
	}
}

// load reads key, parses it and validates it. Unset or blank keys yield
// def without a warning.
func load[T any](key string, def T, parse func(string) (T, error), validate func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return LoadResult[T]{Value: def}
	}
	v, err := parse(raw)
	if err != nil {
		return fallback(key, raw, def, err)
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return fallback(key, raw, def, err)
		}
	}
	return LoadResult[T]{Value: v}
}

// LoadEnvString returns key's value or def. No validation.
func LoadEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadEnvWithFallback loads a validated string.
func LoadEnvWithFallback(key, def string, validate func(string) error) LoadResult[string] {
	return load(key, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadEnvDuration loads a Go duration ("90s", "5m", "1h30m").
func LoadEnvDuration(key string, def time.Duration, validate func(time.Duration) error) LoadResult[time.Duration] {
	return load(key, def, time.ParseDuration, validate)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(key string, def int, validate func(int) error) LoadResult[int] {
	return load(key, def, strconv.Atoi, validate)
}

// LoadEnvBool accepts the strconv.ParseBool spellings.
func LoadEnvBool(key string, def bool) LoadResult[bool] {
	return load(key, def, strconv.ParseBool, nil)
}

// Tracker applies load results for one component, logging each fallback and
// recording it in the component's ConfigMetrics.
type Tracker struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fallback bool
}

// NewTracker creates a Tracker. metrics may be nil.
func NewTracker(logger *slog.Logger, metrics *ConfigMetrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, metrics: metrics}
}

// Track returns r.Value, noting a fallback under field.
func Track[T any](t *Tracker, field string, r LoadResult[T]) T {
	if r.FallbackApplied {
		t.fallback = true
		if t.metrics != nil {
			t.metrics.RecordValidationError(field)
			t.metrics.RecordFallback(field)
		}
		t.logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
	}
	return r.Value
}

// FallbackApplied reports whether any tracked setting fell back.
func (t *Tracker) FallbackApplied() bool { return t.fallback }

// Done publishes the load timestamp and the fallback gauge.
func (t *Tracker) Done() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetFallbackActive(t.fallback)
	t.metrics.RecordLoadTimestamp()
}
