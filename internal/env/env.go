// Package env reads process configuration from environment variables,
// consolidating what used to be two separate, duplicate env-reading paths
// in the gateway command into one typed helper set.
package env

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Str returns the value of the environment variable key, or fallback if unset/empty.
func Str(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// Int returns the integer value of key, or fallback if unset/empty/unparsable.
func Int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("env: invalid int, using fallback", "key", key, "value", val)
		return fallback
	}
	return n
}

// Float returns the float64 value of key, or fallback if unset/empty/unparsable.
func Float(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("env: invalid float, using fallback", "key", key, "value", val)
		return fallback
	}
	return f
}

// Bool returns the boolean value of key, or fallback if unset/empty/unparsable.
func Bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("env: invalid bool, using fallback", "key", key, "value", val)
		return fallback
	}
	return b
}

// Duration returns the time.Duration value of key (parsed with
// time.ParseDuration, e.g. "1500ms", "3s"), or fallback if unset/empty/unparsable.
func Duration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("env: invalid duration, using fallback", "key", key, "value", val)
		return fallback
	}
	return d
}
