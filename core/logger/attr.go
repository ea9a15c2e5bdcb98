package logger

import (
	"io"
	"log/slog"
	"time"
)

// Discard returns a logger that drops every record. Used as the default for
// components that were not handed a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Substrate names the durable storage backend an operation touched.
func Substrate(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("substrate", name)
}

// StoreKey creates an attribute for a key-value store key.
func StoreKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("store_key", key)
}

// Tier names a preference-cache tier.
func Tier(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("tier", name)
}

// Source tags where a cached value was resolved from (remote, local, fallback).
func Source(src string) slog.Attr {
	if src == "" {
		return slog.Attr{}
	}
	return slog.String("source", src)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("event", name)
}

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
