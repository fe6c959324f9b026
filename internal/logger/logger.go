// Package logger holds the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger. It discards everything until Init enables it.
var L = slog.New(slog.DiscardHandler)

const (
	logPrefix     = "flashctl-"
	logSuffix     = ".log"
	retentionDays = 14
)

// Options configures Init.
type Options struct {
	Enabled bool       // if false, all output is discarded
	Level   slog.Level // minimum level
	JSON    bool       // JSON records instead of key=value text
	LogDir  string     // daily files under this directory; empty logs to Stderr
	Stderr  io.Writer  // defaults to os.Stderr
}

// Init replaces L according to opts. It returns a close function for the log
// file, which is a no-op when logging to stderr or disabled.
func Init(opts Options) (func() error, error) {
	noop := func() error { return nil }
	if !opts.Enabled {
		L = slog.New(slog.DiscardHandler)
		return noop, nil
	}

	var (
		w       io.Writer
		closeFn = noop
	)
	if opts.LogDir == "" {
		w = opts.Stderr
		if w == nil {
			w = os.Stderr
		}
	} else {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return noop, err
		}
		cleanOldLogs(opts.LogDir, time.Now())

		name := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return noop, err
		}
		w, closeFn = f, f.Close
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, hopts))
	} else {
		L = slog.New(slog.NewTextHandler(w, hopts))
	}
	return closeFn, nil
}

// ParseLevel accepts debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
	}
	return l, nil
}

// cleanOldLogs removes daily files older than retentionDays. Best effort.
func cleanOldLogs(dir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, logPrefix), logSuffix))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			os.Remove(filepath.Join(dir, name))
		}
	}
}

// Debug logs at debug level on L.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level on L.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level on L.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level on L.
func Error(msg string, args ...any) { L.Error(msg, args...) }
