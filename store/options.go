package store

import "log/slog"

// Option configures a Manager.
type Option func(*Manager)

// WithLogger routes Manager logs to l instead of the process logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}
