package postgresengine

import (
	"strings"

	"github.com/pustaka/circulation/circulation"
)

// Option defines a functional option for configuring a CirculationStore.
type Option func(*CirculationStore) error

// WithTablePrefix sets a prefix for all circulation tables, e.g. "lib_"
// turns "books" into "lib_books". The prefix must not contain whitespace.
func WithTablePrefix(prefix string) Option {
	return func(cs *CirculationStore) error {
		if strings.ContainsAny(prefix, " \t\n") {
			return ErrInvalidTablePrefix
		}

		cs.tablePrefix = prefix

		return nil
	}
}

// WithLogger sets the logger for the CirculationStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: operation outcomes and durations (production-safe)
// Warn level: non-critical issues like rollback failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger circulation.Logger) Option {
	return func(cs *CirculationStore) error {
		cs.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the CirculationStore. It
// receives statement durations and error counters.
func WithMetrics(collector circulation.MetricsCollector) Option {
	return func(cs *CirculationStore) error {
		cs.metrics = collector
		return nil
	}
}
