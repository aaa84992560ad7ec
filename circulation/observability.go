package circulation

import (
	"time"
)

// Logger interface for operational logging, warnings, and error reporting.
// It is slog-shaped so any structured logger can back it without this
// package taking a dependency.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting operational metrics from the
// loan engine and the storage engines. Implementations can bridge to any
// metrics backend; the core stays dependency-free.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}
