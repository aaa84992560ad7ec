package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// TestLogHandler is a slog.Handler implementation that captures log records for testing.
type TestLogHandler struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewTestLogHandler creates a new TestLogHandler.
// Switchable to log to stdout, which can be useful for debugging tests by seeing the actual log output.
func NewTestLogHandler(logToStdOut bool) *TestLogHandler {
	return &TestLogHandler{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdOut,
	}
}

// Handle implements slog.Handler interface.
func (h *TestLogHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)

	if h.logToStdout {
		jsonHandler := slog.NewJSONHandler(os.Stdout, nil)
		_ = jsonHandler.Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler interface.
func (h *TestLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true // Always enabled for testing
}

// WithAttrs implements slog.Handler interface.
func (h *TestLogHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler interface.
func (h *TestLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

// GetRecordCount returns the number of captured log records.
func (h *TestLogHandler) GetRecordCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.records)
}

// Reset clears all captured log records.
func (h *TestLogHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}

// HasLogWithMessage checks for a log record at the given level with the
// given message.
func (h *TestLogHandler) HasLogWithMessage(level slog.Level, message string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, record := range h.records {
		if record.Level == level && record.Message == message {
			return true
		}
	}

	return false
}

// HasDebugLog checks if there's a debug-level log record containing the specified message.
func (h *TestLogHandler) HasDebugLog(message string) bool {
	return h.HasLogWithMessage(slog.LevelDebug, message)
}

// HasInfoLog checks if there's an info-level log record containing the specified message.
func (h *TestLogHandler) HasInfoLog(message string) bool {
	return h.HasLogWithMessage(slog.LevelInfo, message)
}

// HasWarnLog checks if there's a warn-level log record containing the specified message.
func (h *TestLogHandler) HasWarnLog(message string) bool {
	return h.HasLogWithMessage(slog.LevelWarn, message)
}

// HasErrorLog checks if there's an error-level log record containing the specified message.
func (h *TestLogHandler) HasErrorLog(message string) bool {
	return h.HasLogWithMessage(slog.LevelError, message)
}

// HasLogWithAttr checks for a log record with the given message that carries
// the given attribute key.
func (h *TestLogHandler) HasLogWithAttr(message string, attrKey string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, record := range h.records {
		if record.Message != message {
			continue
		}

		found := false
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == attrKey {
				found = true
				return false // Stop iteration
			}

			return true // Continue iteration
		})

		if found {
			return true
		}
	}

	return false
}
