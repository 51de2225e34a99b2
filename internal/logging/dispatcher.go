package logging

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// errorWindow is how often a repeating dispatcher error is logged.
const errorWindow = 5 * time.Second

// DispatcherLogger adapts slog.Logger to the dispatcher.Logger interface.
// Snapshot events arrive many times a second, so an error that repeats for
// the same command is logged once per window with a count of the ones
// skipped in between.
type DispatcherLogger struct {
	logger *slog.Logger
	window time.Duration

	mu     sync.Mutex
	errors map[string]*repeatedError
}

type repeatedError struct {
	every      rate.Sometimes
	suppressed int
}

// NewDispatcherLogger tags every record with component=dispatcher.
func NewDispatcherLogger(logger *slog.Logger) *DispatcherLogger {
	return newDispatcherLogger(logger, errorWindow)
}

func newDispatcherLogger(logger *slog.Logger, window time.Duration) *DispatcherLogger {
	return &DispatcherLogger{
		logger: logger.With("component", "dispatcher"),
		window: window,
		errors: make(map[string]*repeatedError),
	}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	key := msg + "|" + commandOf(keysAndValues)

	l.mu.Lock()
	e, ok := l.errors[key]
	if !ok {
		e = &repeatedError{every: rate.Sometimes{First: 1, Interval: l.window}}
		l.errors[key] = e
	}
	logged, suppressed := false, 0
	e.every.Do(func() {
		logged, suppressed = true, e.suppressed
		e.suppressed = 0
	})
	if !logged {
		e.suppressed++
	}
	l.mu.Unlock()

	if !logged {
		return
	}
	if suppressed > 0 {
		keysAndValues = append(keysAndValues, "suppressed", suppressed)
	}
	l.logger.Error(msg, keysAndValues...)
}

// commandOf finds the "command" value the dispatcher attaches to its logs.
func commandOf(keysAndValues []any) string {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok && k == "command" {
			return fmt.Sprint(keysAndValues[i+1])
		}
	}
	return ""
}
