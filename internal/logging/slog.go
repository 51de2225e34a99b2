package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Replaced in tests.
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// instrumentationName names the otelslog logger.
const instrumentationName = "monreader"

// SlogManager owns the process logger. Its level can be changed while
// running, for example to turn on debug output while a read misbehaves.
type SlogManager struct {
	logger      *slog.Logger
	host        *slog.Logger
	level       slog.LevelVar
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// Option adds an optional sink or decoration to Setup.
type Option func(*setupOptions)

type setupOptions struct {
	graylog io.Writer
	context ContextProvider
}

// WithGraylog adds a JSON handler writing to w, usually a GELF writer.
func WithGraylog(w io.Writer) Option {
	return func(o *setupOptions) { o.graylog = w }
}

// WithContext attaches p's attributes to every record.
func WithContext(p ContextProvider) Option {
	return func(o *setupOptions) { o.context = p }
}

// ParseLevel converts a level name to slog.Level. Besides slog's names it
// accepts the names the emulator script logs with.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR", "FATAL":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// parseLevel is ParseLevel defaulting to info.
func parseLevel(level string) slog.Level {
	l, _ := ParseLevel(level)
	return l
}

func utcTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// Setup builds the logger. Records go to file when one is given and to
// stdout otherwise, plus Graylog and OTel when configured. Every sink
// follows the manager's level.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}
	m.level.Set(parseLevel(level))
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{Level: &m.level, ReplaceAttr: utcTime}
	if file == nil {
		file = osStdout
	}
	sinks := []Sink{{Name: "file", Handler: slog.NewTextHandler(file, handlerOpts)}}
	if o.graylog != nil {
		sinks = append(sinks, Sink{Name: "graylog", Handler: slog.NewJSONHandler(o.graylog, handlerOpts)})
	}
	if provider != nil {
		sinks = append(sinks, Sink{
			Name:    "otel",
			Handler: otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)),
			Level:   &m.level,
		})
	}

	m.logger = slog.New(NewFanoutHandler(o.context, sinks...))
	m.host = m.logger.With("component", "host")
	m.logger.Info("Logging initialized", "level", m.level.Level())
}

// SetLevel changes the level of every sink.
func (m *SlogManager) SetLevel(level string) (slog.Level, error) {
	l, ok := ParseLevel(level)
	if !ok {
		return m.level.Level(), fmt.Errorf("unknown log level %q", level)
	}
	prev := m.level.Level()
	m.level.Set(l)
	if m.logger != nil && prev != l {
		m.logger.Info("Log level changed", "from", prev, "to", l)
	}
	return l, nil
}

// Level returns the current level.
func (m *SlogManager) Level() slog.Level {
	return m.level.Level()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a line from the emulator script at the named level.
func (m *SlogManager) WriteLog(source, data, level string) {
	if m.host == nil {
		return
	}
	m.host.Log(context.Background(), parseLevel(level), data, "source", source)
}
