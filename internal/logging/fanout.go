package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ContextProvider returns attributes that change between records, such as
// the current frame.
type ContextProvider func() []slog.Attr

// SessionAttrs reports the current session id and frame number. Empty
// sessions are omitted.
func SessionAttrs(session func() string, frame func() uint64) ContextProvider {
	return func() []slog.Attr {
		attrs := make([]slog.Attr, 0, 2)
		if id := session(); id != "" {
			attrs = append(attrs, slog.String("session", id))
		}
		return append(attrs, slog.Uint64("frame", frame()))
	}
}

// Sink is one log destination. Level, when set, is checked before the
// handler's own Enabled; the otelslog bridge has no level of its own.
type Sink struct {
	Name    string
	Handler slog.Handler
	Level   slog.Leveler
}

func (s Sink) enabled(ctx context.Context, level slog.Level) bool {
	if s.Level != nil && level < s.Level.Level() {
		return false
	}
	return s.Handler.Enabled(ctx, level)
}

// FanoutHandler stamps each record with the provider's attributes once and
// hands a copy to every sink that accepts its level.
type FanoutHandler struct {
	sinks    []Sink
	provider ContextProvider
}

// NewFanoutHandler drops sinks without a handler. provider may be nil.
func NewFanoutHandler(provider ContextProvider, sinks ...Sink) *FanoutHandler {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler != nil {
			valid = append(valid, s)
		}
	}
	return &FanoutHandler{sinks: valid, provider: provider}
}

// Enabled reports whether any sink wants records at level.
func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every accepting sink. A failing sink does not stop
// the others; its error is returned with the sink's name.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if f.provider != nil {
		r.AddAttrs(f.provider()...)
	}
	var errs []error
	for _, s := range f.sinks {
		if !s.enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *FanoutHandler) derive(with func(slog.Handler) slog.Handler) *FanoutHandler {
	sinks := make([]Sink, len(f.sinks))
	for i, s := range f.sinks {
		s.Handler = with(s.Handler)
		sinks[i] = s
	}
	return &FanoutHandler{sinks: sinks, provider: f.provider}
}
