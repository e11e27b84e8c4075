package logging

import (
	"context"
	"log/slog"
	"strings"

	"squill/internal/version"
)

// LevelTrace sits below slog.LevelDebug and maps the finest verbosity
// squill's own components emit in development builds.
const LevelTrace = slog.Level(-8)

// FieldSource names the attribute carrying the owning component of a log
// event, e.g. "squill/server". The filter keys off this value.
const FieldSource = "source"

// SourceFilter decides, per event, whether a (source, level) pair is
// recorded: sources under squill's own module prefix pass at TRACE in
// development builds and DEBUG in release builds, everything else at INFO.
// MinLevel is the cheap lower bound the dispatcher can use to skip disabled
// call sites without evaluating arguments.
type SourceFilter struct {
	selfPrefix   string
	selfLevel    slog.Level
	foreignLevel slog.Level
}

// NewSourceFilter builds the filter for the given build flavor. Production
// code passes logging.Development so the flavor follows the build tag;
// tests construct both flavors explicitly.
func NewSourceFilter(development bool) *SourceFilter {
	selfLevel := slog.LevelDebug
	if development {
		selfLevel = LevelTrace
	}
	return &SourceFilter{
		selfPrefix:   version.Tool,
		selfLevel:    selfLevel,
		foreignLevel: slog.LevelInfo,
	}
}

// Enabled reports whether an event from source at level is recorded.
func (f *SourceFilter) Enabled(source string, level slog.Level) bool {
	return level >= f.minFor(source)
}

// MinLevel returns the most verbose level any source may log at. Events
// below this bound are disabled regardless of source.
func (f *SourceFilter) MinLevel() slog.Level {
	if f.selfLevel < f.foreignLevel {
		return f.selfLevel
	}
	return f.foreignLevel
}

func (f *SourceFilter) minFor(source string) slog.Level {
	if source == f.selfPrefix || strings.HasPrefix(source, f.selfPrefix+"/") {
		return f.selfLevel
	}
	return f.foreignLevel
}

// filterHandler applies a SourceFilter in front of an inner handler. The
// source is fixed per handler instance (set via WithSource) so Enabled can
// short-circuit without inspecting the record.
type filterHandler struct {
	inner  slog.Handler
	filter *SourceFilter
	source string
}

// WithSource returns a logger whose events carry the given source and are
// subject to the filter policy for it. Loggers without a source are treated
// as foreign.
func WithSource(logger *slog.Logger, source string) *slog.Logger {
	handler := logger.Handler()
	if fh, ok := handler.(*filterHandler); ok {
		inner := fh.inner.WithAttrs([]slog.Attr{slog.String(FieldSource, source)})
		return slog.New(&filterHandler{inner: inner, filter: fh.filter, source: source})
	}
	return slog.New(handler.WithAttrs([]slog.Attr{slog.String(FieldSource, source)}))
}

func (h *filterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.filter.Enabled(h.source, level) && h.inner.Enabled(ctx, level)
}

func (h *filterHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.inner.Handle(ctx, record)
}

func (h *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filterHandler{inner: h.inner.WithAttrs(attrs), filter: h.filter, source: h.source}
}

func (h *filterHandler) WithGroup(name string) slog.Handler {
	return &filterHandler{inner: h.inner.WithGroup(name), filter: h.filter, source: h.source}
}
