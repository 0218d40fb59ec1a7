package log

import (
	"context"
	"log/slog"
	"strings"
)

// BatchHandler is a slog.Handler that writes every enabled record through a Sink.
//
// Handle runs on the caller's goroutine and blocks while the sink inserts or
// commits. Its error is the sink's error; slog.Logger ignores it, callers
// invoking Handle directly can act on it.
type BatchHandler struct {
	sink  *Sink
	level slog.Leveler
	// attrs holds the attributes from WithAttrs, already rendered.
	attrs string
	// group is the dot-terminated prefix from WithGroup, e.g. "req.".
	group string
}

// NewBatchHandler creates a new BatchHandler.
//
// sink: the destination of every record.
// level: the minimum level to accept; nil means slog.LevelInfo. A dynamic
// Leveler (slog.LevelVar, config.Provider.BatchLevel) is consulted on every call.
// If sink is nil, this function will panic.
func NewBatchHandler(sink *Sink, level slog.Leveler) *BatchHandler {
	if sink == nil {
		panic("batchhandler: sink cannot be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &BatchHandler{
		sink:  sink,
		level: level,
	}
}

// Enabled implements the slog.Handler interface.
func (h *BatchHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements the slog.Handler interface.
func (h *BatchHandler) Handle(_ context.Context, r slog.Record) error {
	return h.sink.Record(Encode(r, h.attrs, h.group))
}

// WithAttrs implements the slog.Handler interface. The returned handler shares the sink.
func (h *BatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}

	return &BatchHandler{
		sink:  h.sink,
		level: h.level,
		attrs: b.String(),
		group: h.group,
	}
}

// WithGroup implements the slog.Handler interface. The returned handler shares the sink.
func (h *BatchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BatchHandler{
		sink:  h.sink,
		level: h.level,
		attrs: h.attrs,
		group: h.group + name + ".",
	}
}
