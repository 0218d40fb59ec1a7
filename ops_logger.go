package batchlog

import (
	"io"
	"log/slog"

	"github.com/caasmo/batchlog/config"
	phuslog "github.com/phuslu/log"
)

// opsHandlerOptions removes the time attribute from operational output.
func opsHandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}
}

// NewOpsLogger builds the logger the module reports its own operation on:
// phuslu/log's JSON handler for config.FormatJSON, slog's text handler otherwise.
// It never writes into a batch log store.
func NewOpsLogger(ops config.OpsLogger, w io.Writer) *slog.Logger {
	opts := opsHandlerOptions(ops.Level.Level)
	if ops.Format == config.FormatJSON {
		return slog.New(phuslog.SlogNewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
