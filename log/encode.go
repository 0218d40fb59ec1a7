package log

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/caasmo/batchlog/db"
)

// Encode converts a record into the row stored for it.
//
// Level is the record's slog.Level as an integer, so rows sort and compare the
// way slog levels do. Message is r.Message followed by the attributes as
// " key=value" pairs: first prefix, the attributes a handler already rendered
// through WithAttrs, then the record's own attributes qualified by group.
// A record without attributes is stored exactly as its message.
func Encode(r slog.Record, prefix, group string) db.Log {
	entry := db.Log{Level: int64(r.Level), Message: r.Message}
	if prefix == "" && r.NumAttrs() == 0 {
		return entry
	}

	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, group, a)
		return true
	})
	entry.Message = b.String()
	return entry
}

// appendAttr renders a as " key=value". Group values are flattened with
// dot-qualified keys; empty attributes and empty groups are skipped.
func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		inner := group
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range attrs {
			appendAttr(b, inner, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(group)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(formatValue(a.Value)))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}
