package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one human readable line per record:
//
//	2024-05-01 20:14:03 INFO  [acquire/thesubdb] query finished candidates=3
//
// Component and provider attributes form the bracketed subject instead of
// key=value pairs. Attributes bound with WithAttrs are rendered once and
// reused for every record.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool

	component string
	provider  string
	bound     []byte
	prefix    string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	component, provider := h.component, h.provider
	var pairs []byte
	r.Attrs(func(a slog.Attr) bool {
		pairs = h.appendAttr(pairs, h.prefix, a, &component, &provider)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := make([]byte, 0, 96+len(h.bound)+len(pairs))
	line = ts.Local().AppendFormat(line, time.DateTime)
	line = append(line, ' ')
	line = append(line, levelTag(r.Level)...)
	line = append(line, ' ')
	if subject := joinSubject(component, provider); subject != "" {
		line = append(line, '[')
		line = append(line, subject...)
		line = append(line, "] "...)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line = append(line, msg...)
	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			line = fmt.Appendf(line, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	line = append(line, h.bound...)
	line = append(line, pairs...)
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		clone.bound = clone.appendAttr(clone.bound, h.prefix, a, &clone.component, &clone.provider)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr renders a as " key=value", flattening groups into dotted keys.
// Top level component and provider attributes are captured rather than printed.
func (h *consoleHandler) appendAttr(dst []byte, prefix string, a slog.Attr, component, provider *string) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, member := range a.Value.Group() {
			dst = h.appendAttr(dst, inner, member, component, provider)
		}
		return dst
	}
	if prefix == "" {
		switch a.Key {
		case FieldComponent:
			if *component == "" {
				*component = a.Value.String()
			}
			return dst
		case FieldProvider:
			if *provider == "" {
				*provider = a.Value.String()
			}
			return dst
		}
	}
	dst = append(dst, ' ')
	dst = append(dst, prefix...)
	dst = append(dst, a.Key...)
	dst = append(dst, '=')
	return appendValue(dst, a.Value)
}

func appendValue(dst []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindBool:
		return strconv.AppendBool(dst, v.Bool())
	case slog.KindInt64:
		return strconv.AppendInt(dst, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(dst, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(dst, v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return append(dst, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(dst, time.RFC3339)
	case slog.KindAny:
		if list, ok := v.Any().([]string); ok {
			return appendText(dst, strings.Join(list, ","))
		}
	}
	return appendText(dst, v.String())
}

// appendText quotes s when it would otherwise be ambiguous in key=value form.
func appendText(dst []byte, s string) []byte {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.AppendQuote(dst, s)
	}
	return append(dst, s...)
}

func joinSubject(component, provider string) string {
	if component != "" && provider != "" {
		return component + "/" + provider
	}
	return component + provider
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	}
	return "DEBUG"
}
