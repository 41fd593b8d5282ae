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

// consoleHandler writes one aligned line per record:
//
//	15:04:05.000 INFO  training/trainer  epoch finished  run=3f2a9c1e train.epoch=3
//
// The stage and component attributes form the subject; the run ID is
// shortened and trails the message.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	prefix    string
	fields    []field
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = appendFields(append([]field(nil), h.fields...), h.prefix, attrs)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.prefix, []slog.Attr{attr})
		return true
	})

	var stage, component, runID string
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldStage && stage == "":
			stage = f.value.String()
		case f.key == FieldComponent && component == "":
			component = f.value.String()
		case f.key == FieldRunID && runID == "":
			runID = f.value.String()
		case f.key == FieldStage || f.key == FieldComponent || f.key == FieldRunID:
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format("15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", consoleLevel(record.Level))
	if subject := joinSubject(stage, component); subject != "" {
		b.WriteString(subject)
		b.WriteString("  ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "-"
	}
	b.WriteString(msg)
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}

	sep := "  "
	if runID != "" {
		b.WriteString(sep)
		b.WriteString("run=")
		b.WriteString(shortRunID(runID))
		sep = " "
	}
	for _, f := range rest {
		b.WriteString(sep)
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(consoleValue(f.value))
		sep = " "
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func appendFields(dst []field, prefix string, attrs []slog.Attr) []field {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		v := attr.Value.Resolve()
		if v.Kind() == slog.KindGroup {
			inner := prefix
			if attr.Key != "" {
				inner = prefix + attr.Key + "."
			}
			dst = appendFields(dst, inner, v.Group())
			continue
		}
		dst = append(dst, field{key: prefix + attr.Key, value: v})
	}
	return dst
}

func joinSubject(stage, component string) string {
	switch {
	case stage != "" && component != "":
		return stage + "/" + component
	case stage != "":
		return stage
	default:
		return component
	}
}

// shortRunID keeps the first UUID group, which is unique enough to grep.
func shortRunID(id string) string {
	if i := strings.IndexByte(id, '-'); i >= 8 {
		return id[:i]
	}
	return id
}

func consoleLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func consoleValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', 5, 64)
	case slog.KindInt64, slog.KindUint64, slog.KindBool:
		return v.String()
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n=\"") {
		return strconv.Quote(s)
	}
	return s
}
