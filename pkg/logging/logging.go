// Package logging builds the slog logger used by every evbench process.
// Lines are rendered as "[rank|size] [HH:MM:SS.mmm] [LEVEL] msg key=val ...",
// so interleaved output from a parallel job stays attributable to a rank.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Levels beyond the slog built-ins. Trace sits below debug, critical above
// error; Off is higher than anything a record can carry.
const (
	LevelTrace    = slog.LevelDebug - 4
	LevelCritical = slog.LevelError + 4
	LevelOff      = slog.LevelError + 8
)

// LevelNames is the closed set of accepted verbosity names, in order.
var LevelNames = []string{"trace", "debug", "info", "warning", "error", "critical", "off"}

// ParseLevel maps a verbosity name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	case "off":
		return LevelOff, nil
	}
	return 0, fmt.Errorf("unknown logging level %q (expected one of %s)",
		name, strings.Join(LevelNames, ", "))
}

func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// New returns a logger tagged with the process's rank and group size.
func New(w io.Writer, level slog.Level, rank, size int) *slog.Logger {
	return slog.New(&handler{
		w:     w,
		mu:    &sync.Mutex{},
		level: level,
		rank:  rank,
		size:  size,
	})
}

type handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	rank  int
	size  int

	attrs  string
	groups []string
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%06d|%d] [%s] [%s] %s",
		h.rank, h.size,
		r.Time.Format("15:04:05.000"),
		levelName(r.Level),
		r.Message,
	)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *handler) appendAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve())
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		h.appendAttr(&b, a)
	}
	h2.attrs = b.String()
	return &h2
}

func (h *handler) WithGroup(name string) slog.Handler {
	h2 := *h
	h2.groups = append(append([]string{}, h.groups...), name)
	return &h2
}
