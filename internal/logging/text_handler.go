// internal/logging/text_handler.go
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	// AppKey and VersionKey are rendered in the line header instead of as
	// trailing attributes.
	AppKey     = "app"
	VersionKey = "version"

	textTimeLayout = "2006-01-02 15:04:05"
)

// TextHandler writes one line per record:
//
//	2024-01-19 10:30:00 INFO  - intelsync v1.2.0: marker advanced marker=1700000000 records=1000
type TextHandler struct {
	w       io.Writer
	mu      *sync.Mutex
	level   slog.Leveler
	app     string
	version string
	attrs   []slog.Attr
	groups  []string
}

// NewTextHandler creates a new text handler.
func NewTextHandler(w io.Writer, opts *slog.HandlerOptions) *TextHandler {
	h := &TextHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = append(buf, r.Time.Format(textTimeLayout)...)
	buf = append(buf, ' ')
	buf = append(buf, fmt.Sprintf("%-5s", r.Level.String())...)
	buf = append(buf, " - "...)
	if h.app != "" {
		buf = append(buf, h.app...)
		if h.version != "" {
			buf = append(buf, " v"...)
			buf = append(buf, h.version...)
		}
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)

	for _, attr := range h.attrs {
		buf = appendAttr(buf, attr, nil)
	}
	r.Attrs(func(attr slog.Attr) bool {
		buf = appendAttr(buf, attr, h.groups)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	for _, attr := range attrs {
		if len(h.groups) == 0 && attr.Value.Kind() == slog.KindString {
			switch attr.Key {
			case AppKey:
				nh.app = attr.Value.String()
				continue
			case VersionKey:
				nh.version = attr.Value.String()
				continue
			}
		}
		// Qualify with the groups active at the time of the call.
		nh.attrs = append(nh.attrs, qualify(attr, h.groups))
	}
	return nh
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *TextHandler) clone() *TextHandler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	nh.groups = append([]string(nil), h.groups...)
	return &nh
}

func qualify(attr slog.Attr, groups []string) slog.Attr {
	for i := len(groups) - 1; i >= 0; i-- {
		attr = slog.Attr{Key: groups[i], Value: slog.GroupValue(attr)}
	}
	return attr
}

func appendAttr(buf []byte, attr slog.Attr, groups []string) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return buf
	}

	if attr.Value.Kind() == slog.KindGroup {
		sub := attr.Value.Group()
		if attr.Key != "" {
			groups = append(groups[:len(groups):len(groups)], attr.Key)
		}
		for _, a := range sub {
			buf = appendAttr(buf, a, groups)
		}
		return buf
	}

	buf = append(buf, ' ')
	for _, group := range groups {
		buf = append(buf, group...)
		buf = append(buf, '.')
	}
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')
	return appendValue(buf, attr.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendString(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return append(buf, v.Time().Format(time.RFC3339)...)
	default:
		if err, ok := v.Any().(error); ok {
			return appendString(buf, err.Error())
		}
		return appendString(buf, fmt.Sprintf("%+v", v.Any()))
	}
}

func appendString(buf []byte, s string) []byte {
	if s == "" {
		return append(buf, `""`...)
	}
	for _, r := range s {
		if r == ' ' || r == '"' || r == '=' || r < 0x20 || r == '\\' {
			return strconv.AppendQuote(buf, s)
		}
	}
	return append(buf, s...)
}
