// Package logging wires slog for the tank: records go to a regular slog
// handler and onto an on-screen Panel that keeps recent lines for a display
// duration, with optional replacement by tag.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pthm-cable/bobbeltank/config"
)

const (
	ttlKey = "ttl"
	tagKey = "tag"
)

// TTL sets how long a record stays on the panel.
func TTL(d time.Duration) slog.Attr {
	return slog.Duration(ttlKey, d)
}

// Tag marks a record for deduplication: a newer record with the same tag
// replaces the older one on the panel.
func Tag(tag string) slog.Attr {
	return slog.String(tagKey, tag)
}

// ParseLevel maps debug, info, warn and error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// Handler tees records into an inner handler and a Panel.
type Handler struct {
	inner slog.Handler
	panel *Panel
	attrs []slog.Attr
}

// NewHandler returns a handler writing to inner and panel.
func NewHandler(inner slog.Handler, panel *Panel) *Handler {
	return &Handler{inner: inner, panel: panel}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	entry := Entry{Time: r.Time, Level: r.Level}

	var sb strings.Builder
	sb.WriteString(r.Message)
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case ttlKey:
			entry.TTL = a.Value.Duration()
		case tagKey:
			entry.Tag = a.Value.String()
		default:
			fmt.Fprintf(&sb, " %s=%s", a.Key, a.Value.Resolve())
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	// ttl and tag only steer the panel; the structured stream gets the rest.
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		if !panelOnly(a.Key) {
			out.AddAttrs(a)
		}
		return true
	})
	entry.Message = sb.String()

	if h.panel != nil {
		h.panel.Add(entry)
	}
	return h.inner.Handle(ctx, out)
}

func panelOnly(key string) bool {
	return key == ttlKey || key == tagKey
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	forward := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if !panelOnly(a.Key) {
			forward = append(forward, a)
		}
	}
	return &Handler{inner: h.inner.WithAttrs(forward), panel: h.panel, attrs: merged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), panel: h.panel, attrs: h.attrs}
}

// New builds the process logger from the logging configuration.
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, *Panel, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch cfg.Format {
	case "text":
		inner = slog.NewTextHandler(w, opts)
	case "json", "":
		inner = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("log format %q: %w", cfg.Format, config.ErrInvalidValue)
	}

	panel := NewPanel(cfg.PanelSize, time.Duration(cfg.PanelTTLMS)*time.Millisecond)
	panel.SetHideDebug(cfg.HideDebug)
	return slog.New(NewHandler(inner, panel)), panel, nil
}
