package log

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is a retained diagnostics record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Ring keeps the most recent warnings, errors and audit records in memory so
// operators can read them over HTTP.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{entries: make([]Entry, size)}
}

func (r *Ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns retained records, newest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.entries[(r.next-i+len(r.entries))%len(r.entries)])
	}
	return out
}

// Handler forwards every record to next and copies qualifying ones into the
// ring.
func (r *Ring) Handler(next slog.Handler) slog.Handler {
	return &ringHandler{ring: r, next: next}
}

type ringHandler struct {
	ring *Ring
	next slog.Handler
	// attrs keep the group prefix that was open when they were added.
	attrs []scopedAttr
	group string
}

type scopedAttr struct {
	key  string
	attr slog.Attr
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// Enabled admits info records even when next filters them, since audit
// records are logged at info.
func (h *ringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || level >= slog.LevelInfo
}

func (h *ringHandler) Handle(ctx context.Context, rec slog.Record) error {
	attrs := make(map[string]any, rec.NumAttrs()+len(h.attrs))
	audit := false
	collect := func(key string, a slog.Attr) {
		if a.Key == FieldAudit && a.Value.Kind() == slog.KindBool && a.Value.Bool() {
			audit = true
		}
		attrs[key] = a.Value.Resolve().Any()
	}
	for _, sa := range h.attrs {
		collect(sa.key, sa.attr)
	}
	rec.Attrs(func(a slog.Attr) bool {
		collect(qualify(h.group, a.Key), a)
		return true
	})

	if audit || rec.Level >= slog.LevelWarn {
		h.ring.add(Entry{
			Time:    rec.Time,
			Level:   rec.Level.String(),
			Message: rec.Message,
			Attrs:   attrs,
		})
	}

	if h.next.Enabled(ctx, rec.Level) {
		return h.next.Handle(ctx, rec)
	}
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scoped := make([]scopedAttr, 0, len(h.attrs)+len(attrs))
	scoped = append(scoped, h.attrs...)
	for _, a := range attrs {
		scoped = append(scoped, scopedAttr{key: qualify(h.group, a.Key), attr: a})
	}
	return &ringHandler{
		ring:  h.ring,
		next:  h.next.WithAttrs(attrs),
		attrs: scoped,
		group: h.group,
	}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ringHandler{
		ring:  h.ring,
		next:  h.next.WithGroup(name),
		attrs: h.attrs,
		group: qualify(h.group, name),
	}
}
