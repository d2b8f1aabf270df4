package logging

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one line on the panel.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Tag     string
	TTL     time.Duration

	expires time.Time
}

// Panel keeps the most recent log lines until they expire.
// It is safe for concurrent use.
type Panel struct {
	mu         sync.Mutex
	entries    []Entry
	size       int
	defaultTTL time.Duration
	hideDebug  bool
	now        func() time.Time
}

// NewPanel returns a panel holding at most size entries, each shown for
// defaultTTL unless the record carries its own TTL.
func NewPanel(size int, defaultTTL time.Duration) *Panel {
	if size <= 0 {
		size = 10
	}
	return &Panel{size: size, defaultTTL: defaultTTL, now: time.Now}
}

// SetHideDebug toggles whether debug records reach the panel.
func (p *Panel) SetHideDebug(hide bool) {
	p.mu.Lock()
	p.hideDebug = hide
	p.mu.Unlock()
}

// HideDebug reports whether debug records are suppressed.
func (p *Panel) HideDebug() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hideDebug
}

// Add appends e, replacing an existing entry with the same tag.
func (p *Panel) Add(e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hideDebug && e.Level < slog.LevelInfo {
		return
	}

	now := p.now()
	if e.Time.IsZero() {
		e.Time = now
	}
	ttl := e.TTL
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	e.expires = now.Add(ttl)

	if e.Tag != "" {
		for i := range p.entries {
			if p.entries[i].Tag == e.Tag {
				p.entries = append(p.entries[:i], p.entries[i+1:]...)
				break
			}
		}
	}

	p.entries = append(p.entries, e)
	if over := len(p.entries) - p.size; over > 0 {
		p.entries = p.entries[over:]
	}
}

// Entries returns the live entries, oldest first, and drops expired ones.
func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	live := p.entries[:0]
	for _, e := range p.entries {
		if now.Before(e.expires) {
			live = append(live, e)
		}
	}
	p.entries = live

	out := make([]Entry, len(live))
	copy(out, live)
	return out
}
