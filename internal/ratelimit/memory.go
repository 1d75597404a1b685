package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	until time.Time
}

// MemoryWindows is the per-process fallback limiter. Under N horizontally
// scaled processes a caller can receive up to N times the nominal limit; that
// approximation is accepted in exchange for staying available while the
// shared store is down.
type MemoryWindows struct {
	rules map[Scope]Rule

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryWindows builds an in-process limiter for the given per-scope rules.
func NewMemoryWindows(rules map[Scope]Rule) *MemoryWindows {
	return &MemoryWindows{rules: rules, windows: make(map[string]*window)}
}

// Allow counts a hit in the identity's current window.
func (m *MemoryWindows) Allow(ctx context.Context, scope Scope, identity string) Decision {
	rule, ok := m.rules[scope]
	if !ok || rule.Max <= 0 {
		return Decision{Allowed: true}
	}

	now := time.Now()
	start := windowStart(now, rule.Window)
	key := string(scope) + ":" + identity

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.until) || w.until.Sub(now) > rule.Window {
		w = &window{until: start.Add(rule.Window)}
		m.windows[key] = w
	}
	w.count++

	return decide(rule, w.count, w.until.Add(-rule.Window))
}

// Refund undoes one hit in the identity's current window, if any.
func (m *MemoryWindows) Refund(ctx context.Context, scope Scope, identity string) {
	key := string(scope) + ":" + identity

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.windows[key]; ok && w.count > 0 && time.Now().Before(w.until) {
		w.count--
	}
}

// Sweep drops expired windows. Called periodically from main to bound memory.
func (m *MemoryWindows) Sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.windows {
		if now.After(w.until) {
			delete(m.windows, key)
		}
	}
}
