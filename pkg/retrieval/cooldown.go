package retrieval

import (
	"sync"
	"time"
)

// CooldownTracker records per-scope backoff windows set by 429s and
// Cloudflare challenges (spec §4.6 failure semantics). Callers check
// Blocked before issuing a request and fail fast with the recorded
// BlockedType while the window is open.
type CooldownTracker struct {
	mu    sync.Mutex
	until map[string]time.Time
	kind  map[string]BlockedType
}

// NewCooldownTracker builds an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{until: make(map[string]time.Time), kind: make(map[string]BlockedType)}
}

// Set opens a cooldown window of d for scope, recording why.
func (t *CooldownTracker) Set(scope string, d time.Duration, kind BlockedType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.until[scope] = time.Now().Add(d)
	t.kind[scope] = kind
}

// Blocked reports whether scope is currently cooling down, and why.
func (t *CooldownTracker) Blocked(scope string) (BlockedType, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.until[scope]
	if !ok || time.Now().After(until) {
		return BlockedNone, false
	}
	return t.kind[scope], true
}
