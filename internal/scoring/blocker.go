package scoring

import "sync"

// minBlockLength guards the exploration floor: a zero result at length 1 is
// not a reliable signal, so only longer prefixes are ever blocked.
const minBlockLength = 2

// Blocker records prefixes whose entire descendant subtree is judged
// unproductive. Blocking is irreversible within a run, unlike a zero score
// which a sibling's inheritance can still override.
type Blocker struct {
	mu      sync.RWMutex
	blocked map[string]struct{}
}

// NewBlocker creates an empty blocker
func NewBlocker() *Blocker {
	return &Blocker{
		blocked: make(map[string]struct{}),
	}
}

// Observe inspects a completed query and blocks the prefix when it is long
// enough and returned nothing. Returns true if the prefix was blocked.
func (b *Blocker) Observe(prefix string, resultCount int) bool {
	if resultCount > 0 || len(prefix) < minBlockLength {
		return false
	}
	b.Block(prefix)
	return true
}

// Block adds a prefix to the blocked set unconditionally.
func (b *Blocker) Block(prefix string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[prefix] = struct{}{}
}

// IsBlocked reports whether the prefix itself or any proper prefix of it has
// been blocked.
func (b *Blocker) IsBlocked(prefix string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 1; i <= len(prefix); i++ {
		if _, ok := b.blocked[prefix[:i]]; ok {
			return true
		}
	}
	return false
}

// Blocked returns a copy of the blocked set.
func (b *Blocker) Blocked() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.blocked))
	for p := range b.blocked {
		out = append(out, p)
	}
	return out
}

// Len returns the number of blocked prefixes.
func (b *Blocker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocked)
}

// Reset clears the blocked set.
func (b *Blocker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked = make(map[string]struct{})
}
