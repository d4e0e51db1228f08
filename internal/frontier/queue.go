// Package frontier implements the priority-ordered work list of prefixes
// that are known but not yet queried, and the derivation of new candidate
// prefixes from observed results.
package frontier

import (
	"strings"
	"sync"

	"github.com/prefixlab/namescout/internal/scoring"
)

// Options tunes frontier behavior. Zero values fall back to defaults.
type Options struct {
	// MaxDepth caps the prefix length below which children are derived
	MaxDepth int
	// BranchFactor is how many child extensions to enqueue per prefix
	BranchFactor int
	// ShallowThreshold is the length at or below which an empty result
	// still enqueues the curated common letters
	ShallowThreshold int
}

// DefaultOptions returns the default frontier tuning
func DefaultOptions() Options {
	return Options{
		MaxDepth:         4,
		BranchFactor:     6,
		ShallowThreshold: 2,
	}
}

// Queue is the frontier of not-yet-queried prefixes. Selection maximizes
// expected information gain: scorer value boosted by common-name affinity
// and penalized by length and rare bigrams, ties broken shorter-first.
//
// Values are recomputed from live scorer state at selection time, so the
// queue is a scanned slice rather than a heap; a heap invariant cannot
// survive score mutations between pushes.
type Queue struct {
	mu       sync.Mutex
	strategy scoring.Strategy
	blocker  *scoring.Blocker
	opts     Options

	items  []string
	queued map[string]struct{}
	// seen holds everything ever queued, explored, or skipped in this run
	// so no prefix is enqueued twice
	seen map[string]struct{}
}

// New creates an empty frontier queue
func New(strategy scoring.Strategy, blocker *scoring.Blocker, opts Options) *Queue {
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.BranchFactor <= 0 {
		opts.BranchFactor = def.BranchFactor
	}
	if opts.ShallowThreshold <= 0 {
		opts.ShallowThreshold = def.ShallowThreshold
	}
	return &Queue{
		strategy: strategy,
		blocker:  blocker,
		opts:     opts,
		queued:   make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}
}

// Push enqueues a prefix unless it was already queued, already seen, or sits
// in a blocked subtree. Returns true if the prefix was enqueued.
func (q *Queue) Push(prefix string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushLocked(prefix)
}

func (q *Queue) pushLocked(prefix string) bool {
	if prefix == "" {
		return false
	}
	if _, ok := q.seen[prefix]; ok {
		return false
	}
	if q.blocker != nil && q.blocker.IsBlocked(prefix) {
		return false
	}
	q.items = append(q.items, prefix)
	q.queued[prefix] = struct{}{}
	q.seen[prefix] = struct{}{}
	return true
}

// MarkSeen records a prefix as handled outside the queue (explored from
// cache, skipped, failed) so child derivation never re-enqueues it.
func (q *Queue) MarkSeen(prefix string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seen[prefix] = struct{}{}
}

// Select removes and returns the highest-value queued prefix. Queued
// descendants of a since-blocked subtree are dropped here rather than
// dispatched; they are returned so the caller can report them.
func (q *Queue) Select() (prefix string, dropped []string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) > 0 {
		best := 0
		for i := 1; i < len(q.items); i++ {
			if q.less(q.items[best], q.items[i]) {
				best = i
			}
		}
		p := q.items[best]
		q.items = append(q.items[:best], q.items[best+1:]...)
		delete(q.queued, p)

		if q.blocker != nil && q.blocker.IsBlocked(p) {
			dropped = append(dropped, p)
			continue
		}
		return p, dropped, true
	}
	return "", dropped, false
}

// less reports whether candidate b should be selected ahead of a.
func (q *Queue) less(a, b string) bool {
	va, vb := q.value(a), q.value(b)
	if va != vb {
		return vb > va
	}
	if len(a) != len(b) {
		return len(b) < len(a)
	}
	// deterministic final tie-break
	return b < a
}

// value computes the selection value of a queued prefix.
func (q *Queue) value(p string) int {
	v := q.strategy.Score(p) * 10
	if len(p) >= 2 {
		if _, ok := nameAffinity[p[:2]]; ok {
			v += 5
		}
	}
	// favor breadth: longer prefixes pay a small penalty
	v -= 2 * (len(p) - 1)
	if hasRareBigram(p) {
		v -= 8
	}
	return v
}

// EnqueueChildren derives and enqueues candidate extensions of an explored
// prefix, returning what was actually enqueued:
//   - productive prefix below the depth cap: the most frequent observed
//     next characters (top BranchFactor), padded with curated common
//     letters when too few distinct extensions were seen
//   - empty result at or below the shallow threshold: curated common
//     letters only (absence of results at short prefixes is weak evidence)
//   - anything else is a dead end
func (q *Queue) EnqueueChildren(prefix string, names []string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var extensions []byte
	switch {
	case len(names) > 0 && len(prefix) < q.opts.MaxDepth:
		extensions = observedExtensions(prefix, names, q.opts.BranchFactor)
		if len(extensions) < q.opts.BranchFactor {
			extensions = padCurated(extensions, q.opts.BranchFactor)
		}
	case len(names) == 0 && len(prefix) <= q.opts.ShallowThreshold:
		extensions = padCurated(nil, q.opts.BranchFactor)
	default:
		return nil
	}

	var enqueued []string
	for _, c := range extensions {
		child := prefix + string(c)
		if q.pushLocked(child) {
			enqueued = append(enqueued, child)
		}
	}
	return enqueued
}

// observedExtensions ranks the next characters actually seen in the result
// names by frequency and returns at most max of them.
func observedExtensions(prefix string, names []string, max int) []byte {
	freq := make(map[byte]int)
	for _, name := range names {
		if len(name) <= len(prefix) || !strings.HasPrefix(name, prefix) {
			continue
		}
		c := name[len(prefix)]
		if c >= 'a' && c <= 'z' {
			freq[c]++
		}
	}

	ranked := make([]byte, 0, len(freq))
	for c := range freq {
		ranked = append(ranked, c)
	}
	// frequency descending, alphabetical on ties
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			fi, fj := freq[ranked[i]], freq[ranked[j]]
			if fj > fi || (fj == fi && ranked[j] < ranked[i]) {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// padCurated appends curated common next letters (skipping any already
// present) until the extension list reaches max.
func padCurated(extensions []byte, max int) []byte {
	have := make(map[byte]bool, len(extensions))
	for _, c := range extensions {
		have[c] = true
	}
	for i := 0; i < len(curatedNext) && len(extensions) < max; i++ {
		c := curatedNext[i]
		if !have[c] {
			extensions = append(extensions, c)
			have[c] = true
		}
	}
	return extensions
}

// Len returns the number of queued prefixes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Contents returns a copy of the queued prefixes in no particular order.
func (q *Queue) Contents() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}

// Reset clears the queue and the seen set.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.queued = make(map[string]struct{})
	q.seen = make(map[string]struct{})
}
