// Package scoring holds the productivity heuristics that steer exploration:
// a pluggable scoring strategy, the pattern scorer that learns from observed
// result counts, and the branch blocker that prunes dead subtrees.
package scoring

import (
	"sync"

	"github.com/prefixlab/namescout/internal/types"
)

// Score bounds. 0 means "treat as unproductive", 5 means "highly productive".
const (
	MinScore = 0
	MaxScore = 5

	// DefaultTopLevelScore is assigned to prefixes of length <= 1 so
	// top-level letters are never skipped on heuristics alone.
	DefaultTopLevelScore = 3
)

// Strategy scores a candidate prefix. The pattern scorer is the production
// implementation; Flat serves runs with heuristics disabled. Keeping this an
// interface lets the threshold tuning change without touching the scheduler.
type Strategy interface {
	Score(prefix string) int
}

// Flat is a Strategy that scores every prefix the same.
type Flat int

func (f Flat) Score(string) int { return int(f) }

// PatternScorer maintains an observed productivity score per prefix and
// derives scores for unobserved prefixes from their ancestors.
type PatternScorer struct {
	mu       sync.RWMutex
	observed map[string]int
}

// NewPatternScorer creates an empty pattern scorer
func NewPatternScorer() *PatternScorer {
	return &PatternScorer{
		observed: make(map[string]int),
	}
}

// Score returns the productivity score for a prefix in [0,5]:
//   - an observed score is returned verbatim
//   - length <= 1 defaults to DefaultTopLevelScore
//   - an observed parent score s decays to max(0, s-1)
//   - otherwise a length-based default, decreasing with length
func (ps *PatternScorer) Score(prefix string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if s, ok := ps.observed[prefix]; ok {
		return s
	}
	if len(prefix) <= 1 {
		return DefaultTopLevelScore
	}
	if s, ok := ps.observed[types.ParentPrefix(prefix)]; ok {
		if s <= MinScore {
			return MinScore
		}
		return s - 1
	}
	return lengthDefault(len(prefix))
}

// Update records the observed result count for a prefix. A productive child
// also nudges an already-observed parent score up by one (capped at 5); a
// parent's own observation is never pushed down by its children.
func (ps *PatternScorer) Update(prefix string, resultCount int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.observed[prefix] = bucketScore(resultCount)

	if resultCount > 0 {
		parent := types.ParentPrefix(prefix)
		if s, ok := ps.observed[parent]; ok && s < MaxScore {
			ps.observed[parent] = s + 1
		}
	}
}

// Observed returns the observed score for a prefix, if any.
func (ps *PatternScorer) Observed(prefix string) (int, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	s, ok := ps.observed[prefix]
	return s, ok
}

// Reset clears all observed scores.
func (ps *PatternScorer) Reset() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.observed = make(map[string]int)
}

// bucketScore maps an observed result count to a score bucket.
func bucketScore(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 2
	case count <= 5:
		return 3
	case count <= 8:
		return 4
	default:
		return 5
	}
}

// lengthDefault is the fallback for prefixes with no observation anywhere
// on their ancestry: decreasing with length, floored at 1 so deep prefixes
// stay eligible at low priority.
func lengthDefault(length int) int {
	d := 4 - length
	if d < 1 {
		return 1
	}
	if d > 3 {
		return 3
	}
	return d
}
