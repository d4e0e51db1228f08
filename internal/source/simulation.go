package source

import (
	"context"
	"hash/fnv"
	"net/http"

	"github.com/prefixlab/namescout/internal/types"
)

// Simulation is a deterministic synthetic name generator satisfying the
// Source contract. It backs offline demo runs and the explicitly enabled
// degraded mode; it is never substituted silently inside the HTTP path.
//
// Determinism matters: the same prefix always yields the same names, so a
// reset-and-rerun behaves identically to a fresh run.
type Simulation struct{}

// NewSimulation creates a simulation source
func NewSimulation() *Simulation {
	return &Simulation{}
}

// suffixes are the name endings the generator draws from.
var suffixes = []string{
	"a", "ah", "an", "ana", "dy", "e", "el", "ela", "en", "ena", "ett",
	"i", "ia", "ie", "in", "ina", "is", "la", "lee", "lyn", "na", "ne",
	"ny", "on", "ra", "ria", "son", "sy", "ton", "y",
}

// maxNamesFor caps how many names a prefix of a given length can yield;
// shorter prefixes match more of the synthetic population.
func maxNamesFor(length int) int {
	switch {
	case length <= 1:
		return 9
	case length == 2:
		return 6
	case length == 3:
		return 3
	default:
		return 1
	}
}

// Query generates the synthetic result set for a prefix. It always reports
// StatusOK; invalid prefixes simply match nothing.
func (s *Simulation) Query(_ context.Context, prefix string) ([]string, int, error) {
	if !types.ValidPrefix(prefix) {
		return nil, http.StatusOK, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(prefix))
	seed := h.Sum64()

	// roughly one in five subtrees is barren so pruning has something to do
	if len(prefix) >= 2 && seed%5 == 0 {
		return nil, http.StatusOK, nil
	}

	count := int(seed % uint64(maxNamesFor(len(prefix))+1))
	if len(prefix) == 1 && count < 3 {
		count = 3
	}

	names := make([]string, 0, count)
	used := make(map[string]bool, count)
	for i := 0; len(names) < count && i < len(suffixes); i++ {
		suffix := suffixes[(int(seed>>uint(i%32))+i*7)%len(suffixes)]
		name := prefix + suffix
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names, http.StatusOK, nil
}
