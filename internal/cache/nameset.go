package cache

import "sync"

// NameSet is the append-only, deduplicated set of every name discovered in
// the run. Insertion order is preserved for reporting. Membership test and
// insert are atomic with respect to concurrent task completions.
type NameSet struct {
	mu    sync.Mutex
	names map[string]struct{}
	order []string
}

// NewNameSet creates an empty name set
func NewNameSet() *NameSet {
	return &NameSet{
		names: make(map[string]struct{}),
	}
}

// Add inserts the given names and returns the subset that was actually new,
// in input order. Duplicates within the input collapse too.
func (s *NameSet) Add(names []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, seen := s.names[n]; seen {
			continue
		}
		s.names[n] = struct{}{}
		s.order = append(s.order, n)
		added = append(added, n)
	}
	return added
}

// Contains reports whether a name has been discovered.
func (s *NameSet) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.names[name]
	return ok
}

// Len returns the number of unique names discovered.
func (s *NameSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// Names returns a copy of the discovered names in insertion order.
func (s *NameSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Reset clears the set.
func (s *NameSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = make(map[string]struct{})
	s.order = nil
}
