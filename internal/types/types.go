// Package types defines the core domain types shared across the namescout
// engine: prefixes, result sets, run states, and aggregate statistics.
package types

import (
	"fmt"
	"time"
)

// Alphabet is the character set prefixes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// RunState represents the lifecycle state of a discovery run
type RunState int

const (
	// RunIdle means no run has started (or reset() returned the engine here)
	RunIdle RunState = iota
	// RunRunning means the dispatch loop is active
	RunRunning
	// RunPaused means dispatch is suspended; in-flight tasks keep running
	RunPaused
	// RunStopped is terminal for the run; reset() is required before start()
	RunStopped
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunRunning:
		return "running"
	case RunPaused:
		return "paused"
	case RunStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ValidPrefix reports whether p is a usable query prefix: non-empty and
// entirely lowercase a-z.
func ValidPrefix(p string) bool {
	if p == "" {
		return false
	}
	for _, r := range p {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// ParentPrefix returns p minus its last character, or "" for length-1 prefixes.
func ParentPrefix(p string) string {
	if len(p) <= 1 {
		return ""
	}
	return p[:len(p)-1]
}

// ResultSet is the ordered list of names returned for one prefix.
// Once stored in the result cache it is never mutated.
type ResultSet struct {
	Prefix     string    `json:"prefix"`
	Names      []string  `json:"names"`
	FromCache  bool      `json:"from_cache"`
	Simulated  bool      `json:"simulated"`
	ReceivedAt time.Time `json:"received_at"`
}

// DiscoveryStats is an immutable snapshot of the aggregate run counters.
// All counters are monotonic non-decreasing within a run and reset only
// by a full engine reset.
type DiscoveryStats struct {
	RunID     string    `json:"run_id"`
	State     RunState  `json:"-"`
	StateName string    `json:"state"`
	StartedAt time.Time `json:"started_at"`

	TotalRequests       int `json:"total_requests"`
	SuccessfulRequests  int `json:"successful_requests"`
	FailedRequests      int `json:"failed_requests"`
	RateLimitedRequests int `json:"rate_limited_requests"`
	CacheHits           int `json:"cache_hits"`
	SimulatedResults    int `json:"simulated_results"`

	Explored []string `json:"explored"`
	Skipped  []string `json:"skipped"`
	Blocked  []string `json:"blocked"`
	Failed   []string `json:"failed"`
	InFlight []string `json:"in_flight"`

	// QueueDepth counts frontier prefixes plus rate-limited prefixes
	// awaiting redispatch.
	QueueDepth      int `json:"queue_depth"`
	NamesDiscovered int `json:"names_discovered"`

	// Efficiency is unique names discovered per successful request,
	// 0 when no request has succeeded yet.
	Efficiency float64 `json:"efficiency"`
}
