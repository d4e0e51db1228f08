// Package events defines the typed progress events the engine emits to its
// reporting sink after every completed, skipped, or blocked prefix and on
// every lifecycle transition.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/prefixlab/namescout/internal/types"
)

// Type identifies what happened
type Type string

const (
	// Lifecycle events
	TypeRunStarted   Type = "run_started"
	TypeRunPaused    Type = "run_paused"
	TypeRunResumed   Type = "run_resumed"
	TypeRunStopped   Type = "run_stopped"
	TypeRunCompleted Type = "run_completed"
	TypeRunReset     Type = "run_reset"

	// Per-prefix events
	// TypePrefixExplored: a query completed (network, cache, or simulation)
	TypePrefixExplored Type = "prefix_explored"
	// TypePrefixSkipped: heuristics judged the prefix not worth a request
	TypePrefixSkipped Type = "prefix_skipped"
	// TypePrefixBlocked: the prefix (or its subtree membership) was pruned
	TypePrefixBlocked Type = "prefix_blocked"
	// TypePrefixFailed: the query failed terminally
	TypePrefixFailed Type = "prefix_failed"
	// TypePrefixRateLimited: the query hit a 429 and was re-queued
	TypePrefixRateLimited Type = "prefix_rate_limited"
)

// Event is one progress notification. Stats is a point-in-time snapshot;
// NewNames holds only the names this event introduced (nil for lifecycle
// events and the final completion notification).
type Event struct {
	ID        string               `json:"id"`
	Type      Type                 `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	RunID     string               `json:"run_id"`
	Prefix    string               `json:"prefix,omitempty"`
	FromCache bool                 `json:"from_cache,omitempty"`
	Simulated bool                 `json:"simulated,omitempty"`
	NewNames  []string             `json:"new_names,omitempty"`
	Stats     types.DiscoveryStats `json:"stats"`
}

// IsLifecycle reports whether the event marks a run transition rather than
// a prefix outcome.
func (e Event) IsLifecycle() bool {
	switch e.Type {
	case TypeRunStarted, TypeRunPaused, TypeRunResumed, TypeRunStopped, TypeRunCompleted, TypeRunReset:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further events will follow in this run.
func (e Event) IsTerminal() bool {
	return e.Type == TypeRunStopped || e.Type == TypeRunCompleted
}

// Sink receives progress events. Implementations must tolerate being called
// from task-completion goroutines; the engine serializes emission, so calls
// never overlap.
type Sink interface {
	OnUpdate(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// OnUpdate calls f(e).
func (f SinkFunc) OnUpdate(e Event) { f(e) }

// NopSink discards all events.
type NopSink struct{}

// OnUpdate does nothing.
func (NopSink) OnUpdate(Event) {}

// NewLifecycleEvent creates an event for a run transition.
func NewLifecycleEvent(t Type, runID string, stats types.DiscoveryStats) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		RunID:     runID,
		Stats:     stats,
	}
}

// NewPrefixEvent creates an event for a prefix outcome.
func NewPrefixEvent(t Type, runID, prefix string, newNames []string, stats types.DiscoveryStats) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		RunID:     runID,
		Prefix:    prefix,
		NewNames:  newNames,
		Stats:     stats,
	}
}
