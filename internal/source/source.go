// Package source defines the query contract the engine explores against and
// its two implementations: the real HTTP lookup endpoint and a deterministic
// simulation used for offline runs and the explicit degraded mode.
package source

import "context"

// Source answers one prefix lookup. Implementations must be safe for
// concurrent use up to the engine's concurrency ceiling.
//
// The returned status is the HTTP status code (or StatusOK for non-HTTP
// sources); err is reserved for transport-level or response-shape failures.
// A 429 status is reported with a nil error so the caller can distinguish
// recoverable rate limiting from genuine failure.
type Source interface {
	Query(ctx context.Context, prefix string) (names []string, status int, err error)
}
