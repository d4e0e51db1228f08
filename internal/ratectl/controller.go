// Package ratectl adapts request pacing and parallelism to observed server
// behavior. The controller owns two knobs: the concurrency ceiling, raised
// cautiously after clean requests and dropped on any rate-limit rejection,
// and the inter-request delay, which takes a penalty multiplier for the rest
// of the run once the server has pushed back.
package ratectl

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// historySize bounds the retained request timestamps
	historySize = 50

	// warmupRequests is how many clean requests must accumulate before
	// each ceiling raise
	warmupRequests = 10

	// cleanWindow is how long after a rejection the ceiling stays down
	// before clean traffic may raise it again
	cleanWindow = 30 * time.Second

	// penaltyFactor multiplies the base delay once any rejection has been
	// observed; it does not decay within a run
	penaltyFactor = 3
)

// Controller tracks request history and rate-limit rejections for one run.
// All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	base           time.Duration
	maxConcurrency int

	history        []time.Time
	rejections     int
	lastRejection  time.Time
	ceiling        int
	cleanSinceRise int
	penalized      bool

	limiter *rate.Limiter
}

// New creates a controller with the given base inter-request delay and
// configured maximum concurrency. The ceiling always starts at 1.
func New(base time.Duration, maxConcurrency int) *Controller {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	c := &Controller{
		base:           base,
		maxConcurrency: maxConcurrency,
		ceiling:        1,
	}
	c.limiter = rate.NewLimiter(limitFor(base), 1)
	return c
}

// limitFor converts a per-request delay into a limiter rate. A zero delay
// means unpaced.
func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}

// Wait blocks until the pacer admits the next request or ctx is done.
// Every task calls this immediately before its network query.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	lim := c.limiter
	c.mu.Unlock()
	return lim.Wait(ctx)
}

// RecordRequest notes a completed request that was not rate limited.
// Enough clean history outside the post-rejection window raises the ceiling
// one step toward the configured maximum.
func (c *Controller) RecordRequest(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, now)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}

	if !c.lastRejection.IsZero() && now.Sub(c.lastRejection) < cleanWindow {
		return
	}
	c.cleanSinceRise++
	if c.cleanSinceRise >= warmupRequests && c.ceiling < c.maxConcurrency {
		c.ceiling++
		c.cleanSinceRise = 0
	}
}

// RecordRejection notes a rate-limit rejection: the ceiling drops one step
// (floor 1) and the delay penalty latches on for the rest of the run.
func (c *Controller) RecordRejection(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rejections++
	c.lastRejection = now
	c.cleanSinceRise = 0
	if c.ceiling > 1 {
		c.ceiling--
	}
	if !c.penalized {
		c.penalized = true
		c.limiter.SetLimit(limitFor(c.delayLocked()))
	}
}

// Ceiling returns the current concurrency ceiling in [1, maxConcurrency].
func (c *Controller) Ceiling() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ceiling
}

// Delay returns the current inter-request delay.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delayLocked()
}

func (c *Controller) delayLocked() time.Duration {
	if c.penalized {
		return c.base * penaltyFactor
	}
	return c.base
}

// Rejections returns how many rate-limit rejections this run has seen.
func (c *Controller) Rejections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejections
}

// Reset returns the controller to its start-of-run state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.rejections = 0
	c.lastRejection = time.Time{}
	c.ceiling = 1
	c.cleanSinceRise = 0
	c.penalized = false
	c.limiter = rate.NewLimiter(limitFor(c.base), 1)
}
