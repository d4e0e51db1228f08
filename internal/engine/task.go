package engine

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prefixlab/namescout/internal/events"
	"github.com/prefixlab/namescout/internal/scoring"
	"github.com/prefixlab/namescout/internal/types"
)

// runTask executes one prefix query end to end and reports back to the
// shared state. It runs on its own goroutine inside the bounded pool.
func (e *Engine) runTask(ctx context.Context, prefix string, attempt int) {
	defer e.wg.Done()
	defer e.sem.Release(1)

	e.executeTask(ctx, prefix, attempt)
	e.finishTask(prefix)
}

// finishTask removes the prefix from the in-flight set and fires the
// completion transition when this was the last pending unit of work.
func (e *Engine) finishTask(prefix string) {
	e.mu.Lock()
	delete(e.inFlight, prefix)
	completion := e.checkCompleteLocked()
	e.mu.Unlock()

	if completion != nil {
		e.emit(*completion)
	}
}

// executeTask is the task body: cache check, heuristic skip, paced query,
// and outcome handling.
func (e *Engine) executeTask(ctx context.Context, prefix string, attempt int) {
	// cache hit: no network call, no successful-request increment, but the
	// result still feeds the name set and the scorer
	if rs, ok := e.cache.Lookup(prefix); ok {
		added := e.names.Add(rs.Names)
		e.scorer.Update(prefix, len(rs.Names))
		e.queue.MarkSeen(prefix)

		e.mu.Lock()
		e.stats.cacheHits++
		e.stats.explored = append(e.stats.explored, prefix)
		snap := e.snapshotLocked()
		runID := e.runID
		e.mu.Unlock()

		ev := events.NewPrefixEvent(events.TypePrefixExplored, runID, prefix, added, snap)
		ev.FromCache = true
		e.emit(ev)
		return
	}

	// the subtree may have been blocked after this prefix was dispatched
	if e.blocker.IsBlocked(prefix) {
		e.queue.MarkSeen(prefix)

		e.mu.Lock()
		e.stats.blockedDropped = append(e.stats.blockedDropped, prefix)
		snap := e.snapshotLocked()
		runID := e.runID
		e.mu.Unlock()

		e.emit(events.NewPrefixEvent(events.TypePrefixBlocked, runID, prefix, nil, snap))
		return
	}

	// heuristic skip: a zero score means the branch is judged not worth a
	// request
	if e.cfg.EnableHeuristics && e.strategy.Score(prefix) == scoring.MinScore {
		e.markSkipped(prefix)
		return
	}

	// pre-request hold per the rate controller
	if err := e.rates.Wait(ctx); err != nil {
		// run cancelled while waiting; nothing to record
		return
	}

	names, status, err := e.src.Query(ctx, prefix)

	e.mu.Lock()
	e.stats.total++
	e.mu.Unlock()

	// sources document nil-error 429s, but the status wins even when an
	// implementation pairs it with an error
	if status == http.StatusTooManyRequests {
		e.handleRateLimited(ctx, prefix, attempt)
		return
	}

	e.rates.RecordRequest(time.Now())

	if err != nil || status != http.StatusOK {
		e.handleFailure(ctx, prefix, status, err)
		return
	}

	e.completeQuery(prefix, names, false)
}

// handleRateLimited backs off exponentially and re-queues the prefix while
// the retry budget lasts. Exhausting the budget is a terminal failure; no
// data is fabricated on this path.
func (e *Engine) handleRateLimited(ctx context.Context, prefix string, attempt int) {
	e.rates.RecordRejection(time.Now())

	e.mu.Lock()
	e.stats.rateLimited++
	snap := e.snapshotLocked()
	runID := e.runID
	e.mu.Unlock()

	e.log.Warn("rate limited",
		zap.String("prefix", prefix),
		zap.Int("attempt", attempt))
	e.emit(events.NewPrefixEvent(events.TypePrefixRateLimited, runID, prefix, nil, snap))

	backoff := e.cfg.BackoffBase << uint(attempt)
	if backoff > e.cfg.BackoffCap {
		backoff = e.cfg.BackoffCap
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	case <-e.stopCh:
		// stopping: the prefix stays unexplored rather than re-queued
		return
	}

	if attempt < e.cfg.MaxRetries {
		e.mu.Lock()
		if e.state == types.RunRunning || e.state == types.RunPaused {
			e.retries = append(e.retries, retryTask{prefix: prefix, attempt: attempt + 1})
		}
		e.mu.Unlock()
		return
	}

	e.log.Warn("retry budget exhausted", zap.String("prefix", prefix))
	e.markFailed(prefix)
}

// handleFailure records a terminal query failure. With degraded simulation
// enabled the prefix is retried once against the fallback source and the
// result is flagged simulated; otherwise the failure surfaces in the stats
// and the branch ends here.
func (e *Engine) handleFailure(ctx context.Context, prefix string, status int, err error) {
	e.log.Warn("query failed",
		zap.String("prefix", prefix),
		zap.Int("status", status),
		zap.Error(err))

	if e.cfg.DegradedSimulation && e.fallback != nil {
		simNames, _, simErr := e.fallback.Query(ctx, prefix)
		if simErr == nil {
			e.mu.Lock()
			e.stats.failed++
			e.stats.failedPrefixes = append(e.stats.failedPrefixes, prefix)
			e.mu.Unlock()
			e.completeQuery(prefix, simNames, true)
			return
		}
	}

	e.markFailed(prefix)
}

// completeQuery applies a received result set to every piece of shared
// state: cache, scorer, blocker, frontier children, name set, and stats.
func (e *Engine) completeQuery(prefix string, names []string, simulated bool) {
	rs := types.ResultSet{
		Prefix:     prefix,
		Names:      names,
		Simulated:  simulated,
		ReceivedAt: time.Now(),
	}
	e.cache.Store(prefix, rs)
	e.scorer.Update(prefix, len(names))
	e.blocker.Observe(prefix, len(names))

	// blocked children are filtered by the frontier itself, so this is
	// safe even when the prefix was just blocked
	e.queue.EnqueueChildren(prefix, names)
	e.queue.MarkSeen(prefix)

	added := e.names.Add(names)

	e.mu.Lock()
	if simulated {
		e.stats.simulated++
	} else {
		e.stats.successful++
	}
	e.stats.explored = append(e.stats.explored, prefix)
	snap := e.snapshotLocked()
	runID := e.runID
	e.mu.Unlock()

	e.log.Debug("prefix explored",
		zap.String("prefix", prefix),
		zap.Int("results", len(names)),
		zap.Int("new_names", len(added)),
		zap.Bool("simulated", simulated))

	ev := events.NewPrefixEvent(events.TypePrefixExplored, runID, prefix, added, snap)
	ev.Simulated = simulated
	e.emit(ev)
}

// markSkipped records a heuristic skip.
func (e *Engine) markSkipped(prefix string) {
	e.queue.MarkSeen(prefix)

	e.mu.Lock()
	e.stats.skipped = append(e.stats.skipped, prefix)
	snap := e.snapshotLocked()
	runID := e.runID
	e.mu.Unlock()

	e.emit(events.NewPrefixEvent(events.TypePrefixSkipped, runID, prefix, nil, snap))
}

// markFailed records a terminal failure.
func (e *Engine) markFailed(prefix string) {
	e.queue.MarkSeen(prefix)

	e.mu.Lock()
	e.stats.failed++
	e.stats.failedPrefixes = append(e.stats.failedPrefixes, prefix)
	snap := e.snapshotLocked()
	runID := e.runID
	e.mu.Unlock()

	e.emit(events.NewPrefixEvent(events.TypePrefixFailed, runID, prefix, nil, snap))
}
