// Package engine implements the adaptive prefix-exploration engine: a
// discovery orchestrator that drives the frontier queue against a bounded
// pool of in-flight prefix tasks, adapting parallelism and pacing to the
// remote server's behavior.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/prefixlab/namescout/internal/cache"
	"github.com/prefixlab/namescout/internal/config"
	"github.com/prefixlab/namescout/internal/events"
	"github.com/prefixlab/namescout/internal/frontier"
	"github.com/prefixlab/namescout/internal/ratectl"
	"github.com/prefixlab/namescout/internal/scoring"
	"github.com/prefixlab/namescout/internal/source"
	"github.com/prefixlab/namescout/internal/types"
)

var (
	// ErrNotIdle is returned by Start when a previous run has not been reset
	ErrNotIdle = errors.New("engine is not idle (reset required after a stopped run)")
	// ErrNotRunning is returned by Pause/Stop when no run is active
	ErrNotRunning = errors.New("engine is not running")
	// ErrNotPaused is returned by Resume when the run is not paused
	ErrNotPaused = errors.New("engine is not paused")
)

// Config holds engine construction parameters
type Config struct {
	// Settings is the engine configuration; defaults are used when nil
	Settings *config.Config
	// Source answers prefix lookups (required)
	Source source.Source
	// Fallback is the explicitly named degraded source consulted after a
	// terminal real-query failure, only when Settings.DegradedSimulation
	// is set. Optional.
	Fallback source.Source
	// Sink receives progress events. Optional.
	Sink events.Sink
	// Logger defaults to a nop logger
	Logger *zap.Logger
}

// retryTask is a rate-limited prefix waiting for redispatch
type retryTask struct {
	prefix  string
	attempt int
}

// counters is the mutable aggregate state behind DiscoveryStats snapshots.
// All fields are guarded by Engine.mu.
type counters struct {
	total          int
	successful     int
	failed         int
	rateLimited    int
	cacheHits      int
	simulated      int
	explored       []string
	skipped        []string
	failedPrefixes []string
	// blockedDropped are queued descendants dropped at selection time
	// because their subtree was blocked after they were enqueued
	blockedDropped []string
}

// Engine owns all run state and serializes mutation behind a single mutex;
// task goroutines only touch shared state through its methods.
type Engine struct {
	cfg      *config.Config
	src      source.Source
	fallback source.Source
	sink     events.Sink
	log      *zap.Logger

	cache    *cache.ResultCache
	names    *cache.NameSet
	scorer   *scoring.PatternScorer
	strategy scoring.Strategy
	blocker  *scoring.Blocker
	queue    *frontier.Queue
	rates    *ratectl.Controller
	sem      *semaphore.Weighted

	mu        sync.Mutex
	state     types.RunState
	runID     string
	startedAt time.Time
	inFlight  map[string]struct{}
	retries   []retryTask
	stats     counters
	// completed marks that the run's terminal event has fired; it guards
	// against a second terminal emission on repeated stops
	completed bool

	wg       sync.WaitGroup
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once

	// emitMu serializes sink notifications across task completions
	emitMu sync.Mutex
}

// New creates an engine. The returned engine is idle; call Start to begin a
// run.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Source == nil {
		return nil, fmt.Errorf("a query source is required")
	}

	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultConfig()
		settings.Simulate = true // no endpoint supplied
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine settings: %w", err)
	}

	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	scorer := scoring.NewPatternScorer()
	var strategy scoring.Strategy = scorer
	if !settings.EnableHeuristics {
		strategy = scoring.Flat(scoring.DefaultTopLevelScore)
	}

	blocker := scoring.NewBlocker()
	e := &Engine{
		cfg:      settings,
		src:      cfg.Source,
		fallback: cfg.Fallback,
		sink:     sink,
		log:      log,
		cache:    cache.NewResultCache(),
		names:    cache.NewNameSet(),
		scorer:   scorer,
		strategy: strategy,
		blocker:  blocker,
		rates:    ratectl.New(settings.BaseDelay, settings.MaxConcurrency),
		sem:      semaphore.NewWeighted(int64(settings.MaxConcurrency)),
		state:    types.RunIdle,
		inFlight: make(map[string]struct{}),
	}
	e.queue = frontier.New(strategy, blocker, frontier.Options{
		MaxDepth:         settings.MaxDepth,
		BranchFactor:     settings.BranchFactor,
		ShallowThreshold: settings.ShallowThreshold,
	})
	return e, nil
}

// Start begins a discovery run. Valid only from the idle state; a stopped
// run must be reset first so every run starts from clean state.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != types.RunIdle {
		e.mu.Unlock()
		return ErrNotIdle
	}
	e.state = types.RunRunning
	e.runID = uuid.New().String()
	e.startedAt = time.Now()
	e.completed = false
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.stopOnce = new(sync.Once)

	for _, seed := range e.cfg.Seeds {
		e.queue.Push(seed)
	}

	runID := e.runID
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Info("discovery run started",
		zap.String("run_id", runID),
		zap.Strings("seeds", e.cfg.Seeds),
		zap.Int("max_concurrency", e.cfg.MaxConcurrency))
	e.emit(events.NewLifecycleEvent(events.TypeRunStarted, runID, snap))

	go e.loop(ctx)
	return nil
}

// loop is the control loop: a single goroutine that dispatches tasks each
// tick while the run is live.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.abort()
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.dispatch(ctx)
		}
	}
}

// abort handles cancellation of the Start context: dispatch halts, in-flight
// tasks drain, and the run lands in the stopped state with its terminal
// event, the same as an explicit Stop.
func (e *Engine) abort() {
	e.mu.Lock()
	e.state = types.RunStopped
	e.stopOnce.Do(func() { close(e.stopCh) })
	runID := e.runID
	e.mu.Unlock()

	e.wg.Wait()

	e.mu.Lock()
	alreadyDone := e.completed
	e.completed = true
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if !alreadyDone {
		e.log.Info("discovery run cancelled", zap.String("run_id", runID))
		e.emit(events.NewLifecycleEvent(events.TypeRunStopped, runID, snap))
	}
}

// dispatch launches tasks until the live concurrency ceiling is reached or
// the frontier is exhausted. Descendants of since-blocked subtrees are
// dropped here, at selection time.
func (e *Engine) dispatch(ctx context.Context) {
	var pending []events.Event

	e.mu.Lock()
	if e.state != types.RunRunning {
		e.mu.Unlock()
		return
	}

	ceiling := e.rates.Ceiling()
	for len(e.inFlight) < ceiling {
		task, dropped, ok := e.nextLocked()
		for _, p := range dropped {
			e.stats.blockedDropped = append(e.stats.blockedDropped, p)
			pending = append(pending, events.NewPrefixEvent(
				events.TypePrefixBlocked, e.runID, p, nil, e.snapshotLocked()))
		}
		if !ok {
			break
		}
		if !e.sem.TryAcquire(1) {
			// pool exhausted by a ceiling drop; put the task back
			e.retries = append([]retryTask{task}, e.retries...)
			break
		}
		e.inFlight[task.prefix] = struct{}{}
		e.wg.Add(1)
		go e.runTask(ctx, task.prefix, task.attempt)
	}

	completion := e.checkCompleteLocked()
	e.mu.Unlock()

	for _, ev := range pending {
		e.emit(ev)
	}
	if completion != nil {
		e.emit(*completion)
	}
}

// nextLocked pops the next unit of work: rate-limit retries ahead of fresh
// frontier selections.
func (e *Engine) nextLocked() (retryTask, []string, bool) {
	if len(e.retries) > 0 {
		t := e.retries[0]
		e.retries = e.retries[1:]
		return t, nil, true
	}
	prefix, dropped, ok := e.queue.Select()
	if !ok {
		return retryTask{}, dropped, false
	}
	return retryTask{prefix: prefix}, dropped, true
}

// checkCompleteLocked transitions a running engine with an empty frontier
// and no in-flight work to the stopped state and returns the completion
// event to emit. Must be called with e.mu held.
func (e *Engine) checkCompleteLocked() *events.Event {
	if e.state != types.RunRunning {
		return nil
	}
	if e.queue.Len() > 0 || len(e.inFlight) > 0 || len(e.retries) > 0 {
		return nil
	}
	e.state = types.RunStopped
	e.completed = true
	e.stopOnce.Do(func() { close(e.stopCh) })

	// final notification carries no new names
	ev := events.NewLifecycleEvent(events.TypeRunCompleted, e.runID, e.snapshotLocked())
	return &ev
}

// Pause suspends new dispatch. In-flight tasks are not cancelled.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state != types.RunRunning {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.state = types.RunPaused
	runID := e.runID
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Info("discovery run paused", zap.String("run_id", runID))
	e.emit(events.NewLifecycleEvent(events.TypeRunPaused, runID, snap))
	return nil
}

// Resume lifts a pause.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.state != types.RunPaused {
		e.mu.Unlock()
		return ErrNotPaused
	}
	e.state = types.RunRunning
	runID := e.runID
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Info("discovery run resumed", zap.String("run_id", runID))
	e.emit(events.NewLifecycleEvent(events.TypeRunResumed, runID, snap))
	return nil
}

// Stop halts new dispatch immediately and blocks until every in-flight task
// has finished (the drain barrier). After Stop returns the engine is
// quiescent; Reset is required before another Start. Stop is idempotent:
// repeat calls drain again but the terminal event fires only once per run.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state == types.RunIdle {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.state = types.RunStopped
	e.stopOnce.Do(func() { close(e.stopCh) })
	doneCh := e.doneCh
	runID := e.runID
	e.mu.Unlock()

	// wait for the control loop to exit
	select {
	case <-doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	// drain barrier: every in-flight completion callback must have run
	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	// claim the terminal emission only after a successful drain so a Stop
	// aborted by its context can be retried
	e.mu.Lock()
	alreadyDone := e.completed
	e.completed = true
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if !alreadyDone {
		e.log.Info("discovery run stopped", zap.String("run_id", runID))
		e.emit(events.NewLifecycleEvent(events.TypeRunStopped, runID, snap))
	}
	return nil
}

// Reset stops any active run and clears all accumulated state, returning
// the engine to idle. A subsequent Start behaves identically to a fresh run.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.Stop(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		return fmt.Errorf("failed to stop before reset: %w", err)
	}

	e.mu.Lock()
	oldRunID := e.runID
	e.cache.Reset()
	e.names.Reset()
	e.scorer.Reset()
	e.blocker.Reset()
	e.queue.Reset()
	e.rates.Reset()
	e.stats = counters{}
	e.retries = nil
	e.inFlight = make(map[string]struct{})
	e.state = types.RunIdle
	e.runID = ""
	e.startedAt = time.Time{}
	e.completed = false
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Info("engine reset", zap.String("previous_run_id", oldRunID))
	e.emit(events.NewLifecycleEvent(events.TypeRunReset, oldRunID, snap))
	return nil
}

// State returns the current run state.
func (e *Engine) State() types.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a snapshot of the aggregate counters.
func (e *Engine) Stats() types.DiscoveryStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Names returns the discovered names in insertion order.
func (e *Engine) Names() []string {
	return e.names.Names()
}

// snapshotLocked builds an immutable stats snapshot. Must be called with
// e.mu held.
func (e *Engine) snapshotLocked() types.DiscoveryStats {
	inFlight := make([]string, 0, len(e.inFlight))
	for p := range e.inFlight {
		inFlight = append(inFlight, p)
	}

	blocked := e.blocker.Blocked()
	blocked = append(blocked, e.stats.blockedDropped...)

	successful := e.stats.successful
	discovered := e.names.Len()
	efficiency := 0.0
	if successful > 0 {
		efficiency = float64(discovered) / float64(successful)
	}

	return types.DiscoveryStats{
		RunID:               e.runID,
		State:               e.state,
		StateName:           e.state.String(),
		StartedAt:           e.startedAt,
		TotalRequests:       e.stats.total,
		SuccessfulRequests:  successful,
		FailedRequests:      e.stats.failed,
		RateLimitedRequests: e.stats.rateLimited,
		CacheHits:           e.stats.cacheHits,
		SimulatedResults:    e.stats.simulated,
		Explored:            append([]string(nil), e.stats.explored...),
		Skipped:             append([]string(nil), e.stats.skipped...),
		Blocked:             blocked,
		Failed:              append([]string(nil), e.stats.failedPrefixes...),
		InFlight:            inFlight,
		// rate-limited prefixes awaiting redispatch are still queued work
		QueueDepth:          e.queue.Len() + len(e.retries),
		NamesDiscovered:     discovered,
		Efficiency:          efficiency,
	}
}

// emit delivers an event to the sink. Emission happens outside e.mu so a
// sink may call back into the engine; emitMu keeps sink calls from
// overlapping across concurrent task completions.
func (e *Engine) emit(ev events.Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.sink.OnUpdate(ev)
}
