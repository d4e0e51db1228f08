package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/prefixlab/namescout/internal/config"
	"github.com/prefixlab/namescout/internal/events"
	"github.com/prefixlab/namescout/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeResponse is one scripted answer from a fakeSource.
type fakeResponse struct {
	names  []string
	status int
	err    error
}

func respOK(names ...string) fakeResponse {
	return fakeResponse{names: names, status: http.StatusOK}
}

func respStatus(code int) fakeResponse {
	return fakeResponse{status: code}
}

// fakeSource serves scripted responses per prefix and records every query.
// The last scripted response repeats; an unscripted prefix answers an empty
// OK result.
type fakeSource struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	queries   map[string]int
	delay     time.Duration
}

func newFakeSource(responses map[string][]fakeResponse) *fakeSource {
	return &fakeSource{
		responses: responses,
		queries:   make(map[string]int),
	}
}

func (f *fakeSource) Query(ctx context.Context, prefix string) ([]string, int, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[prefix]++

	script := f.responses[prefix]
	if len(script) == 0 {
		return nil, http.StatusOK, nil
	}
	r := script[0]
	if len(script) > 1 {
		f.responses[prefix] = script[1:]
	}
	return r.names, r.status, r.err
}

func (f *fakeSource) queriesFor(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[prefix]
}

// eventCollector records every emitted event.
type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCollector) OnUpdate(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) count(t events.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (c *eventCollector) find(t events.Type) (events.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Type == t {
			return e, true
		}
	}
	return events.Event{}, false
}

func (c *eventCollector) last() (events.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return events.Event{}, false
	}
	return c.events[len(c.events)-1], true
}

// testSettings returns a fast configuration for scripted runs.
func testSettings(seeds ...string) *config.Config {
	return &config.Config{
		Simulate:         true,
		RequestTimeout:   5 * time.Second,
		BaseDelay:        0,
		MaxConcurrency:   4,
		MaxRetries:       3,
		BackoffBase:      time.Millisecond,
		BackoffCap:       4 * time.Millisecond,
		Seeds:            seeds,
		EnableHeuristics: true,
		MaxDepth:         1,
		BranchFactor:     2,
		ShallowThreshold: 1,
		PollInterval:     2 * time.Millisecond,
		SocketPath:       "/tmp/namescout-test.sock",
	}
}

func newTestEngine(t *testing.T, settings *config.Config, src *fakeSource) (*Engine, *eventCollector) {
	t.Helper()
	col := &eventCollector{}
	eng, err := New(&Config{
		Settings: settings,
		Source:   src,
		Sink:     col,
	})
	require.NoError(t, err)
	return eng, col
}

// waitFor polls until cond holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func runToCompletion(t *testing.T, eng *Engine, col *eventCollector) {
	t.Helper()
	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return col.count(events.TypeRunCompleted) > 0 })
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Config{})
	assert.Error(t, err)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	settings := testSettings("a")
	settings.MaxConcurrency = 0
	_, err := New(&Config{Settings: settings, Source: newFakeSource(nil)})
	assert.Error(t, err)
}

func TestRunExploresAndCompletes(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice", "anna")},
		"b": {respOK("bob")},
	})
	eng, col := newTestEngine(t, testSettings("a", "b"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, types.RunStopped, stats.State)
	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 2, stats.SuccessfulRequests)
	assert.Equal(t, 0, stats.FailedRequests)
	assert.ElementsMatch(t, []string{"a", "b"}, stats.Explored)
	assert.ElementsMatch(t, []string{"alice", "anna", "bob"}, eng.Names())
	assert.Equal(t, 3, stats.NamesDiscovered)

	last, ok := col.last()
	require.True(t, ok)
	assert.Equal(t, events.TypeRunCompleted, last.Type)
	assert.Nil(t, last.NewNames, "the completion notification carries no names")
	assert.Equal(t, 1, col.count(events.TypeRunStarted))
}

func TestBlockedSubtreeIsPruned(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a":  {respOK("alice", "anna")},
		"al": {respOK()},
		"an": {respOK("anna", "andy")},
	})
	settings := testSettings("a")
	settings.MaxDepth = 2
	eng, col := newTestEngine(t, settings, src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.ElementsMatch(t, []string{"alice", "anna", "andy"}, eng.Names())
	assert.Contains(t, stats.Blocked, "al", "an empty deep prefix blocks its subtree")
	assert.ElementsMatch(t, []string{"a", "al", "an"}, stats.Explored)

	// each prefix hits the source exactly once, and nothing under the
	// blocked subtree is ever dispatched
	for _, p := range []string{"a", "al", "an"} {
		assert.Equal(t, 1, src.queriesFor(p), "prefix %q", p)
	}
	assert.Equal(t, 0, src.queriesFor("ali"))
	assert.Equal(t, 0, src.queriesFor("ala"))
}

func TestRateLimitRetrySucceeds(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"z": {respStatus(http.StatusTooManyRequests), respStatus(http.StatusTooManyRequests), respOK("zoe")},
	})
	eng, col := newTestEngine(t, testSettings("z"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 1, stats.SuccessfulRequests)
	assert.Equal(t, 2, stats.RateLimitedRequests)
	assert.Equal(t, 0, stats.FailedRequests)
	assert.Equal(t, []string{"zoe"}, eng.Names())
	assert.Equal(t, 3, src.queriesFor("z"))
	assert.Equal(t, 2, col.count(events.TypePrefixRateLimited))
}

func TestRateLimitStatusWithErrorStillRetries(t *testing.T) {
	// the 429 contract says nil error, but a source that pairs the status
	// with an error must not land in the terminal-failure path
	src := newFakeSource(map[string][]fakeResponse{
		"z": {
			{status: http.StatusTooManyRequests, err: errors.New("429 too many requests")},
			respOK("zoe"),
		},
	})
	eng, col := newTestEngine(t, testSettings("z"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 1, stats.RateLimitedRequests)
	assert.Equal(t, 0, stats.FailedRequests)
	assert.Equal(t, 1, stats.SuccessfulRequests)
	assert.Equal(t, []string{"zoe"}, eng.Names())
}

func TestPauseKeepsRateLimitedPrefixVisible(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"z": {respStatus(http.StatusTooManyRequests), respOK("zoe")},
	})
	settings := testSettings("z")
	settings.BackoffBase = 20 * time.Millisecond
	settings.BackoffCap = 80 * time.Millisecond
	eng, col := newTestEngine(t, settings, src)

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return eng.Stats().RateLimitedRequests >= 1 })
	require.NoError(t, eng.Pause())

	// the backoff elapses during the pause and the prefix lands back in the
	// retry queue, where the stats must still account for it
	waitFor(t, func() bool { return len(eng.Stats().InFlight) == 0 })
	stats := eng.Stats()
	assert.Equal(t, 1, stats.QueueDepth, "a prefix awaiting redispatch is still queued work")
	accounted := len(stats.Explored) + len(stats.Skipped) + len(stats.Failed) + stats.QueueDepth
	assert.Equal(t, 1, accounted, "every seed is accounted for while paused")

	require.NoError(t, eng.Resume())
	waitFor(t, func() bool { return col.count(events.TypeRunCompleted) > 0 })
	assert.Equal(t, []string{"zoe"}, eng.Names())
	assert.Equal(t, 1, eng.Stats().SuccessfulRequests)
}

func TestRateLimitRetryBudgetExhausted(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"z": {respStatus(http.StatusTooManyRequests)},
	})
	settings := testSettings("z")
	settings.MaxRetries = 1
	eng, col := newTestEngine(t, settings, src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 2, src.queriesFor("z"), "initial attempt plus one retry")
	assert.Equal(t, 2, stats.RateLimitedRequests)
	assert.Equal(t, 1, stats.FailedRequests)
	assert.Equal(t, 0, stats.SuccessfulRequests)
	assert.Equal(t, []string{"z"}, stats.Failed)
	assert.Empty(t, eng.Names(), "no data is fabricated for an exhausted prefix")
	assert.Equal(t, 1, col.count(events.TypePrefixFailed))
}

func TestZeroScoreChildrenAreSkipped(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"x": {respOK()},
	})
	settings := testSettings("x")
	settings.MaxDepth = 3
	eng, col := newTestEngine(t, settings, src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	// the empty single letter enqueues curated children, but they inherit a
	// zero score and are skipped without a request
	assert.Equal(t, 1, stats.TotalRequests)
	assert.ElementsMatch(t, []string{"xa", "xe"}, stats.Skipped)
	assert.Equal(t, 0, src.queriesFor("xa"))
	assert.Equal(t, 0, src.queriesFor("xe"))
	assert.Equal(t, 2, col.count(events.TypePrefixSkipped))
}

func TestHeuristicsDisabledQueriesEverything(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"x": {respOK()},
	})
	settings := testSettings("x")
	settings.MaxDepth = 3
	settings.EnableHeuristics = false
	eng, col := newTestEngine(t, settings, src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Empty(t, stats.Skipped)
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 1, src.queriesFor("xa"))
	assert.Equal(t, 1, src.queriesFor("xe"))
}

func TestCachedResultSkipsNetwork(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"b": {respOK("bob")},
	})
	eng, col := newTestEngine(t, testSettings("m", "b"), src)

	// a result for "m" is already cached when the run starts
	require.True(t, eng.cache.Store("m", types.ResultSet{
		Prefix: "m",
		Names:  []string{"mary", "mia"},
	}))

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.TotalRequests, "the cached prefix never reaches the source")
	assert.Equal(t, 0, src.queriesFor("m"))
	assert.ElementsMatch(t, []string{"mary", "mia", "bob"}, eng.Names())

	col.mu.Lock()
	defer col.mu.Unlock()
	found := false
	for _, e := range col.events {
		if e.Type == events.TypePrefixExplored && e.Prefix == "m" {
			found = true
			assert.True(t, e.FromCache)
			assert.Equal(t, []string{"mary", "mia"}, e.NewNames)
		}
	}
	assert.True(t, found, "the cached prefix still reports an explored event")
}

func TestDegradedSimulationFallback(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"s": {respStatus(http.StatusInternalServerError)},
	})
	fallback := newFakeSource(map[string][]fakeResponse{
		"s": {respOK("sally")},
	})
	settings := testSettings("s")
	settings.DegradedSimulation = true

	col := &eventCollector{}
	eng, err := New(&Config{
		Settings: settings,
		Source:   src,
		Fallback: fallback,
		Sink:     col,
	})
	require.NoError(t, err)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 1, stats.FailedRequests, "the real failure still counts")
	assert.Equal(t, 1, stats.SimulatedResults)
	assert.Equal(t, 0, stats.SuccessfulRequests)
	assert.Equal(t, []string{"sally"}, eng.Names())

	ev, ok := col.find(events.TypePrefixExplored)
	require.True(t, ok)
	assert.True(t, ev.Simulated, "fabricated data must be flagged")
}

func TestFailureWithoutFallbackIsTerminal(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"s": {respStatus(http.StatusInternalServerError)},
	})
	eng, col := newTestEngine(t, testSettings("s"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 1, stats.FailedRequests)
	assert.Equal(t, 0, stats.SimulatedResults)
	assert.Empty(t, eng.Names())
	assert.Equal(t, []string{"s"}, stats.Failed)
}

func TestPauseHaltsDispatchAndConservesWork(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
		"b": {respOK("bob")},
		"c": {respOK("carol")},
		"d": {respOK("dan")},
		"e": {respOK("eve")},
	})
	src.delay = 20 * time.Millisecond
	eng, col := newTestEngine(t, testSettings("a", "b", "c", "d", "e"), src)

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return eng.Stats().TotalRequests >= 1 })
	require.NoError(t, eng.Pause())
	assert.Equal(t, types.RunPaused, eng.State())

	// in-flight tasks finish; nothing new is dispatched afterwards
	waitFor(t, func() bool { return len(eng.Stats().InFlight) == 0 })
	total := eng.Stats().TotalRequests
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, total, eng.Stats().TotalRequests, "a paused engine issues no requests")

	// every seed is accounted for while paused
	stats := eng.Stats()
	accounted := len(stats.Explored) + len(stats.Skipped) + len(stats.Failed) + stats.QueueDepth
	assert.Equal(t, 5, accounted)
	assert.Greater(t, stats.QueueDepth, 0, "pause must land before the frontier drains")

	require.NoError(t, eng.Resume())
	waitFor(t, func() bool { return col.count(events.TypeRunCompleted) > 0 })
	assert.Len(t, eng.Stats().Explored, 5)
	assert.Len(t, eng.Names(), 5)
	assert.Equal(t, 1, col.count(events.TypeRunPaused))
	assert.Equal(t, 1, col.count(events.TypeRunResumed))
}

func TestStopDrainsInFlight(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
		"b": {respOK("bob")},
		"c": {respOK("carol")},
	})
	src.delay = 20 * time.Millisecond
	eng, col := newTestEngine(t, testSettings("a", "b", "c"), src)

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return len(eng.Stats().InFlight) > 0 })
	require.NoError(t, eng.Stop(context.Background()))

	// after Stop returns the engine is quiescent
	stats := eng.Stats()
	assert.Equal(t, types.RunStopped, stats.State)
	assert.Empty(t, stats.InFlight)
	assert.Equal(t, 1, col.count(events.TypeRunStopped))

	total := stats.TotalRequests
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, total, eng.Stats().TotalRequests)
}

func TestStopIsIdempotent(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
		"b": {respOK("bob")},
		"c": {respOK("carol")},
	})
	src.delay = 20 * time.Millisecond
	eng, col := newTestEngine(t, testSettings("a", "b", "c"), src)

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return len(eng.Stats().InFlight) > 0 })

	require.NoError(t, eng.Stop(context.Background()))
	require.NoError(t, eng.Stop(context.Background()))
	require.NoError(t, eng.Stop(context.Background()))

	assert.Equal(t, types.RunStopped, eng.State())
	assert.Equal(t, 1, col.count(events.TypeRunStopped),
		"the terminal event fires once no matter how often the run is stopped")
}

func TestStopAfterCompletionEmitsNothing(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
	})
	eng, col := newTestEngine(t, testSettings("a"), src)

	runToCompletion(t, eng, col)
	require.NoError(t, eng.Stop(context.Background()))

	assert.Equal(t, 1, col.count(events.TypeRunCompleted))
	assert.Equal(t, 0, col.count(events.TypeRunStopped),
		"a completed run already had its terminal event")
}

func TestStartContextCancelStopsRun(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
		"b": {respOK("bob")},
		"c": {respOK("carol")},
	})
	src.delay = 30 * time.Millisecond
	eng, col := newTestEngine(t, testSettings("a", "b", "c"), src)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eng.Start(ctx))
	waitFor(t, func() bool { return len(eng.Stats().InFlight) > 0 })
	cancel()

	waitFor(t, func() bool { return eng.State() == types.RunStopped })
	waitFor(t, func() bool { return col.count(events.TypeRunStopped) == 1 })

	// an explicit Stop afterwards drains again but emits nothing new
	require.NoError(t, eng.Stop(context.Background()))
	assert.Equal(t, 1, col.count(events.TypeRunStopped))
}

func TestLifecycleErrors(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
	})
	eng, col := newTestEngine(t, testSettings("a"), src)

	assert.ErrorIs(t, eng.Pause(), ErrNotRunning)
	assert.ErrorIs(t, eng.Resume(), ErrNotPaused)
	assert.ErrorIs(t, eng.Stop(context.Background()), ErrNotRunning)

	require.NoError(t, eng.Start(context.Background()))
	assert.ErrorIs(t, eng.Start(context.Background()), ErrNotIdle)

	waitFor(t, func() bool { return col.count(events.TypeRunCompleted) > 0 })
	assert.ErrorIs(t, eng.Start(context.Background()), ErrNotIdle,
		"a completed run requires a reset before restarting")
	assert.ErrorIs(t, eng.Resume(), ErrNotPaused, "a stopped run cannot be resumed")
}

func TestResetReturnsToIdenticalRun(t *testing.T) {
	responses := func() map[string][]fakeResponse {
		return map[string][]fakeResponse{
			"a": {respOK("alice", "anna")},
			"b": {respOK("bob")},
		}
	}
	src := newFakeSource(responses())
	eng, col := newTestEngine(t, testSettings("a", "b"), src)

	runToCompletion(t, eng, col)
	firstNames := eng.Names()
	firstStats := eng.Stats()

	require.NoError(t, eng.Reset(context.Background()))
	assert.Equal(t, types.RunIdle, eng.State())
	assert.Empty(t, eng.Names())
	assert.Equal(t, 0, eng.Stats().TotalRequests)
	assert.Equal(t, 1, col.count(events.TypeRunReset))

	// rerun against the same responses lands on the same outcome
	src.mu.Lock()
	src.responses = responses()
	src.mu.Unlock()

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return col.count(events.TypeRunCompleted) >= 2 })

	secondStats := eng.Stats()
	assert.ElementsMatch(t, firstNames, eng.Names())
	assert.Equal(t, firstStats.TotalRequests, secondStats.TotalRequests)
	assert.Equal(t, firstStats.SuccessfulRequests, secondStats.SuccessfulRequests)
	assert.NotEqual(t, firstStats.RunID, secondStats.RunID)
}

func TestResetWhileRunning(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
		"b": {respOK("bob")},
	})
	src.delay = 20 * time.Millisecond
	eng, _ := newTestEngine(t, testSettings("a", "b"), src)

	require.NoError(t, eng.Start(context.Background()))
	waitFor(t, func() bool { return len(eng.Stats().InFlight) > 0 })
	require.NoError(t, eng.Reset(context.Background()))

	assert.Equal(t, types.RunIdle, eng.State())
	assert.Empty(t, eng.Names())
}

func TestDuplicateNamesCountOnce(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("anna")},
		"b": {respOK("anna", "bob")},
	})
	eng, col := newTestEngine(t, testSettings("a", "b"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 2, stats.SuccessfulRequests)
	assert.Equal(t, 2, stats.NamesDiscovered)
	assert.InDelta(t, 1.0, stats.Efficiency, 0.001)
	assert.ElementsMatch(t, []string{"anna", "bob"}, eng.Names())
}

func TestEfficiencyReflectsOverlap(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("anna")},
		"b": {respOK("anna")},
	})
	eng, col := newTestEngine(t, testSettings("a", "b"), src)

	runToCompletion(t, eng, col)

	stats := eng.Stats()
	assert.Equal(t, 1, stats.NamesDiscovered)
	assert.InDelta(t, 0.5, stats.Efficiency, 0.001)
}

func TestEventStreamShape(t *testing.T) {
	src := newFakeSource(map[string][]fakeResponse{
		"a": {respOK("alice")},
	})
	eng, col := newTestEngine(t, testSettings("a"), src)

	runToCompletion(t, eng, col)

	col.mu.Lock()
	defer col.mu.Unlock()
	require.NotEmpty(t, col.events)
	assert.Equal(t, events.TypeRunStarted, col.events[0].Type)
	assert.Equal(t, events.TypeRunCompleted, col.events[len(col.events)-1].Type)

	runID := col.events[0].RunID
	require.NotEmpty(t, runID)
	for _, e := range col.events {
		assert.Equal(t, runID, e.RunID)
		assert.NotEmpty(t, e.ID)
	}
}
