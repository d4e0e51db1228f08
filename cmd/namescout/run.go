package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prefixlab/namescout/internal/config"
	"github.com/prefixlab/namescout/internal/control"
	"github.com/prefixlab/namescout/internal/engine"
	"github.com/prefixlab/namescout/internal/events"
	"github.com/prefixlab/namescout/internal/logging"
	"github.com/prefixlab/namescout/internal/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a discovery scan in the foreground",
	Long: `Start a discovery scan and stream progress until the frontier is
exhausted or the scan is stopped. A control socket is opened so 'namescout
pause', 'resume', 'stop', and 'status' work from another terminal.

Press Ctrl+C to stop; in-flight queries are drained before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runScan(cfg)
	},
}

func init() {
	runCmd.Flags().String("endpoint", "", "name-lookup endpoint URL")
	runCmd.Flags().Bool("simulate", false, "use the deterministic simulation source instead of HTTP")
	runCmd.Flags().Bool("degraded", false, "fall back to simulated data after terminal query failures")
	runCmd.Flags().StringSlice("seeds", nil, "initial seed prefixes (default: a-z)")
	runCmd.Flags().Int("max-concurrency", 0, "maximum concurrent queries")
	runCmd.Flags().Int("max-retries", -1, "retry budget per rate-limited prefix")
	runCmd.Flags().Int("delay-ms", -1, "base inter-request delay in milliseconds")
	runCmd.Flags().Bool("no-heuristics", false, "disable pattern scoring")
	runCmd.Flags().Bool("quiet", false, "suppress per-prefix progress lines")
}

// applyRunFlags overlays run command flags onto the config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if v, _ := cmd.Flags().GetBool("simulate"); v {
		cfg.Simulate = true
	}
	if v, _ := cmd.Flags().GetBool("degraded"); v {
		cfg.DegradedSimulation = true
	}
	if v, _ := cmd.Flags().GetStringSlice("seeds"); len(v) > 0 {
		cfg.Seeds = v
	}
	if v, _ := cmd.Flags().GetInt("max-concurrency"); v > 0 {
		cfg.MaxConcurrency = v
	}
	if v, _ := cmd.Flags().GetInt("max-retries"); v >= 0 {
		cfg.MaxRetries = v
	}
	if v, _ := cmd.Flags().GetInt("delay-ms"); v >= 0 {
		cfg.BaseDelay = msDuration(v)
	}
	if v, _ := cmd.Flags().GetBool("no-heuristics"); v {
		cfg.EnableHeuristics = false
	}
	if v, _ := cmd.Flags().GetBool("quiet"); v {
		quietRun = true
	}
}

var quietRun bool

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func runScan(cfg *config.Config) error {
	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	log, err := logging.New(logLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	src, fallback, err := buildSources(cfg, log)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	eng, err := engine.New(&engine.Config{
		Settings: cfg,
		Source:   src,
		Fallback: fallback,
		Sink: events.SinkFunc(func(ev events.Event) {
			printEvent(ev)
			if ev.IsTerminal() {
				close(done)
			}
		}),
		Logger: log,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()

	srv, err := control.NewServer(cfg.SocketPath, controlHandler(ctx, eng))
	if err != nil {
		return fmt.Errorf("failed to create control server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Scanning. Control socket: %s. Press Ctrl+C to stop.\n", srv.SocketPath())

	select {
	case <-sigCh:
		fmt.Println("\nStopping scan...")
		if err := eng.Stop(ctx); err != nil && err != engine.ErrNotRunning {
			return err
		}
	case <-done:
	}

	printSummary(eng)
	return nil
}

// buildSources picks the query source per config. The simulation source is
// only ever wired explicitly: as the primary source in simulate mode, or as
// the named degraded fallback.
func buildSources(cfg *config.Config, log *zap.Logger) (source.Source, source.Source, error) {
	if cfg.Simulate {
		return source.NewSimulation(), nil, nil
	}
	httpSrc, err := source.NewHTTP(cfg.Endpoint, cfg.RequestTimeout, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DegradedSimulation {
		return httpSrc, source.NewSimulation(), nil
	}
	return httpSrc, nil, nil
}

// controlHandler translates socket commands into engine lifecycle calls.
func controlHandler(ctx context.Context, eng *engine.Engine) func(control.Command) (map[string]interface{}, error) {
	return func(cmd control.Command) (map[string]interface{}, error) {
		switch cmd.Type {
		case "pause":
			return nil, eng.Pause()
		case "resume":
			return nil, eng.Resume()
		case "stop":
			return nil, eng.Stop(ctx)
		case "status":
			stats := eng.Stats()
			return map[string]interface{}{
				"state":        stats.StateName,
				"run_id":       stats.RunID,
				"successful":   stats.SuccessfulRequests,
				"failed":       stats.FailedRequests,
				"rate_limited": stats.RateLimitedRequests,
				"cache_hits":   stats.CacheHits,
				"explored":     len(stats.Explored),
				"skipped":      len(stats.Skipped),
				"blocked":      len(stats.Blocked),
				"queue_depth":  stats.QueueDepth,
				"in_flight":    len(stats.InFlight),
				"names":        stats.NamesDiscovered,
				"efficiency":   stats.Efficiency,
			}, nil
		default:
			return nil, fmt.Errorf("unknown command type %q", cmd.Type)
		}
	}
}

// printEvent renders one progress line.
func printEvent(ev events.Event) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch ev.Type {
	case events.TypePrefixExplored:
		if quietRun {
			return
		}
		marker := green("✓")
		note := ""
		if ev.FromCache {
			note = " (cache)"
		}
		if ev.Simulated {
			note = " (simulated)"
		}
		fmt.Printf("%s %-6s %d new name(s)%s  [%d total, eff %.2f]\n",
			marker, ev.Prefix, len(ev.NewNames), note,
			ev.Stats.NamesDiscovered, ev.Stats.Efficiency)
	case events.TypePrefixRateLimited:
		fmt.Printf("%s %-6s rate limited, backing off\n", yellow("⚡"), ev.Prefix)
	case events.TypePrefixFailed:
		fmt.Printf("%s %-6s query failed\n", red("✗"), ev.Prefix)
	case events.TypeRunCompleted:
		fmt.Printf("%s Frontier exhausted\n", green("✓"))
	}
}

// printSummary renders the end-of-run report.
func printSummary(eng *engine.Engine) {
	stats := eng.Stats()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Printf("\n%s\n", bold("Scan summary"))
	fmt.Printf("  Requests:   %d total, %d successful, %d failed, %d rate limited\n",
		stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests, stats.RateLimitedRequests)
	fmt.Printf("  Prefixes:   %d explored, %d skipped, %d blocked\n",
		len(stats.Explored), len(stats.Skipped), len(stats.Blocked))
	fmt.Printf("  Names:      %d unique (efficiency %.2f per request)\n",
		stats.NamesDiscovered, stats.Efficiency)

	names := eng.Names()
	if len(names) > 0 {
		fmt.Printf("\n%s\n  %s\n", bold("Discovered"), strings.Join(names, ", "))
	}
}
