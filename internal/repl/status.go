package repl

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// cmdStats shows the current run statistics
func (r *REPL) cmdStats(_ []string) error {
	stats := r.engine.Stats()

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("Discovery Stats"))
	fmt.Printf("  State:        %s\n", stats.StateName)
	if stats.RunID != "" {
		fmt.Printf("  Run:          %s\n", stats.RunID)
	}
	fmt.Printf("  %s  %d\n", green("✓ Successful"), stats.SuccessfulRequests)
	fmt.Printf("  %s  %d\n", yellow("⚡ Rate limited"), stats.RateLimitedRequests)
	fmt.Printf("  %s  %d\n", red("✗ Failed"), stats.FailedRequests)
	fmt.Printf("  Cache hits:   %d\n", stats.CacheHits)
	if stats.SimulatedResults > 0 {
		fmt.Printf("  Simulated:    %d\n", stats.SimulatedResults)
	}
	fmt.Printf("  Explored:     %d   Skipped: %d   Blocked: %d\n",
		len(stats.Explored), len(stats.Skipped), len(stats.Blocked))
	fmt.Printf("  Queue depth:  %d   In flight: %d\n", stats.QueueDepth, len(stats.InFlight))
	fmt.Printf("  Names found:  %d\n", stats.NamesDiscovered)
	fmt.Printf("  Efficiency:   %.2f names/request\n", stats.Efficiency)
	fmt.Println()
	return nil
}

// cmdNames lists the discovered names
func (r *REPL) cmdNames(args []string) error {
	names := r.engine.Names()
	if len(names) == 0 {
		fmt.Println("No names discovered yet")
		return nil
	}

	// optional prefix filter: "names al"
	if len(args) > 0 {
		filter := strings.ToLower(args[0])
		filtered := names[:0:0]
		for _, n := range names {
			if strings.HasPrefix(n, filter) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s (%d)\n", bold("Discovered names"), len(names))
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	return nil
}
