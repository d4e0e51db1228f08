package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show statistics for the running scan",
	Run: func(cmd *cobra.Command, args []string) {
		client := control.NewClient(controlSocket())
		resp, err := client.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Hint: is a scan running? Start one with 'namescout run'.")
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Status failed: %s\n", red("✗"), resp.Error)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("Scan Status"))
		fmt.Printf("  State:        %v\n", resp.Data["state"])
		fmt.Printf("  Run:          %v\n", resp.Data["run_id"])
		fmt.Printf("  Successful:   %v\n", resp.Data["successful"])
		fmt.Printf("  Rate limited: %v\n", resp.Data["rate_limited"])
		fmt.Printf("  Failed:       %v\n", resp.Data["failed"])
		fmt.Printf("  Explored:     %v   Skipped: %v   Blocked: %v\n",
			resp.Data["explored"], resp.Data["skipped"], resp.Data["blocked"])
		fmt.Printf("  Queue depth:  %v   In flight: %v\n",
			resp.Data["queue_depth"], resp.Data["in_flight"])
		fmt.Printf("  Names found:  %v\n", resp.Data["names"])
		fmt.Printf("  Efficiency:   %v\n", resp.Data["efficiency"])
		fmt.Println()
	},
}
