package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/control"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running scan",
	Long: `Stop a running scan. Dispatch halts immediately and the command
returns once every in-flight query has finished.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := control.NewClient(controlSocket())
		resp, err := client.Stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Stop failed: %s\n", red("✗"), resp.Error)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Scan stopped and drained\n", green("✓"))
	},
}
