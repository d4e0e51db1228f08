package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/control"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a running scan",
	Long: `Pause a running scan. New prefix dispatch is suspended immediately;
queries already in flight run to completion and no queued prefix is lost.
Resume with 'namescout resume'.`,
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")

		client := control.NewClient(controlSocket())
		resp, err := client.Pause(reason)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Hint: is a scan running? Try 'namescout status'.")
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Pause failed: %s\n", red("✗"), resp.Error)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Scan paused\n", green("✓"))
	},
}

func init() {
	pauseCmd.Flags().String("reason", "", "optional reason for the pause")
}
