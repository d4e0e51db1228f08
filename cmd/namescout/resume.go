package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/control"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused scan",
	Run: func(cmd *cobra.Command, args []string) {
		client := control.NewClient(controlSocket())
		resp, err := client.Resume()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Resume failed: %s\n", red("✗"), resp.Error)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Scan resumed\n", green("✓"))
	},
}
