// namescout is an adaptive prefix-exploration tool: it enumerates the
// discoverable names behind a prefix-lookup endpoint while minimizing
// requests and respecting the server's rate limit.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/config"
)

var version = "0.4.0"

var (
	cfgFile    string
	socketPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "namescout",
	Short: "Adaptive prefix exploration against a name-lookup endpoint",
	Long: `namescout enumerates the complete set of names discoverable through a
prefix-lookup endpoint. It schedules prefix queries by expected information
gain, prunes unproductive branches, adapts its parallelism to the server's
rate limiting, and deduplicates every name it sees.

Start a scan in one terminal with 'namescout run', then drive it from
another with 'namescout pause', 'resume', 'stop', and 'status'.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the namescout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("namescout %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to yaml config file")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "control socket path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(replCmd)
}

// loadConfig assembles the effective configuration: defaults, then the
// config file, then environment, then flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		if err := cfg.ApplyFile(cfgFile); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	return cfg, nil
}

// controlSocket resolves the socket path for client commands.
func controlSocket() string {
	cfg, err := loadConfig()
	if err != nil {
		return config.DefaultConfig().SocketPath
	}
	return cfg.SocketPath
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
