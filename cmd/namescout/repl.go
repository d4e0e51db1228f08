package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prefixlab/namescout/internal/engine"
	"github.com/prefixlab/namescout/internal/logging"
	"github.com/prefixlab/namescout/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive shell driving an in-process engine",
	Long: `Start an interactive shell with its own discovery engine. Commands:
start, pause, resume, stop, reset, stats, names.

Without an endpoint the shell runs against the deterministic simulation
source, which makes it a safe way to explore the engine's behavior offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Endpoint == "" {
			cfg.Simulate = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logLevel := "warn"
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

		eng, err := engine.New(&engine.Config{
			Settings: cfg,
			Source:   src,
			Fallback: fallback,
			Logger:   log,
		})
		if err != nil {
			return err
		}

		shell, err := repl.New(&repl.Config{Engine: eng})
		if err != nil {
			return err
		}
		return shell.Run(context.Background())
	},
}
