// Package repl provides the interactive shell for driving a discovery
// engine: lifecycle commands plus live stats and name inspection.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/prefixlab/namescout/internal/engine"
)

// REPL represents the interactive shell
type REPL struct {
	engine   *engine.Engine
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Engine *engine.Engine
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg == nil || cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	r := &REPL{
		engine:   cfg.Engine,
		commands: make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("namescout> "),
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return r.shutdown()
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return r.shutdown()
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	handler, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try 'help')", name)
	}
	return handler(parts[1:])
}

// shutdown drains any active run before the shell exits.
func (r *REPL) shutdown() error {
	if err := r.engine.Stop(r.ctx); err != nil && err != engine.ErrNotRunning {
		return err
	}
	return nil
}

// registerCommands wires the built-in commands
func (r *REPL) registerCommands() {
	r.commands["start"] = r.cmdStart
	r.commands["pause"] = r.cmdPause
	r.commands["resume"] = r.cmdResume
	r.commands["stop"] = r.cmdStop
	r.commands["reset"] = r.cmdReset
	r.commands["stats"] = r.cmdStats
	r.commands["names"] = r.cmdNames
	r.commands["help"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) cmdStart(_ []string) error {
	if err := r.engine.Start(r.ctx); err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Discovery started\n", green("✓"))
	return nil
}

func (r *REPL) cmdPause(_ []string) error {
	if err := r.engine.Pause(); err != nil {
		return err
	}
	fmt.Println("Dispatch paused (in-flight queries will finish)")
	return nil
}

func (r *REPL) cmdResume(_ []string) error {
	if err := r.engine.Resume(); err != nil {
		return err
	}
	fmt.Println("Dispatch resumed")
	return nil
}

func (r *REPL) cmdStop(_ []string) error {
	if err := r.engine.Stop(r.ctx); err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Run stopped and drained\n", green("✓"))
	return nil
}

func (r *REPL) cmdReset(_ []string) error {
	if err := r.engine.Reset(r.ctx); err != nil {
		return err
	}
	fmt.Println("Engine reset; 'start' begins a fresh run")
	return nil
}

func (r *REPL) cmdExit(_ []string) error {
	fmt.Println("Goodbye!")
	return io.EOF
}

func (r *REPL) cmdHelp(_ []string) error {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n", bold("Commands:"))
	fmt.Println("  start    Begin a discovery run")
	fmt.Println("  pause    Suspend dispatch (in-flight queries finish)")
	fmt.Println("  resume   Resume dispatch after a pause")
	fmt.Println("  stop     Stop the run and wait for in-flight queries")
	fmt.Println("  reset    Clear all run state")
	fmt.Println("  stats    Show run statistics")
	fmt.Println("  names    List discovered names")
	fmt.Println("  exit     Leave the shell (drains any active run)")
	return nil
}

func (r *REPL) printWelcome() {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s — adaptive prefix exploration\n", bold("namescout"))
	fmt.Println("Type 'start' to begin, 'help' for commands.")
	fmt.Println()
}
