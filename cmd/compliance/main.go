// cmd/compliance/main.go
//
// This is the entry point for the compliance assistant client.
// When you run `compliance` from any directory, that directory becomes the
// project: its .compliance/ folder holds the config and the session log.
//
// Flow:
// 1. Load .env (if present) so COMPLIANCE_* overrides apply
// 2. Dispatch the `upload` and `ask` subcommands
// 3. Otherwise launch the TUI

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/kingrea/compliance-assistant/internal/config"
	"github.com/kingrea/compliance-assistant/internal/tui"
)

func main() {
	_ = godotenv.Load(".env")

	// Get the current working directory - this is the "project" we're working in
	cwd, err := os.Getwd()
	if err != nil {
		die("Error getting working directory: %v", err)
	}
	if err := config.InitWorkDir(cwd); err != nil {
		die("Error initializing %s directory: %v", config.WorkDirName, err)
	}

	if code, ok := handleUploadCommand(cwd, os.Args[1:]); ok {
		os.Exit(code)
	}
	if code, ok := handleAskCommand(cwd, os.Args[1:]); ok {
		os.Exit(code)
	}
	if len(os.Args) > 1 {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	app, err := tui.NewApp(cwd)
	if err != nil {
		die("Error loading configuration: %v", err)
	}

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		die("Error running TUI: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage:
  compliance                         launch the interactive assistant
  compliance upload [--json] FILE... upload documents in order
  compliance ask QUESTION...         ask a question about uploaded documents`)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
