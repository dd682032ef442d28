// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/keywarden/keywarden/cmd/kwadmin/internal/tui"
	"github.com/keywarden/keywarden/internal/util"
	"github.com/keywarden/keywarden/internal/version"
)

func main() {
	// Handle early-exit flags before any other processing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("kwadmin %s\n", version.String())
			os.Exit(0)
		}
	}

	dataDir := flag.String("d", "", "Data directory (required, or set KEYWARDEN_DATA)")
	flag.Parse()

	// Resolve data directory from -d flag or KEYWARDEN_DATA env var
	resolvedDataDir := util.RequireDataDir(*dataDir)

	util.InitLogger()

	// Load config from the data directory; the socket path must match the
	// daemon's
	config := util.LoadServerConfig(resolvedDataDir)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: kwadmin requires an interactive terminal")
		os.Exit(1)
	}

	fmt.Printf("Connecting to kwardend via IPC (%s)...\n", config.IPCPath)

	model := tui.NewModel(config.IPCPath, resolvedDataDir)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
