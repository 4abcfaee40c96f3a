// atlas - terminal client for the Atlas policy analysis assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/cli"
	"github.com/jeranaias/atlas-tui/internal/config"
	"github.com/jeranaias/atlas-tui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdLogout:
		cli.HandleLogout(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdExport:
		cli.HandleExport(args)
	case cli.CmdReport:
		cli.HandleReport(args)
	case cli.CmdHistory:
		cli.HandleHistory(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	default:
		cli.HandleHelp(args)
		os.Exit(1)
	}
}

func runTUI(args *cli.Args) {
	rt, err := cli.NewRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	// Hydrate cached credentials and kick off the initial validation so
	// the first frame already knows whether a login is needed.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rt.Controller.Bootstrap(ctx, auth.RouteChat)
	cancel()

	model := app.New(rt.Cfg, rt.Controller, rt.Store)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Hot-reload the config file while the TUI runs. Best effort; the
	// session continues on the startup config if the watch fails.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
			program.Send(app.ConfigReloadedMsg{Cfg: cfg})
		}); err == nil {
			if err := watcher.Watch(); err != nil {
				log.Printf("config: watch disabled: %v", err)
			}
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
