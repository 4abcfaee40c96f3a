// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for atlas.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdSessions
	CmdExport
	CmdReport
	CmdHistory
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet bool

	// login
	Google bool

	// export / report
	Format string
	Output string
	All    bool

	// Subcommand and remaining positional args
	Subcommand string
	Raw        []string
}

const usageText = `atlas - terminal client for the Atlas policy analysis assistant

Usage:
  atlas                      Start the chat TUI (default)
  atlas login                Sign in with email and password
  atlas login --google       Sign in with Google
  atlas logout               Sign out and clear cached credentials
  atlas sessions             List conversations
  atlas sessions delete <id> Delete a conversation
  atlas sessions delete --all  Delete every conversation
  atlas export [id]          Export conversations (markdown, json, html)
  atlas report <id>          Download a generated report (pdf, docx, html)
  atlas history              Show the offline session mirror
  atlas status               Show backend health and auth state
  atlas version              Show version information

Flags:
  --format <fmt>   Export/report format (default: markdown / pdf)
  --output <dir>   Output directory for exports and reports
  --all            Apply to all conversations
  --google         Use Google sign-in
  -q, --quiet      Suppress informational output

Environment:
  ATLAS_API_URL    Override the backend API base URL
  ATLAS_THEME      Override the UI theme (dark|light)
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, *Args) {
	args := &Args{}
	rest := []string{}

	argv := os.Args[1:]
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--google":
			args.Google = true
		case arg == "--all":
			args.All = true
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "--format":
			if i+1 < len(argv) {
				i++
				args.Format = argv[i]
			}
		case strings.HasPrefix(arg, "--format="):
			args.Format = strings.TrimPrefix(arg, "--format=")
		case arg == "--output":
			if i+1 < len(argv) {
				i++
				args.Output = argv[i]
			}
		case strings.HasPrefix(arg, "--output="):
			args.Output = strings.TrimPrefix(arg, "--output=")
		case arg == "-h" || arg == "--help":
			return CmdHelp, args
		default:
			rest = append(rest, arg)
		}
	}

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := rest[0]
	if len(rest) > 1 {
		args.Subcommand = rest[1]
		args.Raw = rest[2:]
	}

	switch cmd {
	case "login":
		return CmdLogin, args
	case "logout":
		return CmdLogout, args
	case "sessions", "session":
		return CmdSessions, args
	case "export":
		return CmdExport, args
	case "report":
		return CmdReport, args
	case "history":
		return CmdHistory, args
	case "status", "s":
		return CmdStatus, args
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// HandleHelp prints usage information.
func HandleHelp(*Args) {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion(*Args) {
	fmt.Printf("atlas %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// fail prints an error and exits non-zero.
func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	os.Exit(1)
}
