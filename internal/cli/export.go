// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/atlas-tui/internal/chat"
	"github.com/jeranaias/atlas-tui/internal/export"
)

// HandleExport writes conversations to a local file in the requested
// format. With an id argument only that conversation is exported;
// otherwise every conversation is.
func HandleExport(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	format := args.Format
	if format == "" {
		format = "markdown"
	}

	opts := export.DefaultOptions()
	opts.OutputDir = rt.Cfg.Export.OutputDir
	opts.Theme = rt.Cfg.Export.Theme
	opts.IncludeTimestamps = rt.Cfg.Export.IncludeTimestamps
	opts.OpenAfterExport = rt.Cfg.Export.OpenAfterExport
	if args.Output != "" {
		opts.OutputDir = args.Output
	}

	exporter, err := export.NewExporter(format, opts)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := rt.Store.LoadHistory(ctx); err != nil {
		fmt.Println("(backend unreachable; exporting local history)")
	}

	sessions := rt.Store.ExportAll()
	if args.Subcommand != "" {
		// A specific conversation was requested; fetch it in full.
		if err := rt.Store.SwitchTo(ctx, args.Subcommand); err != nil {
			fail("failed to load conversation %s: %v", args.Subcommand, err)
		}
		snap, ok := rt.Store.ExportCurrent()
		if !ok {
			fail("conversation %s has no messages", args.Subcommand)
		}
		sessions = []chat.ExportSession{snap}
	}

	if len(sessions) == 0 {
		fail("nothing to export")
	}

	path, err := export.ExportToFile(sessions, exporter, opts)
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Exported %d conversation(s) to %s\n", len(sessions), path)
}
