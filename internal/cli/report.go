// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HandleReport downloads a backend-generated report for a conversation.
func HandleReport(args *Args) {
	if args.Subcommand == "" {
		fail("report requires a conversation id")
	}

	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	format := args.Format
	if format == "" {
		format = "pdf"
	}

	outDir := rt.Cfg.Export.OutputDir
	if args.Output != "" {
		outDir = args.Output
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fail("create output directory: %v", err)
	}

	name := fmt.Sprintf("atlas_report_%s_%s.%s",
		args.Subcommand, time.Now().Format("20060102_150405"), format)
	path := filepath.Join(outDir, name)

	f, err := os.Create(path)
	if err != nil {
		fail("create report file: %v", err)
	}
	defer f.Close()

	// Report generation runs the analysis pipeline server-side; give it
	// the long timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	n, err := rt.Client.DownloadReport(ctx, args.Subcommand, format, f)
	if err != nil {
		os.Remove(path)
		fail("%v", err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", path, n)
}
