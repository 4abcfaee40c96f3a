// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/atlas-tui/internal/util"
)

// HandleSessions lists or deletes conversations.
func HandleSessions(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args.Subcommand {
	case "", "list":
		listSessions(ctx, rt)
	case "delete", "rm":
		deleteSessions(ctx, rt, args)
	default:
		fail("unknown sessions subcommand: %s", args.Subcommand)
	}
}

func listSessions(ctx context.Context, rt *Runtime) {
	if err := rt.Store.LoadHistory(ctx); err != nil {
		fmt.Println("(backend unreachable; showing local history)")
	}

	sessions := rt.Store.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No conversations.")
		return
	}

	fmt.Printf("%-12s %-50s %s\n", "ID", "TITLE", "UPDATED")
	for _, sess := range sessions {
		fmt.Printf("%-12s %-50s %s\n",
			sess.ID.String(),
			util.TruncateRunes(sess.Title, 50),
			sess.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
}

func deleteSessions(ctx context.Context, rt *Runtime, args *Args) {
	if args.All {
		if err := rt.Store.DeleteAll(ctx); err != nil {
			fail("%v", err)
		}
		fmt.Println("All conversations deleted.")
		return
	}

	if len(args.Raw) == 0 {
		fail("sessions delete requires at least one id (or --all)")
	}

	if len(args.Raw) == 1 {
		if err := rt.Store.Delete(ctx, args.Raw[0]); err != nil {
			fail("%v", err)
		}
	} else {
		if err := rt.Store.DeleteMany(ctx, args.Raw); err != nil {
			fail("%v", err)
		}
	}
	fmt.Printf("Deleted %d conversation(s).\n", len(args.Raw))
}
