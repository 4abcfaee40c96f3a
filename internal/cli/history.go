// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/jeranaias/atlas-tui/internal/util"
)

// HandleHistory shows the offline session mirror without touching the
// network.
func HandleHistory(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	if rt.History == nil {
		fail("history mirror is disabled (chat.history_enabled = false)")
	}

	switch args.Subcommand {
	case "", "list":
		sessions, err := rt.History.ListSessions()
		if err != nil {
			fail("%v", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No mirrored conversations.")
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

	case "show":
		if len(args.Raw) == 0 {
			fail("history show requires a conversation id")
		}
		sess, err := rt.History.GetSession(args.Raw[0])
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("%s (%d messages)\n\n", sess.Title, len(sess.Messages))
		for _, msg := range sess.Messages {
			fmt.Printf("[%s] %s\n", msg.Sender, msg.Content)
		}

	case "clear":
		if err := rt.History.Clear(); err != nil {
			fail("%v", err)
		}
		fmt.Println("History mirror cleared.")

	default:
		fail("unknown history subcommand: %s", args.Subcommand)
	}
}
