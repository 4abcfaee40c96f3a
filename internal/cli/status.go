// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/atlas-tui/internal/auth"
)

// HandleStatus reports backend health and local auth state.
func HandleStatus(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	fmt.Printf("Backend:  %s\n", rt.Client.BaseURL())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if health, err := rt.Client.Health(ctx); err != nil {
		fmt.Printf("Health:   unreachable (%v)\n", err)
	} else {
		fmt.Printf("Health:   ok (scraping: %s)\n", health.ScrapingStatus)
	}

	if user := rt.Controller.User(); user != nil {
		fmt.Printf("Account:  %s (%s)\n", user.Email, user.Name)
		if ok := rt.Controller.CheckAuth(ctx, auth.RouteChat); ok {
			fmt.Println("Session:  valid")
		} else {
			fmt.Println("Session:  expired - run `atlas login`")
		}
	} else {
		fmt.Println("Account:  not signed in")
	}

	if rt.History != nil {
		if sessions, err := rt.History.ListSessions(); err == nil {
			fmt.Printf("History:  %d conversation(s) mirrored locally\n", len(sessions))
		}
	}
}
