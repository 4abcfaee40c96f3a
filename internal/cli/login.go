// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/atlas-tui/internal/oauth"
)

// googleLoginTimeout bounds how long the loopback listener waits for the
// browser to come back.
const googleLoginTimeout = 5 * time.Minute

// HandleLogin signs the user in with email/password or, with --google,
// through the browser OAuth flow.
func HandleLogin(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	if args.Google {
		handleGoogleLogin(rt, args)
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		fail("failed to read email: %v", err)
	}
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fail("failed to read password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.Controller.Login(ctx, email, string(password)); err != nil {
		fail("%v", err)
	}

	user := rt.Controller.User()
	fmt.Printf("Signed in as %s\n", user.Email)
}

func handleGoogleLogin(rt *Runtime, args *Args) {
	handler := oauth.NewHandler(rt.Client, rt.Creds, rt.Flags)
	listener := oauth.NewListener(handler)

	redirectURL, err := listener.Start()
	if err != nil {
		fail("%v", err)
	}
	defer listener.Close()

	fmt.Println("Open this URL in your browser to sign in with Google:")
	fmt.Println()
	fmt.Println("  " + rt.Controller.GoogleLoginURL(redirectURL))
	fmt.Println()
	if !args.Quiet {
		fmt.Println("Waiting for the browser to finish...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), googleLoginTimeout)
	defer cancel()
	user, err := listener.Wait(ctx)
	if err != nil {
		fail("google sign-in failed: %v", err)
	}

	fmt.Printf("Signed in as %s\n", user.Email)
}

// HandleLogout signs the user out. Server-side invalidation is best
// effort; the local cache is always cleared.
func HandleLogout(args *Args) {
	rt, err := NewRuntime()
	if err != nil {
		fail("%v", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.Controller.Logout(ctx)

	if !args.Quiet {
		fmt.Println("Signed out.")
	}
}
