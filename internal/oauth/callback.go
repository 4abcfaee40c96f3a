// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package oauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/storage"
)

// Errors reported by callback parsing.
var (
	// ErrNoAuthData indicates the redirect carried no usable fragment.
	ErrNoAuthData = errors.New("no authentication data in callback")

	// ErrMissingEmail indicates the fragment lacked an email claim. A
	// token alone cannot seed a usable optimistic identity.
	ErrMissingEmail = errors.New("callback missing email claim")
)

// Claims are the fields parsed from a callback redirect fragment.
type Claims struct {
	SessionToken string
	UserID       string
	Email        string
	Name         string
	Picture      string
}

// User builds the optimistic identity record from the claims. When the
// provider sent no display name, the local part of the email stands in.
func (c *Claims) User() *api.User {
	name := c.Name
	if name == "" {
		name = c.Email
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
	}
	return &api.User{
		UserID:  c.UserID,
		Email:   c.Email,
		Name:    name,
		Picture: c.Picture,
	}
}

// ParseCallback extracts claims from a callback redirect URL. Only the
// fragment is consulted for credentials; an `error` query parameter is
// surfaced when the fragment is unusable. Fragment values arrive
// percent-encoded and are decoded here.
func ParseCallback(rawURL string) (*Claims, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}

	frag, err := url.ParseQuery(u.EscapedFragment())
	if err != nil || frag.Get("session_token") == "" {
		if msg := u.Query().Get("error"); msg != "" {
			return nil, fmt.Errorf("authentication failed: %s", msg)
		}
		return nil, ErrNoAuthData
	}

	claims := &Claims{
		SessionToken: frag.Get("session_token"),
		UserID:       frag.Get("user_id"),
		Email:        frag.Get("email"),
		Name:         frag.Get("name"),
		Picture:      frag.Get("picture"),
	}
	if claims.Email == "" {
		return nil, ErrMissingEmail
	}
	return claims, nil
}

// Handler completes OAuth callbacks against the credential cache and the
// auth controller's transient flags.
type Handler struct {
	client *api.Client
	creds  *storage.CredentialStore
	flags  *auth.TransientFlags
}

// NewHandler wires a callback handler.
func NewHandler(client *api.Client, creds *storage.CredentialStore, flags *auth.TransientFlags) *Handler {
	return &Handler{client: client, creds: creds, flags: flags}
}

// Complete consumes one callback redirect. The sequencing is the whole
// contract:
//
//  1. Parse the fragment; any failure clears partially written cache
//     state and reports the error.
//  2. Persist the optimistic identity BEFORE any network call, so the
//     identity survives even if verification fails or the process dies.
//  3. Arm the just-authenticated flag and stash the bearer token for
//     one-time use by the next CheckAuth.
//  4. Attempt a single verification against who-am-i with the bearer
//     token. Success upgrades the cache to the server's canonical record;
//     failure is logged and the optimistic record stands.
func (h *Handler) Complete(ctx context.Context, rawURL string) (*api.User, error) {
	claims, err := ParseCallback(rawURL)
	if err != nil {
		if cerr := h.creds.Clear(); cerr != nil {
			log.Printf("oauth: failed to clear credential cache: %v", cerr)
		}
		return nil, err
	}

	user := claims.User()
	if err := h.creds.Write(user); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	h.flags.SetJustAuthenticated()
	h.flags.StashBearer(claims.SessionToken)

	if canonical, err := h.client.Me(ctx, claims.SessionToken); err == nil && canonical != nil {
		if werr := h.creds.Write(canonical); werr == nil {
			user = canonical
		}
	} else if err != nil {
		log.Printf("oauth: verification failed, proceeding with optimistic identity: %v", err)
	}

	return user, nil
}
