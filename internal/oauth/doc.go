// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package oauth completes the Google sign-in handoff.
//
// The backend finishes its OAuth exchange by redirecting the browser to a
// callback URL carrying the session token and identity claims in the URL
// fragment. Fragments never appear in server access logs, which is why
// the query string is not used for the token. This package parses that
// redirect, persists an optimistic identity into the credential cache
// before anything that could fail, arms the one-shot just-authenticated
// flag and bearer token, and optionally verifies the identity against the
// backend without blocking the flow.
//
// For the terminal client the redirect lands on a loopback HTTP listener.
// Since fragments are invisible to servers by design, the listener serves
// a small shim page that forwards the fragment to a second loopback
// endpoint; the token stays on the machine throughout.
package oauth
