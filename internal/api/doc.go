// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Atlas policy-analysis
// backend.
//
// The client covers authentication (login, register, logout, who-am-i),
// chat session management, chat message submission, report downloads, and
// read-only auxiliary data endpoints. Authentication normally rides on the
// ambient session cookie held in the client's cookie jar; a one-time bearer
// token can be supplied for the who-am-i call immediately after an OAuth
// handoff, before the cookie has propagated.
//
// # Identifier Normalization
//
// The backend emits session and message identifiers as either JSON strings
// or JSON numbers depending on the code path that produced them. FlexID is
// the single coercion point: every wire struct uses it, and every consumer
// compares identifiers only in their canonical string form. See NormalizeID.
//
// # Error Handling
//
// Transport failures and 5xx responses are retried with exponential
// backoff and surfaced as ordinary errors. 401 responses are mapped to
// ErrUnauthorized so callers can distinguish authoritative
// "no session" evidence from transient failures. Other 4xx responses are
// returned as *APIError carrying the server's detail message.
package api
