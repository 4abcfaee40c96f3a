// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the client-side authentication session state.
//
// The Controller decides when the persistent credential cache can be
// trusted and when the backend must be consulted, and it executes the
// login, register, logout, and re-validation flows. Its trust policy is
// deliberately asymmetric: the backend session rides on a cookie set by a
// cross-navigation redirect, and the client cannot always observe that the
// cookie has propagated before the next request. A naive "401 means
// logged out" rule therefore produces false logouts immediately after a
// successful login or OAuth round trip. The controller instead honors
// bounded grace windows after a cache write during which a contradicting
// 401 is distrusted, deferring the final verdict to a later check.
//
// One-shot signals (the just-authenticated flag and the OAuth bearer
// token) are carried by TransientFlags, an explicit injected value with
// atomic consume semantics, rather than ambient global state.
package auth
