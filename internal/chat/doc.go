// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation list and the active conversation.
//
// The store applies user messages optimistically before the backend
// acknowledges them, adopts server-assigned session ids on first reply,
// and reconciles with authoritative fetches. All identifier comparisons
// go through api.NormalizeID; the backend emits numeric ids from some
// endpoints and string ids from others, and a raw comparison between the
// two forms silently fails.
//
// Switching sessions is racy by nature: the user can request session B
// while session A's fetch is still in flight. Each switch bumps a
// request generation, and a fetch whose generation no longer matches is
// discarded wholesale, so the slower response can never clobber the
// newer one.
//
// When a sqlite history mirror is attached, reconciled sessions are
// copied into it so the session list survives the backend being down.
package chat
