// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "sync"

// TransientFlags carries one-shot signals between an authentication
// transition (login, register, OAuth callback) and the next CheckAuth
// pass. Both signals consume atomically: a read deletes the value, so a
// signal can never be applied twice.
//
// The flags are process-scoped, the Go analogue of tab-scoped session
// storage: they deliberately do not survive a restart.
type TransientFlags struct {
	mu         sync.Mutex
	justAuthed bool
	bearer     string
}

// NewTransientFlags returns an empty flag set.
func NewTransientFlags() *TransientFlags {
	return &TransientFlags{}
}

// SetJustAuthenticated records that an auth transition just completed.
func (f *TransientFlags) SetJustAuthenticated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.justAuthed = true
}

// ConsumeJustAuthenticated returns the flag and clears it in one step.
func (f *TransientFlags) ConsumeJustAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.justAuthed
	f.justAuthed = false
	return v
}

// StashBearer stores an OAuth bearer token for one-time use by the next
// who-am-i call.
func (f *TransientFlags) StashBearer(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearer = token
}

// ConsumeBearer returns the stashed token and clears it in one step.
// Returns "" if no token is stashed.
func (f *TransientFlags) ConsumeBearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.bearer
	f.bearer = ""
	return t
}
