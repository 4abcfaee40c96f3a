// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"
)

// LoadingWatch observes a stuck loading state. If the store is still
// loading when the timeout elapses, the callback fires once so the UI
// can offer an escape to a known-good state instead of spinning. Cancel
// when the load resolves normally.
type LoadingWatch struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// WatchLoading arms a watch on the store's loading state.
func WatchLoading(store *Store, timeout time.Duration, onStuck func()) *LoadingWatch {
	w := &LoadingWatch{}
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		fired := !w.done
		w.done = true
		w.mu.Unlock()
		if fired && store.Loading() {
			onStuck()
		}
	})
	return w
}

// Cancel disarms the watch. Safe to call after firing or more than once.
func (w *LoadingWatch) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	w.timer.Stop()
}
