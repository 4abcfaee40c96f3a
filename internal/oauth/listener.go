// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package oauth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/atlas-tui/internal/api"
)

// failureLinger is how long the failure page stays up before the listener
// shuts down, so the user can read the message before being sent back to
// the login flow.
const failureLinger = 3 * time.Second

// callbackShim converts the fragment to a loopback-local query string.
// The fragment is invisible to any server, including this one, so a tiny
// page must re-post it. location.replace keeps the token out of browser
// history.
const callbackShim = `<!DOCTYPE html>
<html><head><title>Signing in…</title></head><body>
<p>Completing sign-in…</p>
<script>
  var s = window.location.search;
  var h = window.location.hash;
  var q = (s ? s.substring(1) : "") + (s && h ? "&" : "") + (h ? h.substring(1) : "");
  window.location.replace("/auth/complete" + (q ? "?" + q : ""));
</script>
</body></html>`

const successPage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head><body>
<p>Signed in. You can close this tab and return to the terminal.</p>
</body></html>`

// Result is the outcome of one callback round trip.
type Result struct {
	User *api.User
	Err  error
}

// Listener catches the backend's OAuth redirect on a loopback port and
// feeds it through a Handler. It serves exactly one sign-in attempt.
type Listener struct {
	handler *Handler

	srv  *http.Server
	ln   net.Listener
	once sync.Once
	done chan Result
}

// NewListener creates a listener for one callback.
func NewListener(handler *Handler) *Listener {
	return &Listener{
		handler: handler,
		done:    make(chan Result, 1),
	}
}

// Start binds a random loopback port and returns the redirect URL to hand
// to the backend's OAuth entry point.
func (l *Listener) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to bind callback listener: %w", err)
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", l.serveCallback)
	mux.HandleFunc("/auth/complete", l.serveComplete)

	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go l.srv.Serve(ln)

	return fmt.Sprintf("http://%s/auth/callback", ln.Addr().String()), nil
}

// Wait blocks until the callback completes, the context is canceled, or
// the user gives up.
func (l *Listener) Wait(ctx context.Context) (*api.User, error) {
	select {
	case res := <-l.done:
		return res.User, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears the listener down. Safe to call more than once.
func (l *Listener) Close() {
	if l.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.srv.Shutdown(ctx)
	}
}

func (l *Listener) serveCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, callbackShim)
}

func (l *Listener) serveComplete(w http.ResponseWriter, r *http.Request) {
	// Rebuild the fragment-form URL the handler contract expects. The
	// shim collapsed the redirect's query and fragment into one query
	// string, so present it in both positions and let the parser's
	// precedence rules pick: credentials are read from the fragment, an
	// error parameter from the query.
	rawURL := "http://" + r.Host + "/auth/callback"
	if raw := r.URL.RawQuery; raw != "" {
		rawURL += "?" + raw + "#" + raw
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	user, err := l.handler.Complete(ctx, rawURL)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		// The message can carry the redirect's error parameter verbatim,
		// so it must not reach the page as markup.
		fmt.Fprintf(w, "<!DOCTYPE html><html><body><p>Sign-in failed: %s</p><p>Return to the terminal to try again.</p></body></html>", html.EscapeString(err.Error()))
		l.finish(Result{Err: err}, failureLinger)
		return
	}

	fmt.Fprint(w, successPage)
	l.finish(Result{User: user}, 0)
}

// finish delivers the result once and schedules shutdown after delay.
func (l *Listener) finish(res Result, delay time.Duration) {
	l.once.Do(func() {
		l.done <- res
		go func() {
			time.Sleep(delay)
			l.Close()
		}()
	})
}
