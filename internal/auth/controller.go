// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/storage"
)

// Trust-policy durations. These are a deliberate trade-off between fast
// logout detection and false logouts caused by cookie propagation races;
// see the package documentation before tightening them.
const (
	// CacheValidity is how long a cache entry alone may seed the UI with
	// an optimistic identity.
	CacheValidity = 24 * time.Hour

	// CheckInterval is the minimum spacing between network validations
	// while a trusted user is already in memory.
	CheckInterval = 30 * time.Second

	// StaleVerdictGrace is the outer bound on distrusting a 401 while a
	// recent cache entry exists. It covers both the seconds-to-minutes
	// window in which an OAuth redirect's cookie has not yet propagated
	// and the broader case of a cache written within the last hour; in
	// either case the verdict is deferred to the next natural API call.
	StaleVerdictGrace = time.Hour
)

// Route names used to suppress validation on unauthenticated pages.
const (
	RouteLogin    = "login"
	RouteRegister = "register"
	RouteCallback = "oauth-callback"
	RouteChat     = "chat"
)

// IsPublicRoute reports whether a route is reachable without a session.
func IsPublicRoute(route string) bool {
	switch route {
	case RouteLogin, RouteRegister, RouteCallback:
		return true
	}
	return false
}

// Controller owns the current-user state. All exported methods are safe
// for concurrent use.
type Controller struct {
	client *api.Client
	creds  *storage.CredentialStore
	flags  *TransientFlags

	mu        sync.Mutex
	user      *api.User
	loading   bool
	checking  bool // re-entrancy guard: one validation in flight
	lastCheck time.Time
	hydrated  bool

	// limiter spaces out validations when a user is already present.
	limiter *rate.Limiter
}

// NewController creates a controller and hydrates it synchronously from
// the credential cache. If a cache entry exists within the validity
// window, the user is adopted optimistically and loading starts false so
// the UI can render immediately; the caller should still schedule a
// background CheckAuth via Bootstrap. Without a usable entry, loading
// starts true and CheckAuth must complete before protected UI is shown.
func NewController(client *api.Client, creds *storage.CredentialStore, flags *TransientFlags) *Controller {
	c := &Controller{
		client:  client,
		creds:   creds,
		flags:   flags,
		loading: true,
		limiter: rate.NewLimiter(rate.Every(CheckInterval), 1),
	}

	if user, age, ok := creds.Read(); ok && age <= CacheValidity {
		c.user = user
		c.loading = false
		c.hydrated = true
	}
	return c
}

// User returns the current user, or nil when unauthenticated.
func (c *Controller) User() *api.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// IsAuthenticated reports whether a user is present.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user != nil
}

// Loading reports whether the initial auth determination is still pending.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Hydrated reports whether construction adopted a cached identity.
func (c *Controller) Hydrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrated
}

// bootstrapTimeout bounds the detached background validation launched
// for a hydrated session.
const bootstrapTimeout = 15 * time.Second

// Bootstrap runs the initial validation for the given route. When the
// controller was hydrated from cache the check runs in the background so
// the UI is not blocked; it gets its own deadline rather than borrowing
// ctx, which the caller typically cancels as soon as Bootstrap returns.
// Without a hydrated identity the check runs synchronously under ctx.
func (c *Controller) Bootstrap(ctx context.Context, route string) {
	if c.Hydrated() {
		go func() {
			bctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
			defer cancel()
			c.CheckAuth(bctx, route)
		}()
		return
	}
	c.CheckAuth(ctx, route)
}

// =============================================================================
// LOGIN / REGISTER / LOGOUT
// =============================================================================

// Login authenticates with email and password. On success the user is
// cached, the just-authenticated flag is set, and the in-memory state is
// replaced. On failure the server's error is returned and no cached state
// is touched.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	user, err := c.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	c.adoptAuthenticated(user)
	return nil
}

// Register creates an account; same contract as Login.
func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	user, err := c.client.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	c.adoptAuthenticated(user)
	return nil
}

// adoptAuthenticated installs a freshly authenticated user.
func (c *Controller) adoptAuthenticated(user *api.User) {
	if err := c.creds.Write(user); err != nil {
		log.Printf("auth: failed to cache credentials: %v", err)
	}
	c.flags.SetJustAuthenticated()

	c.mu.Lock()
	c.user = user
	c.loading = false
	c.mu.Unlock()
}

// Logout invalidates the server session best-effort and always succeeds
// client-side: the cache is cleared and the in-memory user reset even if
// the server call fails.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.client.Logout(ctx); err != nil {
		log.Printf("auth: logout request failed (ignored): %v", err)
	}
	c.clearAuth()
}

// clearAuth drops all client-side auth state.
func (c *Controller) clearAuth() {
	if err := c.creds.Clear(); err != nil {
		log.Printf("auth: failed to clear credential cache: %v", err)
	}
	c.mu.Lock()
	c.user = nil
	c.loading = false
	c.mu.Unlock()
}

// GoogleLoginURL returns the backend's OAuth entry point. Visiting it is a
// pure redirect; all local state changes happen later through the
// oauth callback handler.
func (c *Controller) GoogleLoginURL(redirectURI string) string {
	u := c.client.BaseURL() + "/auth/google/login"
	if redirectURI != "" {
		u += "?redirect_uri=" + redirectURI
	}
	return u
}

// =============================================================================
// CHECKAUTH
// =============================================================================

// CheckAuth reconciles in-memory auth state with the cache and, when
// necessary, the backend. It never returns an error: failures become
// state transitions (keep vs. clear). The returned value reports whether
// a user is present afterward.
//
// The sequencing matters:
//  1. Public routes never trigger validation.
//  2. A just-authenticated flag is consumed and the cache trusted
//     unconditionally for this one pass, without touching the network.
//     The session cookie may not be visible to a same-moment request yet,
//     and a premature who-am-i here would read as a false negative.
//  3. At most one validation is in flight; a concurrent call is a no-op.
//     With a user already present, validations are spaced by
//     CheckInterval.
//  4. Otherwise the who-am-i endpoint decides, subject to the 401 grace
//     windows described in the package documentation.
func (c *Controller) CheckAuth(ctx context.Context, route string) bool {
	if IsPublicRoute(route) {
		c.mu.Lock()
		c.loading = false
		authed := c.user != nil
		c.mu.Unlock()
		return authed
	}

	if c.flags.ConsumeJustAuthenticated() {
		c.mu.Lock()
		if c.user == nil {
			if user, age, ok := c.creds.Read(); ok && age <= CacheValidity {
				c.user = user
			}
		}
		c.loading = false
		c.lastCheck = time.Now()
		authed := c.user != nil
		c.mu.Unlock()
		return authed
	}

	c.mu.Lock()
	if c.checking {
		authed := c.user != nil
		c.mu.Unlock()
		return authed
	}
	if c.user != nil && !c.limiter.Allow() {
		c.loading = false
		c.mu.Unlock()
		return true
	}
	c.checking = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.checking = false
		c.loading = false
		c.lastCheck = time.Now()
		c.mu.Unlock()
	}()

	bearer := c.flags.ConsumeBearer()
	user, err := c.client.Me(ctx, bearer)

	switch {
	case err == nil && user != nil:
		c.mu.Lock()
		c.user = user
		c.mu.Unlock()
		if werr := c.creds.Write(user); werr != nil {
			log.Printf("auth: failed to refresh credential cache: %v", werr)
		}

	case errors.Is(err, api.ErrUnauthorized):
		// Authoritative, unless the cache was written recently enough
		// that a cookie-sync race could explain it. Within the grace
		// windows the verdict is deferred to the next natural API call's
		// own 401 handling.
		if cached, age, ok := c.creds.Read(); ok && age <= StaleVerdictGrace {
			c.mu.Lock()
			if c.user == nil {
				c.user = cached
			}
			c.mu.Unlock()
		} else {
			c.clearAuth()
		}

	default:
		// Success without a user payload, a transport failure, or a 5xx:
		// none of these prove the session is gone. Keep a cached identity
		// if one exists; clear only when there is nothing to fall back on.
		if cached, _, ok := c.creds.Read(); ok {
			c.mu.Lock()
			if c.user == nil {
				c.user = cached
			}
			c.mu.Unlock()
		} else {
			c.clearAuth()
		}
	}

	return c.IsAuthenticated()
}

// LastCheck returns when the most recent validation pass completed.
func (c *Controller) LastCheck() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCheck
}
