// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/storage"
)

func testUser() *api.User {
	return &api.User{UserID: "u1", Email: "a@b.com", Name: "Alice"}
}

// writeCacheEntry forges a credential cache entry with an arbitrary age,
// bypassing the store's own timestamping.
func writeCacheEntry(t *testing.T, dir string, user *api.User, age time.Duration) {
	t.Helper()
	rec := map[string]any{
		"user":      user,
		"status":    storage.StatusAuthenticated,
		"cached_at": time.Now().Add(-age),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), data, 0600))
}

// newTestController wires a controller against an httptest backend and a
// temp credential store, returning the pieces a test needs to poke at.
func newTestController(t *testing.T, handler http.Handler) (*Controller, *storage.CredentialStore, string) {
	t.Helper()
	dir := t.TempDir()
	creds, err := storage.NewCredentialStore(dir, false)
	require.NoError(t, err)

	var baseURL string
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		baseURL = server.URL
	} else {
		// Nothing listening: every call is a transport error.
		baseURL = "http://127.0.0.1:1"
	}

	client := api.NewClient(baseURL).WithMaxRetries(1)
	return NewController(client, creds, NewTransientFlags()), creds, dir
}

func meHandler(calls *atomic.Int32, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// =============================================================================
// HYDRATION
// =============================================================================

func TestHydration_FreshCacheAdoptedWithoutLoading(t *testing.T) {
	dir := t.TempDir()
	creds, err := storage.NewCredentialStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, creds.Write(testUser()))

	client := api.NewClient("http://127.0.0.1:1").WithMaxRetries(1)
	c := NewController(client, creds, NewTransientFlags())

	assert.True(t, c.Hydrated())
	assert.False(t, c.Loading(), "optimistic identity renders immediately")
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "Alice", c.User().Name)
}

func TestHydration_ExpiredCacheNotAdopted(t *testing.T) {
	dir := t.TempDir()
	writeCacheEntry(t, dir, testUser(), 25*time.Hour)
	creds, err := storage.NewCredentialStore(dir, false)
	require.NoError(t, err)

	client := api.NewClient("http://127.0.0.1:1").WithMaxRetries(1)
	c := NewController(client, creds, NewTransientFlags())

	assert.False(t, c.Hydrated())
	assert.True(t, c.Loading(), "no trusted identity, the check must run first")
	assert.False(t, c.IsAuthenticated())
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestBootstrap_HydratedValidationOutlivesCallerContext(t *testing.T) {
	var calls atomic.Int32
	body := `{"success": true, "user": {"user_id": "u9", "email": "new@b.com", "name": "Renamed"}}`
	server := httptest.NewServer(meHandler(&calls, http.StatusOK, body))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	creds, err := storage.NewCredentialStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, creds.Write(testUser()))

	client := api.NewClient(server.URL).WithMaxRetries(1)
	c := NewController(client, creds, NewTransientFlags())
	require.True(t, c.Hydrated())

	// Callers cancel their startup context the moment Bootstrap returns;
	// the detached validation must still reach the server and adopt its
	// verdict.
	ctx, cancel := context.WithCancel(context.Background())
	c.Bootstrap(ctx, RouteChat)
	cancel()

	require.Eventually(t, func() bool {
		return calls.Load() == 1 && c.User().UserID == "u9"
	}, 2*time.Second, 10*time.Millisecond,
		"background validation should reach /auth/me")
}

// =============================================================================
// CHECKAUTH STATE MACHINE
// =============================================================================

func TestCheckAuth_PublicRouteIsNoop(t *testing.T) {
	var calls atomic.Int32
	c, _, _ := newTestController(t, meHandler(&calls, http.StatusOK, `{}`))

	c.CheckAuth(context.Background(), RouteLogin)
	c.CheckAuth(context.Background(), RouteRegister)
	c.CheckAuth(context.Background(), RouteCallback)

	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, c.Loading())
}

func TestCheckAuth_JustAuthenticatedTrustsCacheWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	c, creds, _ := newTestController(t, meHandler(&calls, http.StatusUnauthorized, `{}`))

	require.NoError(t, creds.Write(testUser()))
	c.flags.SetJustAuthenticated()

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed)
	assert.Equal(t, int32(0), calls.Load(), "just-authenticated pass must not call the network")
	assert.False(t, c.Loading())

	// The flag is one-shot: the next check goes to the network.
	c.CheckAuth(context.Background(), RouteChat)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckAuth_SuccessReplacesUserAndCache(t *testing.T) {
	var calls atomic.Int32
	body := `{"success": true, "user": {"user_id": "u9", "email": "new@b.com", "name": "Renamed"}}`
	c, creds, _ := newTestController(t, meHandler(&calls, http.StatusOK, body))

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed)
	assert.Equal(t, "u9", c.User().UserID)
	cached, _, ok := creds.Read()
	require.True(t, ok)
	assert.Equal(t, "Renamed", cached.Name)
}

func TestCheckAuth_401WithinGraceKeepsCachedUser(t *testing.T) {
	var calls atomic.Int32
	c, _, dir := newTestController(t, meHandler(&calls, http.StatusUnauthorized, `{"detail": "no session"}`))

	// Cache written 3 minutes ago: inside the grace window.
	writeCacheEntry(t, dir, testUser(), 3*time.Minute)

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed, "401 within the grace window must not log the user out")
	assert.Equal(t, "u1", c.User().UserID)
}

func TestCheckAuth_401BeyondGraceClearsEverything(t *testing.T) {
	var calls atomic.Int32
	c, creds, dir := newTestController(t, meHandler(&calls, http.StatusUnauthorized, `{"detail": "no session"}`))

	writeCacheEntry(t, dir, testUser(), 2*time.Hour)

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.False(t, authed)
	assert.Nil(t, c.User())
	_, _, ok := creds.Read()
	assert.False(t, ok, "cache must be destroyed on an authoritative 401")
}

func TestCheckAuth_401NoCacheClears(t *testing.T) {
	var calls atomic.Int32
	c, _, _ := newTestController(t, meHandler(&calls, http.StatusUnauthorized, `{}`))

	assert.False(t, c.CheckAuth(context.Background(), RouteChat))
	assert.False(t, c.IsAuthenticated())
}

func TestCheckAuth_NetworkErrorKeepsCachedUser(t *testing.T) {
	// nil handler: connection refused on every call.
	c, creds, _ := newTestController(t, nil)
	require.NoError(t, creds.Write(testUser()))

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed, "transport errors are non-authoritative")
	assert.Equal(t, "u1", c.User().UserID)
	_, _, ok := creds.Read()
	assert.True(t, ok)
}

func TestCheckAuth_NetworkErrorNoCacheClears(t *testing.T) {
	c, _, _ := newTestController(t, nil)

	assert.False(t, c.CheckAuth(context.Background(), RouteChat))
	assert.False(t, c.Loading())
}

func TestCheckAuth_SuccessWithoutUserIsNonAuthoritative(t *testing.T) {
	var calls atomic.Int32
	c, creds, _ := newTestController(t, meHandler(&calls, http.StatusOK, `{"success": false}`))
	require.NoError(t, creds.Write(testUser()))

	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed, "empty payload with a cached user keeps the user")
}

func TestCheckAuth_BearerTokenConsumedOnce(t *testing.T) {
	var mu sync.Mutex
	var headers []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
	})

	dir := t.TempDir()
	creds, err := storage.NewCredentialStore(dir, false)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	defer server.Close()

	flags := NewTransientFlags()
	flags.StashBearer("tok-once")
	client := api.NewClient(server.URL).WithMaxRetries(1)
	c := NewController(client, creds, flags)

	c.CheckAuth(context.Background(), RouteChat)
	// Force a second network pass past the throttle.
	c.limiter.SetBurst(10)
	c.CheckAuth(context.Background(), RouteChat)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, headers, 2)
	assert.Equal(t, "Bearer tok-once", headers[0])
	assert.Empty(t, headers[1], "bearer token is single-use")
}

// =============================================================================
// CONCURRENCY AND THROTTLING
// =============================================================================

func TestCheckAuth_SingleValidationInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
	})
	c, _, _ := newTestController(t, handler)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.CheckAuth(context.Background(), RouteChat)
	}()

	// Wait for the first check to reach the server, then race a second.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	c.CheckAuth(context.Background(), RouteChat) // no-op, returns immediately

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent invocation must not start a second validation")
}

func TestCheckAuth_ThrottledWhileUserPresent(t *testing.T) {
	var calls atomic.Int32
	body := `{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`
	c, _, _ := newTestController(t, meHandler(&calls, http.StatusOK, body))

	for i := 0; i < 5; i++ {
		assert.True(t, c.CheckAuth(context.Background(), RouteChat))
	}

	// First call has no user (no throttle); at most one more slips through
	// the limiter's initial burst. The rest reuse the in-memory user.
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

// =============================================================================
// LOGIN / LOGOUT FLOWS
// =============================================================================

func loginBackend(meStatus *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "pw" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail": "invalid credentials"}`))
				return
			}
			w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
		case "/auth/me":
			w.WriteHeader(int(meStatus.Load()))
			w.Write([]byte(`{"detail": "no session"}`))
		case "/auth/logout":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLogin_RaceWithImmediateCheckAuth(t *testing.T) {
	// Simulates the post-login route change racing the cookie: /auth/me
	// would 401, but the just-authenticated flag suppresses the call.
	var meStatus atomic.Int32
	meStatus.Store(http.StatusUnauthorized)
	c, _, _ := newTestController(t, loginBackend(&meStatus))

	require.NoError(t, c.Login(context.Background(), "a@b.com", "pw"))
	authed := c.CheckAuth(context.Background(), RouteChat)

	assert.True(t, authed, "fresh login must not be overwritten by a racing 401")
	assert.Equal(t, "Alice", c.User().Name)

	// Even a second check that reaches the network stays inside the grace
	// window of the login's cache write.
	authed = c.CheckAuth(context.Background(), RouteChat)
	assert.True(t, authed)
}

func TestLogin_FailureSurfacesDetailAndKeepsState(t *testing.T) {
	var meStatus atomic.Int32
	meStatus.Store(http.StatusUnauthorized)
	c, creds, _ := newTestController(t, loginBackend(&meStatus))

	err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.False(t, c.IsAuthenticated())
	_, _, ok := creds.Read()
	assert.False(t, ok, "failed login must not write the cache")
}

func TestLogout_AlwaysSucceedsClientSide(t *testing.T) {
	var meStatus atomic.Int32
	c, creds, _ := newTestController(t, loginBackend(&meStatus))

	require.NoError(t, c.Login(context.Background(), "a@b.com", "pw"))
	require.True(t, c.IsAuthenticated())

	// The backend's logout endpoint 500s; logout must still clear locally.
	c.Logout(context.Background())

	assert.False(t, c.IsAuthenticated())
	_, _, ok := creds.Read()
	assert.False(t, ok)
}

func TestGoogleLoginURL(t *testing.T) {
	client := api.NewClient("https://atlas.example.gov/api")
	c := NewController(client, mustCredStore(t), NewTransientFlags())

	u := c.GoogleLoginURL("http://127.0.0.1:7777/auth/callback")
	assert.Equal(t, "https://atlas.example.gov/api/auth/google/login?redirect_uri=http://127.0.0.1:7777/auth/callback", u)
}

func mustCredStore(t *testing.T) *storage.CredentialStore {
	t.Helper()
	creds, err := storage.NewCredentialStore(t.TempDir(), false)
	require.NoError(t, err)
	return creds
}

func TestTransientFlags_ConsumeIsAtomic(t *testing.T) {
	flags := NewTransientFlags()
	flags.SetJustAuthenticated()

	var consumed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if flags.ConsumeJustAuthenticated() {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), consumed.Load(), "flag must be consumed exactly once")
}
