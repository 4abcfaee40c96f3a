// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package oauth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/storage"
)

// =============================================================================
// FRAGMENT PARSING TESTS
// =============================================================================

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    *Claims
		wantErr error
	}{
		{
			name:   "full fragment",
			rawURL: "http://127.0.0.1:7777/auth/callback#session_token=tok&user_id=u1&email=a%40b.com&name=Alice%20A&picture=https%3A%2F%2Fx%2Fp.png",
			want: &Claims{
				SessionToken: "tok",
				UserID:       "u1",
				Email:        "a@b.com",
				Name:         "Alice A",
				Picture:      "https://x/p.png",
			},
		},
		{
			name:   "picture optional",
			rawURL: "http://127.0.0.1:7777/auth/callback#session_token=tok&user_id=u1&email=a%40b.com&name=Alice",
			want:   &Claims{SessionToken: "tok", UserID: "u1", Email: "a@b.com", Name: "Alice"},
		},
		{
			name:    "no fragment at all",
			rawURL:  "http://127.0.0.1:7777/auth/callback",
			wantErr: ErrNoAuthData,
		},
		{
			name:    "fragment without token",
			rawURL:  "http://127.0.0.1:7777/auth/callback#email=a%40b.com",
			wantErr: ErrNoAuthData,
		},
		{
			name:    "token without email",
			rawURL:  "http://127.0.0.1:7777/auth/callback#session_token=tok&user_id=u1",
			wantErr: ErrMissingEmail,
		},
		{
			name:   "token in query is ignored",
			rawURL: "http://127.0.0.1:7777/auth/callback?session_token=tok&email=a%40b.com",
			// Credentials must only travel in the fragment.
			wantErr: ErrNoAuthData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseCallback(tt.rawURL)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims)
		})
	}
}

func TestParseCallback_ErrorQueryParamSurfaced(t *testing.T) {
	_, err := ParseCallback("http://127.0.0.1:7777/auth/callback?error=access_denied")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestClaims_NameFallsBackToEmailLocalPart(t *testing.T) {
	claims := &Claims{SessionToken: "tok", Email: "pat.analyst@example.gov"}
	user := claims.User()
	assert.Equal(t, "pat.analyst", user.Name)

	named := &Claims{SessionToken: "tok", Email: "pat@example.gov", Name: "Pat"}
	assert.Equal(t, "Pat", named.User().Name)
}

// =============================================================================
// COMPLETE FLOW TESTS
// =============================================================================

func newTestHandler(t *testing.T, backend http.Handler) (*Handler, *storage.CredentialStore, *auth.TransientFlags) {
	t.Helper()
	creds, err := storage.NewCredentialStore(t.TempDir(), false)
	require.NoError(t, err)

	baseURL := "http://127.0.0.1:1" // unreachable unless a backend is given
	if backend != nil {
		server := httptest.NewServer(backend)
		t.Cleanup(server.Close)
		baseURL = server.URL
	}

	flags := auth.NewTransientFlags()
	return NewHandler(api.NewClient(baseURL).WithMaxRetries(1), creds, flags), creds, flags
}

const callbackURL = "http://127.0.0.1:7777/auth/callback#session_token=tok-1&user_id=u1&email=a%40b.com&name=Alice"

func TestComplete_CacheWrittenEvenWhenVerificationUnreachable(t *testing.T) {
	// No backend: the who-am-i verification cannot succeed, but the flow
	// must still complete with the optimistic identity.
	h, creds, flags := newTestHandler(t, nil)

	user, err := h.Complete(context.Background(), callbackURL)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)

	cached, _, ok := creds.Read()
	require.True(t, ok, "optimistic identity must be durable before verification")
	assert.Equal(t, "Alice", cached.Name)

	assert.True(t, flags.ConsumeJustAuthenticated())
	assert.Equal(t, "tok-1", flags.ConsumeBearer())
}

func TestComplete_VerificationUpgradesToCanonicalRecord(t *testing.T) {
	var sawBearer atomic.Value
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawBearer.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice Canonical"}}`))
	})
	h, creds, _ := newTestHandler(t, backend)

	user, err := h.Complete(context.Background(), callbackURL)
	require.NoError(t, err)
	assert.Equal(t, "Alice Canonical", user.Name)
	assert.Equal(t, "Bearer tok-1", sawBearer.Load())

	cached, _, ok := creds.Read()
	require.True(t, ok)
	assert.Equal(t, "Alice Canonical", cached.Name)
}

func TestComplete_FailureClearsPartialState(t *testing.T) {
	h, creds, flags := newTestHandler(t, nil)

	// Seed leftover state from an earlier half-finished attempt.
	require.NoError(t, creds.Write(&api.User{UserID: "stale", Email: "stale@b.com", Name: "Stale"}))

	_, err := h.Complete(context.Background(), "http://127.0.0.1:7777/auth/callback#session_token=tok")
	require.ErrorIs(t, err, ErrMissingEmail)

	_, _, ok := creds.Read()
	assert.False(t, ok, "failure path must not leave a partial identity behind")
	assert.False(t, flags.ConsumeJustAuthenticated())
}

// =============================================================================
// LOOPBACK LISTENER TESTS
// =============================================================================

func TestListener_EndToEnd(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
	})
	h, creds, _ := newTestHandler(t, backend)

	l := NewListener(h)
	redirectURL, err := l.Start()
	require.NoError(t, err)
	defer l.Close()

	// The shim page converts the fragment to a query; simulate the
	// browser's second request directly.
	completeURL := redirectURL[:len(redirectURL)-len("/auth/callback")] +
		"/auth/complete?session_token=tok-9&user_id=u1&email=a%40b.com&name=Alice"
	resp, err := http.Get(completeURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	user, err := l.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)

	_, _, ok := creds.Read()
	assert.True(t, ok)
}

func TestListener_ErrorRedirectSurfacedEscaped(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	l := NewListener(h)
	redirectURL, err := l.Start()
	require.NoError(t, err)
	defer l.Close()

	// A backend error redirect carries its message in the query; markup
	// in it must not come back as markup.
	base := strings.TrimSuffix(redirectURL, "/auth/callback")
	resp, err := http.Get(base + "/auth/complete?error=" +
		url.QueryEscape(`denied <img src=x onerror=alert(1)>`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "authentication failed: denied")
	assert.NotContains(t, string(body), "<img")
	assert.Contains(t, string(body), "&lt;img")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestListener_ServesShimOnCallback(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	l := NewListener(h)
	redirectURL, err := l.Start()
	require.NoError(t, err)
	defer l.Close()

	resp, err := http.Get(redirectURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
}
