// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// IDENTIFIER NORMALIZATION TESTS
// =============================================================================

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string passes through", "42", "42"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"whole float loses fraction", float64(42), "42"},
		{"fractional float keeps fraction", 42.5, "42.5"},
		{"json number", json.Number("99"), "99"},
		{"nil is empty", nil, ""},
		{"flex id", FlexID("7"), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestFlexID_Unmarshal(t *testing.T) {
	var s struct {
		ID FlexID `json:"id"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"id": 42}`), &s))
	assert.Equal(t, "42", s.ID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"id": "42"}`), &s))
	assert.Equal(t, "42", s.ID.String())

	// Numeric and string encodings of the same id compare equal.
	var a, b struct {
		ID FlexID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1754923}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id": "1754923"}`), &b))
	assert.Equal(t, a.ID, b.ID)
}

func TestHasPayload(t *testing.T) {
	assert.False(t, HasPayload(nil))
	assert.False(t, HasPayload(json.RawMessage(`null`)))
	assert.False(t, HasPayload(json.RawMessage(`[]`)))
	assert.False(t, HasPayload(json.RawMessage(`{}`)))
	assert.True(t, HasPayload(json.RawMessage(`[{"type":"bar"}]`)))
}

// =============================================================================
// AUTH ENDPOINT TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])

		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "s3cret", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	user, err := client.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	// The session cookie now authenticates follow-up calls.
	verify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer verify.Close()
	u, _ := http.NewRequest(http.MethodGet, server.URL+"/auth/me", nil)
	cookies := client.httpClient.Jar.Cookies(u.URL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "s3cret", cookies[0].Value)
}

func TestLogin_SurfacesServerDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "invalid credentials"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Detail)
}

func TestMe_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "no session"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Me(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)

	// 401 is authoritative, never retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestMe_BearerTokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success": true, "user": {"user_id": "u1", "email": "a@b.com", "name": "Alice"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	user, err := client.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
}

// =============================================================================
// RETRY BEHAVIOR TESTS
// =============================================================================

func TestRetry_ServerErrorsThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_NotAppliedTo4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "validation failed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// SESSION AND CHAT ENDPOINT TESTS
// =============================================================================

func TestReadResponse_ExactLimitAccepted(t *testing.T) {
	resp := &http.Response{
		Body: io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), MaxResponseSize))),
	}
	body, err := readResponse(resp)
	require.NoError(t, err)
	assert.Len(t, body, MaxResponseSize)
}

func TestReadResponse_OverLimitRejected(t *testing.T) {
	resp := &http.Response{
		Body: io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), MaxResponseSize+1))),
	}
	_, err := readResponse(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded maximum size")
}

func TestGetSession_NumericIDNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/42", r.URL.Path)
		w.Write([]byte(`{"id": 42, "title": "Tax policy", "messages": [{"id": 7, "session_id": 42, "sender": "user", "content": "hi"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sess, err := client.GetSession(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", sess.ID.String())
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "42", sess.Messages[0].SessionID.String())
}

func TestSendChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.IncludeInsights)
		assert.Empty(t, req.SessionID)

		w.Write([]byte(`{"message": "Here is my analysis.", "session_id": 99, "insights": ["spending is up"], "supporting_data_count": 4}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.SendChat(context.Background(), ChatRequest{
		Message:         "analyze the budget",
		IncludeInsights: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "99", resp.SessionID.String())
	assert.Equal(t, 4, resp.SupportingDataCount)
	assert.True(t, HasPayload(resp.Insights))
}

func TestDeleteSessions_Batch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/sessions/batch", r.URL.Path)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"1", "2"}, body["session_ids"])
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.DeleteSessions(context.Background(), []string{"1", "2"}))
}

// =============================================================================
// REPORT DOWNLOAD TESTS
// =============================================================================

func TestDownloadReport(t *testing.T) {
	payload := []byte("%PDF-1.7 fake report bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/report/42/pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	var buf bytes.Buffer
	n, err := client.DownloadReport(context.Background(), "42", "pdf", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDownloadReport_UnsupportedFormat(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	var buf bytes.Buffer
	_, err := client.DownloadReport(context.Background(), "42", "csv", &buf)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
