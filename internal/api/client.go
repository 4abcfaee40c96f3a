// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the Atlas backend API.
const (
	// DefaultBaseURL is the base URL for a locally running backend.
	DefaultBaseURL = "http://127.0.0.1:8000/api"

	// DefaultTimeout is the timeout for ordinary API requests.
	DefaultTimeout = 15 * time.Second

	// HealthTimeout is the short timeout for health probes.
	HealthTimeout = 5 * time.Second

	// ChatTimeout is the long timeout for AI-generation requests.
	ChatTimeout = 2 * time.Minute

	// ReportTimeout is the timeout for report generation and download.
	ReportTimeout = 2 * time.Minute

	// DefaultMaxRetries is the number of attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// SessionCookieName is the name of the backend's session cookie.
	SessionCookieName = "atlas_session"
)

// Error variables for common backend errors.
var (
	// ErrUnauthorized indicates the backend rejected the session (HTTP 401).
	// This is authoritative evidence of no session; the auth controller
	// decides whether a grace window applies.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// APIError represents a structured error response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("atlas API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("atlas API error (HTTP %d)", e.Status)
}

// errorBody matches the backend's error envelope. The detail field is the
// canonical one; message is accepted from older backend versions.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// authResponse is the envelope for login/register/me responses.
type authResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is an HTTP client for the Atlas backend.
//
// The zero value is not usable; construct with NewClient. The client keeps
// the backend session cookie in an in-memory jar, so a successful Login
// authenticates all subsequent calls on the same client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxRetries int
}

// NewClient creates a new client for the given API base URL.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			// Per-request timeouts are applied via context so chat and
			// report calls can run longer than ordinary requests.
		},
		userAgent:  "atlas-tui/1.0",
		maxRetries: DefaultMaxRetries,
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// WithHTTPClient replaces the underlying HTTP client. The cookie jar is
// preserved unless the replacement brings its own.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc.Jar == nil {
		hc.Jar = c.httpClient.Jar
	}
	c.httpClient = hc
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetSessionCookie installs a session cookie value into the jar, for flows
// where the cookie was obtained out of band (environment override).
func (c *Client) SetSessionCookie(value string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{
		Name:  SessionCookieName,
		Value: value,
		Path:  "/",
	}})
	return nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// logRequest logs an API request without exposing sensitive data.
// Headers (may contain auth) and bodies (may contain user content) are
// never logged.
func logRequest(req *http.Request) {
	log.Printf("API request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs the status and duration of an API response.
func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API response: %d (%v)", resp.StatusCode, duration)
}

// readResponse reads the response body with a size limit. The extra
// byte distinguishes a body of exactly MaxResponseSize, which is fine,
// from one that spills past it.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// calculateBackoff returns the delay before the next retry attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// isRetryable reports whether an error should trigger another attempt.
// Only transport errors and 5xx responses are retryable; 401 is
// authoritative and 4xx responses will not improve on retry.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return false
	}
	// Remaining errors are transport-level (connection refused, reset,
	// timeout) and worth one more try.
	return true
}

// doJSON performs a JSON request with retries and decodes the response into
// out (which may be nil for fire-and-forget calls). A non-empty bearer is
// attached as an Authorization header; otherwise the ambient cookie jar
// authenticates the call.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, timeout time.Duration, bearer string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		err := c.doOnce(ctx, method, path, payload, out, timeout, bearer)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doOnce performs a single HTTP round trip.
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any, timeout time.Duration, bearer string) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// decodeError converts a non-2xx response into a typed error.
func decodeError(status int, body []byte) error {
	detail := ""
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Detail != "":
			detail = eb.Detail
		case eb.Message != "":
			detail = eb.Message
		case eb.Error != "":
			detail = eb.Error
		}
	}

	switch status {
	case http.StatusUnauthorized:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	default:
		return &APIError{Status: status, Detail: detail}
	}
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login authenticates with email and password. On success the backend sets
// the session cookie in the client's jar and returns the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	req := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &resp, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &APIError{Status: http.StatusOK, Detail: "login response missing user"}
	}
	return resp.User, nil
}

// Register creates a new account. Same contract as Login.
func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	req := map[string]string{"email": email, "password": password, "name": name}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &resp, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &APIError{Status: http.StatusOK, Detail: "register response missing user"}
	}
	return resp.User, nil
}

// Logout invalidates the server-side session. Errors are returned but
// callers are expected to treat them as best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, DefaultTimeout, "")
}

// Me returns the authenticated user, or nil with ErrUnauthorized when no
// valid session exists. A non-empty bearer token takes precedence over the
// ambient session cookie for this single call.
func (c *Client) Me(ctx context.Context, bearer string) (*User, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &resp, DefaultTimeout, bearer); err != nil {
		return nil, err
	}
	// A 200 without a user payload is treated as non-authoritative by the
	// auth controller; report it as absence, not as an error.
	return resp.User, nil
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// ListSessions fetches all chat sessions for the current user.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &sessions, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession fetches a single session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &sess, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes a single session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil, DefaultTimeout, "")
}

// DeleteSessions removes multiple sessions in one round trip.
func (c *Client) DeleteSessions(ctx context.Context, ids []string) error {
	req := map[string][]string{"session_ids": ids}
	return c.doJSON(ctx, http.MethodDelete, "/sessions/batch", req, nil, DefaultTimeout, "")
}

// DeleteAllSessions removes every session for the current user.
func (c *Client) DeleteAllSessions(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/all", nil, nil, DefaultTimeout, "")
}

// =============================================================================
// CHAT ENDPOINT
// =============================================================================

// SendChat submits a user message and returns the AI response. Uses the
// long AI-generation timeout.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &resp, ChatTimeout, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// HEALTH AND DATA ENDPOINTS
// =============================================================================

// Health probes backend availability with a short timeout and no retries.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var hs HealthStatus
	reqCtx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()
	if err := c.doOnce(reqCtx, http.MethodGet, "/health", nil, &hs, HealthTimeout, ""); err != nil {
		return nil, err
	}
	return &hs, nil
}

// RecentData fetches the most recently scraped auxiliary data.
func (c *Client) RecentData(ctx context.Context) ([]DataItem, error) {
	var items []DataItem
	if err := c.doJSON(ctx, http.MethodGet, "/data/recent", nil, &items, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	return items, nil
}

// SearchData searches the auxiliary data corpus.
func (c *Client) SearchData(ctx context.Context, query string) ([]DataItem, error) {
	path := "/data/search?q=" + url.QueryEscape(query)
	var items []DataItem
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &items, DefaultTimeout, ""); err != nil {
		return nil, err
	}
	return items, nil
}

// =============================================================================
// REPORT DOWNLOAD
// =============================================================================

// ReportFormats lists the formats the backend can render a session report in.
var ReportFormats = map[string]bool{
	"pdf":  true,
	"docx": true,
	"html": true,
}

// DownloadReport streams a generated session report into w and returns the
// number of bytes written. Report generation is slow server-side, so the
// long timeout applies and the call is not retried.
func (c *Client) DownloadReport(ctx context.Context, sessionID, format string, w io.Writer) (int64, error) {
	if !ReportFormats[format] {
		return 0, fmt.Errorf("unsupported report format %q", format)
	}

	reqCtx, cancel := context.WithTimeout(ctx, ReportTimeout)
	defer cancel()

	path := fmt.Sprintf("%s/report/%s/%s", c.baseURL, url.PathEscape(sessionID), url.PathEscape(format))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return 0, decodeError(resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to stream report: %w", err)
	}
	return n, nil
}
