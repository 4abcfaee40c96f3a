// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIER NORMALIZATION
// =============================================================================

// FlexID is a session or message identifier that tolerates both string and
// numeric JSON encodings. It always stores the canonical string form.
//
// The backend may return {"id": 42} from one endpoint and {"id": "42"} from
// another; comparing the two without normalization is the classic source of
// "session not found" bugs, so FlexID is applied at every ingestion point.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler accepting strings and numbers.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("invalid identifier %q: %w", data, err)
	}
	*f = FlexID(NormalizeID(raw))
	return nil
}

// MarshalJSON always emits the string form.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the canonical string form.
func (f FlexID) String() string {
	return string(f)
}

// NormalizeID coerces an identifier of any JSON-derived type to its
// canonical string form. Whole-number floats lose their ".000000" suffix so
// a float64 42 and the string "42" compare equal. Nil normalizes to "".
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case FlexID:
		return string(id)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", id)
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// User is the identity record returned by the auth endpoints.
type User struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Session is a persisted conversation thread.
type Session struct {
	ID        FlexID         `json:"id"`
	Title     string         `json:"title"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message is a single chat message. Only AI-sender messages carry the
// visualizations/insights/policies payloads; they are kept opaque here and
// rendered (or flagged) by the presentation and export layers.
type Message struct {
	ID             FlexID          `json:"id"`
	SessionID      FlexID          `json:"session_id"`
	Sender         string          `json:"sender"` // "user" or "ai"
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	Visualizations json.RawMessage `json:"visualizations,omitempty"`
	Insights       json.RawMessage `json:"insights,omitempty"`
	Policies       json.RawMessage `json:"policies,omitempty"`
}

// ChatRequest is the payload for submitting a user message.
type ChatRequest struct {
	Message               string `json:"message"`
	SessionID             string `json:"session_id,omitempty"`
	IncludeVisualizations bool   `json:"include_visualizations"`
	IncludeInsights       bool   `json:"include_insights"`
	IncludePolicies       bool   `json:"include_policies"`
}

// ChatResponse is the backend's answer to a chat submission. SessionID is
// authoritative: for a request without a session id it carries the
// server-assigned id the client must adopt.
type ChatResponse struct {
	Message             string          `json:"message"`
	SessionID           FlexID          `json:"session_id"`
	Visualizations      json.RawMessage `json:"visualizations,omitempty"`
	Insights            json.RawMessage `json:"insights,omitempty"`
	Policies            json.RawMessage `json:"policies,omitempty"`
	SupportingDataCount int             `json:"supporting_data_count"`
}

// HealthStatus reports backend availability and scraper state.
type HealthStatus struct {
	ScrapingStatus string `json:"scraping_status"`
}

// DataItem is a single auxiliary data record from the read-only data
// endpoints.
type DataItem struct {
	ID        FlexID         `json:"id"`
	Title     string         `json:"title"`
	Source    string         `json:"source,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	FetchedAt time.Time      `json:"fetched_at,omitempty"`
}

// HasPayload reports whether a raw JSON field carries actual content
// (non-empty, not JSON null, not an empty array/object).
func HasPayload(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}
