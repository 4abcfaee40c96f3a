// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/storage"
	"github.com/jeranaias/atlas-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTitle names a conversation before its first message.
	DefaultTitle = "New Chat"

	// titleWords and titleMaxRunes bound the display title derived from
	// the first message of a conversation.
	titleWords    = 6
	titleMaxRunes = 50
)

// Sender values for chat messages.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// =============================================================================
// STORE
// =============================================================================

// Store tracks the session list and the active session.
type Store struct {
	mu sync.Mutex

	client  *api.Client
	history *storage.HistoryStore

	current  *api.Session
	sessions []api.Session
	loading  bool

	// switchGen identifies the most recent switch request. A fetch that
	// resolves under an older generation is stale and must be discarded.
	switchGen uint64

	includeVisualizations bool
	includeInsights       bool
	includePolicies       bool
}

// Option configures a Store.
type Option func(*Store)

// WithHistory attaches an offline history mirror.
func WithHistory(h *storage.HistoryStore) Option {
	return func(s *Store) { s.history = h }
}

// WithPayloads selects which AI payload kinds chat requests ask for.
func WithPayloads(visualizations, insights, policies bool) Option {
	return func(s *Store) {
		s.includeVisualizations = visualizations
		s.includeInsights = insights
		s.includePolicies = policies
	}
}

// NewStore creates a chat store with an empty unsaved session active.
func NewStore(client *api.Client, opts ...Option) *Store {
	s := &Store{
		client:                client,
		includeVisualizations: true,
		includeInsights:       true,
		includePolicies:       true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = newSession()
	return s
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// Current returns a copy of the active session.
func (s *Store) Current() api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(*s.current)
}

// Sessions returns a copy of the session list.
func (s *Store) Sessions() []api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Session, len(s.sessions))
	for i := range s.sessions {
		out[i] = cloneSession(s.sessions[i])
	}
	return out
}

// Loading reports whether a session fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory fetches the session list and replaces the local one. On
// fetch failure it falls back to the offline mirror when one is attached,
// and the store always ends in a usable state: the returned error is for
// reporting, never a reason to block the UI.
func (s *Store) LoadHistory(ctx context.Context) error {
	sessions, err := s.client.ListSessions(ctx)
	if err != nil && s.history != nil {
		if mirrored, herr := s.history.ListSessions(); herr == nil {
			sessions = mirrored
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sessions != nil {
		s.sessions = sessions
	}
	if s.current == nil {
		s.current = newSession()
	}
	s.loading = false
	return err
}

// NewChat makes a fresh unsaved session active. Any in-flight switch is
// invalidated.
func (s *Store) NewChat() api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchGen++
	s.current = newSession()
	s.loading = false
	return cloneSession(*s.current)
}

// =============================================================================
// SWITCHING
// =============================================================================

// SwitchTo makes the session with the given id active. If a local copy
// with messages exists it is applied immediately, then the authoritative
// copy is fetched. A fetch that loses a race with a newer switch (or
// NewChat) is discarded.
func (s *Store) SwitchTo(ctx context.Context, id string) error {
	id = api.NormalizeID(id)

	s.mu.Lock()
	s.switchGen++
	gen := s.switchGen
	if local := s.findLocked(id); local != nil && len(local.Messages) > 0 {
		cp := cloneSession(*local)
		s.current = &cp
	}
	s.loading = true
	s.mu.Unlock()

	sess, err := s.client.GetSession(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.switchGen {
		// A newer request owns the current session now.
		return nil
	}
	s.loading = false
	if err != nil {
		return err
	}

	cp := cloneSession(*sess)
	s.current = &cp
	s.upsertLocked(cp)
	s.mirror(cp)
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// Send submits a user message on the active session. The user message is
// applied locally before the network call; on failure it stays visible
// and the error is returned for the UI to surface. On success the AI
// reply is appended and, for a previously unsaved session, the
// server-assigned id is adopted.
func (s *Store) Send(ctx context.Context, content string) (*api.Message, error) {
	s.mu.Lock()
	sessionID := s.current.ID.String()
	s.mu.Unlock()

	s.AddMessage(api.Message{
		ID:        api.FlexID(uuid.NewString()),
		SessionID: api.FlexID(sessionID),
		Sender:    SenderUser,
		Content:   content,
		Timestamp: time.Now(),
	})

	resp, err := s.client.SendChat(ctx, api.ChatRequest{
		Message:               content,
		SessionID:             sessionID,
		IncludeVisualizations: s.includeVisualizations,
		IncludeInsights:       s.includeInsights,
		IncludePolicies:       s.includePolicies,
	})
	if err != nil {
		return nil, err
	}

	reply := api.Message{
		ID:             api.FlexID(uuid.NewString()),
		SessionID:      resp.SessionID,
		Sender:         SenderAI,
		Content:        resp.Message,
		Timestamp:      time.Now(),
		Visualizations: resp.Visualizations,
		Insights:       resp.Insights,
		Policies:       resp.Policies,
	}
	s.AddMessage(reply)

	s.mu.Lock()
	cp := cloneSession(*s.current)
	s.mu.Unlock()
	s.mirror(cp)

	return &reply, nil
}

// AddMessage appends a message to the active session. A message carrying
// a session id while the active session is still unsaved makes the store
// adopt that id and derive a display title from the message content. The
// append is mirrored into the session list, inserting or updating by
// normalized id without ever duplicating an entry.
func (s *Store) AddMessage(msg api.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.ID == "" && msg.SessionID != "" {
		s.current.ID = api.FlexID(api.NormalizeID(msg.SessionID))
		if s.current.Title == "" || s.current.Title == DefaultTitle {
			if title := deriveTitle(firstUserContent(s.current.Messages, msg)); title != "" {
				s.current.Title = title
			}
		}
	}

	s.current.Messages = append(s.current.Messages, msg)
	s.current.UpdatedAt = time.Now()

	if s.current.ID != "" {
		s.upsertLocked(cloneSession(*s.current))
	}
}

// UpdateMessage replaces a message's content in place by id, in both the
// active session and its entry in the session list.
func (s *Store) UpdateMessage(id, content string) bool {
	id = api.NormalizeID(id)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := updateIn(s.current.Messages, id, content, now)
	if updated {
		s.current.UpdatedAt = now
		if entry := s.findLocked(s.current.ID.String()); entry != nil {
			updateIn(entry.Messages, id, content, now)
			entry.UpdatedAt = now
		}
	}
	return updated
}

// =============================================================================
// DELETION
// =============================================================================

// Delete removes one session, server first. On server failure local
// state is untouched and the error propagates. Deleting the active
// session resets to a fresh unsaved one.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = api.NormalizeID(id)
	if err := s.client.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.removeLocal(id)
	return nil
}

// DeleteMany removes several sessions in one server round-trip.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	normalized := make([]string, len(ids))
	for i, id := range ids {
		normalized[i] = api.NormalizeID(id)
	}
	if err := s.client.DeleteSessions(ctx, normalized); err != nil {
		return err
	}
	s.removeLocal(normalized...)
	return nil
}

// DeleteAll removes every session.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.client.DeleteAllSessions(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions = nil
	s.switchGen++
	s.current = newSession()
	s.loading = false
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.Clear(); err != nil {
			log.Printf("chat: failed to clear history mirror: %v", err)
		}
	}
	return nil
}

func (s *Store) removeLocal(ids ...string) {
	s.mu.Lock()
	deleted := make(map[string]bool, len(ids))
	for _, id := range ids {
		deleted[id] = true
	}

	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if !deleted[sess.ID.String()] {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept

	if deleted[s.current.ID.String()] && s.current.ID != "" {
		s.switchGen++
		s.current = newSession()
		s.loading = false
	}
	s.mu.Unlock()

	if s.history != nil {
		for _, id := range ids {
			if err := s.history.DeleteSession(id); err != nil {
				log.Printf("chat: failed to prune history mirror: %v", err)
			}
		}
	}
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func newSession() *api.Session {
	now := time.Now()
	return &api.Session{
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// findLocked returns a pointer into the sessions slice. Caller holds mu.
func (s *Store) findLocked(id string) *api.Session {
	for i := range s.sessions {
		if s.sessions[i].ID.String() == id {
			return &s.sessions[i]
		}
	}
	return nil
}

// upsertLocked inserts or replaces by normalized id. Caller holds mu.
func (s *Store) upsertLocked(sess api.Session) {
	if entry := s.findLocked(sess.ID.String()); entry != nil {
		*entry = sess
		return
	}
	s.sessions = append([]api.Session{sess}, s.sessions...)
}

// mirror copies a session into the offline history store.
func (s *Store) mirror(sess api.Session) {
	if s.history == nil || sess.ID == "" {
		return
	}
	if err := s.history.SaveSession(sess); err != nil {
		log.Printf("chat: failed to mirror session %s: %v", sess.ID, err)
	}
}

func cloneSession(sess api.Session) api.Session {
	cp := sess
	cp.Messages = make([]api.Message, len(sess.Messages))
	copy(cp.Messages, sess.Messages)
	return cp
}

func updateIn(msgs []api.Message, id, content string, now time.Time) bool {
	for i := range msgs {
		if msgs[i].ID.String() == id {
			msgs[i].Content = content
			msgs[i].Timestamp = now
			return true
		}
	}
	return false
}

// deriveTitle builds a display title from message content: the first few
// words, truncated with an ellipsis when too long.
func deriveTitle(content string) string {
	return util.TruncateRunes(util.FirstWords(util.CollapseWhitespace(content), titleWords), titleMaxRunes)
}

// firstUserContent prefers the first user message already in the session
// for title derivation, falling back to the incoming message.
func firstUserContent(existing []api.Message, incoming api.Message) string {
	for _, m := range existing {
		if m.Sender == SenderUser && m.Content != "" {
			return m.Content
		}
	}
	return incoming.Content
}
