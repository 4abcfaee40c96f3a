// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/atlas-tui/internal/api"
)

// ErrSessionNotFound is returned when a snapshot doesn't exist locally.
var ErrSessionNotFound = errors.New("session snapshot not found")

// historyFile is the SQLite database file name under the config directory.
const historyFile = "history.db"

// HistoryStore is an offline snapshot cache of chat sessions. Every
// successful fetch from the backend is mirrored here so the history can be
// browsed without connectivity. The backend remains authoritative; this
// cache is never consulted for identity comparisons or writes back to the
// server.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the history database in dir.
func OpenHistory(dir string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", filepath.Join(dir, historyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// The TUI is the only writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			payload    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Close releases the database handle.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// SaveSession upserts a session snapshot keyed by its normalized id.
// Sessions without a server-assigned id are skipped; they have nothing
// stable to key on.
func (h *HistoryStore) SaveSession(sess api.Session) error {
	id := sess.ID.String()
	if id == "" {
		return nil
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session %s: %w", id, err)
	}

	_, err = h.db.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			payload = excluded.payload`,
		id, sess.Title,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(payload))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}
	return nil
}

// SaveSessions snapshots a batch of sessions in one transaction.
func (h *HistoryStore) SaveSessions(sessions []api.Session) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sessions (id, title, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			payload = excluded.payload`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, sess := range sessions {
		id := sess.ID.String()
		if id == "" {
			continue
		}
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to serialize session %s: %w", id, err)
		}
		if _, err := stmt.Exec(id, sess.Title,
			sess.CreatedAt.UTC().Format(time.RFC3339Nano),
			sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
			string(payload)); err != nil {
			return fmt.Errorf("failed to save session %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ListSessions returns all snapshots, most recently updated first.
func (h *HistoryStore) ListSessions() ([]api.Session, error) {
	rows, err := h.db.Query(`SELECT payload FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []api.Session
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var sess api.Session
		if err := json.Unmarshal([]byte(payload), &sess); err != nil {
			// Skip corrupt snapshots rather than failing the listing.
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns one snapshot by normalized id.
func (h *HistoryStore) GetSession(id string) (*api.Session, error) {
	id = api.NormalizeID(id)

	var payload string
	err := h.db.QueryRow(`SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var sess api.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for session %s: %w", id, err)
	}
	return &sess, nil
}

// DeleteSession removes one snapshot. Missing rows are not an error.
func (h *HistoryStore) DeleteSession(id string) error {
	_, err := h.db.Exec(`DELETE FROM sessions WHERE id = ?`, api.NormalizeID(id))
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Clear removes all snapshots.
func (h *HistoryStore) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
