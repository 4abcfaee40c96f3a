// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/util"
)

// StatusAuthenticated is the status flag value for a valid cache entry.
const StatusAuthenticated = "authenticated"

// credentialFile is the cache file name under the config directory.
const credentialFile = "credentials.json"

// credentialRecord is the on-disk shape of the credential cache. Writes
// always replace the whole record; there is no field-level mutation.
type credentialRecord struct {
	User     *api.User `json:"user"`
	Status   string    `json:"status"`
	CachedAt time.Time `json:"cached_at"`
}

// CredentialStore is the persistent credential cache. It is safe for use
// from multiple goroutines because every operation is a whole-file read or
// atomic whole-file replacement.
type CredentialStore struct {
	path   string
	cipher *credCipher // nil means plaintext storage
}

// NewCredentialStore creates a credential store rooted at dir. When encrypt
// is true, records are sealed with a machine-local key created on first
// use.
func NewCredentialStore(dir string, encrypt bool) (*CredentialStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	s := &CredentialStore{path: filepath.Join(dir, credentialFile)}
	if encrypt {
		cipher, err := newCredCipher(filepath.Join(dir, keyFile))
		if err != nil {
			return nil, err
		}
		s.cipher = cipher
	}
	return s, nil
}

// Write serializes and stores the user record, marks it authenticated, and
// stamps the current time. The previous record, if any, is replaced
// wholesale.
func (s *CredentialStore) Write(user *api.User) error {
	rec := credentialRecord{
		User:     user,
		Status:   StatusAuthenticated,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	if s.cipher != nil {
		data, err = s.cipher.seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
	}

	return util.AtomicWriteFile(s.path, data, 0600)
}

// Read returns the cached user and the entry's age. ok is false when the
// cache is absent, corrupt, undecryptable, or not flagged authenticated —
// corruption is indistinguishable from absence by design and never
// surfaces as an error.
func (s *CredentialStore) Read() (user *api.User, age time.Duration, ok bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, 0, false
	}

	if s.cipher != nil {
		data, err = s.cipher.open(data)
		if err != nil {
			return nil, 0, false
		}
	}

	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, 0, false
	}

	if rec.Status != StatusAuthenticated || rec.User == nil || rec.CachedAt.IsZero() {
		return nil, 0, false
	}

	return rec.User, time.Since(rec.CachedAt), true
}

// Clear removes the cached credentials. A missing file is not an error;
// partial state cannot occur because the record is a single file.
func (s *CredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
