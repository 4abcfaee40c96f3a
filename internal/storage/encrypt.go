// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeranaias/atlas-tui/internal/util"
)

// keyFile holds the machine-local encryption key next to the credential
// cache. It is created on first use with 0600 permissions.
const keyFile = "credentials.key"

// credCipher seals and opens credential records with XChaCha20-Poly1305.
// A fresh random nonce is generated per seal and prepended to the
// ciphertext.
type credCipher struct {
	key []byte
}

// newCredCipher loads the key file, generating one if absent.
func newCredCipher(path string) (*credCipher, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("credential key file %s has wrong size %d", path, len(key))
		}
		return &credCipher{key: key}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read credential key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate credential key: %w", err)
	}
	if err := util.AtomicWriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to store credential key: %w", err)
	}
	return &credCipher{key: key}, nil
}

// seal encrypts plaintext, returning nonce||ciphertext.
func (c *credCipher) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts nonce||ciphertext produced by seal.
func (c *credCipher) open(data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
