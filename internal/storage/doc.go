// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable client-side persistence for atlas.
//
// Two stores live here:
//
//   - CredentialStore: the persistent credential cache that survives
//     restarts. It holds the serialized user record, an
//     authenticated-status flag, and a cache timestamp. Freshness policy
//     (the 24-hour validity window, the 401 grace windows) belongs to the
//     auth controller; this layer only reports the entry and its age.
//
//   - HistoryStore: an SQLite-backed snapshot cache of chat sessions
//     fetched from the backend, so session history can be browsed while
//     offline.
//
// Credential records can be encrypted at rest with XChaCha20-Poly1305
// using a machine-local key file.
package storage
