// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across the atlas client.
//
// This package contains common helpers for crash-safe file writing and
// UTF-8 aware string manipulation used by the storage, chat, and ui
// packages.
package util
