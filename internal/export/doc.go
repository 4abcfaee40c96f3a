// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversation snapshots to downloadable files.
//
// Exporters work on chat.ExportSession snapshots, so an export never
// races live store mutation. Markdown, JSON, and HTML formats are
// produced locally; PDF and DOCX reports come from the backend's report
// endpoint and are only written to disk here.
package export
