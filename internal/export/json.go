// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/atlas-tui/internal/chat"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations as a machine-readable JSON document.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// jsonDocument is the top-level structure of a JSON export.
type jsonDocument struct {
	ExportedAt time.Time            `json:"exported_at"`
	Generator  string               `json:"generator"`
	Sessions   []chat.ExportSession `json:"sessions"`
}

// Export converts session snapshots to indented JSON.
func (e *JSONExporter) Export(sessions []chat.ExportSession) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	doc := jsonDocument{
		ExportedAt: time.Now(),
		Generator:  "atlas-tui",
		Sessions:   sessions,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
