// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jeranaias/atlas-tui/internal/chat"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

var htmlPage = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 52rem;
       margin: 2rem auto; padding: 0 1rem; background: {{.Background}};
       color: {{.Foreground}}; }
h1 { border-bottom: 1px solid {{.Border}}; padding-bottom: .4rem; }
.meta { color: {{.Muted}}; font-size: .85rem; }
.msg { margin: 1rem 0; padding: .8rem 1rem; border-radius: .5rem;
       border: 1px solid {{.Border}}; white-space: pre-wrap; }
.msg.user { background: {{.UserBg}}; }
.msg.ai { background: {{.AIBg}}; }
.sender { font-weight: 600; margin-bottom: .4rem; }
.badges { color: {{.Muted}}; font-size: .75rem; margin-top: .5rem; }
footer { color: {{.Muted}}; font-size: .8rem; margin-top: 2rem; }
</style>
</head>
<body>
{{range .Sessions}}
<h1>{{.Title}}</h1>
<p class="meta">Created {{.Created}} · Updated {{.Updated}} · {{len .Messages}} messages</p>
{{range .Messages}}
<div class="msg {{.Class}}">
<div class="sender">{{.Sender}}{{if .Timestamp}} <span class="meta">{{.Timestamp}}</span>{{end}}</div>
<div>{{.Content}}</div>
{{if .Badges}}<div class="badges">Includes: {{.Badges}}</div>{{end}}
</div>
{{end}}
{{end}}
<footer>Exported from Atlas on {{.ExportedAt}}</footer>
</body>
</html>
`))

type htmlMessage struct {
	Class     string
	Sender    string
	Timestamp string
	Content   string
	Badges    string
}

type htmlSession struct {
	Title    string
	Created  string
	Updated  string
	Messages []htmlMessage
}

type htmlData struct {
	Title      string
	Sessions   []htmlSession
	ExportedAt string

	Background template.CSS
	Foreground template.CSS
	Border     template.CSS
	Muted      template.CSS
	UserBg     template.CSS
	AIBg       template.CSS
}

// Export converts session snapshots to a self-contained HTML page.
func (e *HTMLExporter) Export(sessions []chat.ExportSession) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	data := htmlData{
		Title:      sessions[0].Title,
		ExportedAt: time.Now().Format("January 2, 2006 at 3:04 PM"),
	}
	e.applyTheme(&data)

	for _, sess := range sessions {
		hs := htmlSession{
			Title:   sess.Title,
			Created: formatTimestamp(sess.CreatedAt),
			Updated: formatTimestamp(sess.UpdatedAt),
		}
		for _, msg := range sess.Messages {
			hm := htmlMessage{
				Class:   msg.Sender,
				Sender:  roleLabel(msg.Sender),
				Content: msg.Content,
				Badges:  strings.Join(payloadBadges(msg), " | "),
			}
			if e.options.IncludeTimestamps {
				hm.Timestamp = formatShortTimestamp(msg.Timestamp)
			}
			hs.Messages = append(hs.Messages, hm)
		}
		data.Sessions = append(data.Sessions, hs)
	}

	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) applyTheme(data *htmlData) {
	if e.options.Theme == "light" {
		data.Background = "#ffffff"
		data.Foreground = "#1a1a2e"
		data.Border = "#d0d0da"
		data.Muted = "#70708a"
		data.UserBg = "#eef2fb"
		data.AIBg = "#f6f6f9"
		return
	}
	data.Background = "#14141f"
	data.Foreground = "#e8e8f0"
	data.Border = "#32324a"
	data.Muted = "#8a8aa8"
	data.UserBg = "#1d2435"
	data.AIBg = "#1a1a28"
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}
