// ABOUTME: HTML export of a transcript, rendering message bodies as markdown.

package transcript

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
)

// ExportHTML writes the transcript as a standalone HTML document.
// Assistant message bodies are rendered as markdown; everything else is
// escaped verbatim.
func (t *Transcript) ExportHTML(w io.Writer) error {
	entries := t.Entries()

	if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Transcript</title></head><body>\n"); err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "<section class=%q>\n<h2>%s</h2>\n", "entry "+entry.Role, html.EscapeString(entry.Role)); err != nil {
			return err
		}
		if entry.Role == RoleAssistant {
			var body strings.Builder
			if err := markdown.Convert([]byte(entry.Text), &body); err != nil {
				return fmt.Errorf("rendering entry: %w", err)
			}
			if _, err := io.WriteString(w, body.String()); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "<pre>%s</pre>\n", html.EscapeString(entry.Text)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</section>\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}
