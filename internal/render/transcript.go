package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperifyio/pageassist/internal/history"
)

// Transcript is an exportable conversation about one page.
type Transcript struct {
	Title    string
	URL      string
	Messages []history.Message
	Dark     bool
}

// WriteTranscript writes t to path. The format follows the extension:
// .pdf, .html/.htm, otherwise Markdown.
func WriteTranscript(path string, t Transcript) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	mdText := TranscriptMarkdown(t.Title, t.URL, t.Messages)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		if err := writePDF(mdText, path); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		return nil
	case ".html", ".htm":
		out, err := TranscriptHTML(t.Title, t.URL, t.Messages, t.Dark)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(out), 0o644)
	default:
		return os.WriteFile(path, []byte(mdText), 0o644)
	}
}
