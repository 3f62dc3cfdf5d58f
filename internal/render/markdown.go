package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hyperifyio/pageassist/internal/history"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// MarkdownToHTML renders an assistant reply. Raw HTML in the input is not
// passed through.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// TranscriptMarkdown formats a conversation as a Markdown document.
func TranscriptMarkdown(title, url string, msgs []history.Message) string {
	var b strings.Builder
	if title == "" {
		title = "Untitled page"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if url != "" {
		fmt.Fprintf(&b, "Source: [%s](%s)\n\n", url, url)
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", label(m.Role), strings.TrimSpace(m.Content))
	}
	return b.String()
}

// TranscriptHTML wraps the rendered Markdown transcript in a standalone page.
func TranscriptHTML(title, url string, msgs []history.Message, dark bool) (string, error) {
	body, err := MarkdownToHTML(TranscriptMarkdown(title, url, msgs))
	if err != nil {
		return "", err
	}
	bg, fg := "#ffffff", "#1f2328"
	if dark {
		bg, fg = "#1e1e1e", "#e6e6e6"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<style>body{background:%s;color:%s;font-family:sans-serif;max-width:48em;margin:2em auto;}</style>\n", bg, fg)
	b.WriteString("</head><body>\n")
	b.WriteString(body)
	b.WriteString("</body></html>\n")
	return b.String(), nil
}
