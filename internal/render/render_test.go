package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/pageassist/internal/history"
)

var convo = []history.Message{
	{Role: history.RoleUser, Content: "What is this page about?"},
	{Role: history.RoleAssistant, Content: "It covers **Go** and [links](https://go.dev)."},
}

func TestTerminalPrintsRoles(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	term := &Terminal{Out: &buf, Dark: true}
	term.Transcript(convo)

	assert.Equal(t, "You: What is this page about?\nAssistant: It covers **Go** and [links](https://go.dev).\n", buf.String())
}

func TestPaletteFor(t *testing.T) {
	assert.NotSame(t, PaletteFor(true).User, PaletteFor(false).User)
}

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("**bold** and `code`\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
	assert.NotContains(t, out, "<script>")
}

func TestTranscriptMarkdown(t *testing.T) {
	out := TranscriptMarkdown("Guide", "https://example.com", convo)
	assert.True(t, strings.HasPrefix(out, "# Guide\n\n"))
	assert.Contains(t, out, "## You\n\nWhat is this page about?")
	assert.Contains(t, out, "## Assistant\n\nIt covers")

	assert.Contains(t, TranscriptMarkdown("", "", nil), "# Untitled page")
}

func TestWriteTranscriptFormats(t *testing.T) {
	dir := t.TempDir()
	tr := Transcript{Title: "Guide", URL: "https://example.com", Messages: convo}

	mdPath := filepath.Join(dir, "out.md")
	require.NoError(t, WriteTranscript(mdPath, tr))
	b, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "## Assistant")

	htmlPath := filepath.Join(dir, "nested", "out.html")
	require.NoError(t, WriteTranscript(htmlPath, tr))
	b, err = os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<title>Guide</title>")
	assert.Contains(t, string(b), "<strong>Go</strong>")

	pdfPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, WriteTranscript(pdfPath, tr))
	b, err = os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}
