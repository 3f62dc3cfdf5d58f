package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hyperifyio/pageassist/internal/history"
)

// Palette holds the colors for one theme.
type Palette struct {
	User      *color.Color
	Assistant *color.Color
	Notice    *color.Color
	Error     *color.Color
}

var (
	darkPalette = Palette{
		User:      color.New(color.FgHiGreen, color.Bold),
		Assistant: color.New(color.FgHiCyan),
		Notice:    color.New(color.FgHiBlack),
		Error:     color.New(color.FgHiRed),
	}
	lightPalette = Palette{
		User:      color.New(color.FgGreen, color.Bold),
		Assistant: color.New(color.FgBlue),
		Notice:    color.New(color.FgBlack),
		Error:     color.New(color.FgRed),
	}
)

func PaletteFor(dark bool) Palette {
	if dark {
		return darkPalette
	}
	return lightPalette
}

// Terminal prints the conversation to a writer with role colors.
type Terminal struct {
	Out  io.Writer
	Dark bool
}

func (t *Terminal) palette() Palette { return PaletteFor(t.Dark) }

func label(role string) string {
	if role == history.RoleUser {
		return "You"
	}
	return "Assistant"
}

// Message prints one complete message.
func (t *Terminal) Message(m history.Message) {
	p := t.palette()
	c := p.Assistant
	if m.Role == history.RoleUser {
		c = p.User
	}
	c.Fprintf(t.Out, "%s: ", label(m.Role))
	fmt.Fprintln(t.Out, m.Content)
}

// Transcript prints every message in order.
func (t *Terminal) Transcript(msgs []history.Message) {
	for _, m := range msgs {
		t.Message(m)
	}
}

// Prompt prints the user input prefix without a newline.
func (t *Terminal) Prompt() {
	t.palette().User.Fprint(t.Out, "\nYou: ")
}

// AssistantPrefix starts a streamed reply.
func (t *Terminal) AssistantPrefix() {
	t.palette().Assistant.Fprint(t.Out, "Assistant: ")
}

// Delta writes one streamed chunk.
func (t *Terminal) Delta(s string) {
	fmt.Fprint(t.Out, s)
}

func (t *Terminal) Notice(format string, args ...interface{}) {
	t.palette().Notice.Fprintf(t.Out, format+"\n", args...)
}

func (t *Terminal) Error(format string, args ...interface{}) {
	t.palette().Error.Fprintf(t.Out, format+"\n", args...)
}
