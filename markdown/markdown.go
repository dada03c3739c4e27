// Package markdown renders assistant reply text to ANSI-styled terminal
// output, parsing with goldmark and styling with lipgloss.
package markdown

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"repochat"
)

// Renderer converts markdown to styled terminal text. Construct one per
// theme and reuse it; rendering is stateless.
type Renderer struct {
	parser goldmark.Markdown

	bold      lipgloss.Style
	italic    lipgloss.Style
	underline lipgloss.Style
	heading   lipgloss.Style
	code      lipgloss.Style
	muted     lipgloss.Style
	quoteBar  lipgloss.Style
}

// New creates a Renderer styled by theme.
func New(theme repochat.Theme) *Renderer {
	return &Renderer{
		parser:    goldmark.New(),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		underline: lipgloss.NewStyle().Underline(true),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		code:      lipgloss.NewStyle().Background(ansiColor(theme.CodeBg)),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		quoteBar:  lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)),
	}
}

// Render parses source and returns ANSI-styled output word-wrapped to
// width. Code blocks keep their own line structure and are never reflowed.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	src := []byte(source)
	doc := r.parser.Parser().Parse(text.NewReader(src))

	w := &writer{r: r, source: src, width: width}
	w.blocks(doc, 0)
	return w.output()
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
