package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"repochat"
)

var _ MessageBlock = (*ToolBlock)(nil)

// ToolBlock renders a tool bubble: one line per function call with a status
// glyph, expandable to show arguments and results. Starts collapsed.
type ToolBlock struct {
	calls     []repochat.FunctionCallRecord
	collapsed bool
	styles    Styles
}

// NewToolBlock creates a ToolBlock.
func NewToolBlock(styles Styles) *ToolBlock {
	return &ToolBlock{collapsed: true, styles: styles}
}

// SetCalls replaces the call records with the message's current state.
func (b *ToolBlock) SetCalls(calls []repochat.FunctionCallRecord) {
	b.calls = calls
}

func (b *ToolBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolBlock) View(width int) string {
	var lines []string
	for _, call := range b.calls {
		lines = append(lines, b.glyph(call.Status)+" "+b.styles.ToolCall.Render(call.Name))
		if b.collapsed {
			continue
		}
		if len(call.Arguments) > 0 {
			lines = append(lines, b.styles.Muted.Render("  args: "+string(call.Arguments)))
		}
		if len(call.Result) > 0 {
			lines = append(lines, b.styles.Muted.Render("  result: "+truncate(string(call.Result), 400)))
		}
	}
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := b.styles.Muted.Render(indicator)
	return b.styles.ToolBg.Width(width).Render(header + " " + strings.Join(lines, "\n"))
}

func (b *ToolBlock) glyph(status repochat.CallStatus) string {
	switch status {
	case repochat.CallComplete:
		return b.styles.Success.Render("✓")
	case repochat.CallError:
		return b.styles.Error.Render("✗")
	default:
		return b.styles.Muted.Render("⋯")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
