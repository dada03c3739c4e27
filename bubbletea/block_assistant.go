package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"

	"repochat/markdown"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders assistant text as markdown. The rendered output is
// cached per width and invalidated when the underlying text grows, which
// happens on every streamed snapshot.
type AssistantBlock struct {
	text     string
	renderer *markdown.Renderer
	cache    map[int]string
}

// NewAssistantBlock creates an AssistantBlock.
func NewAssistantBlock(renderer *markdown.Renderer) *AssistantBlock {
	return &AssistantBlock{renderer: renderer, cache: make(map[int]string)}
}

// SetText replaces the block text with the accumulator's current value.
func (b *AssistantBlock) SetText(text string) {
	if text == b.text {
		return
	}
	b.text = text
	clear(b.cache)
}

func (b *AssistantBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantBlock) View(width int) string {
	if cached, ok := b.cache[width]; ok {
		return cached
	}
	src := b.text
	if hasUnclosedFence(src) {
		// Close the fence only for display so a mid-stream code block does
		// not swallow the rest of the message.
		src += "\n```"
	}
	rendered := b.renderer.Render(src, width)
	b.cache[width] = rendered
	return rendered
}

// hasUnclosedFence reports whether text ends inside a fenced code block,
// judged by an odd count of fence markers.
func hasUnclosedFence(s string) bool {
	count := 0
	for i := 0; i+3 <= len(s); i++ {
		if s[i:i+3] == "```" {
			count++
			i += 2
		}
	}
	return count%2 == 1
}
