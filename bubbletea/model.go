package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"repochat"
	"repochat/markdown"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for a chat session. It never mutates
// transcript state directly: every render derives from the snapshots the
// chat publishes through the Feed.
type Model struct {
	// Input is the message input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	chat     *repochat.Chat
	feed     *Feed
	styles   Styles
	renderer *markdown.Renderer

	blocks     []MessageBlock
	byID       map[string]MessageBlock
	blockFocus int // index of the focused collapsible block (-1 = none)

	running     bool
	notice      string
	noticeStyle func(...string) string
	usage       *repochat.DailyUsage
	showKeyHelp bool
	ready       bool
}

// New creates a Model for the given chat. The feed must be the one wired
// into the chat's OnChange and OnResolution hooks.
func New(chat *repochat.Chat, feed *Feed, theme repochat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the repository..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	return Model{
		Input:       ti,
		chat:        chat,
		feed:        feed,
		styles:      styles,
		renderer:    markdown.New(theme),
		byID:        make(map[string]MessageBlock),
		blockFocus:  -1,
		noticeStyle: styles.Muted.Render,
	}
}

// Running returns whether a turn is in flight.
func (m Model) Running() bool { return m.running }

// Notice returns the current status notice, if any.
func (m Model) Notice() string { return m.notice }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenFeed(m.feed))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TranscriptMsg:
		m = m.applySnapshot(msg.Transcript)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, listenFeed(m.feed)

	case ResolutionMsg:
		return m.handleResolution(msg.Resolution)

	case TurnDoneMsg:
		m.running = false
		if msg.Usage != nil {
			m.usage = msg.Usage
		}
		if errors.Is(msg.Err, context.Canceled) {
			m.notice = "Stopped."
			m.noticeStyle = m.styles.Muted.Render
		}
		cmd := m.Input.Focus()
		return m, cmd

	case redirectMsg:
		m.showKeyHelp = true
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showKeyHelp {
		return m.keyHelpView()
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := msg.Height - 3 // status line, input line, separators
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.applySnapshot(m.chat.Transcript())
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
		m.Viewport.SetContent(m.renderContent())
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showKeyHelp {
		// Any key dismisses the key help view.
		m.showKeyHelp = false
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			m.chat.Stop()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.running {
			m.chat.Stop()
		}
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyCtrlN:
		if !m.running {
			if err := m.chat.NewConversation(); err == nil {
				m.notice = "Started a new conversation."
				m.noticeStyle = m.styles.Muted.Render
			}
		}
		return m, nil

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
		}
		return m, nil
	}

	if !m.running {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.notice = ""
	m.running = true
	return m, startTurn(m.chat, text)
}

func (m Model) handleResolution(res repochat.Resolution) (tea.Model, tea.Cmd) {
	m.notice = res.Notice
	cmds := []tea.Cmd{listenFeed(m.feed)}

	switch res.Disposition {
	case repochat.DispositionContinue:
		m.noticeStyle = m.styles.Muted.Render
	case repochat.DispositionNotice:
		m.noticeStyle = m.styles.Accent.Render
	case repochat.DispositionRollback:
		m.noticeStyle = m.styles.Error.Render
	case repochat.DispositionRedirect:
		m.noticeStyle = m.styles.Error.Render
		cmds = append(cmds, tea.Tick(repochat.RedirectDelay, func(time.Time) tea.Msg {
			return redirectMsg{}
		}))
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot rebuilds the block list from a transcript snapshot. Blocks
// are reused by message identity so collapse state survives re-renders,
// and messages removed by a rollback simply drop out of the list.
func (m Model) applySnapshot(tr repochat.Transcript) Model {
	blocks := make([]MessageBlock, 0, len(tr.Messages))
	for _, msg := range tr.Messages {
		block, ok := m.byID[msg.ID]
		if !ok {
			switch {
			case msg.Role == repochat.RoleUser:
				block = NewUserBlock(msg.Content, m.styles)
			case msg.IsToolBubble():
				block = NewToolBlock(m.styles)
			default:
				block = NewAssistantBlock(m.renderer)
			}
			m.byID[msg.ID] = block
		}
		switch b := block.(type) {
		case *AssistantBlock:
			b.SetText(msg.Content)
		case *ToolBlock:
			b.SetCalls(msg.FunctionCalls)
		}
		blocks = append(blocks, block)
	}
	m.blocks = blocks
	return m.updateBlockFocus()
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// updateBlockFocus points the focus at the last collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*ToolBlock); ok {
			m.blockFocus = i
			break
		}
	}
	return m
}

// cycleFocusPrev moves focus to the previous collapsible block, wrapping.
func (m Model) cycleFocusPrev() Model {
	if len(m.blocks) == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(*ToolBlock); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.notice != "" {
		return m.noticeStyle(m.notice)
	}
	if m.running {
		return m.styles.Muted.Render("Thinking... (Esc to stop)")
	}
	help := "Enter to send · Ctrl+N new conversation · Ctrl+C to quit"
	if m.usage != nil {
		return m.styles.Muted.Render(fmt.Sprintf("%d/%d requests today · %s", m.usage.Used, m.usage.Limit, help))
	}
	return m.styles.Muted.Render(help)
}

func (m Model) keyHelpView() string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("API key required"))
	b.WriteString("\n\n")
	b.WriteString("Add a provider API key in your account settings, then\n")
	b.WriteString("restart with a valid token in REPOCHAT_TOKEN.\n\n")
	b.WriteString(m.styles.Muted.Render("Press any key to return."))
	return b.String()
}
