// Package bubbletea provides the Bubble Tea TUI for a repochat session.
// The chat engine owns all transcript state; the model subscribes to
// snapshots and resolutions through a Feed and only renders.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"repochat"
)

// Run starts the TUI program and blocks until it exits. Cancelling the
// context quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// Feed bridges chat callbacks onto the Bubble Tea message loop. Pass its
// methods as the chat's OnChange and OnResolution hooks.
type Feed struct {
	ch chan tea.Msg
}

// NewFeed creates a Feed. The buffer absorbs bursts of token snapshots
// between model updates.
func NewFeed() *Feed {
	return &Feed{ch: make(chan tea.Msg, 256)}
}

// Transcript delivers a transcript snapshot to the model.
func (f *Feed) Transcript(tr repochat.Transcript) {
	f.ch <- TranscriptMsg{Transcript: tr}
}

// Resolution delivers a policy resolution to the model.
func (f *Feed) Resolution(res repochat.Resolution) {
	f.ch <- ResolutionMsg{Resolution: res}
}

// TranscriptMsg carries a transcript snapshot.
type TranscriptMsg struct {
	Transcript repochat.Transcript
}

// ResolutionMsg carries a policy resolution for a turn.
type ResolutionMsg struct {
	Resolution repochat.Resolution
}

// TurnDoneMsg signals that a turn has finished, successfully or not.
type TurnDoneMsg struct {
	Usage *repochat.DailyUsage
	Err   error
}

// redirectMsg fires after the redirect delay to open the key help view.
type redirectMsg struct{}

// listenFeed waits for the next feed message. Re-armed on every receipt.
func listenFeed(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}

// startTurn runs one chat turn and reports its outcome.
func startTurn(chat *repochat.Chat, text string) tea.Cmd {
	return func() tea.Msg {
		usage, err := chat.Send(context.Background(), text)
		return TurnDoneMsg{Usage: usage, Err: err}
	}
}
