package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// RedirectMsg exports the internal redirect message for testing.
func RedirectMsg() tea.Msg {
	return redirectMsg{}
}

// WrapText exports wrapText for testing.
func WrapText(text string, width int, indent string) string {
	return wrapText(text, width, indent)
}
