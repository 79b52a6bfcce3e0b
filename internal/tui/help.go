package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

var helpOverlayStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(1, 2).
	MarginTop(2)

// Keys that only mean something inside a board mode, shown under the bindings.
var modeHints = []string{
	"filter:   text or #number, enter apply, esc cancel",
	"priority: 0-3 set, x clear, esc cancel",
}

// HelpModel is the board's "?" overlay: every binding plus the mode keys.
type HelpModel struct {
	help   help.Model
	keymap KeyMap
}

func NewHelpModel(keymap KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true
	return HelpModel{help: h, keymap: keymap}
}

// View lays the overlay out for a terminal width columns wide.
func (m HelpModel) View(width int) string {
	// border 2 + padding 4 + slack
	m.help.Width = max(width-8, 20)

	lines := []string{m.help.View(m.keymap), ""}
	for _, h := range modeHints {
		lines = append(lines, dimStyle.Render(h))
	}
	return helpOverlayStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
