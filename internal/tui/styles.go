package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/leander/internal/domain"
)

var (
	// TitleStyle is used for screen titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")). // Purple
			MarginBottom(1)

	// SelectedItemStyle is used for highlighted/selected items.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")). // Light purple
				Bold(true)

	// NormalItemStyle is used for non-selected items.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// HelpStyle is used for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Dark gray
			MarginTop(1)

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	modeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("205")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)
)

var priorityColors = map[domain.Priority]lipgloss.Color{
	domain.PriorityP0: lipgloss.Color("196"),
	domain.PriorityP1: lipgloss.Color("208"),
	domain.PriorityP2: lipgloss.Color("228"),
	domain.PriorityP3: lipgloss.Color("245"),
}

// priorityBadge renders an issue's priority, or "" when it has none.
func priorityBadge(p *domain.Priority) string {
	if p == nil {
		return ""
	}
	return lipgloss.NewStyle().Foreground(priorityColors[*p]).Bold(true).Render(string(*p))
}

func severityStyle(s *domain.Severity) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	if s == nil {
		return style
	}
	switch *s {
	case domain.SeverityBug:
		return style.Foreground(lipgloss.Color("196"))
	case domain.SeverityFeature:
		return style.Foreground(lipgloss.Color("141"))
	}
	return style
}
