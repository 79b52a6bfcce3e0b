package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/browser"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/view"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2 // Top + bottom border
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	sectionHeadingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	scrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))
)

// DetailModel shows one issue: metadata on the left, the section's columns
// and the issue's labels on the right.
type DetailModel struct {
	// Dependencies
	store     *store.UserStore
	ctx       context.Context
	dashboard *Dashboard

	issue   domain.Issue
	columns []view.Column

	// UI components
	spinner  spinner.Model
	viewport viewport.Model

	// State
	loading       bool
	loadingAction string
	errorMsg      string
	successMsg    string

	// View dimensions
	width  int
	height int
}

// NewDetailModel creates a detail view of issue listing the given columns.
func NewDetailModel(st *store.UserStore, ctx context.Context, dashboard *Dashboard, issue domain.Issue, columns []view.Column) DetailModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(40, 10) // Resized on WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	m := DetailModel{
		store:     st,
		ctx:       ctx,
		dashboard: dashboard,
		issue:     issue,
		columns:   columns,
		spinner:   sp,
		viewport:  vp,
	}
	m.updateViewportContent()
	return m
}

// Init initializes the detail model
func (m DetailModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case issueUpdatedMsg:
		m.loading = false
		m.issue = msg.issue
		if AssignedTo(m.issue, m.dashboard.Viewer.Login) {
			m.successMsg = "Assigned to you"
		} else {
			m.successMsg = "Unassigned"
		}
		m.updateViewportContent()
		return m, nil

	case issueErrorMsg:
		m.loading = false
		m.errorMsg = fmt.Sprintf("Failed: %v", msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// resizeComponents calculates and sets component dimensions
func (m *DetailModel) resizeComponents() {
	leftWidth := panelWidth(m.width)

	// Right panel gets remaining width minus the gap
	rightWidth := m.width - leftWidth - 3
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - headerHeight - footerHeight - borderSize
	if contentHeight < 10 {
		contentHeight = 10
	}

	m.viewport.Width = rightWidth - borderSize - 2 // padding
	m.viewport.Height = contentHeight - borderSize - 1

	m.updateViewportContent()
}

func panelWidth(total int) int {
	w := int(float64(total) * leftPanelRatio)
	if w < minLeftWidth {
		w = minLeftWidth
	}
	if w > maxLeftWidth {
		w = maxLeftWidth
	}
	return w
}

// handleKeyPress processes keyboard input
func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		if url := m.dashboard.URL(m.issue); url != "" {
			_ = browser.OpenURL(url)
		}
	case "a":
		if m.loading {
			return m, nil
		}
		cmd := m.toggleAssignment()
		if cmd == nil {
			m.errorMsg = "Unknown repository"
			return m, nil
		}
		m.loading = true
		m.errorMsg = ""
		m.successMsg = ""
		m.loadingAction = "Updating assignees..."
		return m, tea.Batch(m.spinner.Tick, cmd)
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}

	return m, nil
}

// toggleAssignment assigns the viewer to the issue, or unassigns them when
// already assigned. Returns nil when the issue's repository is unknown.
func (m DetailModel) toggleAssignment() tea.Cmd {
	repo, ok := m.dashboard.Repository(m.issue.ID)
	if !ok {
		return nil
	}

	viewer := m.dashboard.Viewer
	var add, remove []string
	if AssignedTo(m.issue, viewer.Login) {
		remove = []string{viewer.ID}
	} else {
		add = []string{viewer.ID}
	}

	issueID := m.issue.ID
	return func() tea.Msg {
		updated, err := m.store.UpdateAssignees(m.ctx, repo.Key(), issueID, add, remove)
		if err != nil {
			return issueErrorMsg{err: err}
		}
		return issueUpdatedMsg{issue: updated}
	}
}

// View renders the split-screen detail view
func (m DetailModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := panelWidth(width)
	rightWidth := width - leftWidth - 1 // 1 char gap

	contentHeight := height - headerHeight - footerHeight
	if contentHeight < 10 {
		contentHeight = 10
	}

	header := m.renderHeader()

	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth - borderSize))

	rightPanel := focusedPanelBorderStyle.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderRightPanel())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderFooter(width))
}

// renderHeader renders the top help bar
func (m DetailModel) renderHeader() string {
	assign := "[a]assign me"
	if AssignedTo(m.issue, m.dashboard.Viewer.Login) {
		assign = "[a]unassign me"
	}
	parts := []string{"[q]back", "[o]open", "[j/k]scroll", "[g/G]top/bottom", assign}
	return dimStyle.Render(strings.Join(parts, " "))
}

// renderFooter renders the bottom status bar
func (m DetailModel) renderFooter(width int) string {
	var left, right string

	switch {
	case m.loading:
		left = m.spinner.View() + " " + m.loadingAction
	case m.successMsg != "":
		left = successStyle.Render("✓ " + m.successMsg)
	case m.errorMsg != "":
		left = errorStyle.Render("✗ " + m.errorMsg)
	}

	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return left + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

// renderLeftPanel renders the issue metadata panel
func (m DetailModel) renderLeftPanel(width int) string {
	var b strings.Builder

	b.WriteString(detailLabelStyle.Render(fmt.Sprintf("Issue #%d", m.issue.Number)))
	b.WriteString("\n\n")

	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.issue.Title, width-2)))
	b.WriteString("\n\n")

	field := func(label, value string, style lipgloss.Style) {
		b.WriteString(detailLabelStyle.Render(label + ": "))
		b.WriteString(style.Render(value))
		b.WriteString("\n")
	}

	if repo, ok := m.dashboard.Repository(m.issue.ID); ok {
		field("Repo", repo.Organization+"/"+repo.Name, detailValueStyle)
	}

	statusStyle := detailValueStyle
	switch m.issue.Status {
	case domain.StatusOpen:
		statusStyle = statusStyle.Foreground(lipgloss.Color("34"))
	case domain.StatusClosed:
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	}
	field("Status", string(m.issue.Status), statusStyle)

	author := m.issue.Author
	if author == "" {
		author = "(deleted)"
	}
	field("Author", author, detailValueStyle)
	field("Opened", formatAge(m.issue.Age), detailValueStyle)
	field("Updated", formatAge(m.issue.Updated), detailValueStyle)
	field("Source", string(m.issue.Source), detailValueStyle)

	if m.issue.Severity != nil {
		field("Severity", string(*m.issue.Severity), severityStyle(m.issue.Severity))
	}
	if m.issue.Priority != nil {
		b.WriteString(detailLabelStyle.Render("Priority: "))
		b.WriteString(priorityBadge(m.issue.Priority))
		b.WriteString("\n")
	}

	assigned := "-"
	if len(m.issue.Assignees) > 0 {
		assigned = strings.Join(m.issue.Assignees, ", ")
		if len(assigned) > width-10 {
			assigned = assigned[:width-13] + "..."
		}
	}
	field("Assigned", assigned, detailValueStyle)

	return b.String()
}

// renderRightPanel renders the fields panel with viewport
func (m DetailModel) renderRightPanel() string {
	scrollHint := ""
	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			scrollHint = " ↓"
		case m.viewport.AtBottom():
			scrollHint = " ↑"
		default:
			scrollHint = " ↕"
		}
	}

	return detailLabelStyle.Render("Fields") + scrollIndicatorStyle.Render(scrollHint) + "\n" + m.viewport.View()
}

// updateViewportContent lays out the section's columns, then labels,
// projects and board columns.
func (m *DetailModel) updateViewportContent() {
	var b strings.Builder
	wrapWidth := m.viewport.Width - 4
	if wrapWidth < 30 {
		wrapWidth = 30
	}

	for _, col := range m.columns {
		b.WriteString(detailLabelStyle.Render(string(col) + ": "))
		b.WriteString(detailValueStyle.Render(m.columnValue(col)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sectionHeadingStyle.Render(fmt.Sprintf("Labels (%d)", len(m.issue.Labels))))
	b.WriteString("\n")
	if len(m.issue.Labels) == 0 {
		b.WriteString(dimStyle.Render("none"))
		b.WriteString("\n")
	}
	for _, l := range m.issue.Labels {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color("#" + l.Color)).Render("●")
		b.WriteString(swatch + " " + wordwrap.String(l.Name, wrapWidth))
		b.WriteString("\n")
	}

	if len(m.issue.Projects) > 0 {
		names := make([]string, 0, len(m.issue.Projects))
		for _, p := range m.issue.Projects {
			names = append(names, domain.ProjectName(p))
		}
		b.WriteString("\n")
		b.WriteString(sectionHeadingStyle.Render("Projects"))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(strings.Join(names, ", "), wrapWidth))
		b.WriteString("\n")
	}

	if len(m.issue.Columns) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionHeadingStyle.Render("Board columns"))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(strings.Join(m.issue.Columns, ", "), wrapWidth))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

// columnValue renders a view column for display; durations and links are
// humanized where the raw field value is not.
func (m DetailModel) columnValue(col view.Column) string {
	switch col {
	case view.ColumnAge:
		return formatAge(m.issue.Age)
	case view.ColumnUpdated:
		return formatAge(m.issue.Updated)
	case view.ColumnLink:
		if url := m.dashboard.URL(m.issue); url != "" {
			return url
		}
	}
	return view.Field(m.issue, string(col))
}

// formatAge renders a duration as a short relative time
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/24/30))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/24/365))
	}
}
