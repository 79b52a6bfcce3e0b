package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/pkg/browser"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/view"
)

// Layout constants
const (
	minColumnWidth = 20
	maxColumnWidth = 35
	headerLines    = 2  // Title line + hints line
	pageJumpSize   = 10 // Number of issues to jump with Ctrl+D/U when the view sets no page size
)

// flatColumn keys the single column a flat view renders into.
const flatColumn = "\x00flat"

// BoardModel shows one section of a dashboard page as columns of issues:
// one column per group of a grouped view, a single column for a flat view.
type BoardModel struct {
	// Dependencies
	store     *store.UserStore
	ctx       context.Context
	config    *view.Config
	dashboard *Dashboard
	page      *view.Page
	section   int

	// UI components
	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	filterInput textinput.Model

	// Board state
	columns        []string                  // Group keys in display order
	groups         map[string][]domain.Issue // Group key -> issues
	selectedColumn int                       // Currently selected column
	columnOffset   int                       // Horizontal scroll offset (first visible column index)
	selectedCard   map[string]int            // Group key -> selected issue index
	scrollOffset   map[string]int            // Group key -> scroll offset

	// View state
	width        int
	height       int
	showHelp     bool
	filterMode   bool
	filterText   string
	filterMyOnly bool // Toggle to show only issues assigned to the viewer
	priorityMode bool
	loading      bool
	updating     bool
	errorToast   string
	statusToast  string
}

// NewBoardModel creates a board over a loaded dashboard, showing the given
// section of page.
func NewBoardModel(st *store.UserStore, ctx context.Context, cfg *view.Config, dashboard *Dashboard, page *view.Page, section int) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Filter by title or #number..."
	ti.Prompt = "/ "

	return BoardModel{
		store:        st,
		ctx:          ctx,
		config:       cfg,
		dashboard:    dashboard,
		page:         page,
		section:      section,
		keymap:       DefaultKeyMap(),
		help:         NewHelpModel(DefaultKeyMap()),
		spinner:      sp,
		filterInput:  ti,
		columns:      []string{},
		groups:       make(map[string][]domain.Issue),
		selectedCard: make(map[string]int),
		scrollOffset: make(map[string]int),
	}
}

// boardInitMsg triggers the initial column build
type boardInitMsg struct{}

// Init initializes the board
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.WindowSize(),
		func() tea.Msg { return boardInitMsg{} },
	)
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardInitMsg:
		(&m).rebuildColumns()
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		m.dashboard = msg.dashboard
		m.statusToast = fmt.Sprintf("Loaded %d issues", len(msg.dashboard.Issues))
		(&m).rebuildColumns()
		return m, nil

	case dashboardErrorMsg:
		m.loading = false
		m.errorToast = fmt.Sprintf("Refresh failed: %v", msg.err)
		return m, nil

	case issueUpdatedMsg:
		m.updating = false
		m.priorityMode = false
		m.dashboard.Replace(msg.issue)
		m.statusToast = fmt.Sprintf("Updated #%d", msg.issue.Number)
		(&m).rebuildColumns()
		return m, nil

	case issueErrorMsg:
		m.updating = false
		m.priorityMode = false
		m.errorToast = fmt.Sprintf("Update failed: %v", msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Quit) || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	// Filter mode
	if m.filterMode {
		switch msg.String() {
		case "enter":
			m.filterMode = false
			m.filterText = strings.TrimSpace(m.filterInput.Value())
			m.filterInput.Blur()
			(&m).rebuildColumns()
			return m, nil
		case "esc":
			m.filterMode = false
			m.filterInput.SetValue(m.filterText)
			m.filterInput.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	if m.priorityMode {
		return m.handlePriorityMode(msg)
	}

	m.errorToast = ""
	m.statusToast = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Filter):
		m.filterMode = true
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keymap.Left):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			(&m).adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Right):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			(&m).adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Down):
		(&m).moveCardSelection(1)
	case key.Matches(msg, m.keymap.Up):
		(&m).moveCardSelection(-1)
	case key.Matches(msg, m.keymap.Top):
		(&m).jumpToCard(0)
	case key.Matches(msg, m.keymap.Bottom):
		(&m).jumpToCard(-1)
	case key.Matches(msg, m.keymap.PageDown):
		(&m).moveCardSelection(m.pageSize())
	case key.Matches(msg, m.keymap.PageUp):
		(&m).moveCardSelection(-m.pageSize())
	case key.Matches(msg, m.keymap.Priority):
		if _, ok := m.getSelectedIssue(); ok && !m.updating {
			m.priorityMode = true
		}
	case key.Matches(msg, m.keymap.Open):
		if issue, ok := m.getSelectedIssue(); ok {
			if url := m.dashboard.URL(issue); url != "" {
				_ = browser.OpenURL(url)
			}
		}
	case key.Matches(msg, m.keymap.Refresh):
		if !m.loading {
			m.loading = true
			m.dashboard.Invalidate(m.store)
			return m, loadDashboard(m.ctx, m.store, m.config)
		}
	case key.Matches(msg, m.keymap.ChangeSection):
		return m, func() tea.Msg { return changeSectionMsg{} }
	case key.Matches(msg, m.keymap.Mine):
		m.filterMyOnly = !m.filterMyOnly
		(&m).rebuildColumns()
	case key.Matches(msg, m.keymap.Detail):
		if issue, ok := m.getSelectedIssue(); ok {
			return m, func() tea.Msg { return openDetailMsg{issue: issue} }
		}
	}

	return m, nil
}

// handlePriorityMode handles key presses in priority mode
func (m BoardModel) handlePriorityMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.updating {
		return m, nil
	}
	switch msg.String() {
	case "esc", "q":
		m.priorityMode = false
		return m, nil
	case "0", "1", "2", "3":
		target := domain.Priorities[msg.Runes[0]-'0']
		return m.setPriority(&target)
	case "x":
		return m.setPriority(nil)
	}
	return m, nil
}

// setPriority swaps the selected issue's priority label for target, or
// removes it when target is nil.
func (m BoardModel) setPriority(target *domain.Priority) (tea.Model, tea.Cmd) {
	issue, ok := m.getSelectedIssue()
	if !ok {
		m.priorityMode = false
		return m, nil
	}
	repo, ok := m.dashboard.Repository(issue.ID)
	if !ok {
		m.priorityMode = false
		m.errorToast = fmt.Sprintf("Unknown repository for #%d", issue.Number)
		return m, nil
	}

	add, remove, err := priorityChange(repo, issue, target)
	if err != nil {
		m.priorityMode = false
		m.errorToast = err.Error()
		return m, nil
	}
	if len(add) == 0 && len(remove) == 0 {
		m.priorityMode = false
		return m, nil
	}

	m.updating = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		updated, err := m.store.UpdateIssueLabels(m.ctx, repo.Key(), issue.ID, add, remove)
		if err != nil {
			return issueErrorMsg{err: err}
		}
		return issueUpdatedMsg{issue: updated}
	})
}

// priorityChange returns the label IDs to add and remove so that the issue
// carries exactly the target priority label, or none when target is nil.
func priorityChange(repo domain.Repository, issue domain.Issue, target *domain.Priority) (add, remove []string, err error) {
	has := false
	for _, l := range issue.Labels {
		if !slices.Contains(domain.Priorities, domain.Priority(l.Name)) {
			continue
		}
		if target != nil && l.Name == string(*target) {
			has = true
			continue
		}
		remove = append(remove, l.ID)
	}
	if target == nil || has {
		return nil, remove, nil
	}

	i := slices.IndexFunc(repo.Labels, func(l domain.Label) bool { return l.Name == string(*target) })
	if i < 0 {
		return nil, nil, fmt.Errorf("%s/%s has no %s label", repo.Organization, repo.Name, *target)
	}
	return []string{repo.Labels[i].ID}, remove, nil
}

// View renders the board - fills entire terminal exactly
func (m BoardModel) View() string {
	// Use sensible defaults if dimensions not yet set
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))
	sections = append(sections, m.renderSecondHeader(width))

	if m.filterMode {
		sections = append(sections, m.filterInput.View())
	}

	if m.priorityMode {
		bar := modeStyle.Render("PRIORITY") + " Press 0-3 to set, x to clear, ESC to cancel"
		if m.updating {
			bar = modeStyle.Render("PRIORITY") + " " + m.spinner.View() + " updating..."
		}
		sections = append(sections, bar)
	}

	boardHeight := height - headerLines
	if m.filterMode {
		boardHeight--
	}
	if m.priorityMode {
		boardHeight--
	}
	if boardHeight < 5 {
		boardHeight = 5
	}

	var mainContent string
	if m.showHelp {
		helpLines := strings.Split(m.help.View(width), "\n")
		if len(helpLines) > boardHeight {
			helpLines = helpLines[:boardHeight]
		}
		mainContent = strings.Join(helpLines, "\n")
	} else if len(m.columns) == 0 {
		emptyMsg := "No issues match this view. Press 'r' to refresh."
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, emptyMsg)
	} else {
		mainContent = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, mainContent)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSecondHeader renders navigation hints and position info
func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:group j/k:issue p:priority o:open enter:view"

	right := ""
	switch {
	case m.errorToast != "":
		right = errorStyle.Render(m.errorToast)
	case m.statusToast != "":
		right = successStyle.Render(m.statusToast)
	case len(m.columns) > 0:
		gk := m.columns[m.selectedColumn]
		issues := m.groups[gk]

		colPos := fmt.Sprintf("group %d/%d", m.selectedColumn+1, len(m.columns))
		if len(issues) > 0 {
			right = fmt.Sprintf("%s | issue %d/%d", colPos, m.selectedCard[gk]+1, len(issues))
		} else {
			right = colPos
		}
	}

	padding := width - len(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return dimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderHeader renders a single header line with title on left and status on right
func (m BoardModel) renderHeader(width int) string {
	section := m.currentSection()
	title := fmt.Sprintf("%s - %s", m.dashboard.Organization.Login, m.page.Title)
	if section.Title != "" {
		title += " / " + section.Title
	}
	if section.GroupedView != nil {
		title += fmt.Sprintf(" (by %s)", section.GroupedView.GroupBy)
	}

	var statusParts []string
	if m.loading {
		statusParts = append(statusParts, m.spinner.View()+"loading")
	}

	statusParts = append(statusParts, fmt.Sprintf("%d issues", m.issueCount()))

	if m.filterMyOnly {
		statusParts = append(statusParts, "@"+m.dashboard.Viewer.Login)
	}
	if m.filterText != "" {
		statusParts = append(statusParts, "/"+m.filterText)
	}
	statusParts = append(statusParts, "[a]@me [?]help")

	status := strings.Join(statusParts, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}

	return titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(status)
}

// renderBoard renders the group columns within the given dimensions.
// Columns scroll horizontally (carousel) when they overflow.
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	numCols := len(m.columns)
	if numCols == 0 {
		return ""
	}

	// Border adds 2 lines to the content height
	colContentHeight := totalHeight - 2
	if colContentHeight < 3 {
		colContentHeight = 3
	}

	maxVisibleCols := totalWidth / minColumnWidth
	if maxVisibleCols < 1 {
		maxVisibleCols = 1
	}
	visibleCols := maxVisibleCols
	if visibleCols > numCols {
		visibleCols = numCols
	}

	colWidth := totalWidth / visibleCols
	if colWidth > maxColumnWidth && numCols > 1 {
		colWidth = maxColumnWidth
	}
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	// 2 border + 2 padding
	innerWidth := colWidth - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	maxCardLines := colContentHeight - 1
	if maxCardLines < 1 {
		maxCardLines = 1
	}

	startCol := m.columnOffset
	endCol := startCol + visibleCols
	if endCol > numCols {
		endCol = numCols
		startCol = endCol - visibleCols
		if startCol < 0 {
			startCol = 0
		}
	}

	columnViews := make([]string, 0, visibleCols+2)

	if startCol > 0 {
		columnViews = append(columnViews, scrollIndicator("◀", colContentHeight+2))
	}
	for i := startCol; i < endCol; i++ {
		columnViews = append(columnViews, m.renderColumn(m.columns[i], i == m.selectedColumn, colWidth, colContentHeight, innerWidth, maxCardLines))
	}
	if endCol < numCols {
		columnViews = append(columnViews, scrollIndicator("▶", colContentHeight+2))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

func scrollIndicator(arrow string, height int) string {
	return lipgloss.NewStyle().
		Width(2).
		Height(height).
		Foreground(lipgloss.Color("205")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(arrow)
}

// renderColumn renders one group. innerHeight excludes the border;
// maxCardLines excludes the header.
func (m BoardModel) renderColumn(groupKey string, selected bool, width, innerHeight, innerWidth, maxCardLines int) string {
	issues := m.groups[groupKey]

	headerText := truncate.StringWithTail(fmt.Sprintf("%s (%d)", m.columnName(groupKey), len(issues)), uint(innerWidth), "…")

	scrollOffset := m.scrollOffset[groupKey]
	selectedIdx := m.selectedCard[groupKey]

	cardSlots := maxCardLines - 1
	if cardSlots < 1 {
		cardSlots = 1
	}

	needUpIndicator := scrollOffset > 0
	needDownIndicator := false

	availableSlots := cardSlots
	if needUpIndicator {
		availableSlots--
	}

	endIdx := scrollOffset + availableSlots
	if endIdx > len(issues) {
		endIdx = len(issues)
	}
	if endIdx < len(issues) {
		needDownIndicator = true
		availableSlots--
		endIdx = scrollOffset + availableSlots
		if endIdx > len(issues) {
			endIdx = len(issues)
		}
	}

	var lines []string
	lines = append(lines, columnHeaderStyle.Render(headerText))

	if needUpIndicator {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", scrollOffset)))
	}

	for i := scrollOffset; i < endIdx; i++ {
		text := m.formatCardText(issues[i], innerWidth-3) // "> " or "  " prefix
		if selected && i == selectedIdx {
			lines = append(lines, selectedCardStyle.Render("> ")+text)
		} else {
			lines = append(lines, cardStyle.Render("  ")+text)
		}
	}

	if remaining := len(issues) - endIdx; needDownIndicator && remaining > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", remaining)))
	}

	if len(issues) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	if selected {
		borderColor = lipgloss.Color("205")
	}

	// Height sets the content height; the border adds 2. MaxHeight would cut the border.
	colStyle := lipgloss.NewStyle().
		Width(width - 2).
		Height(innerHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	return colStyle.Render(strings.Join(lines, "\n"))
}

// columnName is the display name of a group.
func (m BoardModel) columnName(groupKey string) string {
	switch groupKey {
	case flatColumn:
		if title := m.currentSection().Title; title != "" {
			return title
		}
		return "Issues"
	case view.None:
		return "-"
	}
	return groupKey
}

// formatCardText renders an issue title with its priority and number
// right-aligned within maxWidth.
func (m BoardModel) formatCardText(issue domain.Issue, maxWidth int) string {
	number := "#" + strconv.Itoa(issue.Number)
	suffix := dimStyle.Render(number)
	suffixLen := len(number)
	if issue.Priority != nil {
		suffix = priorityBadge(issue.Priority) + " " + suffix
		suffixLen += len(*issue.Priority) + 1
	}

	availableForTitle := maxWidth - suffixLen - 1
	if availableForTitle < 5 {
		availableForTitle = 5
	}
	title := truncate.StringWithTail(issue.Title, uint(availableForTitle), "…")

	padding := maxWidth - lipgloss.Width(title) - suffixLen
	if padding < 1 {
		padding = 1
	}

	return severityStyle(issue.Severity).Render(title) + strings.Repeat(" ", padding) + suffix
}

func (m BoardModel) currentSection() view.Section {
	if m.section < 0 || m.section >= len(m.page.Sections) {
		return view.Section{}
	}
	return m.page.Sections[m.section]
}

// visibleIssues applies the board's own text and @me filters ahead of the view.
func (m BoardModel) visibleIssues() []domain.Issue {
	needle := strings.ToLower(m.filterText)
	viewer := m.dashboard.Viewer.Login

	out := make([]domain.Issue, 0, len(m.dashboard.Issues))
	for _, issue := range m.dashboard.Issues {
		if needle != "" &&
			!strings.Contains(strings.ToLower(issue.Title), needle) &&
			"#"+strconv.Itoa(issue.Number) != needle {
			continue
		}
		if m.filterMyOnly && viewer != "" && !AssignedTo(issue, viewer) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// rebuildColumns regroups the dashboard's issues through the section's view.
func (m *BoardModel) rebuildColumns() {
	issues := m.visibleIssues()
	section := m.currentSection()

	m.columns = []string{}
	m.groups = make(map[string][]domain.Issue)

	switch {
	case section.GroupedView != nil:
		for _, g := range section.GroupedView.Apply(issues) {
			m.columns = append(m.columns, g.Key)
			m.groups[g.Key] = g.Issues
		}
	case section.FlatView != nil:
		m.columns = append(m.columns, flatColumn)
		m.groups[flatColumn] = section.FlatView.Apply(issues)
	}

	if m.selectedColumn >= len(m.columns) {
		m.selectedColumn = 0
		m.columnOffset = 0
	}

	// Reset scroll offsets so "↑ N more" does not linger when results fit on screen
	for gk, list := range m.groups {
		m.scrollOffset[gk] = 0
		if m.selectedCard[gk] >= len(list) {
			m.selectedCard[gk] = max(len(list)-1, 0)
		}
	}
}

func (m BoardModel) issueCount() int {
	seen := make(map[string]bool)
	for _, issues := range m.groups {
		for _, issue := range issues {
			seen[issue.ID] = true
		}
	}
	return len(seen)
}

func (m BoardModel) pageSize() int {
	section := m.currentSection()
	switch {
	case section.GroupedView != nil && section.GroupedView.PageSize > 0:
		return section.GroupedView.PageSize
	case section.FlatView != nil && section.FlatView.PageSize > 0:
		return section.FlatView.PageSize
	}
	return pageJumpSize
}

// moveCardSelection moves the issue selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	if len(m.columns) == 0 {
		return
	}

	gk := m.columns[m.selectedColumn]
	issues := m.groups[gk]
	if len(issues) == 0 {
		return
	}

	newIdx := m.selectedCard[gk] + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(issues) {
		newIdx = len(issues) - 1
	}

	m.selectedCard[gk] = newIdx
	m.adjustScroll(gk)
}

// jumpToCard jumps to a specific issue index. Use -1 to jump to the last one.
func (m *BoardModel) jumpToCard(idx int) {
	if len(m.columns) == 0 {
		return
	}

	gk := m.columns[m.selectedColumn]
	issues := m.groups[gk]
	if len(issues) == 0 {
		return
	}

	if idx < 0 || idx >= len(issues) {
		idx = len(issues) - 1
	}

	m.selectedCard[gk] = idx
	m.adjustScroll(gk)
}

// adjustScroll ensures the selected issue is visible
func (m *BoardModel) adjustScroll(groupKey string) {
	selectedIdx := m.selectedCard[groupKey]
	scrollOffset := m.scrollOffset[groupKey]

	contentHeight := m.height - headerLines - 2 // column borders
	if m.priorityMode {
		contentHeight--
	}
	if m.filterMode {
		contentHeight--
	}
	visibleCards := contentHeight - 3 // header + scroll indicators
	if visibleCards < 3 {
		visibleCards = 3
	}

	if selectedIdx < scrollOffset {
		m.scrollOffset[groupKey] = selectedIdx
	}
	if selectedIdx >= scrollOffset+visibleCards {
		m.scrollOffset[groupKey] = selectedIdx - visibleCards + 1
	}
}

// adjustColumnScroll ensures the selected column is visible (horizontal carousel)
func (m *BoardModel) adjustColumnScroll() {
	if len(m.columns) == 0 || m.width == 0 {
		return
	}

	visibleCols := m.width / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > len(m.columns) {
		visibleCols = len(m.columns)
	}

	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visibleCols {
		m.columnOffset = m.selectedColumn - visibleCols + 1
	}
}

// getSelectedIssue returns the currently selected issue
func (m BoardModel) getSelectedIssue() (domain.Issue, bool) {
	if len(m.columns) == 0 {
		return domain.Issue{}, false
	}

	gk := m.columns[m.selectedColumn]
	issues := m.groups[gk]
	if len(issues) == 0 {
		return domain.Issue{}, false
	}

	idx := m.selectedCard[gk]
	if idx >= len(issues) {
		idx = 0
	}
	return issues[idx], true
}

// renderCard is used by tests
func (m BoardModel) renderCard(issue domain.Issue) string {
	return m.formatCardText(issue, 30)
}

// renderAllColumns is used by tests
func (m BoardModel) renderAllColumns() string {
	return m.renderBoard(m.width, m.height-headerLines)
}
