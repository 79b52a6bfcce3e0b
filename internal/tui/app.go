package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/view"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenSectionPicker
	ScreenBoard
	ScreenDetail
)

// NoSection asks the app to pick the section interactively.
const NoSection = -1

// AppModel is the root Bubble Tea model that manages screen transitions.
// It loads the dashboard, then goes section selection -> board <-> detail.
type AppModel struct {
	// Dependencies
	store  *store.UserStore
	config *view.Config
	page   *view.Page
	ctx    context.Context

	// CLI flags (pre-filled values)
	sectionFlag int

	// Current state
	currentScreen AppScreen
	currentModel  tea.Model
	err           error
	loadingMsg    string
	spinner       spinner.Model

	dashboard *Dashboard
	section   int

	// Cached board to preserve state across screen transitions
	boardModel *BoardModel
}

// NewAppModel creates the app for one page of a dashboard config. Pass
// NoSection to pick the section interactively when the page has several.
func NewAppModel(st *store.UserStore, ctx context.Context, cfg *view.Config, page *view.Page, section int) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return AppModel{
		store:         st,
		config:        cfg,
		page:          page,
		ctx:           ctx,
		sectionFlag:   section,
		currentScreen: ScreenLoading,
		loadingMsg:    fmt.Sprintf("Loading %d repositories of %s...", len(cfg.Repositories), cfg.Organization),
		spinner:       sp,
	}
}

// Init starts loading the dashboard.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadDashboard(m.ctx, m.store, m.config))
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" && m.currentScreen != ScreenBoard {
			return m, tea.Quit
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if m.currentScreen == ScreenLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case dashboardLoadedMsg:
		refresh := m.dashboard != nil
		m.dashboard = msg.dashboard
		if refresh {
			return m.updateBoard(msg)
		}

		switch {
		case m.sectionFlag != NoSection:
			if m.sectionFlag < 0 || m.sectionFlag >= len(m.page.Sections) {
				m.err = fmt.Errorf("page %s has no section %d", m.page.Route, m.sectionFlag)
				return m, nil
			}
			return m.showBoard(m.sectionFlag)
		case len(m.page.Sections) == 1:
			return m.showBoard(0)
		}
		return m.showPicker()

	case dashboardErrorMsg:
		if m.boardModel == nil {
			m.err = msg.err
			return m, nil
		}
		return m.updateBoard(msg)

	case SectionSelectedMsg:
		return m.showBoard(msg.Index)

	case pickerCancelledMsg:
		if m.boardModel == nil {
			return m, tea.Quit
		}
		m.currentScreen = ScreenBoard
		m.currentModel = *m.boardModel
		return m, tea.WindowSize()

	case changeSectionMsg:
		return m.showPicker()

	case openDetailMsg:
		m.currentScreen = ScreenDetail
		columns := sectionColumns(m.page.Sections[m.section])
		detailModel := NewDetailModel(m.store, m.ctx, m.dashboard, msg.issue, columns)
		m.currentModel = detailModel
		return m, detailModel.Init()

	case closeDetailMsg:
		m.currentScreen = ScreenBoard
		m.currentModel = *m.boardModel
		// Request window size to ensure proper rendering
		return m, tea.Batch(tea.WindowSize(), m.boardModel.spinner.Tick)

	case issueUpdatedMsg, issueErrorMsg:
		// Both views show the issue; the board regroups even while hidden.
		if m.currentScreen != ScreenDetail {
			return m.updateBoard(msg)
		}
		next, _ := m.updateBoard(msg)
		m = next.(AppModel)
	}

	// Delegate to current screen's model
	if m.currentModel != nil {
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		// Keep boardModel in sync when on board screen
		if m.currentScreen == ScreenBoard {
			if bm, ok := m.currentModel.(BoardModel); ok {
				m.boardModel = &bm
			}
		}
		return m, cmd
	}

	return m, nil
}

// updateBoard delivers msg to the board whether or not it is on screen.
func (m AppModel) updateBoard(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.boardModel == nil {
		return m, nil
	}
	next, cmd := m.boardModel.Update(msg)
	bm := next.(BoardModel)
	m.boardModel = &bm
	if m.currentScreen == ScreenBoard {
		m.currentModel = bm
		return m, cmd
	}
	return m, nil
}

func (m AppModel) showBoard(section int) (tea.Model, tea.Cmd) {
	m.section = section
	m.currentScreen = ScreenBoard
	boardModel := NewBoardModel(m.store, m.ctx, m.config, m.dashboard, m.page, section)
	m.boardModel = &boardModel
	m.currentModel = boardModel
	return m, boardModel.Init()
}

func (m AppModel) showPicker() (tea.Model, tea.Cmd) {
	m.currentScreen = ScreenSectionPicker
	pickerModel := NewSectionPickerModel(m.page)
	m.currentModel = pickerModel
	return m, pickerModel.Init()
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err))
	}

	if m.currentModel != nil {
		return m.currentModel.View()
	}

	return m.spinner.View() + " " + m.loadingMsg + "\n\nPress Ctrl+C to quit"
}

// loadDashboard creates a command that loads (or reloads) the dashboard.
func loadDashboard(ctx context.Context, st *store.UserStore, cfg *view.Config) tea.Cmd {
	return func() tea.Msg {
		d, err := LoadDashboard(ctx, st, cfg)
		if err != nil {
			return dashboardErrorMsg{err: err}
		}
		return dashboardLoadedMsg{dashboard: d}
	}
}

func sectionColumns(s view.Section) []view.Column {
	switch {
	case s.GroupedView != nil:
		return s.GroupedView.Columns
	case s.FlatView != nil:
		return s.FlatView.Columns
	}
	return nil
}
