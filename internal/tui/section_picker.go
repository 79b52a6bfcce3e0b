package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/robby/leander/internal/view"
)

// sectionItem wraps a page section for use in bubbles/list.
type sectionItem struct {
	index   int
	section view.Section
}

func (i sectionItem) FilterValue() string {
	return i.Title()
}

func (i sectionItem) Title() string {
	if i.section.Title != "" {
		return i.section.Title
	}
	return fmt.Sprintf("Section %d", i.index+1)
}

func (i sectionItem) Description() string {
	switch {
	case i.section.GroupedView != nil:
		return fmt.Sprintf("Grouped by %s, %d columns", i.section.GroupedView.GroupBy, len(i.section.GroupedView.Columns))
	case i.section.FlatView != nil:
		return fmt.Sprintf("Flat list, %d columns", len(i.section.FlatView.Columns))
	}
	return ""
}

// sectionDelegate renders section items as a numbered two-line entry.
type sectionDelegate struct{}

func (d sectionDelegate) Height() int                             { return 2 }
func (d sectionDelegate) Spacing() int                            { return 1 }
func (d sectionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d sectionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(sectionItem)
	if !ok {
		return
	}

	str := fmt.Sprintf("%d. %s", index+1, i.Title())
	desc := i.Description()

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+str))
		fmt.Fprint(w, "\n  "+NormalItemStyle.Render(desc))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+str))
		fmt.Fprint(w, "\n  "+dimStyle.Render(desc))
	}
}

// SectionPickerModel lists a page's sections for the user to pick one.
// It is skipped when the page has a single section or --section is given.
type SectionPickerModel struct {
	list list.Model
	err  error
}

// NewSectionPickerModel creates a picker over page's sections.
func NewSectionPickerModel(page *view.Page) SectionPickerModel {
	items := make([]list.Item, len(page.Sections))
	for i, s := range page.Sections {
		items[i] = sectionItem{index: i, section: s}
	}

	l := list.New(items, sectionDelegate{}, 80, 20)
	l.Title = "Select a Section of " + page.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle

	return SectionPickerModel{
		list: l,
	}
}

// Init initializes the model.
func (m SectionPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m SectionPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		// Keys belong to the filter input while it is open
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, func() tea.Msg {
				return QuitMsg{}
			}
		case "esc":
			return m, func() tea.Msg {
				return pickerCancelledMsg{}
			}
		case "enter":
			if item, ok := m.list.SelectedItem().(sectionItem); ok {
				return m, func() tea.Msg {
					return SectionSelectedMsg{Index: item.index}
				}
			}
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m SectionPickerModel) View() string {
	out := m.list.View()

	if m.err != nil {
		out += ErrorStyle.Render(fmt.Sprintf("\nError: %v", m.err))
	}

	return out
}
