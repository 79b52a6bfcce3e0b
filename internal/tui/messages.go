// Package tui provides the Bubble Tea models behind `leander board`.
package tui

import "github.com/robby/leander/internal/domain"

// SectionSelectedMsg is emitted when the user picks a page section.
type SectionSelectedMsg struct {
	Index int
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// Messages passed between the app, board and detail models.
type (
	dashboardLoadedMsg struct{ dashboard *Dashboard }
	dashboardErrorMsg  struct{ err error }
	changeSectionMsg   struct{}
	pickerCancelledMsg struct{}
	openDetailMsg      struct{ issue domain.Issue }
	closeDetailMsg     struct{}

	// issueUpdatedMsg carries an issue patched by a mutation from either view.
	issueUpdatedMsg struct{ issue domain.Issue }
	issueErrorMsg   struct{ err error }
)
