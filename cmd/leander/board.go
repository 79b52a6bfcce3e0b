package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/robby/leander/internal/auth"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/tui"
	"github.com/robby/leander/internal/view"
)

var (
	pageFlag    string
	sectionFlag int
	tokenFlag   string
	logFileFlag string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Browse a dashboard page as a grouped issue board",
	Long: `board loads the dashboard view config (the "dashboard" config key or
--dashboard), fetches its repositories' issues and shows one page section as
columns: one per group of a grouped view, a single column for a flat view.`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().String("dashboard", "", "dashboard view config YAML (overrides dashboard)")
	boardCmd.Flags().StringVar(&pageFlag, "page", "", "page route to show (default: first page)")
	boardCmd.Flags().IntVar(&sectionFlag, "section", 0, "1-based section number. Skips the section picker.")
	boardCmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub token (default: gh CLI, then GITHUB_TOKEN)")
	boardCmd.Flags().StringVar(&logFileFlag, "log-file", "", "write logs here; the board discards them otherwise")
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dashboard, _ := cmd.Flags().GetString("dashboard"); dashboard != "" {
		cfg.Dashboard = dashboard
	}
	if err := cfg.ValidateForBoard(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	views, err := view.Load(cfg.Dashboard)
	if err != nil {
		return err
	}

	page, err := selectPage(views, pageFlag)
	if err != nil {
		return err
	}
	section := tui.NoSection
	if sectionFlag > 0 {
		section = sectionFlag - 1
	}

	token, err := resolveToken(tokenFlag)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logFileFlag != "" {
		f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(cfg.Log, logOut)

	st := store.New(gh.New(token, gh.WithEndpoint(cfg.GitHub.GraphQLURL)),
		store.WithPolicy(cfg.Policy()),
		store.WithLogger(logger),
		store.WithDedupe(cfg.Cache.Dedupe),
	)

	app := tui.NewAppModel(st, context.Background(), views, page, section)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}

	return nil
}

func selectPage(views *view.Config, route string) (*view.Page, error) {
	if route == "" {
		if len(views.Pages) == 0 {
			return nil, fmt.Errorf("dashboard defines no pages")
		}
		return &views.Pages[0], nil
	}
	page, ok := views.Page(route)
	if !ok {
		return nil, fmt.Errorf("page %q not found in dashboard", route)
	}
	return page, nil
}

// resolveToken prefers an explicit token, then the gh CLI and GITHUB_TOKEN.
func resolveToken(explicit string) (string, error) {
	if explicit != "" {
		return auth.StaticProvider(explicit).GetToken()
	}
	return auth.GetToken()
}
