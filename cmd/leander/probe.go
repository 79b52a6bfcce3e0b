package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/view"
)

var (
	probeOrg  string
	probeRepo string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fetch one repository through the cache and print a summary",
	Long: `probe resolves the viewer, the organization and the repository, loads every
open issue through a fresh cache and prints what it found. Use it to check a
token and the GraphQL endpoint.`,
	Example: "  leander probe --org acme --repo widgets",
	RunE:    runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeOrg, "org", "", "organization login")
	probeCmd.Flags().StringVar(&probeRepo, "repo", "", "repository name")
	probeCmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub token (default: gh CLI, then GITHUB_TOKEN)")
	_ = probeCmd.MarkFlagRequired("org")
	_ = probeCmd.MarkFlagRequired("repo")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	token, err := resolveToken(tokenFlag)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	st := store.New(gh.New(token, gh.WithEndpoint(cfg.GitHub.GraphQLURL)),
		store.WithPolicy(cfg.Policy()),
		store.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	viewer, err := st.GetViewer(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch viewer: %w", err)
	}
	fmt.Printf("Viewer: %s (ID=%s)\n", viewer.Login, viewer.ID)

	org, err := st.GetOrganization(ctx, probeOrg)
	if err != nil {
		return fmt.Errorf("failed to fetch organization: %w", err)
	}
	fmt.Printf("Organization: %s (ID=%s, %d members)\n", org.Login, org.ID, len(org.Members))

	repo, err := st.GetRepository(ctx, org, probeRepo)
	if err != nil {
		return fmt.Errorf("failed to fetch repository: %w", err)
	}
	fmt.Printf("Repository: %s/%s (ID=%s, %d labels)\n", repo.Organization, repo.Name, repo.ID, len(repo.Labels))

	start := time.Now()
	issues, err := st.GetIssues(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to fetch issues: %w", err)
	}
	fmt.Printf("\nIssues: %d (fetched in %s)\n", len(issues), time.Since(start).Round(time.Millisecond))

	for _, field := range []string{"severity", "priority", "source", "triaged"} {
		fmt.Printf("\nBy %s:\n", field)
		for _, g := range view.GroupBy(issues, field) {
			fmt.Printf("  %-10s %d\n", g.Key, len(g.Issues))
		}
	}

	stats := st.Snapshot()
	fmt.Printf("\nCached: %d users, %d organizations, %d repositories, %d issues\n",
		stats.Users, stats.Organizations, stats.Repositories, stats.Issues)

	return nil
}
