package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/view"
)

// maxRepoFetches bounds concurrent repository loads.
const maxRepoFetches = 4

// Dashboard is the issue set a view config reads, loaded through a store.
type Dashboard struct {
	Viewer       domain.User
	Organization domain.Organization
	Repositories []domain.Repository
	Issues       []domain.Issue

	repoOf map[string]domain.RepositoryKey // issue ID -> owning repository
}

// LoadDashboard resolves the config's organization and repositories and
// fetches their issues. Issues keep the config's repository order.
func LoadDashboard(ctx context.Context, st *store.UserStore, cfg *view.Config) (*Dashboard, error) {
	viewer, err := st.GetViewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer: %w", err)
	}
	org, err := st.GetOrganization(ctx, cfg.Organization)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization %s: %w", cfg.Organization, err)
	}

	repos := make([]domain.Repository, len(cfg.Repositories))
	issues := make([][]domain.Issue, len(cfg.Repositories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRepoFetches)
	for i, name := range cfg.Repositories {
		g.Go(func() error {
			repo, err := st.GetRepository(gctx, org, name)
			if err != nil {
				return fmt.Errorf("failed to load repository %s/%s: %w", org.Login, name, err)
			}
			list, err := st.GetIssues(gctx, repo)
			if err != nil {
				return fmt.Errorf("failed to load issues of %s/%s: %w", org.Login, name, err)
			}
			repos[i] = repo
			issues[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		Viewer:       viewer,
		Organization: org,
		Repositories: repos,
		repoOf:       make(map[string]domain.RepositoryKey),
	}
	for i, list := range issues {
		for _, issue := range list {
			d.repoOf[issue.ID] = repos[i].Key()
			d.Issues = append(d.Issues, issue)
		}
	}
	return d, nil
}

// Repository returns the repository an issue belongs to.
func (d *Dashboard) Repository(issueID string) (domain.Repository, bool) {
	key, ok := d.repoOf[issueID]
	if !ok {
		return domain.Repository{}, false
	}
	for _, r := range d.Repositories {
		if r.Key() == key {
			return r, true
		}
	}
	return domain.Repository{}, false
}

// URL returns an issue's github.com URL, or "" when its repository is unknown.
func (d *Dashboard) URL(issue domain.Issue) string {
	key, ok := d.repoOf[issue.ID]
	if !ok {
		return ""
	}
	return domain.IssueURL(key.Organization, key.Name, issue.Number)
}

// Replace swaps in an updated copy of a loaded issue.
func (d *Dashboard) Replace(issue domain.Issue) {
	i := slices.IndexFunc(d.Issues, func(x domain.Issue) bool { return x.ID == issue.ID })
	if i >= 0 {
		d.Issues[i] = issue
	}
}

// Invalidate drops the store's cached issue lists so the next load refetches them.
func (d *Dashboard) Invalidate(st *store.UserStore) {
	for _, r := range d.Repositories {
		st.InvalidateIssues(r.Key())
	}
}

// AssignedTo reports whether login is among the issue's assignees.
func AssignedTo(issue domain.Issue, login string) bool {
	return slices.ContainsFunc(issue.Assignees, func(a string) bool { return strings.EqualFold(a, login) })
}
