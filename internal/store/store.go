// Package store provides the per-credential entity cache.
// A UserStore holds the users, organizations, repositories and issue lists one
// access token can see. Reads fall through to the GitHub API on a miss; webhook
// deltas patch cached entities in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/robby/leander/internal/apperror"
	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/parse"
)

var (
	// ErrOrganizationNotFound indicates the organization is not cached in this store.
	ErrOrganizationNotFound = fmt.Errorf("organization %w", apperror.ErrNotFound)
	// ErrRepositoryNotCached indicates the repository is not cached in this store.
	ErrRepositoryNotCached = fmt.Errorf("repository %w", apperror.ErrNotFound)
	// ErrIssuesNotCached indicates the repository's issue list was never fetched.
	ErrIssuesNotCached = fmt.Errorf("issue list %w", apperror.ErrNotFound)
	// ErrIssueNotFound indicates the issue is not in the cached issue list.
	ErrIssueNotFound = fmt.Errorf("issue %w", apperror.ErrNotFound)
)

// Upstream is the subset of the GitHub API a store reads through.
// *gh.Client implements it.
type Upstream interface {
	User(ctx context.Context, login string) (gh.UserNode, error)
	Viewer(ctx context.Context) (gh.UserNode, error)
	Organization(ctx context.Context, login string) (gh.OrganizationNode, error)
	Repository(ctx context.Context, owner, name string) (gh.RepositoryNode, error)
	IssuesPage(ctx context.Context, owner, name, after string) (gh.IssuesPage, error)
	UpdateIssueLabels(ctx context.Context, issueID string, add, remove []string) ([]gh.LabelNode, error)
	UpdateAssignees(ctx context.Context, issueID string, add, remove []string) ([]gh.UserNode, error)
}

// Option configures a UserStore.
type Option func(*UserStore)

// WithPolicy sets the parse policy used for issue derived fields.
func WithPolicy(p parse.Policy) Option {
	return func(s *UserStore) { s.policy = p }
}

// WithNowFunc sets the clock used for issue ages.
func WithNowFunc(now func() time.Time) Option {
	return func(s *UserStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *UserStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDedupe toggles collapsing of concurrent identical upstream fetches.
func WithDedupe(enabled bool) Option {
	return func(s *UserStore) {
		if enabled {
			s.flights = &singleflight.Group{}
		} else {
			s.flights = nil
		}
	}
}

// UserStore caches what one credential can see.
// The mutex is never held across an upstream call.
type UserStore struct {
	client  Upstream
	policy  parse.Policy
	now     func() time.Time
	logger  *slog.Logger
	flights *singleflight.Group

	mu            sync.RWMutex
	viewer        *domain.User
	users         map[string]domain.User
	organizations map[string]domain.Organization
	repositories  map[domain.RepositoryKey]domain.Repository
	issues        map[domain.RepositoryKey][]domain.Issue
}

// New creates an empty store reading through client.
func New(client Upstream, opts ...Option) *UserStore {
	s := &UserStore{
		client:        client,
		now:           time.Now,
		logger:        slog.Default(),
		flights:       &singleflight.Group{},
		users:         make(map[string]domain.User),
		organizations: make(map[string]domain.Organization),
		repositories:  make(map[domain.RepositoryKey]domain.Repository),
		issues:        make(map[domain.RepositoryKey][]domain.Issue),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// do runs fn, sharing the result with concurrent callers of the same key when
// dedupe is on. A shared fetch ignores the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (s *UserStore) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if s.flights == nil {
		return fn(ctx)
	}
	shared := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return fn(shared)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetUser returns the cached user or fetches it.
func (s *UserStore) GetUser(ctx context.Context, login string) (domain.User, error) {
	s.mu.RLock()
	user, ok := s.users[login]
	s.mu.RUnlock()
	if ok {
		return user, nil
	}

	v, err := s.do(ctx, "user:"+login, func(ctx context.Context) (interface{}, error) {
		s.logger.Debug("query user", slog.String("login", login))
		node, err := s.client.User(ctx, login)
		if err != nil {
			return nil, err
		}
		return parse.UserFromQuery(node), nil
	})
	if err != nil {
		return domain.User{}, err
	}

	return s.UpdateOrAddUser(v.(domain.User)), nil
}

// GetViewer returns the credential's own user, fetched once per store.
func (s *UserStore) GetViewer(ctx context.Context) (domain.User, error) {
	s.mu.RLock()
	viewer := s.viewer
	s.mu.RUnlock()
	if viewer != nil {
		return *viewer, nil
	}

	v, err := s.do(ctx, "viewer", func(ctx context.Context) (interface{}, error) {
		s.logger.Debug("query viewer")
		node, err := s.client.Viewer(ctx)
		if err != nil {
			return nil, err
		}
		return parse.UserFromQuery(node), nil
	})
	if err != nil {
		return domain.User{}, err
	}

	user := s.UpdateOrAddUser(v.(domain.User))
	s.mu.Lock()
	if s.viewer == nil {
		s.viewer = &user
	}
	viewer = s.viewer
	s.mu.Unlock()

	return *viewer, nil
}

// GetOrganization returns the cached organization or fetches it with its members.
func (s *UserStore) GetOrganization(ctx context.Context, login string) (domain.Organization, error) {
	s.mu.RLock()
	org, ok := s.organizations[login]
	s.mu.RUnlock()
	if ok {
		return cloneOrganization(org), nil
	}

	v, err := s.do(ctx, "organization:"+login, func(ctx context.Context) (interface{}, error) {
		s.logger.Debug("query organization", slog.String("org", login))
		node, err := s.client.Organization(ctx, login)
		if err != nil {
			return nil, err
		}
		org, users := parse.OrganizationFromQuery(node)
		for _, u := range users {
			s.UpdateOrAddUser(u)
		}
		return org, nil
	})
	if err != nil {
		return domain.Organization{}, err
	}

	org = v.(domain.Organization)
	s.mu.Lock()
	if existing, ok := s.organizations[org.Login]; ok {
		org = existing
	} else {
		s.organizations[org.Login] = org
	}
	s.mu.Unlock()

	return cloneOrganization(org), nil
}

// GetRepository returns the cached repository or fetches it with its labels.
func (s *UserStore) GetRepository(ctx context.Context, org domain.Organization, name string) (domain.Repository, error) {
	key := domain.RepositoryKey{Organization: org.Login, Name: name}

	s.mu.RLock()
	repo, ok := s.repositories[key]
	s.mu.RUnlock()
	if ok {
		return cloneRepository(repo), nil
	}

	v, err := s.do(ctx, "repository:"+key.String(), func(ctx context.Context) (interface{}, error) {
		s.logger.Debug("query repository", slog.String("org", org.Login), slog.String("repo", name))
		node, err := s.client.Repository(ctx, org.Login, name)
		if err != nil {
			return nil, err
		}
		return parse.RepositoryFromQuery(node, org.Login), nil
	})
	if err != nil {
		return domain.Repository{}, err
	}

	repo = v.(domain.Repository)
	s.mu.Lock()
	if existing, ok := s.repositories[key]; ok {
		repo = existing
	} else {
		s.repositories[key] = repo
	}
	s.mu.Unlock()

	return cloneRepository(repo), nil
}

// GetIssues returns the repository's open issues, fetching every page on a miss.
// A failed page fails the whole call and caches nothing.
func (s *UserStore) GetIssues(ctx context.Context, repo domain.Repository) ([]domain.Issue, error) {
	key := repo.Key()
	if issues, ok := s.cachedIssues(key); ok {
		return issues, nil
	}

	org, err := s.GetOrganization(ctx, repo.Organization)
	if err != nil {
		return nil, err
	}
	// Issues are only ever held for a cached repository.
	if _, err := s.GetRepository(ctx, org, repo.Name); err != nil {
		return nil, err
	}

	members := make([]string, 0, len(org.Members))
	for _, login := range org.Members {
		member, err := s.GetUser(ctx, login)
		if err != nil {
			return nil, err
		}
		members = append(members, member.Login)
	}

	v, err := s.do(ctx, "issues:"+key.String(), func(ctx context.Context) (interface{}, error) {
		return s.fetchIssues(ctx, key, members)
	})
	if err != nil {
		return nil, err
	}

	fetched := v.([]domain.Issue)
	s.mu.Lock()
	if _, ok := s.issues[key]; !ok {
		s.issues[key] = fetched
	} else {
		s.logger.Debug("issue list cached concurrently, dropping fetched list", slog.String("repo", key.String()))
	}
	s.mu.Unlock()

	issues, _ := s.cachedIssues(key)
	return issues, nil
}

// fetchIssues pages through every open issue of key and parses them in page order.
func (s *UserStore) fetchIssues(ctx context.Context, key domain.RepositoryKey, members []string) ([]domain.Issue, error) {
	var nodes []gh.IssueNode
	after := ""
	for page := 0; ; page++ {
		s.logger.Debug("query issues",
			slog.String("org", key.Organization),
			slog.String("repo", key.Name),
			slog.Int("page", page),
		)
		result, err := s.client.IssuesPage(ctx, key.Organization, key.Name, after)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, result.Nodes...)
		if !result.PageInfo.HasNextPage {
			break
		}
		after = result.PageInfo.EndCursor
	}

	pctx := s.parseContext(members)
	issues := make([]domain.Issue, 0, len(nodes))
	for _, node := range nodes {
		issue, assignees := parse.IssueFromQuery(node, pctx)
		for _, u := range assignees {
			s.UpdateOrAddUser(u)
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *UserStore) cachedIssues(key domain.RepositoryKey) ([]domain.Issue, bool) {
	s.mu.RLock()
	issues, ok := s.issues[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := s.now()
	out := make([]domain.Issue, len(issues))
	for i, issue := range issues {
		out[i] = cloneIssue(issue)
		parse.Ages(&out[i], now)
	}
	return out, true
}

// InvalidateIssues drops a repository's cached issue list so the next GetIssues refetches it.
func (s *UserStore) InvalidateIssues(key domain.RepositoryKey) {
	s.mu.Lock()
	delete(s.issues, key)
	s.mu.Unlock()
}

// UpdateOrAddUser merges user into the cache and returns the stored result.
func (s *UserStore) UpdateOrAddUser(user domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := user
	if existing, ok := s.users[user.Login]; ok {
		merged = mergeUser(existing, user)
	}
	s.users[user.Login] = merged
	if s.viewer != nil && s.viewer.Login == merged.Login {
		viewer := merged
		s.viewer = &viewer
	}
	return merged
}

// HasOrganizationID reports whether an organization with node id is cached.
func (s *UserStore) HasOrganizationID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.organizations {
		if org.ID == id {
			return true
		}
	}
	return false
}

// HasRepository reports whether the repository is cached.
func (s *UserStore) HasRepository(organization, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.repositories[domain.RepositoryKey{Organization: organization, Name: name}]
	return ok
}

// Stats are entity counts of one store.
type Stats struct {
	Viewer        string `json:"viewer,omitempty"`
	Users         int    `json:"users"`
	Organizations int    `json:"organizations"`
	Repositories  int    `json:"repositories"`
	IssueLists    int    `json:"issueLists"`
	Issues        int    `json:"issues"`
}

// Snapshot returns the store's entity counts.
func (s *UserStore) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Users:         len(s.users),
		Organizations: len(s.organizations),
		Repositories:  len(s.repositories),
		IssueLists:    len(s.issues),
	}
	if s.viewer != nil {
		stats.Viewer = s.viewer.Login
	}
	for _, list := range s.issues {
		stats.Issues += len(list)
	}
	return stats
}

// parseContext builds the issue parsing context for the given member logins.
func (s *UserStore) parseContext(members []string) parse.Context {
	return parse.Context{Members: members, Policy: s.policy, Now: s.now()}
}

// memberLogins returns the cached member logins of an organization. Caller holds the lock.
func (s *UserStore) memberLogins(organization string) []string {
	org, ok := s.organizations[organization]
	if !ok {
		return nil
	}
	return append([]string(nil), org.Members...)
}

// IsSoft reports whether err only means the targeted entity is not cached.
func IsSoft(err error) bool {
	return errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, ErrRepositoryNotCached) ||
		errors.Is(err, ErrIssuesNotCached) ||
		errors.Is(err, ErrIssueNotFound)
}
