package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/parse"
)

// RemoveOrganization drops an organization together with its repositories and their issue lists.
func (s *UserStore) RemoveOrganization(login string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.organizations, login)
	for key := range s.repositories {
		if key.Organization == login {
			delete(s.repositories, key)
		}
	}
	for key := range s.issues {
		if key.Organization == login {
			delete(s.issues, key)
		}
	}
}

// RenameOrganization moves the organization with node id to newLogin, refetches it
// under the new login and repoints its repositories and issue lists.
// Returns ErrOrganizationNotFound when no cached organization has that id.
func (s *UserStore) RenameOrganization(ctx context.Context, id, newLogin string) error {
	s.mu.Lock()
	oldLogin := ""
	for login, org := range s.organizations {
		if org.ID == id {
			oldLogin = login
			break
		}
	}
	if oldLogin == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: id %s", ErrOrganizationNotFound, id)
	}

	delete(s.organizations, oldLogin)

	var moved []domain.RepositoryKey
	for key := range s.repositories {
		if key.Organization == oldLogin {
			moved = append(moved, key)
		}
	}
	for _, key := range moved {
		repo := s.repositories[key]
		delete(s.repositories, key)
		repo.Organization = newLogin
		s.repositories[repo.Key()] = repo

		if list, ok := s.issues[key]; ok {
			delete(s.issues, key)
			s.issues[repo.Key()] = list
		}
	}
	s.mu.Unlock()

	s.logger.Info("organization renamed",
		slog.String("from", oldLogin),
		slog.String("to", newLogin),
		slog.Int("repositories", len(moved)),
	)

	if _, err := s.GetOrganization(ctx, newLogin); err != nil {
		return fmt.Errorf("failed to refetch renamed organization: %w", err)
	}
	return nil
}

// AddMember ensures the user is cached and appends it to the organization's members.
func (s *UserStore) AddMember(ctx context.Context, organization, login string) error {
	user, err := s.GetUser(ctx, login)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.organizations[organization]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrganizationNotFound, organization)
	}
	org.Members = parse.AddLogin(org.Members, user.Login)
	s.organizations[organization] = org
	return nil
}

// RemoveMember drops login from the organization's members.
func (s *UserStore) RemoveMember(organization, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.organizations[organization]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrganizationNotFound, organization)
	}
	org.Members = removeLogin(org.Members, login)
	s.organizations[organization] = org
	return nil
}

// RemoveLabel drops a label from the repository and from the issues carrying it.
func (s *UserStore) RemoveLabel(organization, repository string, payload gh.LabelPayload) error {
	label := parse.LabelFromWebhook(payload)
	key := domain.RepositoryKey{Organization: organization, Name: repository}

	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repositories[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRepositoryNotCached, key)
	}
	repo.Labels = removeLabel(repo.Labels, label.ID)
	s.repositories[key] = repo

	s.patchIssueLabels(key, func(labels []domain.Label) []domain.Label {
		return removeLabel(labels, label.ID)
	})
	return nil
}

// UpdateOrAddLabel replaces the repository label with the same id, or appends it.
// Issues carrying the label get the new name and color.
func (s *UserStore) UpdateOrAddLabel(organization, repository string, payload gh.LabelPayload) error {
	label := parse.LabelFromWebhook(payload)
	key := domain.RepositoryKey{Organization: organization, Name: repository}

	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repositories[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRepositoryNotCached, key)
	}
	repo.Labels = upsertLabel(repo.Labels, label)
	s.repositories[key] = repo

	s.patchIssueLabels(key, func(labels []domain.Label) []domain.Label {
		return replaceLabel(labels, label)
	})
	return nil
}

// patchIssueLabels rewrites the labels of every cached issue of key and re-derives. Caller holds the lock.
func (s *UserStore) patchIssueLabels(key domain.RepositoryKey, patch func([]domain.Label) []domain.Label) {
	list, ok := s.issues[key]
	if !ok {
		return
	}
	pctx := s.parseContext(s.memberLogins(key.Organization))
	out := make([]domain.Issue, len(list))
	for i, issue := range list {
		issue = cloneIssue(issue)
		issue.Labels = patch(issue.Labels)
		parse.Derive(&issue, pctx)
		out[i] = issue
	}
	s.issues[key] = out
}

// RemoveIssue drops the issue from the repository's cached list.
func (s *UserStore) RemoveIssue(organization, repository string, payload gh.IssuePayload) error {
	key := domain.RepositoryKey{Organization: organization, Name: repository}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.issues[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIssuesNotCached, key)
	}
	s.issues[key] = removeIssue(list, payload.NodeID)
	return nil
}

// UpdateOrAddIssue merges the payload into the repository's cached list,
// replacing the issue with the same id or appending it.
func (s *UserStore) UpdateOrAddIssue(ctx context.Context, organization, repository string, payload gh.IssuePayload) error {
	key := domain.RepositoryKey{Organization: organization, Name: repository}

	s.mu.RLock()
	_, cached := s.issues[key]
	s.mu.RUnlock()
	if !cached {
		return fmt.Errorf("%w: %s", ErrIssuesNotCached, key)
	}

	org, err := s.GetOrganization(ctx, organization)
	if err != nil {
		return err
	}

	pctx := s.parseContext(org.Members)
	incoming, assignees := parse.IssueFromWebhook(payload, pctx)
	for _, u := range assignees {
		s.UpdateOrAddUser(u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.issues[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIssuesNotCached, key)
	}
	s.issues[key] = upsertIssue(list, incoming, pctx)
	return nil
}

// UpdateIssueLabels applies a label mutation upstream and patches the cached issue.
func (s *UserStore) UpdateIssueLabels(ctx context.Context, key domain.RepositoryKey, issueID string, add, remove []string) (domain.Issue, error) {
	nodes, err := s.client.UpdateIssueLabels(ctx, issueID, add, remove)
	if err != nil {
		return domain.Issue{}, err
	}

	labels := make([]domain.Label, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, parse.LabelFromQuery(n))
	}

	return s.patchIssue(key, issueID, func(issue *domain.Issue) {
		issue.Labels = labels
	})
}

// UpdateAssignees applies an assignee mutation upstream and patches the cached issue.
func (s *UserStore) UpdateAssignees(ctx context.Context, key domain.RepositoryKey, issueID string, add, remove []string) (domain.Issue, error) {
	nodes, err := s.client.UpdateAssignees(ctx, issueID, add, remove)
	if err != nil {
		return domain.Issue{}, err
	}

	logins := make([]string, 0, len(nodes))
	for _, n := range nodes {
		user := s.UpdateOrAddUser(parse.UserFromQuery(n))
		logins = parse.AddLogin(logins, user.Login)
	}

	return s.patchIssue(key, issueID, func(issue *domain.Issue) {
		issue.Assignees = logins
	})
}

// patchIssue edits a cached issue and re-derives it. Returns ErrIssueNotFound
// when the issue is not cached.
func (s *UserStore) patchIssue(key domain.RepositoryKey, issueID string, edit func(*domain.Issue)) (domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.issues[key]
	if !ok {
		return domain.Issue{}, fmt.Errorf("%w: %s", ErrIssuesNotCached, key)
	}
	for i, issue := range list {
		if issue.ID != issueID {
			continue
		}
		issue = cloneIssue(issue)
		edit(&issue)
		parse.Derive(&issue, s.parseContext(s.memberLogins(key.Organization)))

		out := cloneSlice(list)
		out[i] = issue
		s.issues[key] = out
		return cloneIssue(issue), nil
	}
	return domain.Issue{}, fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
}

// Pure helpers. None of them mutate their inputs.

func mergeUser(existing, incoming domain.User) domain.User {
	merged := existing
	if incoming.ID != "" {
		merged.ID = incoming.ID
	}
	if incoming.Name != nil {
		merged.Name = incoming.Name
	}
	if incoming.AvatarURL != "" {
		merged.AvatarURL = incoming.AvatarURL
	}
	return merged
}

func removeLogin(logins []string, login string) []string {
	out := make([]string, 0, len(logins))
	for _, l := range logins {
		if l != login {
			out = append(out, l)
		}
	}
	return out
}

func removeLabel(labels []domain.Label, id string) []domain.Label {
	out := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

func upsertLabel(labels []domain.Label, label domain.Label) []domain.Label {
	for i, l := range labels {
		if l.ID == label.ID {
			out := cloneSlice(labels)
			out[i] = label
			return out
		}
	}
	return append(cloneSlice(labels), label)
}

// replaceLabel updates a label in place if present and never appends.
func replaceLabel(labels []domain.Label, label domain.Label) []domain.Label {
	out := cloneSlice(labels)
	for i, l := range out {
		if l.ID == label.ID {
			out[i] = label
		}
	}
	return out
}

func removeIssue(issues []domain.Issue, id string) []domain.Issue {
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.ID != id {
			out = append(out, issue)
		}
	}
	return out
}

// upsertIssue replaces the issue with incoming's id or appends incoming.
// Webhook payloads carry no project columns, so a replaced issue keeps its columns.
func upsertIssue(issues []domain.Issue, incoming domain.Issue, pctx parse.Context) []domain.Issue {
	out := cloneSlice(issues)
	for i, existing := range out {
		if existing.ID != incoming.ID {
			continue
		}
		merged := incoming
		if merged.Columns == nil {
			merged.Columns = existing.Columns
		}
		parse.Derive(&merged, pctx)
		out[i] = merged
		return out
	}
	return append(out, incoming)
}

func cloneOrganization(org domain.Organization) domain.Organization {
	org.Members = cloneSlice(org.Members)
	return org
}

func cloneRepository(repo domain.Repository) domain.Repository {
	repo.Labels = cloneSlice(repo.Labels)
	return repo
}

func cloneIssue(issue domain.Issue) domain.Issue {
	issue.Assignees = cloneSlice(issue.Assignees)
	issue.Labels = cloneSlice(issue.Labels)
	issue.Columns = cloneSlice(issue.Columns)
	issue.Projects = cloneSlice(issue.Projects)
	return issue
}

// cloneSlice copies s, keeping nil and empty distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
