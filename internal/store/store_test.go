package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/leander/internal/apperror"
	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/parse"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeUpstream serves fixed nodes and counts calls per method.
type fakeUpstream struct {
	mu sync.Mutex

	users  map[string]gh.UserNode
	viewer gh.UserNode
	orgs   map[string]gh.OrganizationNode
	repos  map[string]gh.RepositoryNode
	pages  map[string][]gh.IssuesPage // repo key -> pages in order
	labels []gh.LabelNode
	people []gh.UserNode

	failPage int // page index that fails, -1 for none
	err      error
	calls    map[string]int
	cursors  []string

	// When hold is set, User signals started and waits for hold to close.
	hold      chan struct{}
	started   chan struct{}
	startOnce sync.Once
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		users:    make(map[string]gh.UserNode),
		orgs:     make(map[string]gh.OrganizationNode),
		repos:    make(map[string]gh.RepositoryNode),
		pages:    make(map[string][]gh.IssuesPage),
		failPage: -1,
		err:      errors.New("boom"),
		calls:    make(map[string]int),
	}
}

func (f *fakeUpstream) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeUpstream) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeUpstream) User(ctx context.Context, login string) (gh.UserNode, error) {
	f.record("User")
	if f.hold != nil {
		f.startOnce.Do(func() { close(f.started) })
		select {
		case <-f.hold:
		case <-ctx.Done():
			return gh.UserNode{}, ctx.Err()
		}
	}
	u, ok := f.users[login]
	if !ok {
		return gh.UserNode{}, apperror.NotFound("user", login)
	}
	return u, nil
}

func (f *fakeUpstream) Viewer(ctx context.Context) (gh.UserNode, error) {
	f.record("Viewer")
	return f.viewer, nil
}

func (f *fakeUpstream) Organization(ctx context.Context, login string) (gh.OrganizationNode, error) {
	f.record("Organization")
	o, ok := f.orgs[login]
	if !ok {
		return gh.OrganizationNode{}, apperror.NotFound("organization", login)
	}
	return o, nil
}

func (f *fakeUpstream) Repository(ctx context.Context, owner, name string) (gh.RepositoryNode, error) {
	f.record("Repository")
	r, ok := f.repos[owner+":"+name]
	if !ok {
		return gh.RepositoryNode{}, apperror.NotFound("repository", owner+"/"+name)
	}
	return r, nil
}

func (f *fakeUpstream) IssuesPage(ctx context.Context, owner, name, after string) (gh.IssuesPage, error) {
	f.record("IssuesPage")
	f.mu.Lock()
	f.cursors = append(f.cursors, after)
	f.mu.Unlock()

	pages := f.pages[owner+":"+name]
	idx := 0
	if after != "" {
		_, err := fmt.Sscanf(after, "cursor-%d", &idx)
		if err != nil {
			return gh.IssuesPage{}, err
		}
	}
	if idx == f.failPage {
		return gh.IssuesPage{}, f.err
	}
	return pages[idx], nil
}

func (f *fakeUpstream) UpdateIssueLabels(ctx context.Context, issueID string, add, remove []string) ([]gh.LabelNode, error) {
	f.record("UpdateIssueLabels")
	return f.labels, nil
}

func (f *fakeUpstream) UpdateAssignees(ctx context.Context, issueID string, add, remove []string) ([]gh.UserNode, error) {
	f.record("UpdateAssignees")
	return f.people, nil
}

// Test fixtures

func strPtr(s string) *string { return &s }

func createTestUpstream() *fakeUpstream {
	f := newFakeUpstream()
	f.users["alice"] = gh.UserNode{ID: "U_alice", Login: "alice", Name: strPtr("Alice"), AvatarURL: "https://a/alice"}
	f.users["bob"] = gh.UserNode{ID: "U_bob", Login: "bob", AvatarURL: "https://a/bob"}
	f.users["dave"] = gh.UserNode{ID: "U_dave", Login: "dave", AvatarURL: "https://a/dave"}
	f.viewer = f.users["alice"]
	f.orgs["acme"] = gh.OrganizationNode{
		ID:    "O_acme",
		Login: "acme",
		Name:  strPtr("Acme"),
		MembersWithRole: gh.UserConnection{Nodes: []gh.UserNode{
			f.users["alice"], f.users["bob"],
		}},
	}
	f.repos["acme:widgets"] = gh.RepositoryNode{
		ID:   "R_widgets",
		Name: "widgets",
		Labels: gh.LabelConnection{Nodes: []gh.LabelNode{
			{ID: "L_bug", Name: "bug", Color: "d73a4a"},
			{ID: "L_p1", Name: "p1", Color: "ff0000"},
		}},
	}
	f.pages["acme:widgets"] = []gh.IssuesPage{{
		PageInfo: gh.PageInfo{HasNextPage: false},
		Nodes:    []gh.IssueNode{createTestIssueNode()},
	}}
	return f
}

// createTestIssueNode is acme/widgets#7: labels bug and p1, authored by carol, assigned to alice.
func createTestIssueNode() gh.IssueNode {
	return gh.IssueNode{
		ID:        "I_7",
		Number:    7,
		Title:     "Crash on save",
		State:     "OPEN",
		CreatedAt: testNow.Add(-72 * time.Hour),
		UpdatedAt: testNow.Add(-2 * time.Hour),
		Author:    &gh.UserNode{Login: "carol"},
		Labels: gh.LabelConnection{Nodes: []gh.LabelNode{
			{ID: "L_bug", Name: "bug", Color: "d73a4a"},
			{ID: "L_p1", Name: "p1", Color: "ff0000"},
		}},
		Assignees: gh.UserConnection{Nodes: []gh.UserNode{{ID: "U_alice", Login: "alice"}}},
	}
}

func createTestIssuePayload() gh.IssuePayload {
	return gh.IssuePayload{
		NodeID:    "I_7",
		Number:    7,
		Title:     "Crash on save",
		State:     "open",
		CreatedAt: testNow.Add(-72 * time.Hour),
		UpdatedAt: testNow.Add(-1 * time.Hour),
		User:      &gh.UserPayload{Login: "carol"},
		Assignees: []gh.UserPayload{{NodeID: "U_alice", Login: "alice"}},
		Labels: []gh.LabelPayload{
			{NodeID: "L_bug", Name: "bug", Color: "d73a4a"},
			{NodeID: "L_p1", Name: "p1", Color: "ff0000"},
		},
	}
}

func createTestStore(f *fakeUpstream, opts ...Option) *UserStore {
	opts = append([]Option{WithNowFunc(func() time.Time { return testNow })}, opts...)
	return New(f, opts...)
}

// loadWidgets caches acme, acme/widgets and its issues.
func loadWidgets(t *testing.T, s *UserStore) domain.Repository {
	t.Helper()
	ctx := context.Background()
	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	repo, err := s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)
	_, err = s.GetIssues(ctx, repo)
	require.NoError(t, err)
	return repo
}

func TestGetUser(t *testing.T) {
	t.Run("fetches once then serves from cache", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)

		u1, err := s.GetUser(context.Background(), "bob")
		require.NoError(t, err)
		u2, err := s.GetUser(context.Background(), "bob")
		require.NoError(t, err)

		assert.Equal(t, u1, u2)
		assert.Equal(t, "U_bob", u1.ID)
		assert.Equal(t, 1, f.count("User"))
	})

	t.Run("upstream error is returned unchanged and nothing is cached", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)

		_, err := s.GetUser(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
		assert.Equal(t, 0, s.Snapshot().Users)
	})
}

func TestGetUser_ConcurrentMissesCollapse(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.GetUser(context.Background(), "dave")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Snapshot().Users)
	assert.LessOrEqual(t, f.count("User"), 20)
}

func TestGetUser_SharedFetchSurvivesCallerCancel(t *testing.T) {
	f := createTestUpstream()
	f.hold = make(chan struct{})
	f.started = make(chan struct{})
	s := createTestStore(f)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.GetUser(ctxA, "dave")
		errA <- err
	}()
	<-f.started

	type result struct {
		user domain.User
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		u, err := s.GetUser(context.Background(), "dave")
		resB <- result{u, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(f.hold)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "dave", b.user.Login)
	assert.Equal(t, 1, s.Snapshot().Users)
}

func TestGetViewer(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)

	v, err := s.GetViewer(context.Background())
	require.NoError(t, err)
	_, err = s.GetViewer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "alice", v.Login)
	assert.Equal(t, 1, f.count("Viewer"))

	// The viewer is also a regular user entry.
	u, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, v, u)
	assert.Equal(t, 0, f.count("User"))
}

func TestGetOrganization(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)

	org, err := s.GetOrganization(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "O_acme", org.ID)
	assert.Equal(t, []string{"alice", "bob"}, org.Members)
	assert.Equal(t, 2, s.Snapshot().Users)

	_, err = s.GetOrganization(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("Organization"))

	// Members are cached users; no user queries needed.
	_, err = s.GetUser(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, f.count("User"))
}

func TestGetRepository(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	ctx := context.Background()

	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	repo, err := s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)

	assert.Equal(t, "acme", repo.Organization)
	assert.Len(t, repo.Labels, 2)
	assert.True(t, s.HasRepository("acme", "widgets"))

	// Returned copies do not alias the cache.
	repo.Labels[0].Name = "mutated"
	again, err := s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)
	assert.Equal(t, "bug", again.Labels[0].Name)
	assert.Equal(t, 1, f.count("Repository"))
}

func TestGetIssues_EndToEnd(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)

	repo := loadWidgets(t, s)
	issues, err := s.GetIssues(context.Background(), repo)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, 7, issue.Number)
	assert.Equal(t, domain.SeverityBug, *issue.Severity)
	assert.Equal(t, domain.PriorityP1, *issue.Priority)
	assert.Equal(t, domain.SourceInternal, issue.Source)
	assert.True(t, issue.Assigned)
	assert.True(t, issue.Triaged)
	assert.Equal(t, 72*time.Hour, issue.Age)
	assert.Equal(t, 1, f.count("IssuesPage"))
}

func TestGetIssues_Pagination(t *testing.T) {
	makePage := func(start, n int, next bool, cursor string) gh.IssuesPage {
		page := gh.IssuesPage{PageInfo: gh.PageInfo{HasNextPage: next, EndCursor: cursor}}
		for i := 0; i < n; i++ {
			num := start + i
			page.Nodes = append(page.Nodes, gh.IssueNode{
				ID:     fmt.Sprintf("I_%d", num),
				Number: num,
				Title:  fmt.Sprintf("issue %d", num),
				State:  "OPEN",
			})
		}
		return page
	}

	t.Run("accumulates 100/100/40 in page order", func(t *testing.T) {
		f := createTestUpstream()
		f.pages["acme:widgets"] = []gh.IssuesPage{
			makePage(1, 100, true, "cursor-1"),
			makePage(101, 100, true, "cursor-2"),
			makePage(201, 40, false, ""),
		}
		s := createTestStore(f)

		repo := loadWidgets(t, s)
		issues, err := s.GetIssues(context.Background(), repo)
		require.NoError(t, err)

		require.Len(t, issues, 240)
		for i, issue := range issues {
			assert.Equal(t, i+1, issue.Number)
		}
		assert.Equal(t, 3, f.count("IssuesPage"))
		assert.Equal(t, []string{"", "cursor-1", "cursor-2"}, f.cursors)
	})

	t.Run("a failed page caches nothing and a retry restarts", func(t *testing.T) {
		f := createTestUpstream()
		f.pages["acme:widgets"] = []gh.IssuesPage{
			makePage(1, 100, true, "cursor-1"),
			makePage(101, 100, true, "cursor-2"),
			makePage(201, 40, false, ""),
		}
		f.failPage = 2
		s := createTestStore(f)
		ctx := context.Background()

		org, err := s.GetOrganization(ctx, "acme")
		require.NoError(t, err)
		repo, err := s.GetRepository(ctx, org, "widgets")
		require.NoError(t, err)

		_, err = s.GetIssues(ctx, repo)
		require.Error(t, err)
		assert.Same(t, f.err, err)
		assert.Equal(t, 0, s.Snapshot().IssueLists)

		f.failPage = -1
		issues, err := s.GetIssues(ctx, repo)
		require.NoError(t, err)
		assert.Len(t, issues, 240)
		assert.Equal(t, []string{"", "cursor-1", "cursor-2", "", "cursor-1", "cursor-2"}, f.cursors)
	})
}

func TestUpdateOrAddUser(t *testing.T) {
	s := createTestStore(createTestUpstream())

	first := s.UpdateOrAddUser(domain.User{ID: "U_erin", Login: "erin", Name: strPtr("Erin"), AvatarURL: "https://a/erin"})
	merged := s.UpdateOrAddUser(domain.User{Login: "erin"})

	assert.Equal(t, first, merged, "empty fields keep existing values")

	updated := s.UpdateOrAddUser(domain.User{Login: "erin", AvatarURL: "https://a/erin2"})
	assert.Equal(t, "https://a/erin2", updated.AvatarURL)
	assert.Equal(t, "Erin", *updated.Name)

	again := s.UpdateOrAddUser(domain.User{Login: "erin", AvatarURL: "https://a/erin2"})
	assert.Equal(t, updated, again, "merging the same record twice is idempotent")
	assert.Equal(t, 1, s.Snapshot().Users)
}

func TestRemoveOrganization_Cascades(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	loadWidgets(t, s)

	s.RemoveOrganization("acme")

	stats := s.Snapshot()
	assert.Equal(t, 0, stats.Organizations)
	assert.Equal(t, 0, stats.Repositories)
	assert.Equal(t, 0, stats.IssueLists)
	assert.False(t, s.HasRepository("acme", "widgets"))

	// Users are never deleted.
	assert.Equal(t, 2, stats.Users)

	// Next access is a cache miss.
	org, err := s.GetOrganization(context.Background(), "acme")
	require.NoError(t, err)
	_, err = s.GetRepository(context.Background(), org, "widgets")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("Organization"))
	assert.Equal(t, 2, f.count("Repository"))
}

func TestRenameOrganization(t *testing.T) {
	t.Run("repoints repositories and issue lists", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)
		loadWidgets(t, s)

		renamed := f.orgs["acme"]
		renamed.Login = "acme-corp"
		f.orgs["acme-corp"] = renamed

		err := s.RenameOrganization(context.Background(), "O_acme", "acme-corp")
		require.NoError(t, err)

		assert.False(t, s.HasRepository("acme", "widgets"))
		assert.True(t, s.HasRepository("acme-corp", "widgets"))
		assert.True(t, s.HasOrganizationID("O_acme"))

		org, err := s.GetOrganization(context.Background(), "acme-corp")
		require.NoError(t, err)
		repo, err := s.GetRepository(context.Background(), org, "widgets")
		require.NoError(t, err)
		issues, err := s.GetIssues(context.Background(), repo)
		require.NoError(t, err)
		assert.Len(t, issues, 1)
		assert.Equal(t, 1, f.count("IssuesPage"), "issue list moved, not refetched")
	})

	t.Run("unknown id is an error", func(t *testing.T) {
		s := createTestStore(createTestUpstream())

		err := s.RenameOrganization(context.Background(), "O_missing", "whatever")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOrganizationNotFound))
	})
}

func TestMembers(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	ctx := context.Background()
	_, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, s.AddMember(ctx, "acme", "dave"))
	require.NoError(t, s.AddMember(ctx, "acme", "dave"))

	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "dave"}, org.Members)

	require.NoError(t, s.RemoveMember("acme", "bob"))
	org, err = s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "dave"}, org.Members)

	err = s.RemoveMember("other", "bob")
	assert.True(t, errors.Is(err, ErrOrganizationNotFound))
	assert.True(t, IsSoft(err))
}

func TestLabels(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	repo := loadWidgets(t, s)
	ctx := context.Background()

	t.Run("update renames the label on issues too", func(t *testing.T) {
		err := s.UpdateOrAddLabel("acme", "widgets", gh.LabelPayload{NodeID: "L_p1", Name: "p0", Color: "000000"})
		require.NoError(t, err)

		issues, err := s.GetIssues(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, domain.PriorityP0, *issues[0].Priority)
	})

	t.Run("absent label is appended", func(t *testing.T) {
		err := s.UpdateOrAddLabel("acme", "widgets", gh.LabelPayload{NodeID: "L_new", Name: "size/2"})
		require.NoError(t, err)

		org, _ := s.GetOrganization(ctx, "acme")
		r, err := s.GetRepository(ctx, org, "widgets")
		require.NoError(t, err)
		assert.Len(t, r.Labels, 3)

		issues, _ := s.GetIssues(ctx, repo)
		assert.Nil(t, issues[0].Size, "issues do not gain labels from repository events")
	})

	t.Run("remove drops the label from issues", func(t *testing.T) {
		err := s.RemoveLabel("acme", "widgets", gh.LabelPayload{NodeID: "L_bug"})
		require.NoError(t, err)

		issues, err := s.GetIssues(ctx, repo)
		require.NoError(t, err)
		assert.Nil(t, issues[0].Severity)
		assert.Len(t, issues[0].Labels, 1)
	})

	t.Run("uncached repository is soft", func(t *testing.T) {
		err := s.RemoveLabel("acme", "gadgets", gh.LabelPayload{NodeID: "L_bug"})
		assert.True(t, errors.Is(err, ErrRepositoryNotCached))
		assert.True(t, IsSoft(err))
	})
}

func TestUpdateOrAddIssue(t *testing.T) {
	t.Run("replaces by id and keeps identity fields", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)
		repo := loadWidgets(t, s)

		payload := createTestIssuePayload()
		payload.Labels = append(payload.Labels, gh.LabelPayload{NodeID: "L_size", Name: "size/5"})
		payload.Comments = 3

		require.NoError(t, s.UpdateOrAddIssue(context.Background(), "acme", "widgets", payload))

		issues, err := s.GetIssues(context.Background(), repo)
		require.NoError(t, err)
		require.Len(t, issues, 1)

		issue := issues[0]
		assert.Equal(t, "I_7", issue.ID)
		assert.Equal(t, 7, issue.Number)
		assert.Equal(t, "Crash on save", issue.Title)
		assert.Equal(t, 5, *issue.Size)
		assert.Equal(t, 3, issue.Activity)
		assert.Equal(t, time.Hour, issue.Updated)
	})

	t.Run("same payload twice is idempotent", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)
		repo := loadWidgets(t, s)
		ctx := context.Background()

		require.NoError(t, s.UpdateOrAddIssue(ctx, "acme", "widgets", createTestIssuePayload()))
		once, err := s.GetIssues(ctx, repo)
		require.NoError(t, err)
		require.NoError(t, s.UpdateOrAddIssue(ctx, "acme", "widgets", createTestIssuePayload()))
		twice, err := s.GetIssues(ctx, repo)
		require.NoError(t, err)

		assert.Equal(t, once, twice)
	})

	t.Run("unknown id is appended", func(t *testing.T) {
		f := createTestUpstream()
		s := createTestStore(f)
		repo := loadWidgets(t, s)

		payload := createTestIssuePayload()
		payload.NodeID = "I_8"
		payload.Number = 8
		payload.Assignees = []gh.UserPayload{{NodeID: "U_zed", Login: "zed"}}
		require.NoError(t, s.UpdateOrAddIssue(context.Background(), "acme", "widgets", payload))

		issues, err := s.GetIssues(context.Background(), repo)
		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, 8, issues[1].Number)
		assert.Equal(t, domain.SourceExternal, issues[1].Source)

		// Assignees become cached users.
		_, err = s.GetUser(context.Background(), "zed")
		require.NoError(t, err)
		assert.Equal(t, 0, f.count("User"))
	})

	t.Run("keeps the project column the payload lacks", func(t *testing.T) {
		f := createTestUpstream()
		node := createTestIssueNode()
		node.ProjectItems.Nodes = []gh.ProjectItemNode{{Status: &struct {
			Name string `json:"name"`
		}{Name: "In Progress"}}}
		f.pages["acme:widgets"][0].Nodes = []gh.IssueNode{node}
		s := createTestStore(f, WithPolicy(parse.Policy{StrictTriage: true}))
		repo := loadWidgets(t, s)

		require.NoError(t, s.UpdateOrAddIssue(context.Background(), "acme", "widgets", createTestIssuePayload()))

		issues, err := s.GetIssues(context.Background(), repo)
		require.NoError(t, err)
		assert.Equal(t, "In Progress", *issues[0].Phase)
		assert.True(t, issues[0].Triaged)
	})

	t.Run("uncached list is skipped", func(t *testing.T) {
		s := createTestStore(createTestUpstream())

		err := s.UpdateOrAddIssue(context.Background(), "acme", "widgets", createTestIssuePayload())
		assert.True(t, errors.Is(err, ErrIssuesNotCached))
		assert.Equal(t, 0, s.Snapshot().IssueLists)
	})
}

func TestRemoveIssue(t *testing.T) {
	s := createTestStore(createTestUpstream())
	repo := loadWidgets(t, s)

	require.NoError(t, s.RemoveIssue("acme", "widgets", gh.IssuePayload{NodeID: "I_7"}))
	require.NoError(t, s.RemoveIssue("acme", "widgets", gh.IssuePayload{NodeID: "I_7"}))

	issues, err := s.GetIssues(context.Background(), repo)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestMutations(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	repo := loadWidgets(t, s)
	ctx := context.Background()

	f.labels = []gh.LabelNode{{ID: "L_enh", Name: "enhancement"}, {ID: "L_p2", Name: "p2"}}
	issue, err := s.UpdateIssueLabels(ctx, repo.Key(), "I_7", []string{"L_enh", "L_p2"}, []string{"L_bug", "L_p1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityFeature, *issue.Severity)
	assert.Equal(t, domain.PriorityP2, *issue.Priority)

	f.people = []gh.UserNode{{ID: "U_zed", Login: "zed"}}
	issue, err = s.UpdateAssignees(ctx, repo.Key(), "I_7", []string{"U_zed"}, []string{"U_alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zed"}, issue.Assignees)
	assert.Equal(t, domain.SourceExternal, issue.Source)

	issues, err := s.GetIssues(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, issue, issues[0])

	_, err = s.UpdateAssignees(ctx, repo.Key(), "I_404", nil, nil)
	assert.True(t, errors.Is(err, ErrIssueNotFound))
}

func TestInvalidateIssues(t *testing.T) {
	f := createTestUpstream()
	s := createTestStore(f)
	repo := loadWidgets(t, s)

	s.InvalidateIssues(repo.Key())
	_, err := s.GetIssues(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, 2, f.count("IssuesPage"))
}
