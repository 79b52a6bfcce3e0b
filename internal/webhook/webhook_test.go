package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/leander/internal/apperror"
	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/store"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeUpstream serves acme (alice, bob) and acme/widgets with issue #7.
type fakeUpstream struct {
	viewer   string
	failUser bool
}

func (f *fakeUpstream) User(ctx context.Context, login string) (gh.UserNode, error) {
	if f.failUser {
		return gh.UserNode{}, apperror.Upstream("query user", errors.New("boom"))
	}
	return gh.UserNode{ID: "U_" + login, Login: login}, nil
}

func (f *fakeUpstream) Viewer(ctx context.Context) (gh.UserNode, error) {
	return gh.UserNode{ID: "U_" + f.viewer, Login: f.viewer}, nil
}

func (f *fakeUpstream) Organization(ctx context.Context, login string) (gh.OrganizationNode, error) {
	return gh.OrganizationNode{
		ID:    "O_acme",
		Login: login,
		MembersWithRole: gh.UserConnection{Nodes: []gh.UserNode{
			{ID: "U_alice", Login: "alice"},
			{ID: "U_bob", Login: "bob"},
		}},
	}, nil
}

func (f *fakeUpstream) Repository(ctx context.Context, owner, name string) (gh.RepositoryNode, error) {
	return gh.RepositoryNode{
		ID:     "R_" + name,
		Name:   name,
		Labels: gh.LabelConnection{Nodes: []gh.LabelNode{{ID: "L_bug", Name: "bug"}}},
	}, nil
}

func (f *fakeUpstream) IssuesPage(ctx context.Context, owner, name, after string) (gh.IssuesPage, error) {
	return gh.IssuesPage{Nodes: []gh.IssueNode{{
		ID:        "I_7",
		Number:    7,
		Title:     "Crash on save",
		State:     "OPEN",
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
		Labels:    gh.LabelConnection{Nodes: []gh.LabelNode{{ID: "L_bug", Name: "bug"}}},
	}}}, nil
}

func (f *fakeUpstream) UpdateIssueLabels(ctx context.Context, issueID string, add, remove []string) ([]gh.LabelNode, error) {
	return nil, nil
}

func (f *fakeUpstream) UpdateAssignees(ctx context.Context, issueID string, add, remove []string) ([]gh.UserNode, error) {
	return nil, nil
}

type storeList []*store.UserStore

func (l storeList) Stores() []*store.UserStore { return l }

// createTestStore returns a store with acme, acme/widgets and its issues cached.
func createTestStore(t *testing.T, f *fakeUpstream) *store.UserStore {
	t.Helper()
	s := store.New(f, store.WithNowFunc(func() time.Time { return testNow }))
	ctx := context.Background()

	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	repo, err := s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)
	_, err = s.GetIssues(ctx, repo)
	require.NoError(t, err)
	return s
}

func issues(t *testing.T, s *store.UserStore) []domain.Issue {
	t.Helper()
	ctx := context.Background()
	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	repo, err := s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)
	list, err := s.GetIssues(ctx, repo)
	require.NoError(t, err)
	return list
}

func issuePayload(number int, labels ...string) gh.IssuePayload {
	p := gh.IssuePayload{
		NodeID:    "I_7",
		Number:    number,
		Title:     "Crash on save",
		State:     "open",
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow,
		Assignees: []gh.UserPayload{{NodeID: "U_alice", Login: "alice"}},
	}
	for _, l := range labels {
		p.Labels = append(p.Labels, gh.LabelPayload{NodeID: "L_" + l, Name: l})
	}
	return p
}

var widgets = gh.RepositoryPayload{Name: "widgets", Owner: gh.UserPayload{Login: "acme"}}

func TestDispatcher_Issues(t *testing.T) {
	t.Run("edited issue is patched in every holding store", func(t *testing.T) {
		s1 := createTestStore(t, &fakeUpstream{viewer: "alice"})
		s2 := createTestStore(t, &fakeUpstream{viewer: "bob"})
		other := store.New(&fakeUpstream{viewer: "carol"})
		d := NewDispatcher(storeList{s1, s2, other}, nil)

		res := d.HandleIssues(context.Background(), gh.IssuesEvent{
			Action:     "labeled",
			Issue:      issuePayload(7, "bug", "p0"),
			Repository: widgets,
		})

		assert.Equal(t, Result{Matched: 2}, res)
		for _, s := range []*store.UserStore{s1, s2} {
			list := issues(t, s)
			require.Len(t, list, 1)
			assert.Equal(t, domain.PriorityP0, *list[0].Priority)
			assert.Equal(t, domain.SourceInternal, list[0].Source)
		}
	})

	t.Run("deleted issue is removed", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		res := d.HandleIssues(context.Background(), gh.IssuesEvent{
			Action:       "deleted",
			Issue:        issuePayload(7),
			Repository:   widgets,
			Organization: &gh.OrganizationPayload{NodeID: "O_acme", Login: "acme"},
		})

		assert.Equal(t, 1, res.Matched)
		assert.Empty(t, issues(t, s))
	})
}

func TestDispatcher_IssueComment(t *testing.T) {
	s := createTestStore(t, &fakeUpstream{viewer: "alice"})
	d := NewDispatcher(storeList{s}, nil)

	p := issuePayload(7, "bug")
	p.Comments = 5
	d.HandleIssueComment(context.Background(), gh.IssueCommentEvent{Action: "created", Issue: p, Repository: widgets})

	assert.Equal(t, 5, issues(t, s)[0].Activity)
}

func TestDispatcher_IssueComment_PullRequest(t *testing.T) {
	s := createTestStore(t, &fakeUpstream{viewer: "alice"})
	d := NewDispatcher(storeList{s}, nil)
	before := len(issues(t, s))

	t.Run("decoded event", func(t *testing.T) {
		payload := []byte(`{
			"action": "created",
			"issue": {"node_id": "PR_99", "number": 99, "title": "Fix crash", "state": "open",
				"pull_request": {"url": "https://api.github.com/repos/acme/widgets/pulls/99"}},
			"repository": {"name": "widgets", "owner": {"login": "acme"}}
		}`)

		res, err := d.Dispatch(context.Background(), EventIssueComment, payload)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	})

	t.Run("comment on a cached issue number", func(t *testing.T) {
		p := issuePayload(7, "bug")
		p.Comments = 9
		p.PullRequest = &gh.PullRequestLink{URL: "https://api.github.com/repos/acme/widgets/pulls/7"}

		res := d.HandleIssueComment(context.Background(), gh.IssueCommentEvent{Action: "created", Issue: p, Repository: widgets})
		assert.Equal(t, Result{}, res)
	})

	list := issues(t, s)
	assert.Len(t, list, before)
	for _, issue := range list {
		assert.NotEqual(t, 99, issue.Number)
		assert.NotEqual(t, 9, issue.Activity)
	}
}

func TestDispatcher_Label(t *testing.T) {
	s := createTestStore(t, &fakeUpstream{viewer: "alice"})
	d := NewDispatcher(storeList{s}, nil)

	d.HandleLabel(context.Background(), gh.LabelEvent{
		Action:     "deleted",
		Label:      gh.LabelPayload{NodeID: "L_bug", Name: "bug"},
		Repository: widgets,
	})

	list := issues(t, s)
	assert.Nil(t, list[0].Severity)
	assert.False(t, list[0].Triaged)
}

func TestDispatcher_Organization(t *testing.T) {
	acme := gh.OrganizationPayload{NodeID: "O_acme", Login: "acme"}

	t.Run("member added", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		res := d.HandleOrganization(context.Background(), gh.OrganizationEvent{
			Action:       "member_added",
			Membership:   &gh.MembershipPayload{User: gh.UserPayload{Login: "dave"}},
			Organization: acme,
		})

		assert.Equal(t, Result{Matched: 1}, res)
		org, err := s.GetOrganization(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "dave"}, org.Members)
	})

	t.Run("viewer removed drops the organization", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "bob"})
		d := NewDispatcher(storeList{s}, nil)

		d.HandleOrganization(context.Background(), gh.OrganizationEvent{
			Action:       "member_removed",
			Membership:   &gh.MembershipPayload{User: gh.UserPayload{Login: "bob"}},
			Organization: acme,
		})

		assert.False(t, s.HasOrganizationID("O_acme"))
		assert.False(t, s.HasRepository("acme", "widgets"))
	})

	t.Run("other member removed keeps the organization", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		d.HandleOrganization(context.Background(), gh.OrganizationEvent{
			Action:       "member_removed",
			Membership:   &gh.MembershipPayload{User: gh.UserPayload{Login: "bob"}},
			Organization: acme,
		})

		org, err := s.GetOrganization(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, org.Members)
	})

	t.Run("renamed", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		res := d.HandleOrganization(context.Background(), gh.OrganizationEvent{
			Action:       "renamed",
			Organization: gh.OrganizationPayload{NodeID: "O_acme", Login: "acme-corp"},
		})

		assert.Equal(t, Result{Matched: 1}, res)
		assert.True(t, s.HasRepository("acme-corp", "widgets"))
	})

	t.Run("unknown organization matches no store", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		res := d.HandleOrganization(context.Background(), gh.OrganizationEvent{
			Action:       "renamed",
			Organization: gh.OrganizationPayload{NodeID: "O_other", Login: "other"},
		})

		assert.Equal(t, Result{}, res)
	})

	t.Run("ignored actions", func(t *testing.T) {
		s := createTestStore(t, &fakeUpstream{viewer: "alice"})
		d := NewDispatcher(storeList{s}, nil)

		for _, action := range []string{"member_invited", "deleted"} {
			res := d.HandleOrganization(context.Background(), gh.OrganizationEvent{Action: action, Organization: acme})
			assert.Equal(t, Result{}, res, action)
		}
		assert.True(t, s.HasOrganizationID("O_acme"))
	})
}

func TestDispatcher_IsolatesFailingStore(t *testing.T) {
	healthy := createTestStore(t, &fakeUpstream{viewer: "bob"})
	// dave is uncached in both stores; only the failing store's upstream errors.
	failing := store.New(&fakeUpstream{viewer: "alice", failUser: true}, store.WithNowFunc(func() time.Time { return testNow }))
	ctx := context.Background()
	_, err := failing.GetOrganization(ctx, "acme")
	require.NoError(t, err)

	d := NewDispatcher(storeList{failing, healthy}, nil)
	res := d.HandleOrganization(ctx, gh.OrganizationEvent{
		Action:       "member_added",
		Membership:   &gh.MembershipPayload{User: gh.UserPayload{Login: "dave"}},
		Organization: gh.OrganizationPayload{NodeID: "O_acme", Login: "acme"},
	})

	assert.Equal(t, Result{Matched: 2, Failed: 1}, res)
	org, err := healthy.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	assert.Contains(t, org.Members, "dave")
}

func TestDispatcher_UncachedListIsSkipped(t *testing.T) {
	s := store.New(&fakeUpstream{viewer: "alice"})
	ctx := context.Background()
	org, err := s.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	_, err = s.GetRepository(ctx, org, "widgets")
	require.NoError(t, err)

	d := NewDispatcher(storeList{s}, nil)
	res := d.HandleIssues(ctx, gh.IssuesEvent{Action: "opened", Issue: issuePayload(7), Repository: widgets})

	assert.Equal(t, Result{Matched: 1, Skipped: 1}, res)
	assert.Equal(t, 0, s.Snapshot().IssueLists)
}

func TestDispatch_Errors(t *testing.T) {
	d := NewDispatcher(storeList{}, nil)

	_, err := d.Dispatch(context.Background(), "push", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnsupportedEvent))

	_, err = d.Dispatch(context.Background(), EventIssues, []byte(`{not json`))
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

const testSecret = "webhook-secret"

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newDelivery(t *testing.T, event string, body []byte, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	req.Header.Set("X-Hub-Signature-256", sign(body, secret))
	return req
}

func TestHandler(t *testing.T) {
	s := createTestStore(t, &fakeUpstream{viewer: "alice"})
	h := NewHandler([]byte(testSecret), NewDispatcher(storeList{s}, nil), nil)

	body, err := json.Marshal(gh.IssuesEvent{Action: "edited", Issue: issuePayload(7, "p2"), Repository: widgets})
	require.NoError(t, err)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"bad signature", newDelivery(t, EventIssues, body, "wrong-secret"), http.StatusUnauthorized},
		{"ping", newDelivery(t, EventPing, []byte(`{"zen":"hi"}`), testSecret), http.StatusOK},
		{"unknown event", newDelivery(t, "push", []byte(`{}`), testSecret), http.StatusNoContent},
		{"malformed payload", newDelivery(t, EventIssues, []byte(`[1,2`), testSecret), http.StatusBadRequest},
		{"accepted", newDelivery(t, EventIssues, body, testSecret), http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, domain.PriorityP2, *issues(t, s)[0].Priority)
}

func TestHandler_AcceptedBody(t *testing.T) {
	s := createTestStore(t, &fakeUpstream{viewer: "alice"})
	h := NewHandler([]byte(testSecret), NewDispatcher(storeList{s}, nil), nil)

	body, err := json.Marshal(gh.IssuesEvent{Action: "edited", Issue: issuePayload(7), Repository: widgets})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newDelivery(t, EventIssues, body, testSecret))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, Result{Matched: 1}, res)
}
