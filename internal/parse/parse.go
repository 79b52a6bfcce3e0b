// Package parse converts upstream query nodes and webhook payloads into domain entities.
// Every function is pure: the same input and clock always produce the same entity.
package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/gh"
)

// Policy selects between behaviors that differed across deployments.
type Policy struct {
	// SeverityDefault is used when an issue has neither a bug nor an enhancement label.
	// Empty leaves severity unset; domain.SeverityUnknown reports "unknown".
	SeverityDefault domain.Severity
	// StrictTriage additionally requires the issue to sit in a project column.
	StrictTriage bool
	// SourceByAuthor classifies source by the issue author instead of the assignees.
	SourceByAuthor bool
}

// Context is what issue parsing needs besides the issue itself.
type Context struct {
	Members []string // Organization member logins
	Policy  Policy
	Now     time.Time
}

func UserFromQuery(n gh.UserNode) domain.User {
	return domain.User{
		ID:        n.ID,
		Login:     n.Login,
		Name:      n.Name,
		AvatarURL: n.AvatarURL,
	}
}

func UserFromWebhook(p gh.UserPayload) domain.User {
	return domain.User{
		ID:        p.NodeID,
		Login:     p.Login,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}

// OrganizationFromQuery returns the organization and its members as users.
func OrganizationFromQuery(n gh.OrganizationNode) (domain.Organization, []domain.User) {
	org := domain.Organization{
		ID:      n.ID,
		Login:   n.Login,
		Name:    n.Name,
		Members: make([]string, 0, len(n.MembersWithRole.Nodes)),
	}
	users := make([]domain.User, 0, len(n.MembersWithRole.Nodes))

	for _, m := range n.MembersWithRole.Nodes {
		users = append(users, UserFromQuery(m))
		org.Members = AddLogin(org.Members, m.Login)
	}

	return org, users
}

func RepositoryFromQuery(n gh.RepositoryNode, organization string) domain.Repository {
	repo := domain.Repository{
		ID:           n.ID,
		Name:         n.Name,
		Organization: organization,
		Labels:       make([]domain.Label, 0, len(n.Labels.Nodes)),
	}
	for _, l := range n.Labels.Nodes {
		repo.Labels = append(repo.Labels, LabelFromQuery(l))
	}
	return repo
}

func LabelFromQuery(n gh.LabelNode) domain.Label {
	return domain.Label{ID: n.ID, Name: n.Name, Color: n.Color}
}

func LabelFromWebhook(p gh.LabelPayload) domain.Label {
	return domain.Label{ID: p.NodeID, Name: p.Name, Color: p.Color}
}

// AddLogin appends login unless it is already present.
func AddLogin(logins []string, login string) []string {
	for _, l := range logins {
		if l == login {
			return logins
		}
	}
	return append(logins, login)
}

// issueSource is the shape both issue representations are reduced to before building.
type issueSource struct {
	id        string
	number    int
	title     string
	state     string
	createdAt time.Time
	updatedAt time.Time
	author    string
	comments  int
	labels    []domain.Label
	assignees []domain.User
	columns   []string
}

// IssueFromQuery builds an issue from a query node. The returned users are the
// issue's assignees, to be merged into the store.
func IssueFromQuery(n gh.IssueNode, ctx Context) (domain.Issue, []domain.User) {
	src := issueSource{
		id:        n.ID,
		number:    n.Number,
		title:     n.Title,
		state:     n.State,
		createdAt: n.CreatedAt,
		updatedAt: n.UpdatedAt,
		comments:  n.Comments.TotalCount,
	}
	if n.Author != nil {
		src.author = n.Author.Login
	}
	for _, l := range n.Labels.Nodes {
		src.labels = append(src.labels, LabelFromQuery(l))
	}
	for _, a := range n.Assignees.Nodes {
		src.assignees = append(src.assignees, UserFromQuery(a))
	}
	for _, item := range n.ProjectItems.Nodes {
		if item.Status != nil && item.Status.Name != "" {
			src.columns = append(src.columns, item.Status.Name)
		}
	}
	return buildIssue(src, ctx)
}

// IssueFromWebhook builds an issue from a webhook payload. Payloads carry no
// project data, so Columns is nil.
func IssueFromWebhook(p gh.IssuePayload, ctx Context) (domain.Issue, []domain.User) {
	src := issueSource{
		id:        p.NodeID,
		number:    p.Number,
		title:     p.Title,
		state:     p.State,
		createdAt: p.CreatedAt,
		updatedAt: p.UpdatedAt,
		comments:  p.Comments,
	}
	if p.User != nil {
		src.author = p.User.Login
	}
	for _, l := range p.Labels {
		src.labels = append(src.labels, LabelFromWebhook(l))
	}
	for _, a := range p.Assignees {
		src.assignees = append(src.assignees, UserFromWebhook(a))
	}
	return buildIssue(src, ctx)
}

func buildIssue(src issueSource, ctx Context) (domain.Issue, []domain.User) {
	issue := domain.Issue{
		ID:        src.id,
		Number:    src.number,
		Title:     src.title,
		Author:    src.author,
		CreatedAt: src.createdAt,
		UpdatedAt: src.updatedAt,
		Status:    Status(src.state),
		Activity:  src.comments,
		Labels:    src.labels,
		Columns:   src.columns,
		Assignees: make([]string, 0, len(src.assignees)),
	}
	if issue.Labels == nil {
		issue.Labels = []domain.Label{}
	}
	for _, a := range src.assignees {
		issue.Assignees = AddLogin(issue.Assignees, a.Login)
	}

	Derive(&issue, ctx)
	return issue, src.assignees
}

// Derive recomputes every derived field of issue from its labels, columns,
// assignees, author and timestamps.
func Derive(issue *domain.Issue, ctx Context) {
	issue.Severity = Severity(issue.Labels, ctx.Policy.SeverityDefault)
	issue.Priority = Priority(issue.Labels)
	issue.Projects = Projects(issue.Labels)
	issue.Size = Size(issue.Labels)
	issue.Phase = Phase(issue.Columns, issue.Labels)
	issue.Assigned = len(issue.Assignees) > 0
	issue.Triaged = Triaged(issue.Labels, issue.Columns, ctx.Policy.StrictTriage)
	if ctx.Policy.SourceByAuthor {
		issue.Source = Source(ctx.Members, []string{issue.Author})
	} else {
		issue.Source = Source(ctx.Members, issue.Assignees)
	}
	Ages(issue, ctx.Now)
}

// Ages sets Age and Updated relative to now.
func Ages(issue *domain.Issue, now time.Time) {
	issue.Age = now.Sub(issue.CreatedAt)
	issue.Updated = now.Sub(issue.UpdatedAt)
}

// Status maps both OPEN (query) and open (webhook) spellings.
func Status(state string) domain.Status {
	if strings.EqualFold(state, string(domain.StatusClosed)) {
		return domain.StatusClosed
	}
	return domain.StatusOpen
}

func Severity(labels []domain.Label, def domain.Severity) *domain.Severity {
	var sev domain.Severity
	switch {
	case hasLabel(labels, "bug"):
		sev = domain.SeverityBug
	case hasLabel(labels, "enhancement"):
		sev = domain.SeverityFeature
	case def != "":
		sev = def
	default:
		return nil
	}
	return &sev
}

// Priority returns the first of p0..p3 present, highest first.
func Priority(labels []domain.Label) *domain.Priority {
	for _, p := range domain.Priorities {
		if hasLabel(labels, string(p)) {
			p := p
			return &p
		}
	}
	return nil
}

// Projects returns the labels named project/... or projects/..., unstripped.
func Projects(labels []domain.Label) []domain.Label {
	projects := []domain.Label{}
	for _, l := range labels {
		if strings.HasPrefix(l.Name, "project/") || strings.HasPrefix(l.Name, "projects/") {
			projects = append(projects, l)
		}
	}
	return projects
}

// Size is the numeric suffix of the first size/ label. A non-numeric suffix yields nil.
func Size(labels []domain.Label) *int {
	suffix, ok := prefixed(labels, "size/")
	if !ok {
		return nil
	}
	size, err := strconv.Atoi(suffix)
	if err != nil {
		return nil
	}
	return &size
}

// Phase is the first project column if the issue sits in one, else the suffix of the first stage/ label.
func Phase(columns []string, labels []domain.Label) *string {
	if len(columns) > 0 {
		phase := columns[0]
		return &phase
	}
	if stage, ok := prefixed(labels, "stage/"); ok {
		return &stage
	}
	return nil
}

// Source is internal when any of logins belongs to an organization member.
func Source(members []string, logins []string) domain.Source {
	for _, login := range logins {
		if login == "" {
			continue
		}
		for _, m := range members {
			if m == login {
				return domain.SourceInternal
			}
		}
	}
	return domain.SourceExternal
}

func Triaged(labels []domain.Label, columns []string, strict bool) bool {
	if strict {
		return len(labels) > 0 && len(columns) > 0
	}
	return len(labels) > 0
}

func hasLabel(labels []domain.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

func prefixed(labels []domain.Label, prefix string) (string, bool) {
	for _, l := range labels {
		if strings.HasPrefix(l.Name, prefix) {
			return strings.TrimPrefix(l.Name, prefix), true
		}
	}
	return "", false
}
