// Package domain defines the normalized entities Leander caches per credential.
// Relations between entities are identifier references (logins, repository keys),
// never embedded objects, so a webhook delta can patch one record in place.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is a GitHub user. Its identity key within a store is Login.
type User struct {
	ID        string  `json:"id"`    // GitHub node ID
	Login     string  `json:"login"` // Identity key
	Name      *string `json:"name"`  // nil when the user has no display name
	AvatarURL string  `json:"avatarUrl"`
}

// Organization is a GitHub organization. Members holds user logins in first-seen order.
type Organization struct {
	ID      string   `json:"id"`
	Login   string   `json:"login"` // Identity key
	Name    *string  `json:"name"`
	Members []string `json:"members"`
}

// Label is a repository label. Labels are embedded in repositories and copied into issues.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Repository is a GitHub repository, keyed by (Organization, Name).
type Repository struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Organization string  `json:"organization"` // Owning organization login
	Labels       []Label `json:"labels"`
}

// Key returns the repository's identity key.
func (r Repository) Key() RepositoryKey {
	return RepositoryKey{Organization: r.Organization, Name: r.Name}
}

// RepositoryKey identifies a repository within a store.
type RepositoryKey struct {
	Organization string
	Name         string
}

// String renders the key as "organization:name".
func (k RepositoryKey) String() string {
	return k.Organization + ":" + k.Name
}

// Issue is an open (or recently closed) issue of a cached repository.
//
// Severity, Priority, Phase, Projects, Size, Source, Assigned and Triaged are derived
// fields: they are recomputed from Labels, Columns, Assignees and Author whenever any
// of those change and are never edited on their own.
type Issue struct {
	ID        string        `json:"id"` // Identity key within a repository's issue list
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Author    string        `json:"author"` // Empty when the author account was deleted
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Age       time.Duration `json:"age"`     // now - CreatedAt
	Updated   time.Duration `json:"updated"` // now - UpdatedAt
	Status    Status        `json:"status"`
	Assignees []string      `json:"assignees"` // User logins
	Activity  int           `json:"activity"`  // Comment count
	Labels    []Label       `json:"labels"`
	Columns   []string      `json:"columns"` // Project board columns the issue sits in

	Severity *Severity `json:"severity"`
	Priority *Priority `json:"priority"`
	Phase    *string   `json:"phase"`
	Projects []Label   `json:"projects"`
	Size     *int      `json:"size"`
	Source   Source    `json:"source"`
	Assigned bool      `json:"assigned"`
	Triaged  bool      `json:"triaged"`
}

// Status is the issue state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Severity classifies an issue as a bug or a feature request.
type Severity string

const (
	SeverityBug     Severity = "bug"
	SeverityFeature Severity = "feature"
	SeverityUnknown Severity = "unknown"
)

// Priority is one of p0 (highest) to p3.
type Priority string

const (
	PriorityP0 Priority = "p0"
	PriorityP1 Priority = "p1"
	PriorityP2 Priority = "p2"
	PriorityP3 Priority = "p3"
)

// Priorities lists priorities from highest to lowest.
var Priorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// Source tells whether an issue is handled by organization members.
type Source string

const (
	SourceInternal Source = "internal"
	SourceExternal Source = "external"
)

var projectPrefixes = []string{"projects/", "project/"}

// ProjectName strips the "project/" or "projects/" prefix from a project label for display.
func ProjectName(label Label) string {
	for _, prefix := range projectPrefixes {
		if strings.HasPrefix(label.Name, prefix) {
			return strings.TrimPrefix(label.Name, prefix)
		}
	}
	return label.Name
}

// IssueURL returns the github.com URL of an issue.
func IssueURL(organization, repository string, number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/issues/%d", organization, repository, number)
}
