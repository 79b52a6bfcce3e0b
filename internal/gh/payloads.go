package gh

import "time"

// Webhook payload shapes. Only the fields the cache consumes are decoded.

type UserPayload struct {
	NodeID    string  `json:"node_id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL string  `json:"avatar_url"`
}

type LabelPayload struct {
	NodeID string `json:"node_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type IssuePayload struct {
	NodeID    string         `json:"node_id"`
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	State     string         `json:"state"` // open or closed
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	User      *UserPayload   `json:"user"`
	Assignees []UserPayload  `json:"assignees"`
	Labels    []LabelPayload `json:"labels"`
	Comments  int            `json:"comments"`

	// PullRequest is set when the "issue" is a pull request.
	PullRequest *PullRequestLink `json:"pull_request,omitempty"`
}

type PullRequestLink struct {
	URL string `json:"url"`
}

type OrganizationPayload struct {
	NodeID string `json:"node_id"`
	Login  string `json:"login"`
}

type RepositoryPayload struct {
	NodeID string      `json:"node_id"`
	Name   string      `json:"name"`
	Owner  UserPayload `json:"owner"`
}

type MembershipPayload struct {
	User  UserPayload `json:"user"`
	Role  string      `json:"role"`
	State string      `json:"state"`
}

// OrganizationEvent is the "organization" webhook event.
type OrganizationEvent struct {
	Action       string              `json:"action"`
	Membership   *MembershipPayload  `json:"membership"`
	Organization OrganizationPayload `json:"organization"`
}

// LabelEvent is the "label" webhook event.
type LabelEvent struct {
	Action       string               `json:"action"`
	Label        LabelPayload         `json:"label"`
	Repository   RepositoryPayload    `json:"repository"`
	Organization *OrganizationPayload `json:"organization"`
}

// IssuesEvent is the "issues" webhook event.
type IssuesEvent struct {
	Action       string               `json:"action"`
	Issue        IssuePayload         `json:"issue"`
	Repository   RepositoryPayload    `json:"repository"`
	Organization *OrganizationPayload `json:"organization"`
}

// IssueCommentEvent is the "issue_comment" webhook event. The embedded issue
// already carries the updated comment count.
type IssueCommentEvent struct {
	Action       string               `json:"action"`
	Issue        IssuePayload         `json:"issue"`
	Repository   RepositoryPayload    `json:"repository"`
	Organization *OrganizationPayload `json:"organization"`
}

// OrganizationLogin returns the owning organization of a repository event,
// falling back to the repository owner when the payload has no organization.
func OrganizationLogin(org *OrganizationPayload, repo RepositoryPayload) string {
	if org != nil && org.Login != "" {
		return org.Login
	}
	return repo.Owner.Login
}
