package gh

import "time"

// Node shapes mirror the GraphQL selections in queries.go. They are decoded as-is
// and never cached; parse converts them to domain entities.

type UserNode struct {
	ID        string  `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL string  `json:"avatarUrl"`
}

type LabelNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UserConnection struct {
	Nodes []UserNode `json:"nodes"`
}

type LabelConnection struct {
	Nodes []LabelNode `json:"nodes"`
}

type OrganizationNode struct {
	ID              string         `json:"id"`
	Login           string         `json:"login"`
	Name            *string        `json:"name"`
	MembersWithRole UserConnection `json:"membersWithRole"`
}

type RepositoryNode struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Labels LabelConnection `json:"labels"`
}

// ProjectItemNode is a Projects v2 item; Status is the item's "Status" single-select value.
type ProjectItemNode struct {
	Status *struct {
		Name string `json:"name"`
	} `json:"fieldValueByName"`
}

type IssueNode struct {
	ID        string          `json:"id"`
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	State     string          `json:"state"` // OPEN or CLOSED
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Author    *UserNode       `json:"author"`
	Labels    LabelConnection `json:"labels"`
	Assignees UserConnection  `json:"assignees"`
	Comments  struct {
		TotalCount int `json:"totalCount"`
	} `json:"comments"`
	ProjectItems struct {
		Nodes []ProjectItemNode `json:"nodes"`
	} `json:"projectItems"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// IssuesPage is one page of a repository's open issues.
type IssuesPage struct {
	PageInfo PageInfo    `json:"pageInfo"`
	Nodes    []IssueNode `json:"nodes"`
}
