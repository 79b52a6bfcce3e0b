package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"

	"github.com/robby/leander/internal/apperror"
)

// IssuesPageSize is the page size of the issues query, the GitHub maximum.
const IssuesPageSize = 100

// StatusFieldName is the Projects v2 field whose value becomes an issue's phase.
const StatusFieldName = "Status"

const userFields = `
	id
	login
	name
	avatarUrl
`

// User fetches a user by login.
func (c *Client) User(ctx context.Context, login string) (UserNode, error) {
	req := graphql.NewRequest(`
		query($login: String!) {
			user(login: $login) {` + userFields + `}
		}
	`)
	req.Var("login", login)

	var resp struct {
		User *UserNode `json:"user"`
	}

	if err := c.makeRequest(ctx, "query user", req, &resp); err != nil {
		return UserNode{}, err
	}
	if resp.User == nil {
		return UserNode{}, apperror.NotFound("user", login)
	}

	return *resp.User, nil
}

// Viewer fetches the user the client's token belongs to.
func (c *Client) Viewer(ctx context.Context) (UserNode, error) {
	req := graphql.NewRequest(`
		query {
			viewer {` + userFields + `}
		}
	`)

	var resp struct {
		Viewer UserNode `json:"viewer"`
	}

	if err := c.makeRequest(ctx, "query viewer", req, &resp); err != nil {
		return UserNode{}, err
	}

	return resp.Viewer, nil
}

// Organization fetches an organization with its first 100 members.
func (c *Client) Organization(ctx context.Context, login string) (OrganizationNode, error) {
	req := graphql.NewRequest(`
		query($login: String!) {
			organization(login: $login) {
				id
				login
				name
				membersWithRole(first: 100) {
					nodes {` + userFields + `}
				}
			}
		}
	`)
	req.Var("login", login)

	var resp struct {
		Organization *OrganizationNode `json:"organization"`
	}

	if err := c.makeRequest(ctx, "query organization", req, &resp); err != nil {
		return OrganizationNode{}, err
	}
	if resp.Organization == nil {
		return OrganizationNode{}, apperror.NotFound("organization", login)
	}

	return *resp.Organization, nil
}

// Repository fetches a repository with its first 100 labels.
func (c *Client) Repository(ctx context.Context, owner, name string) (RepositoryNode, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $name: String!) {
			repository(owner: $owner, name: $name) {
				id
				name
				labels(first: 100) {
					nodes {
						id
						name
						color
					}
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("name", name)

	var resp struct {
		Repository *RepositoryNode `json:"repository"`
	}

	if err := c.makeRequest(ctx, "query repository", req, &resp); err != nil {
		return RepositoryNode{}, err
	}
	if resp.Repository == nil {
		return RepositoryNode{}, apperror.NotFound("repository", owner+"/"+name)
	}

	return *resp.Repository, nil
}

// IssuesPage fetches one page of open issues. An empty after starts from the first page.
func (c *Client) IssuesPage(ctx context.Context, owner, name, after string) (IssuesPage, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $name: String!, $first: Int!, $after: String, $statusField: String!) {
			repository(owner: $owner, name: $name) {
				issues(first: $first, after: $after, states: [OPEN]) {
					pageInfo {
						hasNextPage
						endCursor
					}
					nodes {
						id
						number
						title
						state
						createdAt
						updatedAt
						author {
							login
							avatarUrl
						}
						labels(first: 100) {
							nodes {
								id
								name
								color
							}
						}
						assignees(first: 100) {
							nodes {` + userFields + `}
						}
						comments(first: 1) {
							totalCount
						}
						projectItems(first: 1) {
							nodes {
								fieldValueByName(name: $statusField) {
									... on ProjectV2ItemFieldSingleSelectValue {
										name
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("name", name)
	req.Var("first", IssuesPageSize)
	req.Var("statusField", StatusFieldName)
	if after != "" {
		req.Var("after", after)
	} else {
		req.Var("after", nil)
	}

	var resp struct {
		Repository *struct {
			Issues IssuesPage `json:"issues"`
		} `json:"repository"`
	}

	if err := c.makeRequest(ctx, "query issues", req, &resp); err != nil {
		return IssuesPage{}, err
	}
	if resp.Repository == nil {
		return IssuesPage{}, apperror.NotFound("repository", fmt.Sprintf("%s/%s", owner, name))
	}

	return resp.Repository.Issues, nil
}
