package gh

import (
	"context"

	"github.com/machinebox/graphql"
)

// UpdateIssueLabels removes and then adds labels on an issue in one request.
// Returns the issue's resulting label set.
func (c *Client) UpdateIssueLabels(ctx context.Context, issueID string, add, remove []string) ([]LabelNode, error) {
	req := graphql.NewRequest(`
		mutation($issueId: ID!, $add: [ID!]!, $remove: [ID!]!) {
			removeLabelsFromLabelable(input: {labelableId: $issueId, labelIds: $remove}) {
				clientMutationId
			}
			addLabelsToLabelable(input: {labelableId: $issueId, labelIds: $add}) {
				labelable {
					labels(first: 100) {
						nodes {
							id
							name
							color
						}
					}
				}
			}
		}
	`)
	req.Var("issueId", issueID)
	req.Var("add", nonNil(add))
	req.Var("remove", nonNil(remove))

	var resp struct {
		AddLabelsToLabelable struct {
			Labelable struct {
				Labels LabelConnection `json:"labels"`
			} `json:"labelable"`
		} `json:"addLabelsToLabelable"`
	}

	if err := c.makeRequest(ctx, "update issue labels", req, &resp); err != nil {
		return nil, err
	}

	return resp.AddLabelsToLabelable.Labelable.Labels.Nodes, nil
}

// UpdateAssignees removes and then adds assignees on an issue in one request.
// Returns the issue's resulting assignees.
func (c *Client) UpdateAssignees(ctx context.Context, issueID string, add, remove []string) ([]UserNode, error) {
	req := graphql.NewRequest(`
		mutation($issueId: ID!, $add: [ID!]!, $remove: [ID!]!) {
			removeAssigneesFromAssignable(input: {assignableId: $issueId, assigneeIds: $remove}) {
				clientMutationId
			}
			addAssigneesToAssignable(input: {assignableId: $issueId, assigneeIds: $add}) {
				assignable {
					... on Issue {
						assignees(first: 100) {
							nodes {` + userFields + `}
						}
					}
				}
			}
		}
	`)
	req.Var("issueId", issueID)
	req.Var("add", nonNil(add))
	req.Var("remove", nonNil(remove))

	var resp struct {
		AddAssigneesToAssignable struct {
			Assignable struct {
				Assignees UserConnection `json:"assignees"`
			} `json:"assignable"`
		} `json:"addAssigneesToAssignable"`
	}

	if err := c.makeRequest(ctx, "update assignees", req, &resp); err != nil {
		return nil, err
	}

	return resp.AddAssigneesToAssignable.Assignable.Assignees.Nodes, nil
}

// nonNil keeps an empty list from being sent as null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
