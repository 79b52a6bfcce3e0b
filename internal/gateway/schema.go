package gateway

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/robby/leander/internal/apperror"
	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/store"
)

// issueSource pairs an issue with its repository, which the issue type exposes.
type issueSource struct {
	issue domain.Issue
	repo  domain.Repository
}

type storeResolveFn func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error)

// authorized fails every resolver of an unauthenticated request.
func authorized(fn storeResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, ok := StoreFrom(p.Context)
		if !ok {
			return nil, apperror.Unauthorized()
		}
		return fn(p, s)
	}
}

func enum(name string, values ...string) *graphql.Enum {
	config := graphql.EnumValueConfigMap{}
	for _, v := range values {
		config[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: name, Values: config})
}

func nonNullList(t graphql.Output) graphql.Output {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

// NewSchema builds the gateway schema.
func NewSchema() (graphql.Schema, error) {
	statusEnum := enum("IssueStatus", string(domain.StatusOpen), string(domain.StatusClosed))
	severityEnum := enum("IssueSeverity", string(domain.SeverityBug), string(domain.SeverityFeature), string(domain.SeverityUnknown))
	priorityEnum := enum("IssuePriority", string(domain.PriorityP0), string(domain.PriorityP1), string(domain.PriorityP2), string(domain.PriorityP3))
	sourceEnum := enum("IssueSource", string(domain.SourceInternal), string(domain.SourceExternal))

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"login": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					u := p.Source.(domain.User)
					if u.Name == nil {
						return nil, nil
					}
					return *u.Name, nil
				},
			},
			"avatarUrl": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	labelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Label",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"color": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	orgType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Organization",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"login": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					o := p.Source.(domain.Organization)
					if o.Name == nil {
						return nil, nil
					}
					return *o.Name, nil
				},
			},
			"members": &graphql.Field{
				Type: nonNullList(userType),
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return resolveUsers(p, s, p.Source.(domain.Organization).Members)
				}),
			},
		},
	})

	repoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Repository",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"organization": &graphql.Field{
				Type: graphql.NewNonNull(orgType),
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return s.GetOrganization(p.Context, p.Source.(domain.Repository).Organization)
				}),
			},
			"labels": &graphql.Field{
				Type: nonNullList(labelType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Repository).Labels, nil
				},
			},
		},
	})

	orgType.AddFieldConfig("repositories", &graphql.Field{
		Type: nonNullList(repoType),
		Args: graphql.FieldConfigArgument{
			"names": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		},
		Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
			org := p.Source.(domain.Organization)
			names := stringList(p.Args["names"])
			repos := make([]domain.Repository, 0, len(names))
			for _, name := range names {
				repo, err := s.GetRepository(p.Context, org, name)
				if err != nil {
					return nil, err
				}
				repos = append(repos, repo)
			}
			return repos, nil
		}),
	})

	issueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Issue",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: issueField(func(i domain.Issue) interface{} { return i.ID })},
			"number": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: issueField(func(i domain.Issue) interface{} { return i.Number })},
			"title":  &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: issueField(func(i domain.Issue) interface{} { return i.Title })},
			"repository": &graphql.Field{
				Type: graphql.NewNonNull(repoType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(issueSource).repo, nil
				},
			},
			"age": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "Milliseconds since the issue was created.",
				Resolve:     issueField(func(i domain.Issue) interface{} { return float64(i.Age.Milliseconds()) }),
			},
			"updated": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "Milliseconds since the issue was last updated.",
				Resolve:     issueField(func(i domain.Issue) interface{} { return float64(i.Updated.Milliseconds()) }),
			},
			"status": &graphql.Field{Type: graphql.NewNonNull(statusEnum), Resolve: issueField(func(i domain.Issue) interface{} { return string(i.Status) })},
			"severity": &graphql.Field{Type: severityEnum, Resolve: issueField(func(i domain.Issue) interface{} {
				if i.Severity == nil {
					return nil
				}
				return string(*i.Severity)
			})},
			"priority": &graphql.Field{Type: priorityEnum, Resolve: issueField(func(i domain.Issue) interface{} {
				if i.Priority == nil {
					return nil
				}
				return string(*i.Priority)
			})},
			"source":   &graphql.Field{Type: graphql.NewNonNull(sourceEnum), Resolve: issueField(func(i domain.Issue) interface{} { return string(i.Source) })},
			"assigned": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: issueField(func(i domain.Issue) interface{} { return i.Assigned })},
			"assignees": &graphql.Field{
				Type: nonNullList(userType),
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return resolveUsers(p, s, p.Source.(issueSource).issue.Assignees)
				}),
			},
			"activity": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: issueField(func(i domain.Issue) interface{} { return i.Activity })},
			"triaged":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: issueField(func(i domain.Issue) interface{} { return i.Triaged })},
			"phase":    &graphql.Field{Type: graphql.String, Resolve: issueField(phase)},
			"stage":    &graphql.Field{Type: graphql.String, Resolve: issueField(phase), DeprecationReason: "Use phase."},
			"labels":   &graphql.Field{Type: nonNullList(labelType), Resolve: issueField(func(i domain.Issue) interface{} { return nonNilLabels(i.Labels) })},
			"projects": &graphql.Field{Type: nonNullList(labelType), Resolve: issueField(func(i domain.Issue) interface{} { return nonNilLabels(i.Projects) })},
			"size": &graphql.Field{Type: graphql.Int, Resolve: issueField(func(i domain.Issue) interface{} {
				if i.Size == nil {
					return nil
				}
				return *i.Size
			})},
			"url": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					src := p.Source.(issueSource)
					return domain.IssueURL(src.repo.Organization, src.repo.Name, src.issue.Number), nil
				},
			},
		},
	})

	repoType.AddFieldConfig("issues", &graphql.Field{
		Type: nonNullList(issueType),
		Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
			repo := p.Source.(domain.Repository)
			issues, err := s.GetIssues(p.Context, repo)
			if err != nil {
				return nil, err
			}
			out := make([]issueSource, 0, len(issues))
			for _, issue := range issues {
				out = append(out, issueSource{issue: issue, repo: repo})
			}
			return out, nil
		}),
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type:        userType,
				Description: "A user by login, or the authenticated user when login is omitted.",
				Args: graphql.FieldConfigArgument{
					"login": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					if login, ok := p.Args["login"].(string); ok && login != "" {
						return s.GetUser(p.Context, login)
					}
					return s.GetViewer(p.Context)
				}),
			},
			"organization": &graphql.Field{
				Type: orgType,
				Args: graphql.FieldConfigArgument{
					"login": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return s.GetOrganization(p.Context, p.Args["login"].(string))
				}),
			},
		},
	})

	mutationArgs := func(add, remove string) graphql.FieldConfigArgument {
		idList := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID)))
		return graphql.FieldConfigArgument{
			"organization": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			"repository":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			"issue":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			add:            &graphql.ArgumentConfig{Type: idList},
			remove:         &graphql.ArgumentConfig{Type: idList},
		}
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"updateIssueLabels": &graphql.Field{
				Type: graphql.NewNonNull(issueType),
				Args: mutationArgs("labelsToAdd", "labelsToRemove"),
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return mutateIssue(p, s, s.UpdateIssueLabels, "labelsToAdd", "labelsToRemove")
				}),
			},
			"updateAssignees": &graphql.Field{
				Type: graphql.NewNonNull(issueType),
				Args: mutationArgs("assigneesToAdd", "assigneesToRemove"),
				Resolve: authorized(func(p graphql.ResolveParams, s *store.UserStore) (interface{}, error) {
					return mutateIssue(p, s, s.UpdateAssignees, "assigneesToAdd", "assigneesToRemove")
				}),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

type issueMutation func(ctx context.Context, key domain.RepositoryKey, issueID string, add, remove []string) (domain.Issue, error)

// mutateIssue makes sure the repository's issues are cached, then applies the mutation.
func mutateIssue(p graphql.ResolveParams, s *store.UserStore, mutate issueMutation, addArg, removeArg string) (interface{}, error) {
	org, err := s.GetOrganization(p.Context, p.Args["organization"].(string))
	if err != nil {
		return nil, err
	}
	repo, err := s.GetRepository(p.Context, org, p.Args["repository"].(string))
	if err != nil {
		return nil, err
	}
	if _, err := s.GetIssues(p.Context, repo); err != nil {
		return nil, err
	}

	issue, err := mutate(p.Context, repo.Key(), p.Args["issue"].(string), stringList(p.Args[addArg]), stringList(p.Args[removeArg]))
	if err != nil {
		return nil, err
	}
	return issueSource{issue: issue, repo: repo}, nil
}

func resolveUsers(p graphql.ResolveParams, s *store.UserStore, logins []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(logins))
	for _, login := range logins {
		user, err := s.GetUser(p.Context, login)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func issueField(fn func(domain.Issue) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		src, ok := p.Source.(issueSource)
		if !ok {
			return nil, fmt.Errorf("unexpected issue source %T", p.Source)
		}
		return fn(src.issue), nil
	}
}

func phase(i domain.Issue) interface{} {
	if i.Phase == nil {
		return nil
	}
	return *i.Phase
}

func nonNilLabels(labels []domain.Label) []domain.Label {
	if labels == nil {
		return []domain.Label{}
	}
	return labels
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
