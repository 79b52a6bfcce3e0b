// Package gh is the upstream adapter for the GitHub GraphQL API.
// A Client is bound to one access token; it hides the query documents and returns
// raw node shapes that the parse package turns into domain entities.
package gh

import (
	"context"
	"net/http"

	"github.com/machinebox/graphql"

	"github.com/robby/leander/internal/apperror"
)

// DefaultEndpoint is the public GitHub GraphQL endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

// Client is a GitHub GraphQL API client bound to a single access token.
type Client struct {
	gql   *graphql.Client
	token string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	endpoint   string
	httpClient *http.Client
}

// WithEndpoint overrides the GraphQL endpoint (GitHub Enterprise, tests).
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// New creates a client that authenticates every request with token.
func New(token string, opts ...Option) *Client {
	o := clientOptions{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&o)
	}

	var gqlOpts []graphql.ClientOption
	if o.httpClient != nil {
		gqlOpts = append(gqlOpts, graphql.WithHTTPClient(o.httpClient))
	}

	return &Client{
		gql:   graphql.NewClient(o.endpoint, gqlOpts...),
		token: token,
	}
}

// makeRequest executes a GraphQL request with authentication.
// Failures come back as apperror upstream errors carrying op and the transport error.
func (c *Client) makeRequest(ctx context.Context, op string, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if err := c.gql.Run(ctx, req, resp); err != nil {
		return apperror.Upstream(op, err)
	}
	return nil
}
