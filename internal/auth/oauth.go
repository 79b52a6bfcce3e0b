package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Scopes requested from GitHub. read:org lists organization members, repo
// reads private issues and edits labels and assignees.
var Scopes = []string{"read:org", "repo"}

// ErrInvalidState is returned when the OAuth state does not decode or does
// not match the nonce cookie.
var ErrInvalidState = errors.New("invalid OAuth state")

// GitHubProvider drives the GitHub authorization code flow.
type GitHubProvider struct {
	config *oauth2.Config
}

func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       Scopes,
			Endpoint:     github.Endpoint,
		},
	}
}

// withEndpoint points the provider at another authorization server. Tests use it.
func (p *GitHubProvider) withEndpoint(e oauth2.Endpoint) *GitHubProvider {
	cfg := *p.config
	cfg.Endpoint = e
	return &GitHubProvider{config: &cfg}
}

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for a GitHub access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange OAuth code: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("GitHub returned an empty access token")
	}
	return token.AccessToken, nil
}

// State is carried through GitHub as the OAuth state parameter. Nonce is
// also stored in a cookie so the callback can tell it started the flow.
type State struct {
	Nonce    string `json:"n"`
	ReturnTo string `json:"r,omitempty"`
}

// NewState creates a state with a fresh nonce. Unsafe return targets are dropped.
func NewState(returnTo string) State {
	return State{Nonce: xid.New().String(), ReturnTo: SafeReturnTo(returnTo)}
}

func (s State) Encode() string {
	b, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState parses an encoded state and checks it against the nonce cookie.
func DecodeState(encoded, nonce string) (State, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return State{}, ErrInvalidState
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, ErrInvalidState
	}
	if s.Nonce == "" || s.Nonce != nonce {
		return State{}, ErrInvalidState
	}
	s.ReturnTo = SafeReturnTo(s.ReturnTo)
	return s, nil
}

// SafeReturnTo keeps only same-site relative paths; anything else becomes "".
func SafeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") {
		return ""
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	return target
}
