// Package auth resolves GitHub access tokens. The terminal commands read
// them from the gh CLI or the environment; the server obtains them through
// the OAuth web flow and keeps them in a signed session cookie.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// TokenProvider is a source of GitHub access tokens.
type TokenProvider interface {
	GetToken() (string, error)
}

// GhCliProvider obtains tokens by shelling out to `gh auth token`.
type GhCliProvider struct {
	// Hostname defaults to github.com.
	Hostname string
}

func (g *GhCliProvider) GetToken() (string, error) {
	host := g.Hostname
	if host == "" {
		host = "github.com"
	}

	cmd := exec.Command("gh", "auth", "token", "--hostname", host)
	output, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", errors.New("gh CLI not found in PATH")
		}
		return "", fmt.Errorf("gh auth token failed: %w", err)
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", errors.New("gh auth token returned empty token")
	}
	return token, nil
}

// EnvProvider reads a token from an environment variable, GITHUB_TOKEN
// unless Var is set.
type EnvProvider struct {
	Var string
}

func (e *EnvProvider) GetToken() (string, error) {
	name := e.Var
	if name == "" {
		name = "GITHUB_TOKEN"
	}
	token := strings.TrimSpace(os.Getenv(name))
	if token == "" {
		return "", fmt.Errorf("%s environment variable not set or empty", name)
	}
	return token, nil
}

// StaticProvider returns a fixed token, typically one passed on the command line.
type StaticProvider string

func (s StaticProvider) GetToken() (string, error) {
	if s == "" {
		return "", errors.New("no token given")
	}
	return string(s), nil
}

// Chain tries each provider in order and returns the first token found.
type Chain []TokenProvider

func (c Chain) GetToken() (string, error) {
	var errs []error
	for _, p := range c {
		token, err := p.GetToken()
		if err == nil {
			return token, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no token providers configured")
	}
	return "", errors.Join(errs...)
}

// GetToken resolves a token for the terminal commands: gh CLI first, then
// GITHUB_TOKEN. The error tells the user how to fix the setup.
func GetToken() (string, error) {
	token, err := Chain{&GhCliProvider{}, &EnvProvider{}}.GetToken()
	if err == nil {
		return token, nil
	}

	return "", fmt.Errorf(
		"failed to obtain GitHub token (%v).\n"+
			"Please either:\n"+
			"  1. Run 'gh auth login' to authenticate with GitHub CLI, or\n"+
			"  2. Set the GITHUB_TOKEN environment variable with a personal access token",
		err,
	)
}
