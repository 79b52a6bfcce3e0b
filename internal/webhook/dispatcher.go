// Package webhook applies GitHub webhook deltas to every cached store they affect.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/store"
)

// Event names as sent in the X-GitHub-Event header.
const (
	EventPing         = "ping"
	EventOrganization = "organization"
	EventLabel        = "label"
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
)

var (
	// ErrUnsupportedEvent indicates an event type the dispatcher ignores.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrMalformedPayload indicates the payload could not be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// StoreSource lists the live stores. *registry.Registry implements it.
type StoreSource interface {
	Stores() []*store.UserStore
}

// Result summarizes one dispatch.
type Result struct {
	Matched int `json:"matched"` // stores the event applied to
	Skipped int `json:"skipped"` // stores lacking the targeted entity
	Failed  int `json:"failed"`  // stores whose update errored
}

// Dispatcher routes decoded events to the affected stores.
type Dispatcher struct {
	stores StoreSource
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given stores.
func NewDispatcher(stores StoreSource, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{stores: stores, logger: logger}
}

// Dispatch decodes payload according to event and applies it.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, payload []byte) (Result, error) {
	switch event {
	case EventOrganization:
		var e gh.OrganizationEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return d.HandleOrganization(ctx, e), nil
	case EventLabel:
		var e gh.LabelEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return d.HandleLabel(ctx, e), nil
	case EventIssues:
		var e gh.IssuesEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return d.HandleIssues(ctx, e), nil
	case EventIssueComment:
		var e gh.IssueCommentEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return d.HandleIssueComment(ctx, e), nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, event)
	}
}

// HandleOrganization applies membership changes and renames to stores holding the organization.
func (d *Dispatcher) HandleOrganization(ctx context.Context, e gh.OrganizationEvent) Result {
	org := e.Organization
	log := d.logger.With(
		slog.String("event", EventOrganization),
		slog.String("action", e.Action),
		slog.String("org", org.Login),
	)

	var apply func(*store.UserStore) error
	switch e.Action {
	case "member_added":
		if e.Membership == nil {
			log.Warn("membership missing from payload")
			return Result{}
		}
		login := e.Membership.User.Login
		apply = func(s *store.UserStore) error {
			return s.AddMember(ctx, org.Login, login)
		}
	case "member_removed":
		if e.Membership == nil {
			log.Warn("membership missing from payload")
			return Result{}
		}
		login := e.Membership.User.Login
		apply = func(s *store.UserStore) error {
			if err := s.RemoveMember(org.Login, login); err != nil {
				return err
			}
			viewer, err := s.GetViewer(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve viewer: %w", err)
			}
			// A credential that left the organization can no longer see it.
			if viewer.Login == login {
				s.RemoveOrganization(org.Login)
			}
			return nil
		}
	case "renamed":
		apply = func(s *store.UserStore) error {
			return s.RenameOrganization(ctx, org.NodeID, org.Login)
		}
	default:
		log.Debug("action ignored")
		return Result{}
	}

	var matched []*store.UserStore
	for _, s := range d.stores.Stores() {
		if s.HasOrganizationID(org.NodeID) {
			matched = append(matched, s)
		}
	}
	return d.apply(log, matched, apply)
}

// HandleLabel applies label changes to stores holding the repository.
func (d *Dispatcher) HandleLabel(ctx context.Context, e gh.LabelEvent) Result {
	orgLogin := gh.OrganizationLogin(e.Organization, e.Repository)
	repo := e.Repository.Name
	log := d.logger.With(
		slog.String("event", EventLabel),
		slog.String("action", e.Action),
		slog.String("repo", orgLogin+"/"+repo),
	)

	apply := func(s *store.UserStore) error {
		return s.UpdateOrAddLabel(orgLogin, repo, e.Label)
	}
	if e.Action == "removed" || e.Action == "deleted" {
		apply = func(s *store.UserStore) error {
			return s.RemoveLabel(orgLogin, repo, e.Label)
		}
	}

	return d.apply(log, d.holding(orgLogin, repo), apply)
}

// HandleIssues applies issue changes to stores holding the repository.
func (d *Dispatcher) HandleIssues(ctx context.Context, e gh.IssuesEvent) Result {
	orgLogin := gh.OrganizationLogin(e.Organization, e.Repository)
	repo := e.Repository.Name
	log := d.logger.With(
		slog.String("event", EventIssues),
		slog.String("action", e.Action),
		slog.String("repo", orgLogin+"/"+repo),
		slog.Int("issue", e.Issue.Number),
	)

	apply := func(s *store.UserStore) error {
		return s.UpdateOrAddIssue(ctx, orgLogin, repo, e.Issue)
	}
	switch e.Action {
	case "removed", "deleted", "transferred":
		apply = func(s *store.UserStore) error {
			return s.RemoveIssue(orgLogin, repo, e.Issue)
		}
	}

	return d.apply(log, d.holding(orgLogin, repo), apply)
}

// HandleIssueComment refreshes the commented issue in stores holding the
// repository. Pull request comments are ignored; issue lists hold no pull requests.
func (d *Dispatcher) HandleIssueComment(ctx context.Context, e gh.IssueCommentEvent) Result {
	orgLogin := gh.OrganizationLogin(e.Organization, e.Repository)
	repo := e.Repository.Name
	log := d.logger.With(
		slog.String("event", EventIssueComment),
		slog.String("action", e.Action),
		slog.String("repo", orgLogin+"/"+repo),
		slog.Int("issue", e.Issue.Number),
	)
	if e.Issue.PullRequest != nil {
		log.Debug("skipping pull request comment")
		return Result{}
	}

	return d.apply(log, d.holding(orgLogin, repo), func(s *store.UserStore) error {
		return s.UpdateOrAddIssue(ctx, orgLogin, repo, e.Issue)
	})
}

func (d *Dispatcher) holding(orgLogin, repo string) []*store.UserStore {
	var matched []*store.UserStore
	for _, s := range d.stores.Stores() {
		if s.HasRepository(orgLogin, repo) {
			matched = append(matched, s)
		}
	}
	return matched
}

// apply runs fn on every store. A failing store never stops the others.
func (d *Dispatcher) apply(log *slog.Logger, stores []*store.UserStore, fn func(*store.UserStore) error) Result {
	res := Result{Matched: len(stores)}
	for _, s := range stores {
		err := fn(s)
		switch {
		case err == nil:
		case store.IsSoft(err) && !errors.Is(err, store.ErrOrganizationNotFound):
			res.Skipped++
			log.Warn("entity not cached, update skipped", slog.String("error", err.Error()))
		default:
			res.Failed++
			log.Error("store update failed", slog.String("error", err.Error()))
		}
	}
	log.Debug("event dispatched",
		slog.Int("matched", res.Matched),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	)
	return res
}
