package github

import (
	"context"
	"log"
	"os"

	"github.com/gitscribe/gitscribe/pkg/gittools"
	"github.com/gitscribe/gitscribe/pkg/model"
)

// Adapter is the secured GitHub tool surface. Every operation validates
// the repository context before touching the API and returns a Result
// envelope with localized error messages.
type Adapter struct {
	token     string
	client    gittools.Client
	newClient func(token string) gittools.Client
}

// NewAdapter builds a GitHub adapter from explicit config and the
// environment. The access token is resolved from cfg.AccessToken, then
// cfg.GitHubToken, then GITHUB_TOKEN, then GITHUB_ACCESS_TOKEN. A missing
// token is tolerated with a warning — calls will fail when invoked.
func NewAdapter(cfg gittools.Config) (gittools.Adapter, error) {
	token := cfg.AccessToken
	if token == "" {
		token = cfg.GitHubToken
	}
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		token = os.Getenv("GITHUB_ACCESS_TOKEN")
	}
	if token == "" {
		log.Printf("Warning: no GitHub access token configured; git operations will fail until one is supplied")
	}

	newClient := func(t string) gittools.Client { return NewClient(t) }
	return &Adapter{
		token:     token,
		client:    newClient(token),
		newClient: newClient,
	}, nil
}

// Service identifies the adapter's git service.
func (a *Adapter) Service() model.Service { return model.ServiceGitHub }

// clientFor returns the stored client, or a fresh one when a call-time
// token override was supplied. Rebuilding per call enables multi-tenant
// use without re-instantiating the adapter tree.
func (a *Adapter) clientFor(token string) gittools.Client {
	if token == "" || token == a.token {
		return a.client
	}
	return a.newClient(token)
}

// CreateIssue creates an issue on the repository in view.
func (a *Adapter) CreateIssue(ctx context.Context, req gittools.IssueRequest) gittools.Result {
	_, repo, fail := gittools.ValidateRequest(req.Repository, req.Context)
	if fail != nil {
		return *fail
	}
	if fail := gittools.RequireIssueFields(req); fail != nil {
		return *fail
	}

	issue, err := a.clientFor(req.Token).CreateIssue(ctx, repo, gittools.IssueOptions{
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
		Assignees:   req.Assignees,
	})
	if err != nil {
		return gittools.TranslateError(model.ServiceGitHub, err)
	}
	return gittools.OK(issue)
}

// CreatePullRequest creates a pull request on the repository in view.
func (a *Adapter) CreatePullRequest(ctx context.Context, req gittools.PullRequestRequest) gittools.Result {
	_, repo, fail := gittools.ValidateRequest(req.Repository, req.Context)
	if fail != nil {
		return *fail
	}
	if fail := gittools.RequirePullRequestFields(req); fail != nil {
		return *fail
	}

	pr, err := a.clientFor(req.Token).CreatePullRequest(ctx, repo, gittools.PullRequestOptions{
		Title:       req.Title,
		Description: req.Description,
		Head:        req.HeadBranch,
		Base:        req.BaseBranch,
	})
	if err != nil {
		return gittools.TranslateError(model.ServiceGitHub, err)
	}
	return gittools.OK(pr)
}

// CheckRepositoryPermissions reports the caller's permissions on the
// repository in view.
func (a *Adapter) CheckRepositoryPermissions(ctx context.Context, req gittools.PermissionsRequest) gittools.Result {
	_, repo, fail := gittools.ValidateRequest(req.Repository, req.Context)
	if fail != nil {
		return *fail
	}

	perms, err := a.clientFor(req.Token).CheckRepositoryPermissions(ctx, repo)
	if err != nil {
		return gittools.TranslateError(model.ServiceGitHub, err)
	}
	return gittools.OK(perms)
}
