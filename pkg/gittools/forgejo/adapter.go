package forgejo

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gitscribe/gitscribe/pkg/gittools"
	"github.com/gitscribe/gitscribe/pkg/model"
)

// Adapter is the secured Forgejo tool surface.
type Adapter struct {
	baseURL   string
	token     string
	client    gittools.Client
	newClient func(token string) gittools.Client
}

// NewAdapter builds a Forgejo adapter. The base URL is mandatory
// (cfg.BaseURL, then FORGEJO_BASE_URL) — Forgejo has no fixed hostname,
// so its absence is a deployment mistake and fails construction.
// Credentials resolve token-first (cfg.AccessToken, cfg.Token,
// FORGEJO_TOKEN, FORGEJO_ACCESS_TOKEN), then username/password
// (cfg, FORGEJO_USERNAME/FORGEJO_PASSWORD); their absence is tolerated
// with a warning.
func NewAdapter(cfg gittools.Config) (gittools.Adapter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("FORGEJO_BASE_URL")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("forgejo base URL is required (set base_url or FORGEJO_BASE_URL)")
	}

	token := cfg.AccessToken
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		token = os.Getenv("FORGEJO_TOKEN")
	}
	if token == "" {
		token = os.Getenv("FORGEJO_ACCESS_TOKEN")
	}

	username := cfg.Username
	password := cfg.Password
	if token == "" && username == "" {
		username = os.Getenv("FORGEJO_USERNAME")
		password = os.Getenv("FORGEJO_PASSWORD")
	}
	if token == "" && username == "" {
		log.Printf("Warning: no Forgejo credentials configured for %s; git operations will fail until some are supplied", baseURL)
	}

	newClient := func(t string) gittools.Client { return NewClient(baseURL, t, username, password) }
	return &Adapter{
		baseURL:   baseURL,
		token:     token,
		client:    newClient(token),
		newClient: newClient,
	}, nil
}

// Service identifies the adapter's git service.
func (a *Adapter) Service() model.Service { return model.ServiceForgejo }

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
		return gittools.TranslateError(model.ServiceForgejo, err)
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
		return gittools.TranslateError(model.ServiceForgejo, err)
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
		return gittools.TranslateError(model.ServiceForgejo, err)
	}
	return gittools.OK(perms)
}
