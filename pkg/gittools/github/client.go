// Package github implements the gittools capability interface and adapter
// for the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogh "github.com/google/go-github/v68/github"

	"github.com/gitscribe/gitscribe/pkg/gittools"
)

// Client wraps the GitHub API behind the gittools.Client capability
// interface.
type Client struct {
	gh *gogh.Client
}

// NewClient creates a GitHub client authenticated with the given token.
// An empty token yields an unauthenticated client — calls will fail at
// invocation time, not construction time.
func NewClient(token string) *Client {
	gh := gogh.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// CreateIssue opens an issue and returns its number and URL.
func (c *Client) CreateIssue(ctx context.Context, repoFullName string, opts gittools.IssueOptions) (*gittools.Issue, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	req := &gogh.IssueRequest{
		Title: gogh.Ptr(opts.Title),
		Body:  gogh.Ptr(opts.Description),
	}
	if len(opts.Labels) > 0 {
		req.Labels = &opts.Labels
	}
	if len(opts.Assignees) > 0 {
		req.Assignees = &opts.Assignees
	}

	issue, _, err := c.gh.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return nil, translate(err)
	}

	return &gittools.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		URL:    issue.GetHTMLURL(),
		State:  issue.GetState(),
	}, nil
}

// CreatePullRequest opens a pull request and returns its number and URL.
func (c *Client) CreatePullRequest(ctx context.Context, repoFullName string, opts gittools.PullRequestOptions) (*gittools.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	base := gittools.ResolveBase(opts.Base)
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &gogh.NewPullRequest{
		Title: gogh.Ptr(opts.Title),
		Body:  gogh.Ptr(opts.Description),
		Head:  gogh.Ptr(opts.Head),
		Base:  gogh.Ptr(base),
	})
	if err != nil {
		return nil, translate(err)
	}

	return &gittools.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Head:   opts.Head,
		Base:   base,
	}, nil
}

// CheckRepositoryPermissions looks up the repository and reports the
// authenticated user's permissions on it.
func (c *Client) CheckRepositoryPermissions(ctx context.Context, repoFullName string) (*gittools.Permissions, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, translate(err)
	}

	perms := r.GetPermissions()
	return &gittools.Permissions{
		Repository: repoFullName,
		Admin:      perms["admin"],
		Push:       perms["push"],
		Pull:       perms["pull"],
		Private:    r.GetPrivate(),
	}, nil
}

// translate maps go-github errors to typed gittools errors at the HTTP
// boundary.
func translate(err error) error {
	var ghErr *gogh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return gittools.TranslateStatus(ghErr.Response.StatusCode, ghErr.Message)
	}
	return err
}

func splitRepo(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q, expected \"owner/repo\"", fullName)
	}
	return parts[0], parts[1], nil
}
