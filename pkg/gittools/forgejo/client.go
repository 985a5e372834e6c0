// Package forgejo implements the gittools capability interface and adapter
// for Forgejo (and Gitea-compatible) instances. Forgejo has no fixed
// hostname, so a base URL is always required.
package forgejo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gitscribe/gitscribe/pkg/gittools"
)

// Client speaks the Forgejo REST API (api/v1, Gitea-compatible).
type Client struct {
	baseURL  string
	token    string
	username string
	password string
	client   *http.Client
}

// NewClient creates a Forgejo client for the given instance. Either a
// token or a username/password pair authenticates requests; with neither,
// requests go out unauthenticated.
func NewClient(baseURL, token, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		username: username,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateIssue opens an issue and returns its number and URL. The Forgejo
// API takes label IDs, not names, so label names are resolved against the
// repository's labels first.
func (c *Client) CreateIssue(ctx context.Context, repo string, opts gittools.IssueOptions) (*gittools.Issue, error) {
	body := map[string]any{
		"title": opts.Title,
		"body":  opts.Description,
	}
	if len(opts.Assignees) > 0 {
		body["assignees"] = opts.Assignees
	}
	if len(opts.Labels) > 0 {
		ids, err := c.resolveLabelIDs(ctx, repo, opts.Labels)
		if err != nil {
			return nil, fmt.Errorf("resolving labels: %w", err)
		}
		if len(ids) > 0 {
			body["labels"] = ids
		}
	}

	var issue struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
		State   string `json:"state"`
	}
	path := fmt.Sprintf("/api/v1/repos/%s/issues", repo)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &issue); err != nil {
		return nil, err
	}

	return &gittools.Issue{
		Number: issue.Number,
		Title:  issue.Title,
		URL:    issue.HTMLURL,
		State:  issue.State,
	}, nil
}

// resolveLabelIDs maps label names onto the repository's label IDs,
// case-insensitively. Names with no matching label are skipped with a
// warning rather than failing the issue.
func (c *Client) resolveLabelIDs(ctx context.Context, repo string, names []string) ([]int64, error) {
	var labels []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/api/v1/repos/%s/labels", repo)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &labels); err != nil {
		return nil, err
	}

	byName := make(map[string]int64, len(labels))
	for _, l := range labels {
		byName[strings.ToLower(l.Name)] = l.ID
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			log.Printf("Warning: label %q does not exist in %s, skipping", name, repo)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreatePullRequest opens a pull request and returns its number and URL.
func (c *Client) CreatePullRequest(ctx context.Context, repo string, opts gittools.PullRequestOptions) (*gittools.PullRequest, error) {
	base := gittools.ResolveBase(opts.Base)
	body := map[string]any{
		"title": opts.Title,
		"body":  opts.Description,
		"head":  opts.Head,
		"base":  base,
	}

	var pr struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	}
	path := fmt.Sprintf("/api/v1/repos/%s/pulls", repo)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &pr); err != nil {
		return nil, err
	}

	return &gittools.PullRequest{
		Number: pr.Number,
		Title:  pr.Title,
		URL:    pr.HTMLURL,
		Head:   opts.Head,
		Base:   base,
	}, nil
}

// CheckRepositoryPermissions looks up the repository and reports the
// authenticated user's permissions on it.
func (c *Client) CheckRepositoryPermissions(ctx context.Context, repo string) (*gittools.Permissions, error) {
	var r struct {
		FullName    string `json:"full_name"`
		Private     bool   `json:"private"`
		Permissions struct {
			Admin bool `json:"admin"`
			Push  bool `json:"push"`
			Pull  bool `json:"pull"`
		} `json:"permissions"`
	}
	path := fmt.Sprintf("/api/v1/repos/%s", repo)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}

	return &gittools.Permissions{
		Repository: repo,
		Admin:      r.Permissions.Admin,
		Push:       r.Permissions.Push,
		Pull:       r.Permissions.Pull,
		Private:    r.Private,
	}, nil
}

// doJSON performs one JSON round trip against the instance, mapping
// non-2xx responses to typed gittools errors.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var reader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gittools.TranslateStatus(resp.StatusCode, string(body))
	}
	if respBody != nil {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
