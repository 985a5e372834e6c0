// Package model defines the value objects shared across GitScribe:
// the repository context a user is viewing and the metadata of the
// document in view. Both are immutable descriptors with no identity
// beyond field equality — nothing in this package performs I/O.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Service identifies a git hosting service.
type Service string

const (
	ServiceGitHub    Service = "github"
	ServiceGitLab    Service = "gitlab"
	ServiceBitbucket Service = "bitbucket"
	ServiceForgejo   Service = "forgejo"
)

// ValidServices lists every service a RepositoryContext may name.
var ValidServices = []Service{ServiceGitHub, ServiceGitLab, ServiceBitbucket, ServiceForgejo}

// ParseService validates a service string and returns the typed value.
func ParseService(s string) (Service, error) {
	svc := Service(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidServices {
		if svc == v {
			return svc, nil
		}
	}
	return "", fmt.Errorf("unknown git service %q (supported: github, gitlab, bitbucket, forgejo)", s)
}

// nameRe matches valid owner/repo names: a single alphanumeric character,
// or alphanumeric at both ends with dots, underscores and hyphens allowed
// in between.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// RepositoryContext identifies the repository, branch, and file a user is
// currently viewing. Construct it with NewRepositoryContext (or FromMap for
// caller-supplied dicts) so the invariants hold.
type RepositoryContext struct {
	Service     Service
	Owner       string
	Repo        string
	Ref         string
	CurrentPath string // path of the file in view, empty at repository root
	BaseURL     string // override for self-hosted instances
}

// NewRepositoryContext builds a validated RepositoryContext. Service is
// stored in its canonical lowercase form. Ref defaults
// to "main". CurrentPath is normalized: a leading slash is stripped, and
// paths containing ".." or starting with "." are rejected.
func NewRepositoryContext(service Service, owner, repo, ref, currentPath, baseURL string) (*RepositoryContext, error) {
	svc, err := ParseService(string(service))
	if err != nil {
		return nil, err
	}
	if !nameRe.MatchString(owner) {
		return nil, fmt.Errorf("invalid owner name %q", owner)
	}
	if !nameRe.MatchString(repo) {
		return nil, fmt.Errorf("invalid repository name %q", repo)
	}
	if ref == "" {
		ref = "main"
	}

	path, err := normalizePath(currentPath)
	if err != nil {
		return nil, err
	}

	return &RepositoryContext{
		Service:     svc,
		Owner:       owner,
		Repo:        repo,
		Ref:         ref,
		CurrentPath: path,
		BaseURL:     strings.TrimRight(baseURL, "/"),
	}, nil
}

// ContextFromMap builds a RepositoryContext from a caller-supplied dict,
// the shape tool calls carry. Unknown keys are ignored; missing service,
// owner, or repo fail validation.
func ContextFromMap(m map[string]any) (*RepositoryContext, error) {
	if m == nil {
		return nil, fmt.Errorf("repository context is required")
	}
	return NewRepositoryContext(
		Service(stringField(m, "service")),
		stringField(m, "owner"),
		stringField(m, "repo"),
		stringField(m, "ref"),
		stringField(m, "current_path"),
		stringField(m, "base_url"),
	)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// normalizePath strips a leading slash and rejects traversal-style paths.
func normalizePath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", nil
	}
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid path %q: must not contain \"..\"", p)
	}
	if strings.HasPrefix(p, ".") {
		return "", fmt.Errorf("invalid path %q: must not start with \".\"", p)
	}
	return p, nil
}

// FullName returns "owner/repo".
func (c *RepositoryContext) FullName() string {
	return c.Owner + "/" + c.Repo
}

// RepositoryURL returns the web URL of the repository. BaseURL takes
// precedence over the per-service default host.
func (c *RepositoryContext) RepositoryURL() string {
	if c.BaseURL != "" {
		return c.BaseURL + "/" + c.FullName()
	}
	switch c.Service {
	case ServiceGitLab:
		return "https://gitlab.com/" + c.FullName()
	case ServiceBitbucket:
		return "https://bitbucket.org/" + c.FullName()
	default:
		// Forgejo has no fixed hostname; without a BaseURL the GitHub
		// convention is the only sensible fallback.
		return "https://github.com/" + c.FullName()
	}
}

// DocumentURL returns the web URL of the file in view, following each
// service's path convention. Empty when no file is in view.
func (c *RepositoryContext) DocumentURL() string {
	if c.CurrentPath == "" {
		return ""
	}
	repoURL := c.RepositoryURL()
	switch c.Service {
	case ServiceGitLab:
		return fmt.Sprintf("%s/-/blob/%s/%s", repoURL, c.Ref, c.CurrentPath)
	case ServiceBitbucket:
		return fmt.Sprintf("%s/src/%s/%s", repoURL, c.Ref, c.CurrentPath)
	case ServiceForgejo:
		return fmt.Sprintf("%s/src/branch/%s/%s", repoURL, c.Ref, c.CurrentPath)
	default:
		return fmt.Sprintf("%s/blob/%s/%s", repoURL, c.Ref, c.CurrentPath)
	}
}

// ToMap converts the context to the plain dict shape passed to tool
// handlers. Enum values are unwrapped to their string value.
func (c *RepositoryContext) ToMap() map[string]any {
	m := map[string]any{
		"service": string(c.Service),
		"owner":   c.Owner,
		"repo":    c.Repo,
		"ref":     c.Ref,
	}
	if c.CurrentPath != "" {
		m["current_path"] = c.CurrentPath
	}
	if c.BaseURL != "" {
		m["base_url"] = c.BaseURL
	}
	return m
}
