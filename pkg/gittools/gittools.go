// Package gittools defines the multi-service Git tool abstraction: a
// capability interface implemented per hosting service, an adapter layer
// that enforces repository-context validation on every call, a factory for
// building configured adapters, and a registry that resolves which adapter
// serves a given tool invocation.
//
// Adapters never return errors to their callers. Every operation — success
// or failure — produces a Result envelope, because the ultimate consumer is
// an LLM that must be able to parse and react to the outcome.
package gittools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// ErrorType is the closed set of machine-readable failure categories
// carried by a Result envelope. Keys stay English for programmatic
// stability even though user-facing messages are localized.
type ErrorType string

const (
	ErrValidation      ErrorType = "validation_error"
	ErrPermission      ErrorType = "permission_error"
	ErrRepoNotFound    ErrorType = "repository_not_found"
	ErrAuthFailed      ErrorType = "authentication_failed"
	ErrContextRequired ErrorType = "context_required"
	ErrAccessDenied    ErrorType = "access_denied"
	ErrUnexpected      ErrorType = "unexpected_error"
)

// Result is the uniform envelope every tool operation returns. Data holds
// the typed payload directly — no nested JSON-encoded strings.
type Result struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}

// OK wraps a payload in a success envelope.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failure envelope.
func Fail(t ErrorType, format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...), ErrorType: t}
}

// JSON marshals the envelope to the string form handed to the LLM at the
// MCP boundary. Marshaling a Result cannot fail; the fallback exists only
// to keep the contract (never raise) airtight.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"failed to encode result","error_type":"unexpected_error"}`
	}
	return string(b)
}

// ServiceError is a typed error translated from a git service's HTTP
// response close to the HTTP boundary.
type ServiceError struct {
	Type       ErrorType
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s (HTTP %d): %s", e.Type, e.StatusCode, e.Message)
}

// TranslateStatus maps an HTTP status code to a ServiceError.
func TranslateStatus(status int, body string) *ServiceError {
	switch status {
	case 404:
		return &ServiceError{Type: ErrRepoNotFound, StatusCode: status, Message: "repository not found"}
	case 401:
		return &ServiceError{Type: ErrAuthFailed, StatusCode: status, Message: "authentication failed"}
	default:
		return &ServiceError{Type: ErrUnexpected, StatusCode: status, Message: body}
	}
}

// --- Payload types ---

// Issue is the payload returned by a successful issue creation.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	State  string `json:"state,omitempty"`
}

// PullRequest is the payload returned by a successful PR creation.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Head   string `json:"head"`
	Base   string `json:"base"`
}

// Permissions is the payload returned by a permission check.
type Permissions struct {
	Repository string `json:"repository"`
	Admin      bool   `json:"admin"`
	Push       bool   `json:"push"`
	Pull       bool   `json:"pull"`
	Private    bool   `json:"private"`
}

// --- Low-level client capability interface ---

// IssueOptions configures a new issue.
type IssueOptions struct {
	Title       string
	Description string
	Labels      []string
	Assignees   []string
}

// PullRequestOptions configures a new pull request.
type PullRequestOptions struct {
	Title       string
	Description string
	Head        string
	Base        string // default "main"
}

// Client is the per-service capability interface. Implementations translate
// these calls into the target API's HTTP requests and map status codes to
// typed ServiceErrors.
type Client interface {
	CreateIssue(ctx context.Context, repo string, opts IssueOptions) (*Issue, error)
	CreatePullRequest(ctx context.Context, repo string, opts PullRequestOptions) (*PullRequest, error)
	CheckRepositoryPermissions(ctx context.Context, repo string) (*Permissions, error)
}

// --- Adapter request types ---

// IssueRequest is the full argument set of a create-issue tool call.
// Context is the ambient repository context of the conversation — the
// trust anchor every call is validated against. Repository names the
// repository the caller wants to act on; empty means "the one in view".
// Token, when set, overrides the adapter's stored credential for this call.
type IssueRequest struct {
	Title       string
	Description string
	Labels      []string
	Assignees   []string
	Repository  string
	Context     map[string]any
	Token       string
}

// PullRequestRequest is the full argument set of a create-PR tool call.
type PullRequestRequest struct {
	Title       string
	Description string
	HeadBranch  string
	BaseBranch  string
	Repository  string
	Context     map[string]any
	Token       string
}

// PermissionsRequest is the argument set of a permission-check tool call.
type PermissionsRequest struct {
	Repository string
	Context    map[string]any
	Token      string
}

// Adapter is the secured per-service tool surface. Every operation
// validates the repository context before touching the service and returns
// a Result envelope, never an error.
type Adapter interface {
	Service() model.Service
	CreateIssue(ctx context.Context, req IssueRequest) Result
	CreatePullRequest(ctx context.Context, req PullRequestRequest) Result
	CheckRepositoryPermissions(ctx context.Context, req PermissionsRequest) Result
}
