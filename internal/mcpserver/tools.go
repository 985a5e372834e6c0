package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gitscribe/gitscribe/pkg/gittools"
	"github.com/gitscribe/gitscribe/pkg/model"
)

// Toolset is the Git operation surface the MCP tools delegate to.
// *gittools.Registry satisfies it, as does any wrapper that adds
// persistence or announcements around it.
type Toolset interface {
	CreateIssue(ctx context.Context, service model.Service, req gittools.IssueRequest) gittools.Result
	CreatePullRequest(ctx context.Context, service model.Service, req gittools.PullRequestRequest) gittools.Result
	CheckRepositoryPermissions(ctx context.Context, service model.Service, req gittools.PermissionsRequest) gittools.Result
}

// IssueTool handles the create_git_issue MCP tool.
type IssueTool struct {
	toolset Toolset
}

// NewIssueTool creates an IssueTool backed by the given toolset.
func NewIssueTool(toolset Toolset) *IssueTool {
	return &IssueTool{toolset: toolset}
}

// Definition returns the MCP tool definition for registration.
func (t *IssueTool) Definition() mcp.Tool {
	return mcp.NewTool("create_git_issue",
		mcp.WithDescription(
			"Create an issue in the repository the user is currently viewing. "+
				"The operation is scoped to that repository and cannot touch any other. "+
				"Returns a JSON object with a success flag; on failure the error_type "+
				"field explains what went wrong.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Issue title"),
		),
		mcp.WithString("description",
			mcp.Description("Issue body in Markdown"),
		),
		mcp.WithArray("labels",
			mcp.Description("Labels to attach to the issue"),
		),
		mcp.WithArray("assignees",
			mcp.Description("Usernames to assign to the issue"),
		),
		mcp.WithObject("repository_context",
			mcp.Required(),
			mcp.Description("The repository the user is viewing: service, owner, repo, ref, base_url"),
		),
		mcp.WithString("service_type",
			mcp.Description("Git service override: github or forgejo. Defaults to the context's service."),
		),
	)
}

// Handle processes the create_git_issue tool call. The result is always a
// JSON envelope, never a protocol error, so the calling LLM can branch on
// the success flag.
func (t *IssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	res := t.toolset.CreateIssue(ctx, model.Service(req.GetString("service_type", "")), gittools.IssueRequest{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Labels:      stringSlice(args, "labels"),
		Assignees:   stringSlice(args, "assignees"),
		Context:     objectArg(args, "repository_context"),
	})
	return mcp.NewToolResultText(res.JSON()), nil
}

// PullRequestTool handles the create_git_pull_request MCP tool.
type PullRequestTool struct {
	toolset Toolset
}

// NewPullRequestTool creates a PullRequestTool backed by the given toolset.
func NewPullRequestTool(toolset Toolset) *PullRequestTool {
	return &PullRequestTool{toolset: toolset}
}

// Definition returns the MCP tool definition for registration.
func (t *PullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("create_git_pull_request",
		mcp.WithDescription(
			"Open a pull request in the repository the user is currently viewing. "+
				"Requires an existing head branch; the base branch defaults to main. "+
				"Returns a JSON object with a success flag.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Pull request title"),
		),
		mcp.WithString("description",
			mcp.Description("Pull request body in Markdown"),
		),
		mcp.WithString("head_branch",
			mcp.Required(),
			mcp.Description("Branch containing the changes"),
		),
		mcp.WithString("base_branch",
			mcp.Description("Branch to merge into (default: main)"),
		),
		mcp.WithObject("repository_context",
			mcp.Required(),
			mcp.Description("The repository the user is viewing: service, owner, repo, ref, base_url"),
		),
		mcp.WithString("service_type",
			mcp.Description("Git service override: github or forgejo. Defaults to the context's service."),
		),
	)
}

// Handle processes the create_git_pull_request tool call.
func (t *PullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	res := t.toolset.CreatePullRequest(ctx, model.Service(req.GetString("service_type", "")), gittools.PullRequestRequest{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		HeadBranch:  req.GetString("head_branch", ""),
		BaseBranch:  req.GetString("base_branch", ""),
		Context:     objectArg(args, "repository_context"),
	})
	return mcp.NewToolResultText(res.JSON()), nil
}

// PermissionsTool handles the check_git_repository_permissions MCP tool.
type PermissionsTool struct {
	toolset Toolset
}

// NewPermissionsTool creates a PermissionsTool backed by the given toolset.
func NewPermissionsTool(toolset Toolset) *PermissionsTool {
	return &PermissionsTool{toolset: toolset}
}

// Definition returns the MCP tool definition for registration.
func (t *PermissionsTool) Definition() mcp.Tool {
	return mcp.NewTool("check_git_repository_permissions",
		mcp.WithDescription(
			"Check what the configured credentials may do in the repository the "+
				"user is currently viewing (admin/push/pull). Returns a JSON object "+
				"with a success flag.",
		),
		mcp.WithObject("repository_context",
			mcp.Required(),
			mcp.Description("The repository the user is viewing: service, owner, repo, ref, base_url"),
		),
		mcp.WithString("service_type",
			mcp.Description("Git service override: github or forgejo. Defaults to the context's service."),
		),
	)
}

// Handle processes the check_git_repository_permissions tool call.
func (t *PermissionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	res := t.toolset.CheckRepositoryPermissions(ctx, model.Service(req.GetString("service_type", "")), gittools.PermissionsRequest{
		Context: objectArg(args, "repository_context"),
	})
	return mcp.NewToolResultText(res.JSON()), nil
}

// stringSlice extracts a []string argument that arrives as []any.
func stringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// objectArg extracts a JSON object argument.
func objectArg(args map[string]any, key string) map[string]any {
	obj, _ := args[key].(map[string]any)
	return obj
}
