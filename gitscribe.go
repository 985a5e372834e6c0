// Package gitscribe is the top-level entry point for the GitScribe service.
//
// Use the Builder to compose a GitScribe application:
//
//	app, err := gitscribe.NewBuilder().Build()
//	app.Start(ctx)
//
// Or customize individual components:
//
//	app, err := gitscribe.NewBuilder().
//	    WithLLM(myClient).
//	    WithBus(myBus).
//	    Build()
package gitscribe

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/mcpserver"
	"github.com/gitscribe/gitscribe/internal/notify"
	"github.com/gitscribe/gitscribe/internal/repostore"
	"github.com/gitscribe/gitscribe/internal/server"
	"github.com/gitscribe/gitscribe/pkg/eventbus"
	"github.com/gitscribe/gitscribe/pkg/gittools"
	fjAdapter "github.com/gitscribe/gitscribe/pkg/gittools/forgejo"
	ghAdapter "github.com/gitscribe/gitscribe/pkg/gittools/github"
	"github.com/gitscribe/gitscribe/pkg/llm"
	llmAnthropic "github.com/gitscribe/gitscribe/pkg/llm/anthropic"
	llmOpenAI "github.com/gitscribe/gitscribe/pkg/llm/openai"
	"github.com/gitscribe/gitscribe/pkg/model"
	"github.com/gitscribe/gitscribe/pkg/prompt"
	"github.com/gitscribe/gitscribe/pkg/toolflow"

	mcpsrv "github.com/mark3labs/mcp-go/server"
)

// Builder constructs a GitScribe App.
type Builder struct {
	config   *config.Config
	store    *repostore.Store
	bus      eventbus.Bus
	registry *gittools.Registry
	llm      llm.Client
	notifier *notify.Notifier
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the repository store implementation.
func (b *Builder) WithStore(s *repostore.Store) *Builder {
	b.store = s
	return b
}

// WithBus sets the event bus implementation.
func (b *Builder) WithBus(bus eventbus.Bus) *Builder {
	b.bus = bus
	return b
}

// WithRegistry sets a pre-configured Git service registry.
func (b *Builder) WithRegistry(r *gittools.Registry) *Builder {
	b.registry = r
	return b
}

// WithLLM sets the LLM client used for chat and followup calls.
func (b *Builder) WithLLM(client llm.Client) *Builder {
	b.llm = client
	return b
}

// WithNotifier sets the Slack notifier.
func (b *Builder) WithNotifier(n *notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// Build creates the App. Missing components are filled from configuration.
func (b *Builder) Build() (*App, error) {
	if b.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		b.config = cfg
	}
	cfg := b.config

	if b.store == nil {
		st, err := repostore.NewStore(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		b.store = st
	}
	if b.bus == nil {
		b.bus = eventbus.NewInMemoryBus()
	}

	if b.registry == nil {
		registry, err := buildRegistry(cfg)
		if err != nil {
			return nil, err
		}
		b.registry = registry
	}

	if b.notifier == nil && cfg.SlackEnabled() {
		b.notifier = notify.New(cfg.SlackBotToken, cfg.SlackChannel)
		log.Println("Slack announcements enabled")
	}

	if b.llm == nil {
		b.llm = llmClientFromConfig(cfg)
	}

	toolset := &Toolset{
		registry: b.registry,
		store:    b.store,
		bus:      b.bus,
		notifier: b.notifier,
	}

	prompts := prompt.NewBuilder(cfg.PromptCacheTTL)

	var executor *toolflow.Executor
	if b.llm != nil {
		executor = toolflow.NewExecutor(b.llm)
		registerToolFuncs(executor, toolset)
	}

	httpServer := server.New(cfg, server.Deps{
		Store:    b.store,
		Bus:      b.bus,
		Prompts:  prompts,
		LLM:      b.llm,
		Executor: executor,
		Tools:    ToolDefinitions(),
	})

	return &App{
		config:  cfg,
		store:   b.store,
		toolset: toolset,
		server:  httpServer,
		mcp:     mcpserver.New(toolset),
	}, nil
}

// App is a running GitScribe application.
type App struct {
	config  *config.Config
	store   *repostore.Store
	toolset *Toolset
	server  *server.Server
	mcp     *mcpsrv.MCPServer
}

// Toolset returns the Git operation surface for direct access.
func (a *App) Toolset() *Toolset { return a.toolset }

// Start runs the HTTP server. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	err := a.server.Start(ctx)
	if closeErr := a.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// ServeMCP serves the MCP tools over stdin/stdout until the client
// disconnects.
func (a *App) ServeMCP() error {
	defer a.store.Close()
	return mcpserver.ServeStdio(a.mcp)
}

// buildRegistry wires the per-service adapters the configuration enables.
func buildRegistry(cfg *config.Config) (*gittools.Registry, error) {
	factory := gittools.NewFactory()
	if err := factory.Register(model.ServiceGitHub, ghAdapter.NewAdapter); err != nil {
		return nil, err
	}
	if err := factory.Register(model.ServiceForgejo, fjAdapter.NewAdapter); err != nil {
		return nil, err
	}

	registry := gittools.NewRegistry(factory)
	if cfg.GitHubEnabled() {
		if err := registry.ConfigureService(model.ServiceGitHub, gittools.Config{
			AccessToken: cfg.GitHubToken,
		}, false); err != nil {
			return nil, fmt.Errorf("configuring github: %w", err)
		}
		log.Println("GitHub tools enabled")
	}
	if cfg.ForgejoEnabled() {
		if err := registry.ConfigureService(model.ServiceForgejo, gittools.Config{
			BaseURL:     cfg.ForgejoBaseURL,
			AccessToken: cfg.ForgejoToken,
			Username:    cfg.ForgejoUsername,
			Password:    cfg.ForgejoPassword,
		}, false); err != nil {
			return nil, fmt.Errorf("configuring forgejo: %w", err)
		}
		log.Println("Forgejo tools enabled")
	}
	return registry, nil
}

// llmClientFromConfig creates an LLM client from configuration.
// Returns nil if no API key is configured.
func llmClientFromConfig(cfg *config.Config) llm.Client {
	if cfg.AnthropicAPIKey != "" {
		return llmAnthropic.New(cfg.AnthropicAPIKey, cfg.LLMModel)
	}
	if cfg.OpenAIAPIKey != "" {
		return llmOpenAI.New(cfg.OpenAIAPIKey, cfg.LLMModel)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Toolset
// ---------------------------------------------------------------------------

// Toolset wraps the Git service registry with persistence and announcements:
// every successful operation is recorded in the store, published on the bus
// and, when configured, announced in Slack. Failures pass through untouched.
type Toolset struct {
	registry *gittools.Registry
	store    *repostore.Store
	bus      eventbus.Bus
	notifier *notify.Notifier
}

// CreateIssue creates an issue through the resolved service adapter.
func (t *Toolset) CreateIssue(ctx context.Context, service model.Service, req gittools.IssueRequest) gittools.Result {
	res := t.registry.CreateIssue(ctx, service, req)
	if res.Success {
		if issue, ok := res.Data.(*gittools.Issue); ok {
			t.recordEvent(req.Context, "issue_created", issue.Title, issue.URL)
		}
	}
	return res
}

// CreatePullRequest opens a pull request through the resolved service adapter.
func (t *Toolset) CreatePullRequest(ctx context.Context, service model.Service, req gittools.PullRequestRequest) gittools.Result {
	res := t.registry.CreatePullRequest(ctx, service, req)
	if res.Success {
		if pr, ok := res.Data.(*gittools.PullRequest); ok {
			t.recordEvent(req.Context, "pull_request_created", pr.Title, pr.URL)
		}
	}
	return res
}

// CheckRepositoryPermissions checks permissions through the resolved adapter.
// Permission checks are read-only and are not recorded or announced.
func (t *Toolset) CheckRepositoryPermissions(ctx context.Context, service model.Service, req gittools.PermissionsRequest) gittools.Result {
	return t.registry.CheckRepositoryPermissions(ctx, service, req)
}

func (t *Toolset) recordEvent(repoCtx map[string]any, kind, title, url string) {
	parsed, err := model.ContextFromMap(repoCtx)
	if err != nil {
		return
	}

	if t.store != nil {
		op := &repostore.Operation{
			Repository: parsed.FullName(),
			Service:    string(parsed.Service),
			Kind:       kind,
			Title:      title,
			URL:        url,
		}
		if err := t.store.RecordOperation(op); err != nil {
			log.Printf("Warning: recording operation failed: %v", err)
		}
	}

	ev := &eventbus.Event{
		Type:       kind,
		Service:    string(parsed.Service),
		Repository: parsed.FullName(),
		Title:      title,
		URL:        url,
		Time:       time.Now().UTC(),
	}
	if t.bus != nil {
		t.bus.Publish(parsed.FullName(), ev)
	}
	if t.notifier != nil {
		t.notifier.Announce(ev)
	}
}

// ---------------------------------------------------------------------------
// LLM tool wiring
// ---------------------------------------------------------------------------

// ToolDefinitions returns the Git tool definitions advertised to the LLM.
// The parameter schemas mirror the MCP tool surface; repository_context is
// injected by the dispatcher, never supplied by the model.
func ToolDefinitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "create_git_issue",
			Description: "閲覧中のリポジトリに Issue を作成します。",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Issue のタイトル"},
					"description": map[string]any{"type": "string", "description": "Issue の本文（Markdown）"},
					"labels":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"assignees":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "create_git_pull_request",
			Description: "閲覧中のリポジトリにプルリクエストを作成します。",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "プルリクエストのタイトル"},
					"description": map[string]any{"type": "string", "description": "プルリクエストの本文（Markdown）"},
					"head_branch": map[string]any{"type": "string", "description": "変更を含むブランチ"},
					"base_branch": map[string]any{"type": "string", "description": "マージ先ブランチ（省略時は main）"},
				},
				"required": []string{"title", "head_branch"},
			},
		},
		{
			Name:        "check_git_repository_permissions",
			Description: "閲覧中のリポジトリに対する権限を確認します。",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// registerToolFuncs binds the Git tools into the followup executor. The
// ambient repository context always comes from the dispatcher, keeping the
// operation scoped to the repository the user is viewing.
func registerToolFuncs(executor *toolflow.Executor, toolset *Toolset) {
	executor.RegisterFunction("create_git_issue", func(ctx context.Context, args, repoCtx map[string]any) (string, error) {
		res := toolset.CreateIssue(ctx, "", gittools.IssueRequest{
			Title:       strArg(args, "title"),
			Description: strArg(args, "description"),
			Labels:      strSliceArg(args, "labels"),
			Assignees:   strSliceArg(args, "assignees"),
			Context:     repoCtx,
		})
		return res.JSON(), nil
	})

	executor.RegisterFunction("create_git_pull_request", func(ctx context.Context, args, repoCtx map[string]any) (string, error) {
		res := toolset.CreatePullRequest(ctx, "", gittools.PullRequestRequest{
			Title:       strArg(args, "title"),
			Description: strArg(args, "description"),
			HeadBranch:  strArg(args, "head_branch"),
			BaseBranch:  strArg(args, "base_branch"),
			Context:     repoCtx,
		})
		return res.JSON(), nil
	})

	executor.RegisterFunction("check_git_repository_permissions", func(ctx context.Context, args, repoCtx map[string]any) (string, error) {
		res := toolset.CheckRepositoryPermissions(ctx, "", gittools.PermissionsRequest{
			Context: repoCtx,
		})
		return res.JSON(), nil
	})
}

func strArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func strSliceArg(args map[string]any, key string) []string {
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
