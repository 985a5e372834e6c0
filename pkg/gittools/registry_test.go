package gittools

import (
	"context"
	"strings"
	"testing"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// fakeAdapter records calls and returns canned results.
type fakeAdapter struct {
	service model.Service
	calls   []string
	result  Result
}

func (f *fakeAdapter) Service() model.Service { return f.service }

func (f *fakeAdapter) CreateIssue(_ context.Context, req IssueRequest) Result {
	f.calls = append(f.calls, "issue:"+req.Title)
	return f.result
}

func (f *fakeAdapter) CreatePullRequest(_ context.Context, req PullRequestRequest) Result {
	f.calls = append(f.calls, "pr:"+req.Title)
	return f.result
}

func (f *fakeAdapter) CheckRepositoryPermissions(_ context.Context, _ PermissionsRequest) Result {
	f.calls = append(f.calls, "perms")
	return f.result
}

func testFactory(adapters map[model.Service]*fakeAdapter) *Factory {
	f := NewFactory()
	for svc, a := range adapters {
		a := a
		_ = f.Register(svc, func(Config) (Adapter, error) { return a, nil })
	}
	return f
}

func TestFactory_UnknownServiceFailsWithSupportedList(t *testing.T) {
	f := testFactory(map[model.Service]*fakeAdapter{
		model.ServiceGitHub: {service: model.ServiceGitHub},
	})
	_, err := f.Create("svn", Config{})
	if err == nil {
		t.Fatal("unknown service should fail")
	}
	if !strings.Contains(err.Error(), "github") {
		t.Errorf("error should list supported services: %v", err)
	}
}

func TestFactory_RegisterValidation(t *testing.T) {
	f := NewFactory()
	if err := f.Register("", func(Config) (Adapter, error) { return nil, nil }); err == nil {
		t.Error("empty service name should be rejected")
	}
	if err := f.Register(model.ServiceGitHub, nil); err == nil {
		t.Error("nil factory function should be rejected")
	}
}

func TestFactory_CreateFromContext(t *testing.T) {
	var gotCfg Config
	f := NewFactory()
	_ = f.Register(model.ServiceForgejo, func(cfg Config) (Adapter, error) {
		gotCfg = cfg
		return &fakeAdapter{service: model.ServiceForgejo}, nil
	})

	// Context-embedded base URL is used when config has none.
	_, err := f.CreateFromContext(map[string]any{
		"service":  "forgejo",
		"base_url": "https://git.example.com",
	}, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCfg.BaseURL != "https://git.example.com" {
		t.Errorf("base URL from context = %q", gotCfg.BaseURL)
	}

	// Explicit config wins over the context value.
	_, err = f.CreateFromContext(map[string]any{
		"service":  "forgejo",
		"base_url": "https://git.example.com",
	}, Config{BaseURL: "https://explicit.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCfg.BaseURL != "https://explicit.example.com" {
		t.Errorf("explicit config should win, got %q", gotCfg.BaseURL)
	}

	// Missing service is a hard failure.
	if _, err := f.CreateFromContext(map[string]any{"owner": "acme"}, Config{}); err == nil {
		t.Error("context without service should fail")
	}
	if _, err := f.CreateFromContext(nil, Config{}); err == nil {
		t.Error("nil context should fail")
	}
}

func TestRegistry_FirstConfiguredBecomesDefault(t *testing.T) {
	gh := &fakeAdapter{service: model.ServiceGitHub, result: OK(nil)}
	fg := &fakeAdapter{service: model.ServiceForgejo, result: OK(nil)}
	reg := NewRegistry(testFactory(map[model.Service]*fakeAdapter{
		model.ServiceGitHub:  gh,
		model.ServiceForgejo: fg,
	}))

	if err := reg.ConfigureService(model.ServiceGitHub, Config{}, false); err != nil {
		t.Fatalf("configure github: %v", err)
	}
	if err := reg.ConfigureService(model.ServiceForgejo, Config{}, false); err != nil {
		t.Fatalf("configure forgejo: %v", err)
	}
	if reg.DefaultService() != model.ServiceGitHub {
		t.Errorf("default = %q, want github", reg.DefaultService())
	}

	if err := reg.SetDefaultService(model.ServiceForgejo); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if reg.DefaultService() != model.ServiceForgejo {
		t.Errorf("default = %q, want forgejo", reg.DefaultService())
	}
	if err := reg.SetDefaultService("svn"); err == nil {
		t.Error("setting an unconfigured default should fail")
	}
}

func TestRegistry_GetAdapterResolution(t *testing.T) {
	reg := NewRegistry(testFactory(nil))
	if _, err := reg.GetAdapter(""); err == nil || !strings.Contains(err.Error(), "no default") {
		t.Errorf("empty registry should report missing default, got %v", err)
	}

	gh := &fakeAdapter{service: model.ServiceGitHub, result: OK(nil)}
	reg = NewRegistry(testFactory(map[model.Service]*fakeAdapter{model.ServiceGitHub: gh}))
	_ = reg.ConfigureService(model.ServiceGitHub, Config{}, false)

	if _, err := reg.GetAdapter(""); err != nil {
		t.Errorf("default resolution should succeed: %v", err)
	}
	if _, err := reg.GetAdapter(model.ServiceForgejo); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("unconfigured service should fail with 'not configured', got %v", err)
	}
}

func TestRegistry_ServiceInferredFromContext(t *testing.T) {
	gh := &fakeAdapter{service: model.ServiceGitHub, result: OK(nil)}
	reg := NewRegistry(testFactory(map[model.Service]*fakeAdapter{model.ServiceGitHub: gh}))
	_ = reg.ConfigureService(model.ServiceGitHub, Config{}, false)

	// Context names forgejo, which is not configured — the envelope must
	// say so even though github is the default.
	res := reg.CheckRepositoryPermissions(context.Background(), "", PermissionsRequest{
		Context: map[string]any{"service": "forgejo", "owner": "acme", "repo": "docs"},
	})
	if res.Success {
		t.Fatal("unconfigured context service should fail")
	}
	if !strings.Contains(res.Error, "forgejo") || !strings.Contains(res.Error, "not configured") {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if len(gh.calls) != 0 {
		t.Error("github adapter should not have been called")
	}

	// Context naming github routes to the github adapter.
	res = reg.CreateIssue(context.Background(), "", IssueRequest{
		Title:   "T",
		Context: map[string]any{"service": "github", "owner": "acme", "repo": "docs"},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if len(gh.calls) != 1 || gh.calls[0] != "issue:T" {
		t.Errorf("unexpected calls: %v", gh.calls)
	}
}

func TestRegistry_ContextServiceCaseInsensitive(t *testing.T) {
	gh := &fakeAdapter{service: model.ServiceGitHub, result: OK(nil)}
	reg := NewRegistry(testFactory(map[model.Service]*fakeAdapter{model.ServiceGitHub: gh}))
	_ = reg.ConfigureService(model.ServiceGitHub, Config{}, false)

	res := reg.CreateIssue(context.Background(), "", IssueRequest{
		Title:   "T",
		Context: map[string]any{"service": "GitHub", "owner": "acme", "repo": "docs"},
	})
	if !res.Success {
		t.Fatalf("mixed-case service should route to the configured adapter: %+v", res)
	}
	if len(gh.calls) != 1 {
		t.Errorf("unexpected calls: %v", gh.calls)
	}
}

func TestRegistry_ExplicitServiceWinsOverContext(t *testing.T) {
	gh := &fakeAdapter{service: model.ServiceGitHub, result: OK(nil)}
	fg := &fakeAdapter{service: model.ServiceForgejo, result: OK(nil)}
	reg := NewRegistry(testFactory(map[model.Service]*fakeAdapter{
		model.ServiceGitHub:  gh,
		model.ServiceForgejo: fg,
	}))
	_ = reg.ConfigureService(model.ServiceGitHub, Config{}, false)
	_ = reg.ConfigureService(model.ServiceForgejo, Config{}, false)

	res := reg.CreatePullRequest(context.Background(), model.ServiceForgejo, PullRequestRequest{
		Title:      "P",
		HeadBranch: "feature",
		Context:    map[string]any{"service": "github", "owner": "acme", "repo": "docs"},
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if len(fg.calls) != 1 || len(gh.calls) != 0 {
		t.Errorf("explicit service should win: forgejo=%v github=%v", fg.calls, gh.calls)
	}
}
