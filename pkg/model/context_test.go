package model

import (
	"strings"
	"testing"
)

func TestNewRepositoryContext_Defaults(t *testing.T) {
	ctx, err := NewRepositoryContext(ServiceGitHub, "acme", "docs", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Ref != "main" {
		t.Errorf("ref should default to main, got %q", ctx.Ref)
	}
	if ctx.FullName() != "acme/docs" {
		t.Errorf("full name = %q, want acme/docs", ctx.FullName())
	}
}

func TestNewRepositoryContext_ServiceNormalized(t *testing.T) {
	ctx, err := NewRepositoryContext("GitHub", "acme", "docs", "main", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Service != ServiceGitHub {
		t.Errorf("service = %q, want canonical %q", ctx.Service, ServiceGitHub)
	}
	if ctx.ToMap()["service"] != "github" {
		t.Errorf("map service = %q, want github", ctx.ToMap()["service"])
	}

	ctx, err = ContextFromMap(map[string]any{"service": " FORGEJO ", "owner": "acme", "repo": "docs"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Service != ServiceForgejo {
		t.Errorf("service = %q, want canonical %q", ctx.Service, ServiceForgejo)
	}
}

func TestNewRepositoryContext_NameValidation(t *testing.T) {
	tests := []struct {
		owner, repo string
		wantErr     bool
	}{
		{"acme", "docs", false},
		{"a", "b", false}, // single alphanumeric is valid
		{"acme-corp", "my.repo_x", false},
		{"", "docs", true},
		{"-acme", "docs", true}, // must start alphanumeric
		{"acme", "docs-", true}, // must end alphanumeric
		{"ac me", "docs", true}, // no spaces
		{"acme", "do/cs", true}, // no slashes
	}
	for _, tt := range tests {
		_, err := NewRepositoryContext(ServiceGitHub, tt.owner, tt.repo, "main", "", "")
		if (err != nil) != tt.wantErr {
			t.Errorf("NewRepositoryContext(%q, %q) error = %v, wantErr %v", tt.owner, tt.repo, err, tt.wantErr)
		}
	}
}

func TestNewRepositoryContext_PathNormalization(t *testing.T) {
	ctx, err := NewRepositoryContext(ServiceGitHub, "acme", "docs", "main", "/docs/README.md", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.CurrentPath != "docs/README.md" {
		t.Errorf("leading slash should be stripped, got %q", ctx.CurrentPath)
	}

	if _, err := NewRepositoryContext(ServiceGitHub, "acme", "docs", "main", "../etc/passwd", ""); err == nil {
		t.Error("path containing .. should be rejected")
	}
	if _, err := NewRepositoryContext(ServiceGitHub, "acme", "docs", "main", ".hidden", ""); err == nil {
		t.Error("path starting with . should be rejected")
	}
}

func TestRepositoryURL_PerService(t *testing.T) {
	tests := []struct {
		service Service
		baseURL string
		want    string
	}{
		{ServiceGitHub, "", "https://github.com/acme/docs"},
		{ServiceGitLab, "", "https://gitlab.com/acme/docs"},
		{ServiceBitbucket, "", "https://bitbucket.org/acme/docs"},
		{ServiceForgejo, "https://git.example.com", "https://git.example.com/acme/docs"},
		{ServiceGitHub, "https://ghe.internal", "https://ghe.internal/acme/docs"},
	}
	for _, tt := range tests {
		ctx, err := NewRepositoryContext(tt.service, "acme", "docs", "main", "", tt.baseURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ctx.RepositoryURL(); got != tt.want {
			t.Errorf("%s repository URL = %q, want %q", tt.service, got, tt.want)
		}
	}
}

func TestDocumentURL_PerServiceConvention(t *testing.T) {
	tests := []struct {
		service  Service
		baseURL  string
		fragment string
	}{
		{ServiceGitHub, "", "/blob/main/docs/README.md"},
		{ServiceGitLab, "", "/-/blob/main/docs/README.md"},
		{ServiceBitbucket, "", "/src/main/docs/README.md"},
		{ServiceForgejo, "https://git.example.com", "/src/branch/main/docs/README.md"},
	}
	for _, tt := range tests {
		ctx, err := NewRepositoryContext(tt.service, "acme", "docs", "main", "docs/README.md", tt.baseURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ctx.DocumentURL(); !strings.HasSuffix(got, tt.fragment) {
			t.Errorf("%s document URL = %q, want suffix %q", tt.service, got, tt.fragment)
		}
	}
}

func TestDocumentURL_EmptyWithoutPath(t *testing.T) {
	ctx, _ := NewRepositoryContext(ServiceGitHub, "acme", "docs", "main", "", "")
	if got := ctx.DocumentURL(); got != "" {
		t.Errorf("document URL without a path should be empty, got %q", got)
	}
}

func TestContextFromMap(t *testing.T) {
	ctx, err := ContextFromMap(map[string]any{
		"service":      "forgejo",
		"owner":        "acme",
		"repo":         "docs",
		"ref":          "develop",
		"current_path": "README.md",
		"base_url":     "https://git.example.com/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Service != ServiceForgejo || ctx.Ref != "develop" {
		t.Errorf("unexpected context: %+v", ctx)
	}
	if ctx.BaseURL != "https://git.example.com" {
		t.Errorf("base URL should be trimmed, got %q", ctx.BaseURL)
	}

	if _, err := ContextFromMap(nil); err == nil {
		t.Error("nil map should be rejected")
	}
	if _, err := ContextFromMap(map[string]any{"owner": "acme", "repo": "docs"}); err == nil {
		t.Error("missing service should be rejected")
	}
}

func TestToMap_RoundTrip(t *testing.T) {
	ctx, _ := NewRepositoryContext(ServiceGitHub, "acme", "docs", "main", "src/app.py", "")
	m := ctx.ToMap()
	if m["service"] != "github" || m["owner"] != "acme" || m["repo"] != "docs" {
		t.Errorf("unexpected map: %+v", m)
	}
	back, err := ContextFromMap(m)
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back.FullName() != ctx.FullName() || back.CurrentPath != ctx.CurrentPath {
		t.Errorf("round trip mismatch: %+v vs %+v", back, ctx)
	}
}
