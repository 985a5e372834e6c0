package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gitscribe/gitscribe/internal/config"
)

// clearConfigEnv unsets all environment variables that Load reads so each
// sub-test starts from a clean slate.  t.Setenv already restores values
// after the test, but we also need to make sure variables from the outer
// process don't leak into "defaults" tests.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GITSCRIBE_ADDR",
		"GITSCRIBE_DATA_DIR",
		"GITSCRIBE_LLM_MODEL",
		"GITSCRIBE_PROMPT_CACHE_TTL",
		"GITHUB_TOKEN",
		"GITHUB_ACCESS_TOKEN",
		"FORGEJO_BASE_URL",
		"FORGEJO_TOKEN",
		"FORGEJO_ACCESS_TOKEN",
		"FORGEJO_USERNAME",
		"FORGEJO_PASSWORD",
		"ANTHROPIC_API_KEY",
		"OPENAI_API_KEY",
		"SLACK_BOT_TOKEN",
		"SLACK_CHANNEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	// Use a temp dir so MkdirAll does not fail and we don't pollute $HOME.
	tmpDir := t.TempDir()
	t.Setenv("GITSCRIBE_DATA_DIR", tmpDir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerAddr != ":7080" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, ":7080")
	}
	if cfg.DataDir != tmpDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, tmpDir)
	}
	wantDB := filepath.Join(tmpDir, "gitscribe.db")
	if cfg.DatabasePath != wantDB {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, wantDB)
	}
	if cfg.PromptCacheTTL != 30*time.Minute {
		t.Errorf("PromptCacheTTL = %v, want 30m", cfg.PromptCacheTTL)
	}
	if cfg.GitHubToken != "" {
		t.Errorf("GitHubToken = %q, want empty", cfg.GitHubToken)
	}
	if cfg.ForgejoBaseURL != "" {
		t.Errorf("ForgejoBaseURL = %q, want empty", cfg.ForgejoBaseURL)
	}
	if cfg.SlackBotToken != "" {
		t.Errorf("SlackBotToken = %q, want empty", cfg.SlackBotToken)
	}
}

func TestLoad_CustomEnvVars(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()

	t.Setenv("GITSCRIBE_ADDR", ":9090")
	t.Setenv("GITSCRIBE_DATA_DIR", tmpDir)
	t.Setenv("GITSCRIBE_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("GITSCRIBE_PROMPT_CACHE_TTL", "5m")
	t.Setenv("GITHUB_TOKEN", "ghp_test123")
	t.Setenv("FORGEJO_BASE_URL", "https://git.example.com")
	t.Setenv("FORGEJO_TOKEN", "fj_token")
	t.Setenv("FORGEJO_USERNAME", "bot")
	t.Setenv("FORGEJO_PASSWORD", "secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL", "#git-activity")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"ServerAddr", cfg.ServerAddr, ":9090"},
		{"DataDir", cfg.DataDir, tmpDir},
		{"DatabasePath", cfg.DatabasePath, filepath.Join(tmpDir, "gitscribe.db")},
		{"LLMModel", cfg.LLMModel, "gpt-4o-mini"},
		{"GitHubToken", cfg.GitHubToken, "ghp_test123"},
		{"ForgejoBaseURL", cfg.ForgejoBaseURL, "https://git.example.com"},
		{"ForgejoToken", cfg.ForgejoToken, "fj_token"},
		{"ForgejoUsername", cfg.ForgejoUsername, "bot"},
		{"ForgejoPassword", cfg.ForgejoPassword, "secret"},
		{"AnthropicAPIKey", cfg.AnthropicAPIKey, "sk-ant-test"},
		{"OpenAIAPIKey", cfg.OpenAIAPIKey, "sk-openai-test"},
		{"SlackBotToken", cfg.SlackBotToken, "xoxb-test"},
		{"SlackChannel", cfg.SlackChannel, "#git-activity"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if cfg.PromptCacheTTL != 5*time.Minute {
		t.Errorf("PromptCacheTTL = %v, want 5m", cfg.PromptCacheTTL)
	}
}

func TestLoad_TokenFallbacks(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GITSCRIBE_DATA_DIR", t.TempDir())
	t.Setenv("GITHUB_ACCESS_TOKEN", "ghp_alt")
	t.Setenv("FORGEJO_ACCESS_TOKEN", "fj_alt")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.GitHubToken != "ghp_alt" {
		t.Errorf("GitHubToken = %q, want fallback ghp_alt", cfg.GitHubToken)
	}
	if cfg.ForgejoToken != "fj_alt" {
		t.Errorf("ForgejoToken = %q, want fallback fj_alt", cfg.ForgejoToken)
	}
}

func TestLoad_CreatesDataDir(t *testing.T) {
	clearConfigEnv(t)

	base := t.TempDir()
	nested := filepath.Join(base, "a", "b", "c")
	t.Setenv("GITSCRIBE_DATA_DIR", nested)

	_, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	info, statErr := os.Stat(nested)
	if statErr != nil {
		t.Fatalf("data dir was not created: %v", statErr)
	}
	if !info.IsDir() {
		t.Fatal("data dir path exists but is not a directory")
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_MissingLLMKeys(t *testing.T) {
	cfg := &config.Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should return an error when both LLM keys are missing")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") && !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error message %q should mention the LLM key requirement", err.Error())
	}
}

func TestValidate_ValidWithAnthropic(t *testing.T) {
	cfg := &config.Config{AnthropicAPIKey: "sk-ant-test"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned unexpected error: %v", err)
	}
}

func TestValidate_ValidWithOpenAI(t *testing.T) {
	cfg := &config.Config{OpenAIAPIKey: "sk-openai-test"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Feature toggles
// ---------------------------------------------------------------------------

func TestGitHubEnabled(t *testing.T) {
	if (&config.Config{}).GitHubEnabled() {
		t.Error("GitHubEnabled() = true, want false without a token")
	}
	if !(&config.Config{GitHubToken: "ghp_x"}).GitHubEnabled() {
		t.Error("GitHubEnabled() = false, want true with a token")
	}
}

func TestForgejoEnabled(t *testing.T) {
	if (&config.Config{}).ForgejoEnabled() {
		t.Error("ForgejoEnabled() = true, want false without a base URL")
	}
	if !(&config.Config{ForgejoBaseURL: "https://git.example.com"}).ForgejoEnabled() {
		t.Error("ForgejoEnabled() = false, want true with a base URL")
	}
}

func TestSlackEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"both set", config.Config{SlackBotToken: "xoxb", SlackChannel: "#c"}, true},
		{"missing channel", config.Config{SlackBotToken: "xoxb"}, false},
		{"missing token", config.Config{SlackChannel: "#c"}, false},
		{"both missing", config.Config{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.SlackEnabled(); got != tt.want {
				t.Errorf("SlackEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
