// Package config provides configuration management for GitScribe.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration for the GitScribe server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7080").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// GitHubToken is the personal access token for GitHub API operations.
	GitHubToken string

	// Forgejo connection settings. ForgejoBaseURL is mandatory when the
	// forgejo service is used; the credentials are optional.
	ForgejoBaseURL  string
	ForgejoToken    string
	ForgejoUsername string
	ForgejoPassword string

	// LLM provider API keys. At least one must be set.
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// LLMModel overrides the provider's default model when non-empty.
	LLMModel string

	// Slack integration (optional).
	// SlackBotToken is the Bot User OAuth Token (xoxb-...).
	SlackBotToken string
	// SlackChannel is the channel operation announcements are posted to.
	SlackChannel string

	// PromptCacheTTL is how long a rendered system prompt stays cached.
	// Default: 30 minutes.
	PromptCacheTTL time.Duration
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// Load config file (~/.gitscribe/config.env) into the environment.
	// Existing env vars take precedence (loadConfigFile only sets unset vars).
	loadConfigFile()

	dataDir := envOr("GITSCRIBE_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:      envOr("GITSCRIBE_ADDR", ":7080"),
		DataDir:         dataDir,
		DatabasePath:    filepath.Join(dataDir, "gitscribe.db"),
		GitHubToken:     envOr("GITHUB_TOKEN", os.Getenv("GITHUB_ACCESS_TOKEN")),
		ForgejoBaseURL:  os.Getenv("FORGEJO_BASE_URL"),
		ForgejoToken:    envOr("FORGEJO_TOKEN", os.Getenv("FORGEJO_ACCESS_TOKEN")),
		ForgejoUsername: os.Getenv("FORGEJO_USERNAME"),
		ForgejoPassword: os.Getenv("FORGEJO_PASSWORD"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		LLMModel:        os.Getenv("GITSCRIBE_LLM_MODEL"),
		SlackBotToken:   os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:    os.Getenv("SLACK_CHANNEL"),
		PromptCacheTTL:  envOrDuration("GITSCRIBE_PROMPT_CACHE_TTL", 30*time.Minute),
	}

	return cfg, nil
}

// loadConfigFile reads ~/.gitscribe/config.env and sets any values that are
// not already present in the environment. This ensures env vars always win.
func loadConfigFile() {
	path := filepath.Join(defaultDataDir(), "config.env")
	f, err := os.Open(path)
	if err != nil {
		return // file doesn't exist or can't be read — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		// Only set if not already in the environment.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one of ANTHROPIC_API_KEY or OPENAI_API_KEY is required")
	}
	return nil
}

// GitHubEnabled returns true if GitHub credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubToken != ""
}

// ForgejoEnabled returns true if a Forgejo instance is configured.
func (c *Config) ForgejoEnabled() bool {
	return c.ForgejoBaseURL != ""
}

// SlackEnabled returns true if Slack announcements are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gitscribe"
	}
	return filepath.Join(home, ".gitscribe")
}
