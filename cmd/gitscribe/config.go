package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// configKey describes a single configuration value.
type configKey struct {
	Key    string
	Desc   string
	Secret bool
	Prefix string // expected prefix for validation (e.g. "xoxb-"), empty = no check
}

// allConfigKeys lists every configurable value in display order.
var allConfigKeys = []configKey{
	{"ANTHROPIC_API_KEY", "Anthropic API key", true, "sk-ant-"},
	{"OPENAI_API_KEY", "OpenAI API key", true, "sk-"},
	{"GITSCRIBE_LLM_MODEL", "Model override (empty = provider default)", false, ""},
	{"GITHUB_TOKEN", "GitHub personal access token (repo scope)", true, ""},
	{"FORGEJO_BASE_URL", "Forgejo instance URL (e.g. https://git.example.com)", false, ""},
	{"FORGEJO_TOKEN", "Forgejo access token", true, ""},
	{"SLACK_BOT_TOKEN", "Slack Bot User OAuth Token (xoxb-...)", true, "xoxb-"},
	{"SLACK_CHANNEL", "Slack channel for operation announcements", false, ""},
	{"GITSCRIBE_ADDR", "HTTP listen address (default :7080)", false, ""},
}

// ---------------------------------------------------------------------------
// Cobra commands
// ---------------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage GitScribe configuration",
	Long: `Manage GitScribe configuration (tokens, API keys, etc.).

Configuration is stored in ~/.gitscribe/config.env and can be overridden
by environment variables.

  gitscribe config setup              Interactive setup wizard
  gitscribe config set KEY VALUE      Set a single config value
  gitscribe config show               Show current configuration
  gitscribe config path               Print config file path`,
}

var (
	setupNonInteractive bool
	setupAnthropicKey   string
	setupOpenAIKey      string
	setupGitHubToken    string
)

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long: `Guided setup that walks you through configuring GitScribe step by step.
It groups settings into logical sections and validates your input.

Non-interactive mode for CI/scripting:
  gitscribe config setup --non-interactive --anthropic-key=sk-ant-xxx --github-token=ghp_xxx`,
	RunE: runConfigSetup,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a single configuration value. Example:
  gitscribe config set GITHUB_TOKEN ghp_xxxxxxxxxxxx`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all configured values. Secrets are masked.",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(configFilePath())
		return nil
	},
}

func init() {
	configSetupCmd.Flags().BoolVar(&setupNonInteractive, "non-interactive", false, "Run without prompts (requires an LLM key flag)")
	configSetupCmd.Flags().StringVar(&setupAnthropicKey, "anthropic-key", "", "Anthropic API key (non-interactive mode)")
	configSetupCmd.Flags().StringVar(&setupOpenAIKey, "openai-key", "", "OpenAI API key (non-interactive mode)")
	configSetupCmd.Flags().StringVar(&setupGitHubToken, "github-token", "", "GitHub token (non-interactive mode)")

	configCmd.AddCommand(configSetupCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// ---------------------------------------------------------------------------
// Config file helpers
// ---------------------------------------------------------------------------

// configFilePath returns ~/.gitscribe/config.env.
func configFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gitscribe", "config.env")
	}
	return filepath.Join(home, ".gitscribe", "config.env")
}

// loadConfigFile reads key=value pairs from the config file.
func loadConfigFile() (map[string]string, error) {
	values := make(map[string]string)
	path := configFilePath()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			values[parts[0]] = parts[1]
		}
	}
	return values, scanner.Err()
}

// saveConfigFile writes key=value pairs to the config file.
func saveConfigFile(values map[string]string) error {
	path := configFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# GitScribe configuration")
	fmt.Fprintln(f, "# Managed by: gitscribe config")
	fmt.Fprintln(f, "# Environment variables override these values.")
	fmt.Fprintln(f)

	// Write in a stable order: known keys first, then any extras.
	written := make(map[string]bool)
	for _, ck := range allConfigKeys {
		if v, ok := values[ck.Key]; ok && v != "" {
			fmt.Fprintf(f, "%s=%s\n", ck.Key, v)
			written[ck.Key] = true
		}
	}

	var extras []string
	for k := range values {
		if !written[k] && values[k] != "" {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(f, "%s=%s\n", k, values[k])
	}

	return nil
}

// effectiveValue returns the current value for a key, preferring env vars over config file.
func effectiveValue(key string, fileValues map[string]string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fileValues[key]
}

// maskSecret masks a secret string, showing only the first 4 and last 4 characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// ---------------------------------------------------------------------------
// Interactive helpers
// ---------------------------------------------------------------------------

// wizard holds shared state for the interactive setup.
type wizard struct {
	reader     *bufio.Reader
	fileValues map[string]string
	changed    int // number of values the user entered or changed
}

// newWizard creates a wizard with existing config values loaded.
func newWizard(fileValues map[string]string) *wizard {
	return &wizard{
		reader:     bufio.NewReader(os.Stdin),
		fileValues: fileValues,
	}
}

// askYesNo asks a yes/no question and returns true for yes.
// defaultYes controls what happens when the user presses Enter.
func (w *wizard) askYesNo(prompt string, defaultYes bool) (bool, error) {
	hint := "[Y/n]"
	if !defaultYes {
		hint = "[y/N]"
	}
	fmt.Printf("  %s %s ", prompt, hint)
	input, err := w.reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultYes, nil
	}
	return input == "y" || input == "yes", nil
}

// askValue prompts for a single config value with validation.
// Returns true if a new value was accepted.
func (w *wizard) askValue(ck configKey) (bool, error) {
	current := effectiveValue(ck.Key, w.fileValues)

	// Status indicator.
	status := "\033[31m✗ not set\033[0m"
	if current != "" {
		if ck.Secret {
			status = fmt.Sprintf("\033[32m✓ set\033[0m (%s)", maskSecret(current))
		} else {
			status = fmt.Sprintf("\033[32m✓ set\033[0m (%s)", current)
		}
	}

	fmt.Printf("  %s  %s\n", ck.Key, status)

	for {
		fmt.Print("  Paste value (Enter to keep): ")
		input, err := w.reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		input = strings.TrimSpace(input)

		// Enter = keep current.
		if input == "" {
			return false, nil
		}

		// Validate prefix if defined.
		if ck.Prefix != "" && !strings.HasPrefix(input, ck.Prefix) {
			fmt.Printf("  \033[33m!\033[0m  That doesn't look right — expected prefix \"%s\". Try again or press Enter to skip.\n", ck.Prefix)
			continue
		}

		// Base URLs must be absolute.
		if strings.HasSuffix(ck.Key, "_BASE_URL") {
			if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
				fmt.Print("  \033[33m!\033[0m  Expected a full URL (e.g. https://git.example.com). Try again or press Enter to skip.\n")
				continue
			}
		}

		w.fileValues[ck.Key] = input
		w.changed++
		fmt.Printf("  \033[32m✓ saved\033[0m\n")
		return true, nil
	}
}

// ---------------------------------------------------------------------------
// Setup wizard (guided, multi-step)
// ---------------------------------------------------------------------------

func runConfigSetup(cmd *cobra.Command, args []string) error {
	fileValues, err := loadConfigFile()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if setupNonInteractive {
		return runNonInteractiveSetup(fileValues)
	}

	w := newWizard(fileValues)

	fmt.Println()
	fmt.Println("  \033[1mGitScribe Setup\033[0m")
	fmt.Println("  ───────────────")
	fmt.Println("  This wizard will walk you through configuring GitScribe.")
	fmt.Println("  Press Enter at any prompt to keep the current value.")
	fmt.Println()

	// ── Step 1: LLM API Key ─────────────────────────────────────────────
	fmt.Println("  \033[1mStep 1 of 4 — LLM API Key (at least one required)\033[0m")
	fmt.Println("  GitScribe needs an LLM to answer questions and drive the Git tools.")
	fmt.Println("  You need at least one of Anthropic (Claude) or OpenAI.")
	fmt.Println()

	for {
		if _, err := w.askValue(findKey("ANTHROPIC_API_KEY")); err != nil {
			return err
		}
		fmt.Println()
		if _, err := w.askValue(findKey("OPENAI_API_KEY")); err != nil {
			return err
		}
		if effectiveValue("ANTHROPIC_API_KEY", w.fileValues) != "" ||
			effectiveValue("OPENAI_API_KEY", w.fileValues) != "" {
			break
		}
		fmt.Println()
		fmt.Println("  \033[33m!\033[0m  At least one LLM key is required. Please paste a key or Ctrl+C to quit.")
	}
	fmt.Println()

	// ── Step 2: GitHub ───────────────────────────────────────────────────
	fmt.Println("  \033[1mStep 2 of 4 — GitHub Token (optional)\033[0m")
	fmt.Println("  Needed to create issues and pull requests on GitHub repositories.")
	fmt.Println("  Create one at: \033[4mhttps://github.com/settings/tokens\033[0m")
	fmt.Println("  Required scopes: \033[1mrepo\033[0m")
	fmt.Println()

	if _, err := w.askValue(findKey("GITHUB_TOKEN")); err != nil {
		return err
	}
	fmt.Println()

	// ── Step 3: Forgejo ──────────────────────────────────────────────────
	fmt.Println("  \033[1mStep 3 of 4 — Forgejo (optional)\033[0m")
	fmt.Println("  For self-hosted Forgejo or Gitea instances. The instance URL is")
	fmt.Println("  mandatory if you use Forgejo at all.")
	fmt.Println()

	doForgejo, err := w.askYesNo("Set up Forgejo?", false)
	if err != nil {
		return err
	}

	if doForgejo {
		fmt.Println()
		if _, err := w.askValue(findKey("FORGEJO_BASE_URL")); err != nil {
			return err
		}
		fmt.Println()
		if _, err := w.askValue(findKey("FORGEJO_TOKEN")); err != nil {
			return err
		}
	} else {
		fmt.Println("  Skipped. You can set this up later with: gitscribe config setup")
	}
	fmt.Println()

	// ── Step 4: Slack ────────────────────────────────────────────────────
	fmt.Println("  \033[1mStep 4 of 4 — Slack Announcements (optional)\033[0m")
	fmt.Println("  Announce created issues and pull requests in a Slack channel.")
	fmt.Println()

	doSlack, err := w.askYesNo("Set up Slack?", false)
	if err != nil {
		return err
	}

	if doSlack {
		fmt.Println()
		if _, err := w.askValue(findKey("SLACK_BOT_TOKEN")); err != nil {
			return err
		}
		fmt.Println()
		if _, err := w.askValue(findKey("SLACK_CHANNEL")); err != nil {
			return err
		}
	} else {
		fmt.Println("  Skipped. You can set this up later with: gitscribe config setup")
	}
	fmt.Println()

	// ── Save ─────────────────────────────────────────────────────────────
	if err := saveConfigFile(w.fileValues); err != nil {
		return err
	}

	// ── Summary ──────────────────────────────────────────────────────────
	fmt.Println("  \033[1mConfiguration Summary\033[0m")
	fmt.Println("  ────────────────────")
	printSummaryLine("Anthropic", effectiveValue("ANTHROPIC_API_KEY", w.fileValues) != "")
	printSummaryLine("OpenAI", effectiveValue("OPENAI_API_KEY", w.fileValues) != "")
	printSummaryLine("GitHub", effectiveValue("GITHUB_TOKEN", w.fileValues) != "")
	printSummaryLine("Forgejo", effectiveValue("FORGEJO_BASE_URL", w.fileValues) != "")
	printSummaryLine("Slack", effectiveValue("SLACK_BOT_TOKEN", w.fileValues) != "" &&
		effectiveValue("SLACK_CHANNEL", w.fileValues) != "")
	fmt.Println()
	fmt.Printf("  Saved to %s\n", configFilePath())
	fmt.Println()

	fmt.Println("  \033[1mNext Steps\033[0m")
	fmt.Println("  ──────────")
	fmt.Println("  1. Start the server:       gitscribe serve")
	fmt.Println("  2. Or serve MCP tools:     gitscribe mcp")
	fmt.Println()

	return nil
}

// runNonInteractiveSetup handles --non-interactive mode.
func runNonInteractiveSetup(fileValues map[string]string) error {
	if setupAnthropicKey == "" && setupOpenAIKey == "" {
		return fmt.Errorf("--anthropic-key or --openai-key is required in non-interactive mode")
	}

	if setupAnthropicKey != "" {
		fileValues["ANTHROPIC_API_KEY"] = setupAnthropicKey
	}
	if setupOpenAIKey != "" {
		fileValues["OPENAI_API_KEY"] = setupOpenAIKey
	}
	if setupGitHubToken != "" {
		fileValues["GITHUB_TOKEN"] = setupGitHubToken
	}

	if err := saveConfigFile(fileValues); err != nil {
		return err
	}

	fmt.Printf("Config written to %s\n", configFilePath())
	return nil
}

// findKey looks up a configKey by name.
func findKey(name string) configKey {
	for _, ck := range allConfigKeys {
		if ck.Key == name {
			return ck
		}
	}
	return configKey{Key: name}
}

// printSummaryLine prints a check or cross for a config section.
func printSummaryLine(label string, ok bool) {
	if ok {
		fmt.Printf("  \033[32m✓\033[0m %-12s configured\n", label)
	} else {
		fmt.Printf("  \033[90m-\033[0m %-12s not configured\n", label)
	}
}

// ---------------------------------------------------------------------------
// config set / config show
// ---------------------------------------------------------------------------

// runConfigSet sets a single key=value in the config file.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	fileValues, err := loadConfigFile()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	fileValues[key] = value

	if err := saveConfigFile(fileValues); err != nil {
		return err
	}

	isSecret := false
	for _, ck := range allConfigKeys {
		if ck.Key == key && ck.Secret {
			isSecret = true
			break
		}
	}

	if isSecret {
		fmt.Printf("Set %s = %s\n", key, maskSecret(value))
	} else {
		fmt.Printf("Set %s = %s\n", key, value)
	}
	return nil
}

// runConfigShow displays the current effective configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	fileValues, err := loadConfigFile()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	fmt.Printf("Config file: %s\n\n", configFilePath())

	for _, ck := range allConfigKeys {
		value := effectiveValue(ck.Key, fileValues)
		source := ""
		if os.Getenv(ck.Key) != "" {
			source = " (from env)"
		} else if fileValues[ck.Key] != "" {
			source = " (from config file)"
		}

		display := "(not set)"
		if value != "" {
			if ck.Secret {
				display = maskSecret(value)
			} else {
				display = value
			}
		}

		fmt.Printf("  %-25s %s%s\n", ck.Key, display, source)
	}

	return nil
}
