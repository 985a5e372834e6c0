// GitScribe
//
// A context-aware Git assistant: chat with an LLM about the repository and
// document you are viewing, and let it open issues and pull requests for you.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitscribe/gitscribe"
	"github.com/gitscribe/gitscribe/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gitscribe",
	Short: "GitScribe - Context-Aware Git Assistant",
	Long: `GitScribe augments LLM conversations with the repository and document
you are viewing, and lets the LLM create issues and pull requests for you.

  gitscribe config setup    Set up tokens (first time)
  gitscribe serve           Start the HTTP API server
  gitscribe mcp             Serve the Git tools over MCP (stdio)`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GitScribe HTTP API server",
	Long: `Start the HTTP API server. Requires at least one LLM API key
(ANTHROPIC_API_KEY or OPENAI_API_KEY).`,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Git tools over MCP on stdin/stdout",
	Long: `Expose create_git_issue, create_git_pull_request and
check_git_repository_permissions to an MCP client over stdio.
No LLM API key is needed; the connected client brings its own model.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := gitscribe.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Start(ctx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Stdout belongs to the MCP transport.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	app, err := gitscribe.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	return app.ServeMCP()
}
