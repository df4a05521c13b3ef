// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to run the chunked pipeline via stdio
package commands

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/infinitecontext/infinitectx/internal/config"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the pipeline as an MCP (Model Context Protocol) server over
stdio. Agents get a process_text tool that chunks oversized text,
fans it out to the model, and returns the reassembled composite.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an agent host)
  infinitectx mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "infinitectx": {
  #       "command": "infinitectx",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - inference calls will fail")
	}

	backend, err := llm.New(cfg.Backend, llm.Config{
		APIKey:     cfg.OpenAIKey,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}

	server := mcpserver.NewMCPServer(
		"Infinite Context",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, backend, cfg.ChunkWords, cfg.MaxConcurrent, newLogger())

	// Graceful shutdown on interrupt
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("Infinite Context MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, shutting down...")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
