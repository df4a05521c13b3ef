// ABOUTME: MCP tool definitions and registration for the pipeline server
// ABOUTME: Exposes process_text and chat tools over stdio transport
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/infinitecontext/infinitectx/internal/core"
	"github.com/infinitecontext/infinitectx/internal/llm"
)

// RegisterTools registers the pipeline tools with the MCP server.
func RegisterTools(server *mcpserver.MCPServer, backend llm.Backend, chunkWords, maxConcurrent int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &Handlers{
		backend:    backend,
		chunker:    core.NewChunker(chunkWords),
		dispatcher: core.NewDispatcher(backend, maxConcurrent, logger),
		logger:     logger,
	}

	// process_text - run oversized text through the chunked pipeline
	server.AddTool(mcp.Tool{
		Name:        "process_text",
		Description: "Process text of any length by splitting it into bounded chunks, running every chunk through the model concurrently, and reassembling the per-chunk responses in order.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The request to apply to every chunk (e.g. 'summarize this section')",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "The full text to split and process",
				},
			},
			Required: []string{"message", "text"},
		},
	}, handlers.ProcessText)

	// chat - single inference call without chunking
	server.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Send a single message to the model without chunking. Use process_text for inputs that exceed one context window.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Message to send to the model",
				},
			},
			Required: []string{"message"},
		},
	}, handlers.Chat)

	return handlers
}
