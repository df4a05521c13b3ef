// ABOUTME: MCP tool handler implementations for the pipeline server
// ABOUTME: Runs chunk, dispatch, and reassemble and returns the merged composite
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/infinitecontext/infinitectx/internal/core"
	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/models"
)

// Handlers holds the pipeline pieces behind the MCP tools.
type Handlers struct {
	backend    llm.Backend
	chunker    *core.Chunker
	dispatcher *core.Dispatcher
	logger     *slog.Logger
}

// ProcessText handles the process_text tool.
func (h *Handlers) ProcessText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	env := models.RequestEnvelope{
		Message:  message,
		Mode:     models.ModeInfinite,
		FullText: text,
	}
	units := h.chunker.Chunk(env)
	if len(units) == 0 {
		return mcp.NewToolResultError("text contains nothing to process"), nil
	}

	reassembler := core.NewReassembler()
	summary, err := h.dispatcher.Dispatch(ctx, units, func(res models.UnitResult) error {
		reassembler.Fold(res)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", llm.UserMessage(err), err)), nil
	}

	response := map[string]interface{}{
		"response":        reassembler.Render(),
		"total_processed": summary.TotalProcessed,
		"error_count":     summary.ErrorCount,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// Chat handles the chat tool.
func (h *Handlers) Chat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}

	response, err := h.backend.Generate(ctx, message, nil)
	if err != nil {
		h.logger.Warn("chat tool call failed", "error", err)
		return mcp.NewToolResultError(llm.UserMessage(err)), nil
	}
	return mcp.NewToolResultText(response), nil
}
