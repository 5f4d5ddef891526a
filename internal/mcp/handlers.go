package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	tok ops.Tokenizer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, tok ops.Tokenizer) *Handlers {
	return &Handlers{db: db, cfg: cfg, tok: tok}
}

// Request types for each tool

// EncodeRequest represents the arguments for piece_encode.
type EncodeRequest struct {
	Path     string  `json:"path"`
	Name     string  `json:"name,omitempty"`
	Familize *bool   `json:"familize,omitempty"`
	Store    bool    `json:"store,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// DecodeRequest represents the arguments for piece_decode.
type DecodeRequest struct {
	ID       string `json:"id,omitempty"`
	Tokens   string `json:"tokens,omitempty"`
	Output   string `json:"output"`
	Familize *bool  `json:"familize,omitempty"`
}

// ListRequest represents the arguments for piece_list.
type ListRequest struct {
	Name  string `json:"name,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// FetchRequest represents the arguments for piece_fetch.
type FetchRequest struct {
	ID string `json:"id"`
}

// Handler implementations

// HandleEncode handles the piece_encode tool call.
func (h *Handlers) HandleEncode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EncodeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Encode(ctx, h.db, h.cfg, h.tok, ops.EncodeInput{
		Path:     input.Path,
		Name:     input.Name,
		Familize: input.Familize,
		Store:    input.Store,
		Notes:    input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDecode handles the piece_decode tool call.
func (h *Handlers) HandleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DecodeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Decode(ctx, h.db, h.cfg, h.tok, ops.DecodeInput{
		ID:       input.ID,
		Tokens:   input.Tokens,
		Output:   input.Output,
		Familize: input.Familize,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the piece_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, h.cfg, ops.ListInput{
		Name:  input.Name,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the piece_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, h.cfg, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if jamErr, ok := err.(*errors.JamError); ok {
		errorObj := map[string]any{
			"code":    jamErr.Code,
			"message": jamErr.Message,
			"status":  jamErr.Status,
		}
		if jamErr.Code != errors.ErrInternal && jamErr.Details != nil {
			errorObj["details"] = jamErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
