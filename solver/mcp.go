package solver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the quiz_solve tool on an MCP server. Starting a
// chain over MCP has the same fire-and-forget contract as the HTTP trigger:
// the tool returns a session ID, not a result.
func (r *Runner) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "quiz_solve",
		Description: "Start solving a quiz chain from the given URL. Returns the session ID immediately; progress is queryable via quiz_status.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email":  map[string]any{"type": "string", "description": "Participant email forwarded to the scorer"},
				"secret": map[string]any{"type": "string", "description": "Shared secret forwarded to the scorer"},
				"url":    map[string]any{"type": "string", "description": "Starting quiz page URL"},
			},
			"required": []string{"email", "secret", "url"},
		},
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Email  string `json:"email"`
			Secret string `json:"secret"`
			URL    string `json:"url"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		// The chain outlives the tool call; detach from the request context.
		id := r.Start(context.WithoutCancel(ctx), Session{
			Email:    args.Email,
			Secret:   args.Secret,
			StartURL: args.URL,
		})

		data, _ := json.Marshal(map[string]any{"session_id": id, "processing": true})
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
