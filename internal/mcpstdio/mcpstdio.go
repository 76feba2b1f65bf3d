// Package mcpstdio serves the registered operations over the Model Context
// Protocol on stdin/stdout.
package mcpstdio

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"termux-mcp/internal/config"
	"termux-mcp/internal/dispatch"
)

const instructions = `This MCP server exposes host introspection tools for a Termux (Android) environment:
system information, file operations, process management and network diagnostics.

File and process tools may be disabled by the server configuration; a disabled tool
returns an error result rather than failing the session.`

// NewServer returns an MCP server with one tool per registered operation.
// Every call goes through d, so validation and error handling match the
// HTTP API.
func NewServer(d *dispatch.Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "termux-mcp",
		Title:   "Termux MCP Server",
		Version: config.Version,
	}, &mcp.ServerOptions{Instructions: instructions})

	for _, desc := range d.ListOperations() {
		server.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema.JSONSchema(),
		}, toolHandler(d, desc.Name))
	}
	return server
}

func toolHandler(d *dispatch.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult("invalid arguments: " + err.Error()), nil
			}
		}
		res := d.HandleCall(ctx, name, args)
		if !res.Success {
			return errorResult(res.Error), nil
		}
		text, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Serve runs the MCP server on stdio until the client disconnects or ctx
// is cancelled.
func Serve(ctx context.Context, d *dispatch.Dispatcher) error {
	return NewServer(d).Run(ctx, &mcp.StdioTransport{})
}
