// Package mcpserver exposes the memory layer as MCP tools over stdio,
// so assistant runtimes can read and write memories directly.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wires memory operations into an MCP server
type Server struct {
	memory *memory.UseCase
}

// New creates an MCP server controller
func New(uc *memory.UseCase) *Server {
	return &Server{memory: uc}
}

type addParams struct {
	Content    string `json:"content" jsonschema:"The content to remember"`
	UserID     string `json:"user_id" jsonschema:"The owner of the memory"`
	MemoryType string `json:"memory_type,omitempty" jsonschema:"Optional explicit type: semantic, episodic, procedural, or working"`
}

type searchParams struct {
	Query        string `json:"query" jsonschema:"Natural language query"`
	UserID       string `json:"user_id" jsonschema:"The owner of the memories"`
	Limit        int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	UseRetention bool   `json:"use_retention,omitempty" jsonschema:"Weight results by the forgetting curve"`
}

type deleteParams struct {
	MemoryID string `json:"memory_id" jsonschema:"The memory to delete"`
	UserID   string `json:"user_id" jsonschema:"The owner of the memory"`
}

// Run serves MCP requests over stdio until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "membox",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_add",
		Description: "Store a memory for a user; the type is classified automatically unless given",
	}, s.add)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search a user's memories by semantic similarity, optionally weighted by recency",
	}, s.search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_delete",
		Description: "Delete one memory owned by a user",
	}, s.delete)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) add(ctx context.Context, req *mcp.CallToolRequest, params *addParams) (*mcp.CallToolResult, any, error) {
	if params.Content == "" || params.UserID == "" {
		return nil, nil, fmt.Errorf("content and user_id are required")
	}

	result, err := s.memory.Add(ctx, memory.AddInput{
		Content: params.Content,
		UserID:  params.UserID,
		Type:    model.MemoryType(params.MemoryType),
	})
	if err != nil {
		return nil, nil, err
	}

	text := "Stored as " + string(result.ClassifiedType)
	if result.Skipped {
		text = "Skipped: content is not memorable"
	}

	return textResult(text), nil, nil
}

func (s *Server) search(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	if params.Query == "" || params.UserID == "" {
		return nil, nil, fmt.Errorf("query and user_id are required")
	}

	result, err := s.memory.Search(ctx, memory.SearchInput{
		Query:        params.Query,
		UserID:       params.UserID,
		Limit:        params.Limit,
		UseRetention: params.UseRetention,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(result.Results) == 0 {
		return textResult("No matching memories"), nil, nil
	}

	lines := make([]string, 0, len(result.Results))
	for _, mem := range result.Results {
		lines = append(lines, fmt.Sprintf("[%s] %s (id=%s, score=%.3f)",
			mem.Type, mem.Text, mem.ID, mem.Score))
	}

	return textResult(strings.Join(lines, "\n")), nil, nil
}

func (s *Server) delete(ctx context.Context, req *mcp.CallToolRequest, params *deleteParams) (*mcp.CallToolResult, any, error) {
	if params.MemoryID == "" || params.UserID == "" {
		return nil, nil, fmt.Errorf("memory_id and user_id are required")
	}

	if !s.memory.Delete(ctx, params.UserID, model.MemoryID(params.MemoryID)) {
		return textResult("Memory not found or delete failed"), nil, nil
	}

	return textResult("Deleted"), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
