// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Dagaz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/noteservice"
)

// Server wraps the MCP server with Dagaz tools. All tools are read-only:
// note files are written through the API or the device client, never by an
// LLM session.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Dagaz tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note metadata for a user, newest first."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Owner of the notes")),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note: its title and ordered blocks."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Owner of the note")),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Note file name")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note titles for a substring."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Owner of the notes")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List a user's note categories, most recently used first."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Owner of the categories")),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("read_profile",
		mcp.WithDescription("Read a user's profile: nickname, motto, avatar file name."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Profile owner")),
	), s.readProfile)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	var recs []models.NoteRecord
	if category == "" {
		recs, err = s.svc.ListNotes(ctx, username)
	} else {
		recs, err = s.svc.ListNotesByCategory(ctx, username, category)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fileName, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.LoadNote(ctx, username, fileName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s/%s: %v", username, fileName, err)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	recs, err := s.svc.FilterNotes(ctx, username, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cats, err := s.svc.ListCategories(ctx, username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(cats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.svc.Profile(ctx, username)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("profile %s: %v", username, err)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
