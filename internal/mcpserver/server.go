// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the shelf index to LLM tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/engine"
	"github.com/starford/shelf/internal/models"
)

// SchemasURI is the resource listing every schema as YAML.
const SchemasURI = "shelf://schemas"

// Index is the read side of the engine the tools use.
type Index interface {
	QueryFiles(q engine.FileQuery) ([]models.Record, error)
	ReadRecord(rel string) (*engine.RecordView, error)
	Folders() ([]models.Folder, error)
	SchemaFor(rel string) (models.SchemaRecord, error)
	SchemaList() map[string]models.SchemaDefinition
}

// Server wraps the MCP server with shelf tools.
type Server struct {
	mcp *server.MCPServer
	idx Index
}

// New creates a new MCP server with all shelf tools registered.
func New(idx Index) *Server {
	s := &Server{idx: idx}

	s.mcp = server.NewMCPServer(
		"Shelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("query_files",
		mcp.WithDescription("List indexed markdown records with their typed attributes. "+
			"Results can be limited to a folder, filtered by text and sorted by a schema attribute."),
		mcp.WithString("folder", mcp.Description("Folder to list recursively (empty for all)")),
		mcp.WithString("query", mcp.Description("Case-insensitive text matched against attribute values")),
		mcp.WithString("sort", mcp.Description("Schema attribute to sort by (default: path)")),
		mcp.WithBoolean("desc", mcp.Description("Sort descending")),
	), s.queryFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read one markdown record from disk: attributes, body and governing schema."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. books/dune.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List indexed folders and whether a schema governs or is owned by each."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Return the schema governing a folder or file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative folder or file path")),
	), s.getSchema)

	s.mcp.AddResource(
		mcp.NewResource(SchemasURI, "Schemas",
			mcp.WithResourceDescription("Every schema in the root, keyed by schema file path."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readSchemasResource,
	)

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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) queryFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := engine.FileQuery{
		Folder:     strings.Trim(req.GetString("folder", ""), "/"),
		Filter:     req.GetString("query", ""),
		SortKey:    req.GetString("sort", ""),
		Descending: req.GetBool("desc", false),
	}
	recs, err := s.idx.QueryFiles(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	return jsonResult(recs)
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.idx.ReadRecord(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return jsonResult(view)
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.idx.Folders()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(folders))
	for _, f := range folders {
		line := f.Path
		if line == "" {
			line = "/"
		}
		if f.HasSchema {
			line += "\t" + f.SchemaFilePath
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sr, err := s.idx.SchemaFor(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sr)
}

func (s *Server) readSchemasResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := yaml.Marshal(s.idx.SchemaList())
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode schemas: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemasURI,
			MIMEType: "application/yaml",
			Text:     string(out),
		},
	}, nil
}
