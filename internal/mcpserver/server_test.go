package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/shelf/internal/engine"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/schema"
	"github.com/starford/shelf/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	root := t.TempDir()
	testutil.WriteSchema(t, root, "books", testutil.TextSchema("books", "author"))
	testutil.WriteFile(t, root, "books/a.md", "---\nauthor: Le Guin\n---\nbody")
	testutil.WriteFile(t, root, "books/b.md", "---\nauthor: Herbert\n---\n")

	eng, err := engine.New(testutil.TestDB(t), schema.NewCache(nil, testutil.Logger()), engine.WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, aerr := eng.SetRoot(root, nil); aerr != nil {
		t.Fatalf("SetRoot: %v", aerr)
	}
	return New(eng)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "query_files":
		result, err = srv.queryFiles(ctx, req)
	case "read_file":
		result, err = srv.readFile(ctx, req)
	case "list_folders":
		result, err = srv.listFolders(ctx, req)
	case "get_schema":
		result, err = srv.getSchema(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestQueryFiles(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "query_files", map[string]interface{}{
		"folder": "books",
		"sort":   "author",
	})
	var recs []models.Record
	if err := json.Unmarshal([]byte(resultText(r)), &recs); err != nil {
		t.Fatalf("decode: %v (%q)", err, resultText(r))
	}
	if len(recs) != 2 || recs[0].Path != "books/b.md" {
		t.Errorf("records = %+v", recs)
	}

	r = callTool(t, srv, "query_files", map[string]interface{}{"query": "guin"})
	if !strings.Contains(resultText(r), "books/a.md") || strings.Contains(resultText(r), "books/b.md") {
		t.Errorf("filtered = %q", resultText(r))
	}

	r = callTool(t, srv, "query_files", map[string]interface{}{"query": "nobody"})
	if resultText(r) != "no files found" {
		t.Errorf("empty result = %q", resultText(r))
	}
}

func TestReadFile(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_file", map[string]interface{}{"path": "books/a.md"})
	var view engine.RecordView
	if err := json.Unmarshal([]byte(resultText(r)), &view); err != nil {
		t.Fatal(err)
	}
	if view.Record.Markdown == nil || *view.Record.Markdown != "body" {
		t.Errorf("markdown = %v", view.Record.Markdown)
	}
}

func TestReadFileMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_file", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing file")
	}
	r = callTool(t, srv, "read_file", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing path argument")
	}
}

func TestListFolders(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_folders", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "books\tbooks/.shelf/schema.yaml") {
		t.Errorf("folders = %q", text)
	}
	if strings.Contains(text, ".shelf\n") {
		t.Errorf("reserved folder listed: %q", text)
	}
}

func TestGetSchema(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_schema", map[string]interface{}{"path": "books/a.md"})
	if r.IsError || !strings.Contains(resultText(r), `"ownerFolder": "books"`) {
		t.Errorf("schema = %q", resultText(r))
	}
	r = callTool(t, srv, "get_schema", map[string]interface{}{"path": "elsewhere"})
	if !r.IsError {
		t.Error("expected error for ungoverned path")
	}
}

func TestSchemasResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readSchemasResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected contents %T", contents[0])
	}
	if !strings.Contains(tc.Text, "books/.shelf/schema.yaml:") || !strings.Contains(tc.Text, "name: author") {
		t.Errorf("resource = %q", tc.Text)
	}
}
