package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/wikimeta/internal/models"
	"github.com/starford/wikimeta/internal/testutil"
	"github.com/starford/wikimeta/internal/userdir"
	"github.com/starford/wikimeta/internal/wiki"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	conn := testutil.TestConn(t)
	idx := testutil.TestIndex(t, conn)
	meta := testutil.TestMeta(t, conn)
	_, vault := testutil.TestVault(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := wiki.NewService(vault, idx, meta, userdir.New(nil, meta, logger), logger)
	return New(svc, "alice")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// Handlers are called directly; mcp-go has no in-process call helper.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "get_page_meta":
		result, err = srv.getPageMeta(ctx, req)
	case "set_page_meta":
		result, err = srv.setPageMeta(ctx, req)
	case "reorder_priority":
		result, err = srv.reorderPriority(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "get_page_contract":
		result, err = srv.getPageContract(ctx, req)
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

func TestCreateAndGetMeta(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_page", map[string]any{
		"name": "Roadmap",
		"tags": []any{"infra"},
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_page_meta", map[string]any{"name": "Roadmap"})
	var rec models.MetaRecord
	if err := json.Unmarshal([]byte(resultText(r)), &rec); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if rec.Owner != "alice" || rec.State != models.StatePlanned || rec.Priority != 1 {
		t.Errorf("meta = %+v", rec)
	}
}

func TestGetMetaMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_page_meta", map[string]any{"name": "Nope"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestSetPageMeta(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_page", map[string]any{"name": "A"})

	r := callTool(t, srv, "set_page_meta", map[string]any{
		"name": "A", "owner": "bob", "state": "current", "user": "bob",
	})
	if got := resultText(r); got != "updated: A" {
		t.Errorf("set result = %q", got)
	}
	r = callTool(t, srv, "set_page_meta", map[string]any{
		"name": "A", "owner": "bob", "state": "current",
	})
	if got := resultText(r); got != "unchanged: A" {
		t.Errorf("repeat result = %q", got)
	}

	r = callTool(t, srv, "set_page_meta", map[string]any{
		"name": "A", "owner": "bob", "state": "someday",
	})
	if !r.IsError {
		t.Error("expected error for unknown state")
	}
}

func TestReorderAndList(t *testing.T) {
	srv := testServer(t)
	for _, n := range []string{"A", "B", "C"} {
		callTool(t, srv, "create_page", map[string]any{"name": n})
	}

	r := callTool(t, srv, "reorder_priority", map[string]any{"from": float64(1), "to": float64(3)})
	if r.IsError {
		t.Fatalf("reorder failed: %s", resultText(r))
	}

	r = callTool(t, srv, "list_pages", map[string]any{"state": "planned"})
	var items []struct {
		Name     string `json:"name"`
		Priority int    `json:"priority"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var order []string
	for _, it := range items {
		order = append(order, it.Name)
	}
	if strings.Join(order, ",") != "A,C,B" {
		t.Errorf("order = %v, want A,C,B", order)
	}

	r = callTool(t, srv, "reorder_priority", map[string]any{"from": float64(1), "to": float64(9)})
	if !r.IsError {
		t.Error("expected error for unknown rank")
	}
}

func TestPageContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_page_contract", nil)
	if !strings.Contains(resultText(r), "nice to have") {
		t.Error("contract does not list states")
	}
}

func TestListPagesDescribesRankOrder(t *testing.T) {
	if !strings.Contains(listPagesDescription, "rank number, descending") {
		t.Errorf("description = %q", listPagesDescription)
	}
	if strings.Contains(listPagesDescription, "highest first") {
		t.Errorf("description still claims highest priority first: %q", listPagesDescription)
	}
}
