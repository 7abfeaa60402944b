// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes wikimeta tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/listing"
	"github.com/starford/wikimeta/internal/models"
	"github.com/starford/wikimeta/internal/wiki"
)

const contractURI = "wikimeta://page-format"

const listPagesDescription = "List pages with their metadata, filtered by state, owner and tags. " +
	"Planned listings are ordered by rank number, descending."

// Server wraps the MCP server with wikimeta tools.
type Server struct {
	mcp         *server.MCPServer
	svc         *wiki.Service
	defaultUser string
}

// New creates a new MCP server with all wikimeta tools registered.
// defaultUser acts for calls that do not name a user.
func New(svc *wiki.Service, defaultUser string) *Server {
	s := &Server{svc: svc, defaultUser: defaultUser}

	s.mcp = server.NewMCPServer(
		"Wikimeta",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription(listPagesDescription),
		mcp.WithString("state", mcp.Description("State to show, or 'all (non-obsolete)' (default)")),
		mcp.WithString("owner", mcp.Description("Owner to show, or 'all' (default)")),
		mcp.WithArray("tags", mcp.Description("Pages must carry every listed tag"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("get_page_meta",
		mcp.WithDescription("Get the current owner, state and priority of a page."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Page name (e.g. Team/Roadmap)")),
	), s.getPageMeta)

	s.mcp.AddTool(mcp.NewTool("set_page_meta",
		mcp.WithDescription("Set the owner and state of an existing page. "+
			"Nothing is written when both are unchanged."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Page name")),
		mcp.WithString("owner", mcp.Required(), mcp.Description("New owner")),
		mcp.WithString("state", mcp.Required(), mcp.Description("New state"),
			mcp.Enum(stateNames()...)),
		mcp.WithString("user", mcp.Description("Acting user recorded as author")),
	), s.setPageMeta)

	s.mcp.AddTool(mcp.NewTool("reorder_priority",
		mcp.WithDescription("Move the planned page at rank 'from' to rank 'to'."),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Current rank")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target rank")),
	), s.reorderPriority)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a page with metadata. Read the page contract first via "+
			"the get_page_contract tool or the "+contractURI+" resource."),
		mcp.WithString("name", mcp.Description("Page name; empty picks an unused title from the tags")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("owner", mcp.Description("Owner; defaults to the acting user")),
		mcp.WithString("state", mcp.Description("State; defaults to planned")),
		mcp.WithArray("tags", mcp.Description("Tags written to the page frontmatter"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("user", mcp.Description("Acting user recorded as author")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the page format and metadata model."),
	), s.getPageContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Page Contract",
			mcp.WithResourceDescription("Page source format and metadata model."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func stateNames() []string {
	out := make([]string, len(models.States))
	for i, st := range models.States {
		out[i] = string(st)
	}
	return out
}

func (s *Server) user(req mcp.CallToolRequest) string {
	return req.GetString("user", s.defaultUser)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.svc.List(ctx, listing.Filter{
		State: req.GetString("state", ""),
		Owner: req.GetString("owner", ""),
		Tags:  req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return errorResult(err), nil
	}
	// HTML is for the web view; tools get metadata and tags only.
	type item struct {
		models.MetaRecord
		Tags         []string `json:"tags"`
		LastModified string   `json:"last_modified"`
		models.Decoration
	}
	items := make([]item, 0, len(pages))
	for _, p := range pages {
		items = append(items, item{MetaRecord: p.Meta, Tags: p.Tags, LastModified: p.LastModified, Decoration: p.Decoration})
	}
	return jsonResult(items)
}

func (s *Server) getPageMeta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.GetMeta(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) setPageMeta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := s.svc.SetMeta(ctx, wiki.SetMetaInput{
		Name:   name,
		Owner:  owner,
		State:  models.State(state),
		Author: s.user(req),
	})
	if err != nil {
		return errorResult(err), nil
	}
	if !changed {
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) reorderPriority(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireInt("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Reorder(ctx, from, to); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved rank %d to %d", from, to)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.svc.CreatePage(ctx, wiki.CreatePageInput{
		Name:    req.GetString("name", ""),
		Content: req.GetString("content", ""),
		Owner:   req.GetString("owner", ""),
		State:   req.GetString("state", ""),
		Tags:    req.GetStringSlice("tags", nil),
		Author:  s.user(req),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) getPageContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
