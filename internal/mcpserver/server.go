// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the tenant's notes and notebooks for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
)

// Server wraps the MCP server with note and notebook tools. Every session
// is bound to the single tenant context established at startup.
type Server struct {
	mcp     *server.MCPServer
	svc     *noteservice.Service
	authCtx *auth.Context
}

// New creates an MCP server with all tools registered, operating as the
// given authenticated tenant.
func New(svc *noteservice.Service, authCtx *auth.Context) *Server {
	s := &Server{svc: svc, authCtx: authCtx}

	s.mcp = server.NewMCPServer(
		"Neemee",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes by content/title substring, source domain, "+
			"date range, and notebook. All filters are optional and combine with AND."),
		mcp.WithString("query", mcp.Description("Substring to match in note content or title")),
		mcp.WithString("notebook", mcp.Description("Notebook reference: id, name, partial name, or description fragment")),
		mcp.WithString("domain", mcp.Description("Substring to match in the note's source URL")),
		mcp.WithString("start_date", mcp.Description("Earliest creation date, YYYY-MM-DD or RFC 3339")),
		mcp.WithString("end_date", mcp.Description("Latest creation date (inclusive), YYYY-MM-DD or RFC 3339")),
		mcp.WithString("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, optionally within one notebook."),
		mcp.WithString("notebook", mcp.Description("Notebook reference: id, name, partial name, or description fragment")),
		mcp.WithString("limit", mcp.Description("Maximum results (default 20)")),
		mcp.WithString("offset", mcp.Description("Results to skip, for paging")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a single note with its full markdown content and metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a markdown note. YAML frontmatter (title, tags) is "+
			"extracted automatically; see the neemee://note-format resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content, optionally with YAML frontmatter")),
		mcp.WithString("title", mcp.Description("Explicit title (overrides the derived one)")),
		mcp.WithString("notebook", mcp.Description("Notebook reference; must match exactly one notebook")),
		mcp.WithString("source_url", mcp.Description("URL the note was captured from")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note's content or metadata. Pass if_match (the checksum "+
			"from get_note) to detect concurrent edits."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Description("Replacement markdown content")),
		mcp.WithString("title", mcp.Description("Replacement title")),
		mcp.WithString("source_url", mcp.Description("Replacement source URL")),
		mcp.WithString("notebook", mcp.Description("Move to this notebook; empty string files the note nowhere")),
		mcp.WithString("if_match", mcp.Description("Expected content checksum for optimistic concurrency")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note permanently."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List the tenant's notebooks with note counts."),
		mcp.WithString("search", mcp.Description("Optional name/description substring filter")),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("get_notebook",
		mcp.WithDescription("Look up one notebook by id, name, partial name, or description fragment."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook reference")),
	), s.getNotebook)

	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a notebook."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("description", mcp.Description("Free-text description")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("update_notebook",
		mcp.WithDescription("Rename a notebook or change its description."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook reference; must match exactly one notebook")),
		mcp.WithString("name", mcp.Description("New display name")),
		mcp.WithString("description", mcp.Description("New description")),
	), s.updateNotebook)

	s.mcp.AddTool(mcp.NewTool("delete_notebook",
		mcp.WithDescription("Delete a notebook. Its notes survive without a notebook."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook reference; must match exactly one notebook")),
	), s.deleteNotebook)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("neemee://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical markdown note format and notebook reference rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) tenant() string { return s.authCtx.TenantID }

// requireScope returns a non-nil error result when the session's key lacks
// the scope.
func (s *Server) requireScope(scope string) *mcp.CallToolResult {
	if !auth.HasScope(s.authCtx, scope) {
		return mcp.NewToolResultError(fmt.Sprintf("api key lacks the %q scope", scope))
	}
	return nil
}

// optString reads an optional string argument, defaulting to empty.
func optString(req mcp.CallToolRequest, name string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return ""
}

// optStringPtr reads an optional string argument, nil when absent.
func optStringPtr(req mcp.CallToolRequest, name string) *string {
	if v, err := req.RequireString(name); err == nil {
		return &v
	}
	return nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeRead); res != nil {
		return res, nil
	}

	params := noteservice.SearchParams{
		Query:    optString(req, "query"),
		Notebook: optString(req, "notebook"),
		Domain:   optString(req, "domain"),
		Limit:    parseLimit(optString(req, "limit")),
	}
	var err error
	if params.StartDate, err = parseDate(optString(req, "start_date"), false); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if params.EndDate, err = parseDate(optString(req, "end_date"), true); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	notes, total, err := s.svc.SearchNotes(ctx, s.tenant(), params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": noteSummaries(notes), "total": total}), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeRead); res != nil {
		return res, nil
	}
	notes, total, err := s.svc.SearchNotes(ctx, s.tenant(), noteservice.SearchParams{
		Notebook: optString(req, "notebook"),
		Limit:    parseLimit(optString(req, "limit")),
		Offset:   parseLimit(optString(req, "offset")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": noteSummaries(notes), "total": total}), nil
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeRead); res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, s.tenant(), id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(noteDetail(n)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, s.tenant(), noteservice.NoteInput{
		Content:   content,
		Title:     optString(req, "title"),
		Notebook:  optString(req, "notebook"),
		SourceURL: optString(req, "source_url"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(noteDetail(n)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.UpdateNote(ctx, s.tenant(), id, noteservice.NoteChanges{
		Content:   optStringPtr(req, "content"),
		Title:     optStringPtr(req, "title"),
		SourceURL: optStringPtr(req, "source_url"),
		Notebook:  optStringPtr(req, "notebook"),
		IfMatch:   optString(req, "if_match"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(noteDetail(n)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, s.tenant(), id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeRead); res != nil {
		return res, nil
	}
	notebooks, err := s.svc.ListNotebooks(ctx, s.tenant(), optString(req, "search"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notebooks": notebooks}), nil
}

func (s *Server) getNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeRead); res != nil {
		return res, nil
	}
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.GetNotebook(ctx, s.tenant(), ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nb), nil
}

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.CreateNotebook(ctx, s.tenant(), name, optString(req, "description"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nb), nil
}

func (s *Server) updateNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.UpdateNotebook(ctx, s.tenant(), ref, noteservice.NotebookChanges{
		Name:        optStringPtr(req, "name"),
		Description: optStringPtr(req, "description"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nb), nil
}

func (s *Server) deleteNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireScope(models.ScopeWrite); res != nil {
		return res, nil
	}
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNotebook(ctx, s.tenant(), ref); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted notebook: %s", ref)), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "neemee://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Date-only end bounds extend to
// the end of that day so the range stays inclusive.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseLimit(s string) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0
	}
	return n
}

// snippetBytes bounds the content excerpt in search and list output.
const snippetBytes = 200

// noteSummary keeps search output compact; full content comes from get_note.
type noteSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Snippet    string    `json:"snippet"`
	SourceURL  string    `json:"source_url,omitempty"`
	NotebookID string    `json:"notebook_id,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func noteSummaries(notes []models.Note) []noteSummary {
	out := make([]noteSummary, len(notes))
	for i, n := range notes {
		snippet := n.Content
		if len(snippet) > snippetBytes {
			// Back up to a rune boundary so the cut never splits a
			// multi-byte character.
			cut := snippetBytes
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut] + "..."
		}
		out[i] = noteSummary{
			ID:         n.ID,
			Title:      n.Title,
			Snippet:    snippet,
			SourceURL:  n.SourceURL,
			NotebookID: n.NotebookID,
			Tags:       n.Tags,
			CreatedAt:  n.CreatedAt,
		}
	}
	return out
}

type noteDetailOut struct {
	models.Note
	Checksum string `json:"checksum"`
}

func noteDetail(n *models.Note) noteDetailOut {
	return noteDetailOut{Note: *n, Checksum: noteservice.Checksum(n.Content)}
}
