// Package backend implements the HTTP client for a remote notes API. It
// satisfies the same persistence surface as the SQLite store, so the
// bridge can run against either.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/search"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 30 * time.Second

// Client talks JSON over HTTP to the backend notes API, authenticating
// every request with the configured API key.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

var _ noteservice.Store = (*Client)(nil)

// New creates a Client for the given base URL and API key. timeout <= 0
// means DefaultTimeout.
func New(baseURL, key string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: timeout},
	}
}

// do performs a request and decodes the JSON response into out (when
// non-nil). Backend status codes map onto the shared error sentinels.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return apperr.ErrAlreadyExists
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperr.ErrUnauthorized
	default:
		return fmt.Errorf("backend: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

// VerifyKey asks the backend who the configured key belongs to. Used once
// at startup to bind the MCP session to a tenant.
func (c *Client) VerifyKey(ctx context.Context) (*auth.Context, error) {
	var out struct {
		TenantID string   `json:"tenant_id"`
		KeyID    string   `json:"key_id"`
		Scopes   []string `json:"scopes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, nil, &out); err != nil {
		return nil, err
	}
	return &auth.Context{TenantID: out.TenantID, KeyID: out.KeyID, Scopes: out.Scopes}, nil
}

func tenantQuery(tenantID string) url.Values {
	return url.Values{"tenant_id": []string{tenantID}}
}

// NotebookByID returns the notebook, or nil when the backend reports 404.
func (c *Client) NotebookByID(ctx context.Context, tenantID, id string) (*models.Notebook, error) {
	var nb models.Notebook
	err := c.do(ctx, http.MethodGet, "/api/notebooks/"+url.PathEscape(id), tenantQuery(tenantID), nil, &nb)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nb, nil
}

func (c *Client) listNotebooks(ctx context.Context, q url.Values) ([]models.Notebook, error) {
	var out struct {
		Notebooks []models.Notebook `json:"notebooks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notebooks", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Notebooks, nil
}

// NotebooksMatching performs the backend's substring search.
func (c *Client) NotebooksMatching(ctx context.Context, tenantID, text string) ([]models.Notebook, error) {
	q := tenantQuery(tenantID)
	q.Set("q", text)
	return c.listNotebooks(ctx, q)
}

// AllNotebooks returns every notebook owned by the tenant.
func (c *Client) AllNotebooks(ctx context.Context, tenantID string) ([]models.Notebook, error) {
	return c.listNotebooks(ctx, tenantQuery(tenantID))
}

// ListNotebooks applies a NotebookFilter.
func (c *Client) ListNotebooks(ctx context.Context, f search.NotebookFilter) ([]models.Notebook, error) {
	if f.Search == "" {
		return c.AllNotebooks(ctx, f.TenantID)
	}
	return c.NotebooksMatching(ctx, f.TenantID, f.Search)
}

// CreateNotebook creates the notebook and adopts the backend-assigned id
// and timestamps.
func (c *Client) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	return c.do(ctx, http.MethodPost, "/api/notebooks", nil, nb, nb)
}

// UpdateNotebook persists name and description changes.
func (c *Client) UpdateNotebook(ctx context.Context, nb *models.Notebook) error {
	return c.do(ctx, http.MethodPut, "/api/notebooks/"+url.PathEscape(nb.ID), nil, nb, nb)
}

// DeleteNotebook removes a notebook.
func (c *Client) DeleteNotebook(ctx context.Context, tenantID, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notebooks/"+url.PathEscape(id), tenantQuery(tenantID), nil, nil)
}

// CreateNote creates the note and adopts the backend-assigned id and
// timestamps.
func (c *Client) CreateNote(ctx context.Context, n *models.Note) error {
	return c.do(ctx, http.MethodPost, "/api/notes", nil, n, n)
}

// GetNote returns a single note.
func (c *Client) GetNote(ctx context.Context, tenantID, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), tenantQuery(tenantID), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote persists note changes.
func (c *Client) UpdateNote(ctx context.Context, n *models.Note) error {
	return c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(n.ID), nil, n, n)
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, tenantID, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), tenantQuery(tenantID), nil, nil)
}

// ListNotes translates the filter to query parameters.
func (c *Client) ListNotes(ctx context.Context, f search.NoteFilter, limit, offset int) ([]models.Note, int, error) {
	q := tenantQuery(f.TenantID)
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Domain != "" {
		q.Set("domain", f.Domain)
	}
	if f.StartDate != nil {
		q.Set("start_date", f.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if f.EndDate != nil {
		q.Set("end_date", f.EndDate.UTC().Format(time.RFC3339Nano))
	}
	if len(f.NotebookIDs) > 0 {
		q.Set("notebook_ids", strings.Join(f.NotebookIDs, ","))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var out struct {
		Notes []models.Note `json:"notes"`
		Total int           `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notes", q, nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Notes, out.Total, nil
}
