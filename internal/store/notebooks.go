package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/search"
)

// notebookColumns selects all notebook fields plus the derived note count.
const notebookColumns = `
	id, tenant_id, name, description, created_at, updated_at,
	(SELECT COUNT(*) FROM notes n WHERE n.notebook_id = notebooks.id) AS note_count
`

// CreateNotebook inserts a notebook, assigning an id and timestamps when
// unset.
func (s *Store) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	if nb.ID == "" {
		nb.ID = NewID()
	}
	now := time.Now().UTC()
	if nb.CreatedAt.IsZero() {
		nb.CreatedAt = now
	}
	nb.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO notebooks (id, tenant_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nb.ID, nb.TenantID, nb.Name, nb.Description, nb.CreatedAt, nb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create notebook: %w", err)
	}
	return nil
}

// NotebookByID returns the notebook with the exact id within the tenant,
// or nil if absent.
func (s *Store) NotebookByID(ctx context.Context, tenantID, id string) (*models.Notebook, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+notebookColumns+`
		FROM notebooks
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	nb, err := scanNotebook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: notebook by id: %w", err)
	}
	return nb, nil
}

// NotebooksMatching returns every notebook in the tenant whose name or
// description contains text as a case-insensitive substring. instr keeps
// LIKE metacharacters in user queries literal.
func (s *Store) NotebooksMatching(ctx context.Context, tenantID, text string) ([]models.Notebook, error) {
	needle := strings.ToLower(text)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+notebookColumns+`
		FROM notebooks
		WHERE tenant_id = ?
		  AND (instr(lower(name), ?) > 0 OR instr(lower(description), ?) > 0)
		ORDER BY name, id
	`, tenantID, needle, needle)
	if err != nil {
		return nil, fmt.Errorf("store: notebooks matching: %w", err)
	}
	return collectNotebooks(rows)
}

// AllNotebooks returns every notebook owned by the tenant.
func (s *Store) AllNotebooks(ctx context.Context, tenantID string) ([]models.Notebook, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+notebookColumns+`
		FROM notebooks
		WHERE tenant_id = ?
		ORDER BY name, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: all notebooks: %w", err)
	}
	return collectNotebooks(rows)
}

// ListNotebooks applies a NotebookFilter.
func (s *Store) ListNotebooks(ctx context.Context, f search.NotebookFilter) ([]models.Notebook, error) {
	if f.Search == "" {
		return s.AllNotebooks(ctx, f.TenantID)
	}
	return s.NotebooksMatching(ctx, f.TenantID, f.Search)
}

// UpdateNotebook persists name and description changes.
func (s *Store) UpdateNotebook(ctx context.Context, nb *models.Notebook) error {
	nb.UpdatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx, `
		UPDATE notebooks SET name = ?, description = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, nb.Name, nb.Description, nb.UpdatedAt, nb.TenantID, nb.ID)
	if err != nil {
		return fmt.Errorf("store: update notebook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteNotebook removes a notebook; contained notes keep existing with
// their notebook reference cleared.
func (s *Store) DeleteNotebook(ctx context.Context, tenantID, id string) error {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM notebooks WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	if err != nil {
		return fmt.Errorf("store: delete notebook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotebook(row rowScanner) (*models.Notebook, error) {
	var nb models.Notebook
	if err := row.Scan(&nb.ID, &nb.TenantID, &nb.Name, &nb.Description,
		&nb.CreatedAt, &nb.UpdatedAt, &nb.NoteCount); err != nil {
		return nil, err
	}
	return &nb, nil
}

func collectNotebooks(rows *sql.Rows) ([]models.Notebook, error) {
	defer rows.Close()
	var out []models.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *nb)
	}
	return out, rows.Err()
}
