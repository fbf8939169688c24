package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/search"
)

const noteColumns = `id, tenant_id, title, content, source_url, notebook_id, frontmatter, tags, created_at, updated_at`

// CreateNote inserts a note, assigning an id and timestamps when unset.
func (s *Store) CreateNote(ctx context.Context, n *models.Note) error {
	if n.ID == "" {
		n.ID = NewID()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	fmJSON, _ := json.Marshal(orEmptyMap(n.Frontmatter))
	tagsJSON, _ := json.Marshal(orEmptySlice(n.Tags))

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.TenantID, n.Title, n.Content, n.SourceURL, nullString(n.NotebookID),
		string(fmJSON), string(tagsJSON), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create note: %w", err)
	}
	return nil
}

// GetNote returns the note with the given id within the tenant.
func (s *Store) GetNote(ctx context.Context, tenantID, id string) (*models.Note, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return n, nil
}

// UpdateNote persists content and metadata changes.
func (s *Store) UpdateNote(ctx context.Context, n *models.Note) error {
	n.UpdatedAt = time.Now().UTC()

	fmJSON, _ := json.Marshal(orEmptyMap(n.Frontmatter))
	tagsJSON, _ := json.Marshal(orEmptySlice(n.Tags))

	res, err := s.conn.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, source_url = ?, notebook_id = ?,
		    frontmatter = ?, tags = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, n.Title, n.Content, n.SourceURL, nullString(n.NotebookID),
		string(fmJSON), string(tagsJSON), n.UpdatedAt, n.TenantID, n.ID)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, tenantID, id string) error {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM notes WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListNotes applies a NoteFilter with pagination and returns the page plus
// the total match count. Results are ordered newest first.
func (s *Store) ListNotes(ctx context.Context, f search.NoteFilter, limit, offset int) ([]models.Note, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := noteWhere(f)

	var total int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE `+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// noteWhere translates every filter predicate to SQL. The tenant clause is
// always first; date bounds are inclusive on both ends.
func noteWhere(f search.NoteFilter) (string, []any) {
	clauses := []string{"tenant_id = ?"}
	args := []any{f.TenantID}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		clauses = append(clauses, "(instr(lower(content), ?) > 0 OR instr(lower(title), ?) > 0)")
		args = append(args, needle, needle)
	}
	if f.Domain != "" {
		clauses = append(clauses, "instr(lower(source_url), ?) > 0")
		args = append(args, strings.ToLower(f.Domain))
	}
	if f.StartDate != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.EndDate.UTC())
	}
	if len(f.NotebookIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.NotebookIDs)), ",")
		clauses = append(clauses, "notebook_id IN ("+placeholders+")")
		for _, id := range f.NotebookIDs {
			args = append(args, id)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		n          models.Note
		notebookID sql.NullString
		fmJSON     string
		tagsJSON   string
	)
	if err := row.Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.SourceURL,
		&notebookID, &fmJSON, &tagsJSON, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.NotebookID = notebookID.String
	if fmJSON != "" && fmJSON != "{}" {
		_ = json.Unmarshal([]byte(fmJSON), &n.Frontmatter)
	}
	if tagsJSON != "" && tagsJSON != "[]" {
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	}
	return &n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
