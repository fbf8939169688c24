// Package noteservice coordinates persistence, notebook resolution, and
// filter construction for the protocol-facing layers.
package noteservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/frontmatter"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/notebook"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/search"
)

// Store is the persistence surface the service needs. Both the SQLite
// store and the HTTP backend client satisfy it.
type Store interface {
	notebook.Lookup

	CreateNotebook(ctx context.Context, nb *models.Notebook) error
	UpdateNotebook(ctx context.Context, nb *models.Notebook) error
	DeleteNotebook(ctx context.Context, tenantID, id string) error
	ListNotebooks(ctx context.Context, f search.NotebookFilter) ([]models.Notebook, error)

	CreateNote(ctx context.Context, n *models.Note) error
	GetNote(ctx context.Context, tenantID, id string) (*models.Note, error)
	UpdateNote(ctx context.Context, n *models.Note) error
	DeleteNote(ctx context.Context, tenantID, id string) error
	ListNotes(ctx context.Context, f search.NoteFilter, limit, offset int) ([]models.Note, int, error)
}

// Service exposes tenant-scoped note and notebook operations.
type Service struct {
	store    Store
	resolver *notebook.Resolver
}

// NewService creates a Service over the given store.
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		resolver: notebook.NewResolver(store),
	}
}

// Checksum returns the hex SHA-256 digest of content, used for optimistic
// concurrency on note updates.
func Checksum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// ResolveNotebook maps a free-form notebook reference to matching ids.
func (s *Service) ResolveNotebook(ctx context.Context, tenantID, query string) ([]string, error) {
	return s.resolver.Resolve(ctx, tenantID, query)
}

// resolveOne resolves a reference that must name exactly one notebook.
// Zero matches is ErrNotFound; more than one is ErrAmbiguous. Write
// operations use this; search uses the full set.
func (s *Service) resolveOne(ctx context.Context, tenantID, query string) (string, error) {
	ids, err := s.resolver.Resolve(ctx, tenantID, query)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("notebook %q: %w", query, apperr.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("notebook %q matches %d notebooks: %w", query, len(ids), apperr.ErrAmbiguous)
	}
}

// SearchParams are the user-facing search inputs. Notebook is a free-form
// reference resolved against the tenant's notebooks.
type SearchParams struct {
	Query     string
	Notebook  string
	Domain    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// SearchNotes resolves the notebook reference (when given) and lists
// matching notes. All resolved notebook ids are used as an OR membership
// filter; a reference that resolves to nothing is ErrNotFound so the
// caller can tell the user rather than silently searching everything.
func (s *Service) SearchNotes(ctx context.Context, tenantID string, p SearchParams) ([]models.Note, int, error) {
	criteria := search.NoteCriteria{
		Search:    p.Query,
		Domain:    p.Domain,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
	if p.Notebook != "" {
		ids, err := s.resolver.Resolve(ctx, tenantID, p.Notebook)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return nil, 0, fmt.Errorf("notebook %q: %w", p.Notebook, apperr.ErrNotFound)
		}
		criteria.NotebookIDs = ids
	}
	return s.store.ListNotes(ctx, search.BuildNoteFilter(tenantID, criteria), p.Limit, p.Offset)
}

// NoteInput carries the fields for creating a note.
type NoteInput struct {
	Content   string
	Title     string // overrides the derived title when set
	SourceURL string
	Notebook  string // free-form reference; must resolve to exactly one notebook
}

// CreateNote parses frontmatter out of the content, resolves the notebook
// reference, and persists the note.
func (s *Service) CreateNote(ctx context.Context, tenantID string, in NoteInput) (*models.Note, error) {
	parsed := frontmatter.Parse(in.Content)
	n := &models.Note{
		TenantID:    tenantID,
		Title:       in.Title,
		Content:     in.Content,
		SourceURL:   in.SourceURL,
		Frontmatter: parsed.Meta,
		Tags:        parsed.Tags,
	}
	if n.Title == "" {
		n.Title = parsed.Title
	}
	if in.Notebook != "" {
		id, err := s.resolveOne(ctx, tenantID, in.Notebook)
		if err != nil {
			return nil, err
		}
		n.NotebookID = id
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NoteChanges carries the mutable fields for updating a note. Nil means
// unchanged; for Notebook, an empty non-nil value clears the reference.
type NoteChanges struct {
	Content   *string
	Title     *string
	SourceURL *string
	Notebook  *string
	// IfMatch, when set, must equal the checksum of the stored content or
	// the update is rejected with ErrConflict.
	IfMatch string
}

// UpdateNote applies changes to a note. A content change re-derives the
// frontmatter, title, and tags.
func (s *Service) UpdateNote(ctx context.Context, tenantID, id string, ch NoteChanges) (*models.Note, error) {
	n, err := s.store.GetNote(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if ch.IfMatch != "" && ch.IfMatch != Checksum(n.Content) {
		return nil, apperr.ErrConflict
	}

	if ch.Content != nil {
		parsed := frontmatter.Parse(*ch.Content)
		n.Content = *ch.Content
		n.Frontmatter = parsed.Meta
		n.Tags = parsed.Tags
		if ch.Title == nil {
			n.Title = parsed.Title
		}
	}
	if ch.Title != nil {
		n.Title = *ch.Title
	}
	if ch.SourceURL != nil {
		n.SourceURL = *ch.SourceURL
	}
	if ch.Notebook != nil {
		if *ch.Notebook == "" {
			n.NotebookID = ""
		} else {
			nbID, err := s.resolveOne(ctx, tenantID, *ch.Notebook)
			if err != nil {
				return nil, err
			}
			n.NotebookID = nbID
		}
	}

	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote returns a single note.
func (s *Service) GetNote(ctx context.Context, tenantID, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, tenantID, id)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteNote(ctx, tenantID, id)
}

// ListNotebooks returns the tenant's notebooks, optionally filtered by a
// name/description substring.
func (s *Service) ListNotebooks(ctx context.Context, tenantID, query string) ([]models.Notebook, error) {
	return s.store.ListNotebooks(ctx, search.BuildNotebookFilter(tenantID, query))
}

// GetNotebook resolves a free-form reference to a single notebook.
func (s *Service) GetNotebook(ctx context.Context, tenantID, ref string) (*models.Notebook, error) {
	id, err := s.resolveOne(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}
	nb, err := s.store.NotebookByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if nb == nil {
		return nil, apperr.ErrNotFound
	}
	return nb, nil
}

// CreateNotebook creates a notebook. Duplicate names within a tenant are
// legal; resolution handles them.
func (s *Service) CreateNotebook(ctx context.Context, tenantID, name, description string) (*models.Notebook, error) {
	nb := &models.Notebook{TenantID: tenantID, Name: name, Description: description}
	if err := s.store.CreateNotebook(ctx, nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// NotebookChanges carries the mutable notebook fields. Nil means unchanged.
type NotebookChanges struct {
	Name        *string
	Description *string
}

// UpdateNotebook applies changes to the notebook named by ref.
func (s *Service) UpdateNotebook(ctx context.Context, tenantID, ref string, ch NotebookChanges) (*models.Notebook, error) {
	nb, err := s.GetNotebook(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}
	if ch.Name != nil {
		nb.Name = *ch.Name
	}
	if ch.Description != nil {
		nb.Description = *ch.Description
	}
	if err := s.store.UpdateNotebook(ctx, nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// DeleteNotebook removes the notebook named by ref. Notes keep existing
// with their notebook reference cleared.
func (s *Service) DeleteNotebook(ctx context.Context, tenantID, ref string) error {
	id, err := s.resolveOne(ctx, tenantID, ref)
	if err != nil {
		return err
	}
	return s.store.DeleteNotebook(ctx, tenantID, id)
}
