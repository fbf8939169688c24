package api

import (
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Content   string `json:"content"`
	Title     string `json:"title,omitempty"`
	Notebook  string `json:"notebook,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// UpdateNoteRequest is the request body for updating a note. Absent fields
// are unchanged; an empty notebook string clears the reference.
type UpdateNoteRequest struct {
	Content   *string `json:"content,omitempty"`
	Title     *string `json:"title,omitempty"`
	SourceURL *string `json:"source_url,omitempty"`
	Notebook  *string `json:"notebook,omitempty"`
}

// CreateNotebookRequest is the request body for creating a notebook.
type CreateNotebookRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateNotebookRequest is the request body for updating a notebook.
type UpdateNotebookRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// VerifyKeyResponse echoes the authenticated key's identity.
type VerifyKeyResponse struct {
	TenantID string   `json:"tenant_id"`
	KeyID    string   `json:"key_id"`
	Scopes   []string `json:"scopes"`
}

// NoteResponse is a note plus its content checksum for If-Match updates.
type NoteResponse struct {
	models.Note
	Checksum string `json:"checksum"`
}

func noteResponse(n *models.Note) NoteResponse {
	return NoteResponse{Note: *n, Checksum: noteservice.Checksum(n.Content)}
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// NotebookListResponse wraps notebook listings.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks"`
}
