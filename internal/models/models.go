// Package models defines the domain types shared across the neemee bridge.
package models

import "time"

// Scope names attached to API keys. ScopeAdmin implies the other two.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// Notebook is a named collection of notes owned by a single tenant.
type Notebook struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	NoteCount   int       `json:"note_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Note is a markdown document owned by a tenant, optionally filed in a
// notebook. Frontmatter carries arbitrary metadata; Tags is derived from
// the frontmatter "tags" list and never stored separately.
type Note struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Title       string         `json:"title,omitempty"`
	Content     string         `json:"content"`
	SourceURL   string         `json:"source_url,omitempty"`
	NotebookID  string         `json:"notebook_id,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// APIKey is a stored credential record. The raw secret is never persisted,
// only its bcrypt hash.
type APIKey struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	KeyHash    string     `json:"-"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
