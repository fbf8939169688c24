// Package search assembles the predicate structures used to query notes
// and notebooks. Builders are pure: no validation, no I/O. An empty or
// nonsensical filter is legal and simply matches nothing at query time.
package search

import "time"

// NoteCriteria are the optional inputs to BuildNoteFilter.
type NoteCriteria struct {
	Search      string
	Domain      string
	StartDate   *time.Time
	EndDate     *time.Time
	NotebookID  string
	NotebookIDs []string
}

// NoteFilter is the assembled predicate over notes. TenantID is always set.
type NoteFilter struct {
	TenantID    string
	Search      string     // case-insensitive substring over content OR title
	Domain      string     // case-insensitive substring over the source URL
	StartDate   *time.Time // inclusive lower bound on created_at
	EndDate     *time.Time // inclusive upper bound on created_at
	NotebookIDs []string   // membership test; empty means no notebook constraint
}

// BuildNoteFilter assembles a NoteFilter from optional criteria. The tenant
// scope is always present regardless of which criteria are supplied. When
// both a single NotebookID and a NotebookIDs set are given, the single id
// takes precedence.
func BuildNoteFilter(tenantID string, c NoteCriteria) NoteFilter {
	f := NoteFilter{
		TenantID:  tenantID,
		Search:    c.Search,
		Domain:    c.Domain,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	}
	switch {
	case c.NotebookID != "":
		f.NotebookIDs = []string{c.NotebookID}
	case len(c.NotebookIDs) > 0:
		f.NotebookIDs = c.NotebookIDs
	}
	return f
}

// NotebookFilter is the assembled predicate over notebooks.
type NotebookFilter struct {
	TenantID string
	Search   string // case-insensitive substring over name OR description
}

// BuildNotebookFilter assembles a NotebookFilter.
func BuildNotebookFilter(tenantID, search string) NotebookFilter {
	return NotebookFilter{TenantID: tenantID, Search: search}
}
