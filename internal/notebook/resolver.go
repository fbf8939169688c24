// Package notebook resolves free-form notebook references to concrete ids.
package notebook

import (
	"context"
	"regexp"
	"strings"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/normalize"
)

// Lookup is the persistence surface the resolver needs. Implementations
// return nil (not an error) when an id lookup finds nothing.
type Lookup interface {
	// NotebookByID returns the notebook with the exact id within the tenant,
	// or nil if absent.
	NotebookByID(ctx context.Context, tenantID, id string) (*models.Notebook, error)
	// NotebooksMatching returns every notebook whose name or description
	// contains text as a case-insensitive substring.
	NotebooksMatching(ctx context.Context, tenantID, text string) ([]models.Notebook, error)
	// AllNotebooks returns every notebook owned by the tenant.
	AllNotebooks(ctx context.Context, tenantID string) ([]models.Notebook, error)
}

// idPattern is the notebook id token format: 25 lowercase alphanumerics
// with a fixed "cm" prefix.
var idPattern = regexp.MustCompile(`^cm[a-z0-9]{23}$`)

// IsID reports whether s is syntactically a notebook id.
func IsID(s string) bool { return idPattern.MatchString(s) }

// Resolver maps a user-supplied notebook reference (exact id, full name,
// partial name, or description fragment) to the set of matching notebook
// ids within a tenant.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver backed by the given lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the notebook ids that plausibly match query. Zero, one,
// or several ids may be returned; callers decide how to treat ambiguity.
// Rules apply in strict precedence order, stopping at the first non-empty
// result:
//
//  1. If query is syntactically an id, look it up directly. The id form is
//     exclusive: a miss here never falls through to text matching, so an
//     id belonging to another tenant resolves to nothing.
//  2. Case-insensitive substring search over name and description. When
//     any hit's name equals the query exactly (ignoring case), only those
//     exact matches are returned; otherwise every substring hit is.
//  3. Fuzzy fallback over all the tenant's notebooks: the normalized query
//     and the normalized name (or description) must contain one another in
//     either direction.
//
// Case is never significant. An empty result is not an error.
func (r *Resolver) Resolve(ctx context.Context, tenantID, query string) ([]string, error) {
	if IsID(query) {
		nb, err := r.lookup.NotebookByID(ctx, tenantID, query)
		if err != nil {
			return nil, err
		}
		if nb == nil {
			return nil, nil
		}
		return []string{nb.ID}, nil
	}

	matches, err := r.lookup.NotebooksMatching(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		var exact []string
		for _, nb := range matches {
			if strings.EqualFold(nb.Name, query) {
				exact = append(exact, nb.ID)
			}
		}
		if len(exact) > 0 {
			return exact, nil
		}
		ids := make([]string, len(matches))
		for i, nb := range matches {
			ids[i] = nb.ID
		}
		return ids, nil
	}

	return r.fuzzy(ctx, tenantID, query)
}

// fuzzy is the last-resort matching stage, reached only when substring
// search produced nothing. Per-tenant notebook counts are small, so the
// unbounded scan is fine.
func (r *Resolver) fuzzy(ctx context.Context, tenantID, query string) ([]string, error) {
	all, err := r.lookup.AllNotebooks(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	nq := normalize.Normalize(query)
	var ids []string
	for _, nb := range all {
		if mutualContains(nq, normalize.Normalize(nb.Name)) ||
			mutualContains(nq, normalize.Normalize(nb.Description)) {
			ids = append(ids, nb.ID)
		}
	}
	return ids, nil
}

// mutualContains reports substring containment in either direction. Empty
// strings match nothing.
func mutualContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
