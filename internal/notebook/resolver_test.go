package notebook

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
)

// fakeLookup is an in-memory Lookup over a fixed notebook list.
type fakeLookup struct {
	notebooks []models.Notebook
	err       error

	byIDCalls     int
	matchingCalls int
	allCalls      int
}

func (f *fakeLookup) NotebookByID(_ context.Context, tenantID, id string) (*models.Notebook, error) {
	f.byIDCalls++
	if f.err != nil {
		return nil, f.err
	}
	for _, nb := range f.notebooks {
		if nb.TenantID == tenantID && nb.ID == id {
			out := nb
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeLookup) NotebooksMatching(_ context.Context, tenantID, text string) ([]models.Notebook, error) {
	f.matchingCalls++
	if f.err != nil {
		return nil, f.err
	}
	needle := strings.ToLower(text)
	var out []models.Notebook
	for _, nb := range f.notebooks {
		if nb.TenantID != tenantID {
			continue
		}
		if strings.Contains(strings.ToLower(nb.Name), needle) ||
			strings.Contains(strings.ToLower(nb.Description), needle) {
			out = append(out, nb)
		}
	}
	return out, nil
}

func (f *fakeLookup) AllNotebooks(_ context.Context, tenantID string) ([]models.Notebook, error) {
	f.allCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Notebook
	for _, nb := range f.notebooks {
		if nb.TenantID == tenantID {
			out = append(out, nb)
		}
	}
	return out, nil
}

const (
	idResearch = "cmaaaaaaaaaaaaaaaaaaaak9z"
	idArchive  = "cmbbbbbbbbbbbbbbbbbbbbbbb"
	idAlpha    = "cmccccccccccccccccccccccc"
	idOther    = "cmddddddddddddddddddddddd"
)

func testLookup() *fakeLookup {
	return &fakeLookup{notebooks: []models.Notebook{
		{ID: idResearch, TenantID: "u1", Name: "Research"},
		{ID: idArchive, TenantID: "u1", Name: "Research Archive"},
		{ID: idAlpha, TenantID: "u1", Name: "Project Alpha!!", Description: "scratch space"},
		{ID: idOther, TenantID: "u2", Name: "Research"},
	}}
}

func TestResolveByID(t *testing.T) {
	lk := testLookup()
	r := NewResolver(lk)

	ids, err := r.Resolve(context.Background(), "u1", idResearch)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != idResearch {
		t.Errorf("ids = %v, want [%s]", ids, idResearch)
	}
	if lk.matchingCalls != 0 || lk.allCalls != 0 {
		t.Error("id lookup should not consult text matching")
	}
}

func TestResolveIDShortcutIsExclusive(t *testing.T) {
	lk := testLookup()
	r := NewResolver(lk)

	// Valid id format that belongs to another tenant: must resolve to
	// nothing and never fall through to substring or fuzzy matching.
	ids, err := r.Resolve(context.Background(), "u1", idOther)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("cross-tenant id resolved: %v", ids)
	}
	if lk.matchingCalls != 0 || lk.allCalls != 0 {
		t.Error("id-format miss must not fall through to text matching")
	}
}

func TestResolveExactNameNarrowsSubstringHits(t *testing.T) {
	r := NewResolver(testLookup())

	// "Research" is a substring of both notebooks, but an exact name match
	// narrows the result to only the exact hit.
	ids, err := r.Resolve(context.Background(), "u1", "research")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != idResearch {
		t.Errorf("ids = %v, want exact-name match only", ids)
	}
}

func TestResolveExactNameReturnsAllDuplicates(t *testing.T) {
	lk := &fakeLookup{notebooks: []models.Notebook{
		{ID: idResearch, TenantID: "u1", Name: "Inbox"},
		{ID: idArchive, TenantID: "u1", Name: "inbox"},
	}}
	r := NewResolver(lk)

	ids, err := r.Resolve(context.Background(), "u1", "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v, want both duplicate-name notebooks", ids)
	}
}

func TestResolvePartialName(t *testing.T) {
	r := NewResolver(testLookup())

	ids, err := r.Resolve(context.Background(), "u1", "Arch")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != idArchive {
		t.Errorf("ids = %v, want [%s]", ids, idArchive)
	}
}

func TestResolveDescriptionSubstring(t *testing.T) {
	r := NewResolver(testLookup())

	ids, err := r.Resolve(context.Background(), "u1", "scratch")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != idAlpha {
		t.Errorf("ids = %v, want [%s]", ids, idAlpha)
	}
}

func TestResolveFuzzyFallback(t *testing.T) {
	lk := testLookup()
	r := NewResolver(lk)

	// The colon breaks literal substring containment against
	// "Project Alpha!!", so only the normalized fallback can match.
	ids, err := r.Resolve(context.Background(), "u1", "project: alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != idAlpha {
		t.Errorf("ids = %v, want fuzzy match on [%s]", ids, idAlpha)
	}
	if lk.allCalls != 1 {
		t.Error("fuzzy fallback should have scanned all notebooks")
	}
}

func TestResolveSubstringShortCircuitsFuzzy(t *testing.T) {
	lk := testLookup()
	r := NewResolver(lk)

	if _, err := r.Resolve(context.Background(), "u1", "Alpha"); err != nil {
		t.Fatal(err)
	}
	if lk.allCalls != 0 {
		t.Error("substring hit must not reach the fuzzy fallback")
	}
}

func TestResolveTypoReturnsEmpty(t *testing.T) {
	r := NewResolver(testLookup())

	// Typos with no substring relation are an accepted limitation of the
	// fuzzy stage: the result is simply empty.
	ids, err := r.Resolve(context.Background(), "u1", "resarch")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}

func TestResolveNeverCrossesTenants(t *testing.T) {
	r := NewResolver(testLookup())

	ids, err := r.Resolve(context.Background(), "u2", "Archive")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("tenant u2 resolved u1 notebooks: %v", ids)
	}
}

func TestResolvePropagatesLookupErrors(t *testing.T) {
	lk := &fakeLookup{err: errors.New("db down")}
	r := NewResolver(lk)

	if _, err := r.Resolve(context.Background(), "u1", "anything"); err == nil {
		t.Error("expected lookup error to propagate")
	}
}

func TestIsID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{idResearch, true},
		{"cm" + strings.Repeat("a", 23), true},
		{"cm" + strings.Repeat("a", 22), false},
		{"cm" + strings.Repeat("a", 24), false},
		{"cx" + strings.Repeat("a", 23), false},
		{"cm" + strings.Repeat("A", 23), false},
		{"Research", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsID(c.in); got != c.want {
			t.Errorf("IsID(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
