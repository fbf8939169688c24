package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/search"
)

const testKey = "service-key"

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, testKey, time.Second)
}

func TestAuthorizationHeader(t *testing.T) {
	var got string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"notebooks": []models.Notebook{}})
	})

	if _, err := c.AllNotebooks(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer "+testKey {
		t.Errorf("Authorization = %q", got)
	}
}

func TestVerifyKey(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/verify" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tenant_id": "t1",
			"key_id":    "k1",
			"scopes":    []string{models.ScopeAdmin},
		})
	})

	ac, err := c.VerifyKey(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ac.TenantID != "t1" || ac.KeyID != "k1" || len(ac.Scopes) != 1 {
		t.Errorf("context = %+v", ac)
	}
}

func TestVerifyKeyRejected(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := c.VerifyKey(context.Background()); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestNotebookByIDMissing(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	nb, err := c.NotebookByID(context.Background(), "t1", "cmabcdefghijklmnopqrstuvw")
	if err != nil {
		t.Fatal(err)
	}
	if nb != nil {
		t.Errorf("nb = %+v, want nil", nb)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := c.GetNote(context.Background(), "t1", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateNoteAdoptsResponse(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/notes" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var n models.Note
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			t.Fatal(err)
		}
		n.ID = "cmabcdefghijklmnopqrstuvw"
		n.CreatedAt = time.Now().UTC()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(n)
	})

	n := &models.Note{TenantID: "t1", Title: "Hello", Content: "body"}
	if err := c.CreateNote(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if n.ID == "" || n.CreatedAt.IsZero() {
		t.Errorf("note = %+v, want backend-assigned id and timestamp", n)
	}
	if n.Title != "Hello" {
		t.Errorf("Title = %q", n.Title)
	}
}

func TestListNotesQueryParams(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tenant_id") != "t1" {
			t.Errorf("tenant_id = %q", q.Get("tenant_id"))
		}
		if q.Get("q") != "quantum" || q.Get("domain") != "example.com" {
			t.Errorf("q=%q domain=%q", q.Get("q"), q.Get("domain"))
		}
		if q.Get("notebook_ids") != "id1,id2" {
			t.Errorf("notebook_ids = %q", q.Get("notebook_ids"))
		}
		if q.Get("start_date") == "" || q.Get("limit") != "5" || q.Get("offset") != "10" {
			t.Errorf("start_date=%q limit=%q offset=%q", q.Get("start_date"), q.Get("limit"), q.Get("offset"))
		}
		json.NewEncoder(w).Encode(map[string]any{"notes": []models.Note{{ID: "n1"}}, "total": 7})
	})

	notes, total, err := c.ListNotes(context.Background(), search.NoteFilter{
		TenantID:    "t1",
		Search:      "quantum",
		Domain:      "example.com",
		StartDate:   &start,
		NotebookIDs: []string{"id1", "id2"},
	}, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 7 || len(notes) != 1 || notes[0].ID != "n1" {
		t.Errorf("total=%d notes=%+v", total, notes)
	}
}

func TestConflictMapsToAlreadyExists(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := c.CreateNotebook(context.Background(), &models.Notebook{TenantID: "t1", Name: "Dup"})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUnexpectedStatus(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.DeleteNote(context.Background(), "t1", "n1")
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want generic error", err)
	}
}
