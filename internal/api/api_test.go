package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/backend"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/testutil"
)

const (
	adminKey    = "test-admin-key"
	readOnlyKey = "test-read-key"
)

func testAPI(t *testing.T) *httptest.Server {
	t.Helper()
	st := testutil.TestStore(t)
	testutil.SeedAPIKey(t, st, "t1", adminKey, models.ScopeAdmin)
	testutil.SeedAPIKey(t, st, "t1", readOnlyKey, models.ScopeRead)

	svc := noteservice.NewService(st)
	authn := auth.New(st)
	ts := httptest.NewServer(NewRouter(svc, authn))
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, key string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestVerifyKey(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/auth/verify", adminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status = %d", resp.StatusCode)
	}
	v := decode[VerifyKeyResponse](t, resp)
	if v.TenantID != "t1" || v.KeyID == "" || !slices.Contains(v.Scopes, models.ScopeAdmin) {
		t.Errorf("verify = %+v", v)
	}

	if resp := doRequest(t, http.MethodGet, ts.URL+"/auth/verify", "wrong-key", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", resp.StatusCode)
	}
}

// A bridge in api mode binds its tenant by calling /api/auth/verify on a
// server like this one; the whole round trip has to work against our own
// router.
func TestBackendClientVerifiesAgainstOwnRouter(t *testing.T) {
	st := testutil.TestStore(t)
	testutil.SeedAPIKey(t, st, "t1", adminKey, models.ScopeAdmin)

	r := chi.NewRouter()
	r.Mount("/api", NewRouter(noteservice.NewService(st), auth.New(st)))
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	client := backend.New(ts.URL, adminKey, time.Second)
	ac, err := client.VerifyKey(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ac.TenantID != "t1" || !slices.Contains(ac.Scopes, models.ScopeAdmin) {
		t.Errorf("context = %+v", ac)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := testAPI(t)

	if resp := doRequest(t, http.MethodGet, ts.URL+"/notes", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodGet, ts.URL+"/notes", "wrong-key", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", resp.StatusCode)
	}
}

func TestScopeEnforcement(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/notes", readOnlyKey,
		CreateNoteRequest{Content: "x"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("read-only write: status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/notes", readOnlyKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read-only read: status = %d, want 200", resp.StatusCode)
	}
}

func TestNoteLifecycle(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/notes", adminKey, CreateNoteRequest{
		Content:   "---\ntitle: API Note\n---\nhello",
		SourceURL: "https://blog.example.com/post",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	created := decode[NoteResponse](t, resp)
	if created.Title != "API Note" || created.ID == "" || created.Checksum == "" {
		t.Fatalf("created = %+v", created)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/notes/"+created.ID, adminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}

	// Stale If-Match is a conflict.
	newContent := "updated"
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/notes/"+created.ID,
		bytes.NewReader(mustJSON(t, UpdateNoteRequest{Content: &newContent})))
	req.Header.Set("Authorization", "Bearer "+adminKey)
	req.Header.Set("If-Match", "stale")
	conflictResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer conflictResp.Body.Close()
	if conflictResp.StatusCode != http.StatusConflict {
		t.Errorf("stale If-Match: status = %d, want 409", conflictResp.StatusCode)
	}

	resp = doRequest(t, http.MethodPut, ts.URL+"/notes/"+created.ID, adminKey,
		UpdateNoteRequest{Content: &newContent})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodDelete, ts.URL+"/notes/"+created.ID, adminKey, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/notes/"+created.ID, adminKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchWithNotebookFilter(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/notebooks", adminKey,
		CreateNotebookRequest{Name: "Research", Description: "papers"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create notebook: status = %d", resp.StatusCode)
	}

	for _, body := range []CreateNoteRequest{
		{Content: "quantum summary", Notebook: "Research"},
		{Content: "grocery list"},
	} {
		if resp := doRequest(t, http.MethodPost, ts.URL+"/notes", adminKey, body); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create note: status = %d", resp.StatusCode)
		}
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/notes?notebook=research", adminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: status = %d", resp.StatusCode)
	}
	list := decode[NoteListResponse](t, resp)
	if list.Total != 1 || len(list.Notes) != 1 {
		t.Errorf("total=%d len=%d, want 1/1", list.Total, len(list.Notes))
	}

	// Unknown notebook reference is a 404, not an unfiltered search.
	resp = doRequest(t, http.MethodGet, ts.URL+"/notes?notebook=ghost", adminKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown notebook: status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchBadDateParam(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/notes?start_date=not-a-date", adminKey, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNotebookLifecycle(t *testing.T) {
	ts := testAPI(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/notebooks", adminKey,
		CreateNotebookRequest{Name: "Journal"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	created := decode[models.Notebook](t, resp)

	newName := "Daily Journal"
	resp = doRequest(t, http.MethodPut, ts.URL+"/notebooks/"+created.ID, adminKey,
		UpdateNotebookRequest{Name: &newName})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/notebooks", adminKey, nil)
	list := decode[NotebookListResponse](t, resp)
	if len(list.Notebooks) != 1 || list.Notebooks[0].Name != "Daily Journal" {
		t.Errorf("notebooks = %+v", list.Notebooks)
	}

	resp = doRequest(t, http.MethodDelete, ts.URL+"/notebooks/"+created.ID, adminKey, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
}

func TestAmbiguousNotebookWrite(t *testing.T) {
	ts := testAPI(t)

	for _, name := range []string{"Project Alpha", "Project Beta"} {
		if resp := doRequest(t, http.MethodPost, ts.URL+"/notebooks", adminKey,
			CreateNotebookRequest{Name: name}); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create notebook: status = %d", resp.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodPost, ts.URL+"/notes", adminKey,
		CreateNoteRequest{Content: "x", Notebook: "Project"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("ambiguous notebook: status = %d, want 422", resp.StatusCode)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
