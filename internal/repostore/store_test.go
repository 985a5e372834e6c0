package repostore_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gitscribe/gitscribe/internal/repostore"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *repostore.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := repostore.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")
	store, err := repostore.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := repostore.NewStore("/no/such/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

func TestUpsertAndGetRepository(t *testing.T) {
	store := newTestStore(t)

	r := &repostore.Repository{Service: "github", Owner: "acme", Repo: "docs"}
	if err := store.UpsertRepository(r); err != nil {
		t.Fatalf("UpsertRepository: %v", err)
	}
	if r.ID == "" {
		t.Error("upsert should assign an ID")
	}
	if r.Ref != "main" {
		t.Errorf("ref = %q, want default main", r.Ref)
	}

	got, err := store.GetRepository("github", "acme", "docs")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	if got.ID != r.ID || got.FullName() != "acme/docs" {
		t.Errorf("got %+v, want id %q and acme/docs", got, r.ID)
	}
}

func TestUpsertRepository_RefreshesExisting(t *testing.T) {
	store := newTestStore(t)

	first := &repostore.Repository{Service: "github", Owner: "acme", Repo: "docs", Ref: "main"}
	if err := store.UpsertRepository(first); err != nil {
		t.Fatalf("UpsertRepository: %v", err)
	}

	second := &repostore.Repository{Service: "github", Owner: "acme", Repo: "docs", Ref: "develop"}
	if err := store.UpsertRepository(second); err != nil {
		t.Fatalf("UpsertRepository (update): %v", err)
	}

	got, err := store.GetRepository("github", "acme", "docs")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	if got.Ref != "develop" {
		t.Errorf("ref = %q, want develop after upsert", got.Ref)
	}
	// The original row is updated, not duplicated.
	if got.ID != first.ID {
		t.Errorf("id = %q, want original %q", got.ID, first.ID)
	}
	repos, err := store.ListRepositories()
	if err != nil {
		t.Fatalf("ListRepositories: %v", err)
	}
	if len(repos) != 1 {
		t.Errorf("repositories = %d, want 1", len(repos))
	}
}

func TestGetRepository_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetRepository("github", "acme", "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestListRepositories_SeparateServices(t *testing.T) {
	store := newTestStore(t)

	for _, svc := range []string{"github", "forgejo"} {
		if err := store.UpsertRepository(&repostore.Repository{Service: svc, Owner: "acme", Repo: "docs"}); err != nil {
			t.Fatalf("UpsertRepository(%s): %v", svc, err)
		}
	}

	repos, err := store.ListRepositories()
	if err != nil {
		t.Fatalf("ListRepositories: %v", err)
	}
	// Same owner/repo on different services are distinct rows.
	if len(repos) != 2 {
		t.Errorf("repositories = %d, want 2", len(repos))
	}
}

func TestRecordAndListOperations(t *testing.T) {
	store := newTestStore(t)

	ops := []*repostore.Operation{
		{Repository: "acme/docs", Service: "github", Kind: "issue_created", Title: "A", URL: "u1"},
		{Repository: "acme/docs", Service: "github", Kind: "pull_request_created", Title: "B", URL: "u2"},
		{Repository: "acme/other", Service: "github", Kind: "issue_created", Title: "C"},
	}
	for _, op := range ops {
		if err := store.RecordOperation(op); err != nil {
			t.Fatalf("RecordOperation: %v", err)
		}
		if op.ID == 0 {
			t.Error("RecordOperation should assign an ID")
		}
	}

	got, err := store.ListOperations("acme/docs", 0)
	if err != nil {
		t.Fatalf("ListOperations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("operations = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Title != "B" || got[1].Title != "A" {
		t.Errorf("order = [%s %s], want [B A]", got[0].Title, got[1].Title)
	}

	limited, err := store.ListOperations("acme/docs", 1)
	if err != nil {
		t.Fatalf("ListOperations(limit): %v", err)
	}
	if len(limited) != 1 || limited[0].Title != "B" {
		t.Errorf("limited = %+v, want just B", limited)
	}
}
