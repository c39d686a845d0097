package repo

import (
	"path/filepath"
	"testing"
)

func TestRepoIndexRememberAndLookup(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "repo-index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer idx.Close()

	loc := StanzaLocation{RepoKey: "repo1", CatalogPath: "/repo1/backup/main", HistoryID: 3}
	if err := idx.Remember("main", loc); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}

	got, found, err := idx.Lookup("main")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit for a remembered stanza")
	}
	if got != loc {
		t.Errorf("Lookup() = %+v, want %+v", got, loc)
	}
}

func TestRepoIndexLookupMiss(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "repo-index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer idx.Close()

	_, found, err := idx.Lookup("unknown")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("expected a miss for a stanza never remembered")
	}
}

func TestRepoIndexForgetAndList(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "repo-index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer idx.Close()

	if err := idx.Remember("main", StanzaLocation{RepoKey: "repo1"}); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	if err := idx.Remember("standby", StanzaLocation{RepoKey: "repo2"}); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}

	names, err := idx.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List() = %v, want 2 entries", names)
	}

	if err := idx.Forget("main"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if _, found, _ := idx.Lookup("main"); found {
		t.Error("expected \"main\" to be gone after Forget")
	}
	if _, found, _ := idx.Lookup("standby"); !found {
		t.Error("expected \"standby\" to remain after forgetting a different stanza")
	}
}
