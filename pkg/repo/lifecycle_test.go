package repo

import (
	"errors"
	"testing"

	"github.com/cuemby/pgbackrest-repo/pkg/archiveinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
)

var errNotFound = errors.New("not found")

type fakeFS struct {
	dirs     map[string]bool
	contents map[string]bool // path -> non-empty

	archiveCatalog *archiveinfo.Catalog
	backupCatalog  *backupinfo.Catalog
	haveArchive    bool
	haveBackup     bool
}

func newFakeFS() *fakeFS {
	return &fakeFS{dirs: map[string]bool{}, contents: map[string]bool{}}
}

func (f *fakeFS) PathExists(path string) (bool, error) { return f.dirs[path], nil }
func (f *fakeFS) PathEmpty(path string) (bool, error)   { return !f.contents[path], nil }
func (f *fakeFS) MkdirAll(path string) error            { f.dirs[path] = true; return nil }
func (f *fakeFS) RemoveAll(path string) error {
	delete(f.dirs, path)
	delete(f.contents, path)
	return nil
}

func (f *fakeFS) LoadArchiveInfo() (*archiveinfo.Catalog, error) {
	if !f.haveArchive {
		return nil, errNotFound
	}
	return f.archiveCatalog, nil
}
func (f *fakeFS) SaveArchiveInfo(c *archiveinfo.Catalog) error {
	f.archiveCatalog = c
	f.haveArchive = true
	return nil
}
func (f *fakeFS) LoadBackupInfo() (*backupinfo.Catalog, error) {
	if !f.haveBackup {
		return nil, errNotFound
	}
	return f.backupCatalog, nil
}
func (f *fakeFS) SaveBackupInfo(c *backupinfo.Catalog) error {
	f.backupCatalog = c
	f.haveBackup = true
	return nil
}

func TestCreateStanzaOnEmptyPaths(t *testing.T) {
	fs := newFakeFS()
	identity := Identity{PgVersion: "15", SystemID: 111, CatalogVersion: 202, ControlVersion: 101}

	if err := CreateStanza(fs, "/backup", "/archive", identity); err != nil {
		t.Fatalf("CreateStanza() error = %v", err)
	}

	if !fs.haveArchive || !fs.haveBackup {
		t.Fatal("expected both catalogs to be saved")
	}
	current, err := fs.backupCatalog.History.Current()
	if err != nil {
		t.Fatalf("History.Current() error = %v", err)
	}
	if current.PgVersionStr != "15" || current.SystemID != 111 {
		t.Errorf("unexpected current identity: %+v", current)
	}
}

func TestCreateStanzaRejectsNonEmptyMismatchedPath(t *testing.T) {
	fs := newFakeFS()
	fs.dirs["/backup"] = true
	fs.contents["/backup"] = true // non-empty, no catalogs present

	identity := Identity{PgVersion: "15", SystemID: 111, CatalogVersion: 202, ControlVersion: 101}
	if err := CreateStanza(fs, "/backup", "/archive", identity); err == nil {
		t.Error("CreateStanza() should reject a non-empty path with no matching catalog")
	}
}

func TestCreateStanzaIsIdempotentForMatchingIdentity(t *testing.T) {
	fs := newFakeFS()
	identity := Identity{PgVersion: "15", SystemID: 111, CatalogVersion: 202, ControlVersion: 101}

	if err := CreateStanza(fs, "/backup", "/archive", identity); err != nil {
		t.Fatalf("first CreateStanza() error = %v", err)
	}
	fs.contents["/backup"] = true
	fs.contents["/archive"] = true

	if err := CreateStanza(fs, "/backup", "/archive", identity); err != nil {
		t.Errorf("re-running CreateStanza() against a matching stanza should succeed, got %v", err)
	}
}

func TestDeleteStanzaRejectsRunningCluster(t *testing.T) {
	fs := newFakeFS()
	fs.dirs["/backup"] = true
	fs.dirs["/archive"] = true

	if err := DeleteStanza(fs, "/backup", "/archive", true); err == nil {
		t.Error("DeleteStanza() should refuse to run while the cluster is reported running")
	}
	if !fs.dirs["/backup"] || !fs.dirs["/archive"] {
		t.Error("paths must be untouched when delete is rejected")
	}
}

func TestDeleteStanzaRemovesPaths(t *testing.T) {
	fs := newFakeFS()
	fs.dirs["/backup"] = true
	fs.dirs["/archive"] = true

	if err := DeleteStanza(fs, "/backup", "/archive", false); err != nil {
		t.Fatalf("DeleteStanza() error = %v", err)
	}
	if fs.dirs["/backup"] || fs.dirs["/archive"] {
		t.Error("expected both paths to be removed")
	}
}

func TestUpgradeStanzaAppendsHistory(t *testing.T) {
	fs := newFakeFS()
	first := Identity{PgVersion: "15", SystemID: 111, CatalogVersion: 202, ControlVersion: 101}
	if err := CreateStanza(fs, "/backup", "/archive", first); err != nil {
		t.Fatalf("CreateStanza() error = %v", err)
	}

	upgraded := Identity{PgVersion: "16", SystemID: 111, CatalogVersion: 202, ControlVersion: 101}
	if err := UpgradeStanza(fs, upgraded); err != nil {
		t.Fatalf("UpgradeStanza() error = %v", err)
	}

	current, err := fs.backupCatalog.History.Current()
	if err != nil {
		t.Fatalf("History.Current() error = %v", err)
	}
	if current.HistoryID != 2 || current.PgVersionStr != "16" {
		t.Errorf("current = %+v, want historyId 2 at pg 16", current)
	}
}
