package manifest

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
)

// memStorage is an in-memory fixture keyed by root, used in place of a
// real filesystem walker.
type memStorage map[string][]Entry

func (m memStorage) List(root string) ([]Entry, error) {
	return m[root], nil
}

func baseFixture() memStorage {
	return memStorage{
		"pg_data": {
			{Name: "pg_data/base", Type: EntryPath, User: "postgres", Group: "postgres", Mode: "0700"},
			{Name: "pg_data/PG_VERSION", Type: EntryFile, Size: 3, Timestamp: 1000, User: "postgres", Group: "postgres", Mode: "0600"},
			{Name: "pg_data/postgresql.conf", Type: EntryFile, Size: 512, Timestamp: 1000, User: "postgres", Group: "postgres", Mode: "0600"},
			{Name: "pg_data/pg_tblspc/16384", Type: EntryLink, User: "postgres", Group: "postgres", Destination: "/ts1"},
		},
		"/ts1": {
			{Name: "/ts1/1234", Type: EntryFile, Size: 8192, Timestamp: 1000, User: "postgres", Group: "postgres", Mode: "0600"},
		},
	}
}

func TestBuildWalksPathsFilesLinksAndTablespaces(t *testing.T) {
	storage := baseFixture()

	m, err := Build(storage, "/data/pg_data", "13", 1, 999999, 1000, true, false, nil, map[string]string{"16384": "ts1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, ok := m.Paths["pg_data/base"]; !ok {
		t.Error("Paths missing pg_data/base")
	}
	if _, ok := m.Files["pg_data/PG_VERSION"]; !ok {
		t.Error("Files missing pg_data/PG_VERSION")
	}
	if _, ok := m.Links["pg_data/pg_tblspc/16384"]; !ok {
		t.Error("Links missing pg_data/pg_tblspc/16384")
	}
	if _, ok := m.Files["pg_tblspc/16384/1234"]; !ok {
		t.Error("Files missing tablespace-rooted pg_tblspc/16384/1234")
	}

	targets := m.Targets()
	if len(targets) != 2 {
		t.Fatalf("len(Targets()) = %d, want 2 (pg_data + tablespace)", len(targets))
	}
	if targets[0].Name != "pg_data" || targets[0].Type != TargetTypePath {
		t.Errorf("Targets()[0] = %+v, want pg_data path target", targets[0])
	}
	if targets[1].TablespaceID != "16384" || targets[1].TablespaceName != "ts1" {
		t.Errorf("Targets()[1] = %+v, want tablespace-id=16384 name=ts1", targets[1])
	}
}

func TestBuildRejectsLinkInsidePgData(t *testing.T) {
	storage := memStorage{
		"pg_data": {
			{Name: "pg_data/bad_link", Type: EntryLink, Destination: "/data/pg_data/base"},
		},
	}

	if _, err := Build(storage, "/data/pg_data", "13", 1, 999999, 1000, true, false, nil, nil); err == nil {
		t.Error("Build() should reject a link that resolves inside pg_data")
	}
}

func TestBuildExcludesFixedAndUserNames(t *testing.T) {
	storage := memStorage{
		"pg_data": {
			{Name: "pg_data/pg_stat_tmp", Type: EntryPath},
			{Name: "pg_data/postmaster.pid", Type: EntryFile, Size: 4},
			{Name: "pg_data/custom_excluded", Type: EntryFile, Size: 4},
		},
	}

	m, err := Build(storage, "/data/pg_data", "13", 1, 999999, 1000, true, false, []string{"custom_excluded"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, ok := m.Paths["pg_data/pg_stat_tmp"]; ok {
		t.Error("pg_stat_tmp should have been excluded")
	}
	if _, ok := m.Files["pg_data/postmaster.pid"]; ok {
		t.Error("postmaster.pid should have been excluded")
	}
	if _, ok := m.Files["pg_data/custom_excluded"]; ok {
		t.Error("user-supplied exclude should have been honored")
	}
}

func TestFileUpdateFillsCopyPhaseMetadata(t *testing.T) {
	m, err := Build(baseFixture(), "/data/pg_data", "13", 1, 999999, 1000, true, false, nil, map[string]string{"16384": "ts1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	repoSize := int64(3)
	if err := m.FileUpdate("pg_data/PG_VERSION", "abc123", 3, 1001, FileUpdateOpts{RepoSize: &repoSize}); err != nil {
		t.Fatalf("FileUpdate() error = %v", err)
	}

	f := m.Files["pg_data/PG_VERSION"]
	if f.Checksum != "abc123" || !f.RepoSizeSet || f.RepoSize != 3 {
		t.Errorf("FileUpdate() result = %+v", f)
	}
}

func TestFileUpdateUnknownFileFails(t *testing.T) {
	m := New()
	if err := m.FileUpdate("missing", "abc", 1, 1, FileUpdateOpts{}); err == nil {
		t.Error("FileUpdate() on unknown file should fail")
	}
}

func TestReferencePassResolvesToUltimateOwner(t *testing.T) {
	grandparent := New()
	grandparent.Label = "20210101-000000F"
	grandparent.Files["pg_data/PG_VERSION"] = FileRecord{Checksum: "same", Size: 3}

	parent := New()
	parent.Label = "20210102-000000F_20210102-010000D"
	parent.Files["pg_data/PG_VERSION"] = FileRecord{Checksum: "same", Size: 3, Reference: grandparent.Label}

	child := New()
	child.Files["pg_data/PG_VERSION"] = FileRecord{Checksum: "same", Size: 3}

	if err := child.ReferencePass([]*Manifest{parent, grandparent}); err != nil {
		t.Fatalf("ReferencePass() error = %v", err)
	}

	if got := child.Files["pg_data/PG_VERSION"].Reference; got != grandparent.Label {
		t.Errorf("Reference = %q, want %q (the backup that actually owns the bytes)", got, grandparent.Label)
	}
}

func TestSealPreventsFurtherMutation(t *testing.T) {
	m := New()
	m.Label = "20210101-000000F"
	m.Type = label.Full
	m.PgVersion = "13"
	m.HistoryID = 1
	m.SystemID = 999999

	dir := t.TempDir()
	paths := ini.PairPaths{
		Primary: filepath.Join(dir, "backup.manifest"),
		Copy:    filepath.Join(dir, "backup.manifest.copy"),
	}

	if err := Seal(m, paths, ini.CipherOptions{}); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if err := m.FileRemove("anything"); err == nil {
		t.Error("mutation after Seal() should fail")
	}
}

func TestSealLoadRoundTrip(t *testing.T) {
	m, err := Build(baseFixture(), "/data/pg_data", "13", 1, 999999, 1000, true, false, nil, map[string]string{"16384": "ts1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	m.Label = "20210101-000000F"
	m.Type = label.Full
	m.TimestampStop = 1100
	m.CatalogVersion = 1201
	m.ControlVersion = 1100

	repoSize := int64(3)
	if err := m.FileUpdate("pg_data/PG_VERSION", "abc123", 3, 1001, FileUpdateOpts{RepoSize: &repoSize}); err != nil {
		t.Fatalf("FileUpdate() error = %v", err)
	}

	dir := t.TempDir()
	paths := ini.PairPaths{
		Primary: filepath.Join(dir, "backup.manifest"),
		Copy:    filepath.Join(dir, "backup.manifest.copy"),
	}

	if err := Seal(m, paths, ini.CipherOptions{}); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	loaded, _, err := LoadPair(paths, ini.CipherOptions{})
	if err != nil {
		t.Fatalf("LoadPair() error = %v", err)
	}

	if loaded.Label != m.Label || loaded.PgVersion != m.PgVersion {
		t.Errorf("loaded manifest identity = %+v", loaded)
	}

	f, ok := loaded.Files["pg_data/PG_VERSION"]
	if !ok || f.Checksum != "abc123" {
		t.Errorf("loaded PG_VERSION file = %+v, ok=%v", f, ok)
	}

	pgData, ok := loaded.Paths["pg_data/base"]
	if !ok || pgData.User != "postgres" {
		t.Errorf("loaded pg_data/base path = %+v, ok=%v", pgData, ok)
	}

	tsFile, ok := loaded.Files["pg_tblspc/16384/1234"]
	if !ok || tsFile.Size != 8192 {
		t.Errorf("loaded tablespace file = %+v, ok=%v", tsFile, ok)
	}
}

func TestPgValidateDetectsMismatch(t *testing.T) {
	m := New()
	m.HistoryID = 1
	m.PgVersion = "13"
	m.SystemID = 999999

	history := infopg.New()
	history.Set("13", 999999, 1201, 1100)

	if err := PgValidate(m, history); err != nil {
		t.Errorf("PgValidate() matching identity should succeed, got %v", err)
	}

	m.SystemID = 111111
	if err := PgValidate(m, history); err == nil {
		t.Error("PgValidate() with mismatched systemId should fail")
	}
}
