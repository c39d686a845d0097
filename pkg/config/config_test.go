package config

import "testing"

func TestLoadRetentionConfig(t *testing.T) {
	doc := []byte(`
apiVersion: pgbackrest-repo/v1
kind: RetentionPolicy
metadata:
  name: main
spec:
  retentionFullType: count
  retentionFull: 2
  retentionDiff: 4
  retentionArchive: 1
  retentionArchiveType: diff
  dryRun: true
`)

	cfg, err := LoadRetentionConfig(doc)
	if err != nil {
		t.Fatalf("LoadRetentionConfig() error = %v", err)
	}

	if cfg.RepoKey != "main" {
		t.Errorf("RepoKey = %q, want %q (from metadata.name)", cfg.RepoKey, "main")
	}
	if cfg.RetentionFullType != FullTypeCount || cfg.RetentionFull != 2 {
		t.Errorf("RetentionFullType/RetentionFull = %v/%d", cfg.RetentionFullType, cfg.RetentionFull)
	}
	if cfg.RetentionArchiveType != ArchiveTypeDiff {
		t.Errorf("RetentionArchiveType = %v, want diff", cfg.RetentionArchiveType)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
}

func TestLoadRetentionConfigRejectsWrongKind(t *testing.T) {
	doc := []byte(`
kind: Repository
metadata:
  name: main
spec: {}
`)

	if _, err := LoadRetentionConfig(doc); err == nil {
		t.Error("LoadRetentionConfig() should reject a non-RetentionPolicy document")
	}
}

func TestValidateRejectsNegativeRetention(t *testing.T) {
	cfg := RetentionConfig{RetentionFull: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject negative retentionFull")
	}
}

func TestValidateRejectsInvalidSetLabel(t *testing.T) {
	cfg := RetentionConfig{Set: "not-a-label"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a malformed ad-hoc set label")
	}
}

func TestLoadRepoConfig(t *testing.T) {
	doc := []byte(`
kind: Repository
metadata:
  name: repo1
spec:
  stanza: main
  backupPath: /backup/main
  archivePath: /archive/main
`)

	cfg, err := LoadRepoConfig(doc)
	if err != nil {
		t.Fatalf("LoadRepoConfig() error = %v", err)
	}
	if cfg.Stanza != "main" || cfg.BackupPath != "/backup/main" {
		t.Errorf("RepoConfig = %+v", cfg)
	}
}
