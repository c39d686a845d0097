package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/pgbackrest-repo/pkg/archiveinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/ini"
)

// localRepo is a plain-POSIX-directory implementation of expire.Repository
// and repo.Filesystem, laid out as:
//
//	<root>/backup/<stanza>/backup.info[.copy]
//	<root>/backup/<stanza>/<label>/          (sealed: has backup.manifest)
//	<root>/backup/<stanza>/latest            (symlink to a label)
//	<root>/archive/<stanza>/archive.info[.copy]
//	<root>/archive/<stanza>/<archiveId>/<segment-or-history-file>
//
// It exists to let the expire/info/check/stanza subcommands run against a
// real directory tree; a production deployment with object-store or SSH
// transport is left to a purpose-built adapter.
type localRepo struct {
	root   string
	stanza string
	cipher ini.CipherOptions
}

func newLocalRepo(root, stanza string, cipher ini.CipherOptions) *localRepo {
	return &localRepo{root: root, stanza: stanza, cipher: cipher}
}

func (r *localRepo) backupDir() string  { return filepath.Join(r.root, "backup", r.stanza) }
func (r *localRepo) archiveDir() string { return filepath.Join(r.root, "archive", r.stanza) }

func (r *localRepo) backupInfoPaths() ini.PairPaths {
	base := filepath.Join(r.backupDir(), "backup.info")
	return ini.PairPaths{Primary: base, Copy: base + ".copy"}
}

func (r *localRepo) archiveInfoPaths() ini.PairPaths {
	base := filepath.Join(r.archiveDir(), "archive.info")
	return ini.PairPaths{Primary: base, Copy: base + ".copy"}
}

func (r *localRepo) LoadBackupInfo() (*backupinfo.Catalog, error) {
	res, err := ini.LoadPair(r.backupInfoPaths(), r.cipher)
	if err != nil {
		return nil, err
	}
	return backupinfo.Load(res.Tree)
}

func (r *localRepo) SaveBackupInfo(c *backupinfo.Catalog) error {
	tree := ini.NewTree()
	if err := c.Save(tree); err != nil {
		return err
	}
	if err := os.MkdirAll(r.backupDir(), 0o750); err != nil {
		return err
	}
	return ini.SavePair(r.backupInfoPaths(), tree, r.cipher)
}

func (r *localRepo) LoadArchiveInfo() (*archiveinfo.Catalog, error) {
	res, err := ini.LoadPair(r.archiveInfoPaths(), r.cipher)
	if err != nil {
		return nil, err
	}
	return archiveinfo.Load(res.Tree)
}

func (r *localRepo) SaveArchiveInfo(c *archiveinfo.Catalog) error {
	tree := ini.NewTree()
	if err := c.Save(tree); err != nil {
		return err
	}
	if err := os.MkdirAll(r.archiveDir(), 0o750); err != nil {
		return err
	}
	return ini.SavePair(r.archiveInfoPaths(), tree, r.cipher)
}

// BackupSealed reports whether label's directory carries a manifest file
// (not just its in-progress copy).
func (r *localRepo) BackupSealed(label string) bool {
	_, err := os.Stat(filepath.Join(r.backupDir(), label, "backup.manifest"))
	return err == nil
}

func (r *localRepo) BackupInProgress(label string) bool {
	_, copyErr := os.Stat(filepath.Join(r.backupDir(), label, "backup.manifest.copy"))
	return copyErr == nil && !r.BackupSealed(label)
}

func (r *localRepo) RemoveBackupDir(label string) error {
	return os.RemoveAll(filepath.Join(r.backupDir(), label))
}

func (r *localRepo) SetLatest(label string) error {
	link := filepath.Join(r.backupDir(), "latest")
	_ = os.Remove(link)
	if label == "" {
		return nil
	}
	return os.Symlink(label, link)
}

func (r *localRepo) ListArchiveIDs() ([]string, error) {
	entries, err := os.ReadDir(r.archiveDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *localRepo) listArchiveIDFiles(archiveID string, isHistory bool) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.archiveDir(), archiveID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".history") == isHistory {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (r *localRepo) ListSegments(archiveID string) ([]string, error) {
	return r.listArchiveIDFiles(archiveID, false)
}

func (r *localRepo) RemoveSegment(archiveID, fileName string) error {
	return os.Remove(filepath.Join(r.archiveDir(), archiveID, fileName))
}

func (r *localRepo) ListHistoryFiles(archiveID string) ([]string, error) {
	return r.listArchiveIDFiles(archiveID, true)
}

func (r *localRepo) RemoveHistoryFile(archiveID, fileName string) error {
	return os.Remove(filepath.Join(r.archiveDir(), archiveID, fileName))
}

func (r *localRepo) RemoveArchiveID(archiveID string) error {
	return os.RemoveAll(filepath.Join(r.archiveDir(), archiveID))
}

// PathExists, PathEmpty, MkdirAll, and RemoveAll round out repo.Filesystem
// for the stanza lifecycle commands, on top of the same directory layout.

func (r *localRepo) PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *localRepo) PathEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func (r *localRepo) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o750)
}

func (r *localRepo) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// listBackupLabelDirs lists the immediate subdirectories of the backup
// directory, skipping the "latest" symlink — the on-disk input to Verify.
func (r *localRepo) listBackupLabelDirs() ([]string, error) {
	entries, err := os.ReadDir(r.backupDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
