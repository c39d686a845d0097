package expire

import "github.com/cuemby/pgbackrest-repo/pkg/backupinfo"

// Repository is the storage collaborator the expiration engine drives. A
// real implementation sits on top of a POSIX filesystem, object store, or
// SSH transport (out of scope here); tests exercise Run against an
// in-memory fake.
type Repository interface {
	LoadBackupInfo() (*backupinfo.Catalog, error)
	SaveBackupInfo(*backupinfo.Catalog) error

	// BackupSealed reports whether label's manifest (not just its copy) is
	// present: a backup in progress has only backup.manifest.copy.
	BackupSealed(label string) bool
	// BackupInProgress reports whether label has only a manifest copy and
	// no sealed manifest.
	BackupInProgress(label string) bool
	RemoveBackupDir(label string) error
	// SetLatest repoints the "latest" symlink at label, or removes it when
	// label == "".
	SetLatest(label string) error

	ListArchiveIDs() ([]string, error)
	ListSegments(archiveID string) ([]string, error)
	RemoveSegment(archiveID, fileName string) error
	ListHistoryFiles(archiveID string) ([]string, error)
	RemoveHistoryFile(archiveID, fileName string) error
	RemoveArchiveID(archiveID string) error
}

// Result summarizes one Run.
type Result struct {
	OperationID         string
	ExpiredLabels        []string
	SkippedInProgress    []string
	RemovedSegments      map[string]int
	RemovedHistoryFiles  map[string]int
	RemovedArchiveIDs    []string
	Warnings             []string
}
