package repo

import (
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/archiveinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// Filesystem is the storage collaborator the stanza lifecycle operations
// drive. A real implementation sits on a POSIX filesystem or object store
// (out of scope here, same boundary as expire.Repository); tests exercise
// these operations against an in-memory fake.
type Filesystem interface {
	PathExists(path string) (bool, error)
	PathEmpty(path string) (bool, error)
	MkdirAll(path string) error
	RemoveAll(path string) error

	LoadArchiveInfo() (*archiveinfo.Catalog, error)
	SaveArchiveInfo(*archiveinfo.Catalog) error
	LoadBackupInfo() (*backupinfo.Catalog, error)
	SaveBackupInfo(*backupinfo.Catalog) error
}

// Identity is the live-cluster identity CreateStanza/UpgradeStanza records.
type Identity struct {
	PgVersion      string
	SystemID       uint64
	CatalogVersion int
	ControlVersion int
}

// CreateStanza initializes archive.info and backup.info for a new stanza.
// backupPath/archivePath must each be empty or already host catalogs whose
// current identity matches identity (re-running stanza-create against an
// already-initialized stanza is a no-op, not an error).
func CreateStanza(fs Filesystem, backupPath, archivePath string, identity Identity) error {
	stanzaLog := log.WithComponent("repo")

	for _, path := range []string{backupPath, archivePath} {
		exists, err := fs.PathExists(path)
		if err != nil {
			return err
		}
		if !exists {
			if err := fs.MkdirAll(path); err != nil {
				return err
			}
			continue
		}

		empty, err := fs.PathEmpty(path)
		if err != nil {
			return err
		}
		if !empty {
			if err := verifyExistingIdentity(fs, identity); err != nil {
				return rerrors.NewPathNotEmptyError(
					fmt.Sprintf("%s exists and is not empty, and does not match the current cluster: %v", path, err))
			}
		}
	}

	archiveCatalog, err := fs.LoadArchiveInfo()
	if err != nil {
		archiveCatalog = archiveinfo.New()
	}
	archiveCatalog.PgSet(identity.PgVersion, identity.SystemID, identity.CatalogVersion, identity.ControlVersion)
	if err := fs.SaveArchiveInfo(archiveCatalog); err != nil {
		return err
	}

	backupCatalog, err := fs.LoadBackupInfo()
	if err != nil {
		backupCatalog = backupinfo.New()
	}
	backupCatalog.PgSet(identity.PgVersion, identity.SystemID, identity.CatalogVersion, identity.ControlVersion)
	if err := fs.SaveBackupInfo(backupCatalog); err != nil {
		return err
	}

	stanzaLog.Info().Str("backup_path", backupPath).Str("archive_path", archivePath).Msg("stanza created")
	return nil
}

// verifyExistingIdentity loads backup.info (if present) and checks its
// current identity against identity, surfacing a mismatch as the cause of a
// PathNotEmptyError.
func verifyExistingIdentity(fs Filesystem, identity Identity) error {
	catalog, err := fs.LoadBackupInfo()
	if err != nil {
		return err
	}
	return catalog.PgCheck(identity.PgVersion, identity.SystemID, identity.CatalogVersion, identity.ControlVersion)
}

// DeleteStanza removes a stanza's repository paths. pgRunning must reflect
// whether the caller has verified the cluster is stopped; this function
// performs no liveness check of its own (that is a cluster-query concern,
// out of scope here).
func DeleteStanza(fs Filesystem, backupPath, archivePath string, pgRunning bool) error {
	if pgRunning {
		return rerrors.NewPgRunningError("cannot delete a stanza while its cluster is running")
	}

	if err := fs.RemoveAll(backupPath); err != nil {
		return err
	}
	if err := fs.RemoveAll(archivePath); err != nil {
		return err
	}

	log.WithComponent("repo").Info().Str("backup_path", backupPath).Str("archive_path", archivePath).Msg("stanza deleted")
	return nil
}

// UpgradeStanza records a new live-cluster identity against both catalogs,
// appending a history entry (or collapsing into the current one, per
// infopg.History.Set) rather than rewriting the stanza from scratch.
func UpgradeStanza(fs Filesystem, identity Identity) error {
	archiveCatalog, err := fs.LoadArchiveInfo()
	if err != nil {
		return err
	}
	archiveCatalog.PgSet(identity.PgVersion, identity.SystemID, identity.CatalogVersion, identity.ControlVersion)
	if err := fs.SaveArchiveInfo(archiveCatalog); err != nil {
		return err
	}

	backupCatalog, err := fs.LoadBackupInfo()
	if err != nil {
		return err
	}
	entry := backupCatalog.PgSet(identity.PgVersion, identity.SystemID, identity.CatalogVersion, identity.ControlVersion)
	if err := fs.SaveBackupInfo(backupCatalog); err != nil {
		return err
	}

	log.WithComponent("repo").Info().Int("history_id", entry.HistoryID).Msg("stanza upgraded")
	return nil
}
