// Package expire implements the retention-driven expiration engine: given
// a repository and retention configuration, it deletes the correct set of
// backups, archive ranges, and timeline-history files while preserving
// the dependency and point-in-time-recovery invariants of the archive.
package expire

import (
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/config"
	"github.com/cuemby/pgbackrest-repo/pkg/lock"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
	"github.com/google/uuid"
)

// Run executes phases 1-9 against repo under the stanza write lock,
// honoring cfg.DryRun by replacing every mutating step with a log-only
// one. now is the caller-supplied current Unix timestamp (time-mode full
// retention needs it, and deterministic callers may want to pin it).
func Run(cfg *config.RetentionConfig, lockDir, stanza string, now int64, repo Repository) (Result, error) {
	result := Result{OperationID: uuid.NewString()}
	expLog := log.WithComponent("expire").With().
		Str("stanza", stanza).
		Str("op_id", result.OperationID).
		Logger()

	if err := cfg.Validate(); err != nil {
		return result, err
	}

	// Phase 1: lock and acquire.
	if err := lock.CheckStopFile(lockDir, stanza); err != nil {
		return result, err
	}
	stanzaLock := lock.New(lockDir, stanza)
	if err := stanzaLock.Acquire(); err != nil {
		return result, fmt.Errorf("acquiring stanza lock: %w", err)
	}
	defer stanzaLock.Release()

	catalog, err := repo.LoadBackupInfo()
	if err != nil {
		return result, err
	}

	dry := log.NewDryRunLogger(expLog, cfg.DryRun)

	// Phase 2: ad-hoc expire.
	marked, err := adHocExpire(catalog, cfg.Set, &result)
	if err != nil {
		return result, err
	}
	if marked == nil {
		marked = map[string]bool{}
	}

	// Phases 3-4: full and diff retention.
	fullRetention(catalog, cfg, now, marked)
	diffRetention(catalog, cfg, marked)

	// Phase 5: removal of selected backups.
	if err := removeBackups(repo, catalog, marked, &result, dry); err != nil {
		return result, err
	}

	// Phases 6-8: archive retention, timeline-history sweep, archiveId
	// pruning.
	if err := archiveRetention(repo, catalog, cfg, &result, dry); err != nil {
		return result, err
	}

	// Phase 9: save catalogs. archive.info is untouched here; only
	// backup.info is mutated by expiration.
	if !cfg.DryRun {
		if err := repo.SaveBackupInfo(catalog); err != nil {
			return result, err
		}
	} else {
		dry.Info("save backup.info")
	}

	return result, nil
}

// removeBackups implements phase 5: delete marked labels from the
// catalog, skip in-progress backups (manifest.copy present, no sealed
// manifest), remove their directories, and repoint "latest".
func removeBackups(repo Repository, catalog *backupinfo.Catalog, marked map[string]bool, result *Result, dry *log.DryRunLogger) error {
	removed := map[string]bool{}

	for l := range marked {
		if repo.BackupInProgress(l) {
			result.SkippedInProgress = append(result.SkippedInProgress, l)
			dry.Info("skip in-progress backup " + l)
			continue
		}

		result.ExpiredLabels = append(result.ExpiredLabels, l)
		removed[l] = true

		if dry.DryRun() {
			dry.Info("expire backup " + l)
			continue
		}
		catalog.Delete(l)
		if err := repo.SaveBackupInfo(catalog); err != nil {
			return err
		}
		if err := repo.RemoveBackupDir(l); err != nil {
			return err
		}
	}

	newest := newestSurvivingLabel(catalog, removed)
	if dry.DryRun() {
		if newest == "" {
			dry.Info("remove latest symlink")
		} else {
			dry.Info("set latest -> " + newest)
		}
		return nil
	}
	return repo.SetLatest(newest)
}
