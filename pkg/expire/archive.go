package expire

import (
	"fmt"
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/archivepath"
	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/config"
	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
)

// archiveIDFor returns "<pgVersion>-<historyId>" for rec, or "" if its
// history entry can no longer be found (the backup's identity is no
// longer resolvable; it contributes nothing to archive retention).
func archiveIDFor(catalog *backupinfo.Catalog, rec backupinfo.Record) string {
	entry, err := catalog.History.Find(rec.HistoryID)
	if err != nil {
		return ""
	}
	return infopg.ArchiveID(entry.PgVersionStr, rec.HistoryID)
}

// eligibleForArchiveType reports whether t anchors archive retention under
// archiveType: full only counts under "full"; full and diff count under
// "diff"; every type counts under "incr".
func eligibleForArchiveType(t label.Type, archiveType config.ArchiveType) bool {
	switch archiveType {
	case config.ArchiveTypeDiff:
		return t == label.Full || t == label.Diff
	case config.ArchiveTypeIncr:
		return true
	default: // config.ArchiveTypeFull, "" (default)
		return t == label.Full
	}
}

// archiveRetention implements phases 6-8: compute and apply the
// per-archiveId keep-ranges, sweep obsolete timeline-history files, and
// prune archiveIds no surviving backup references.
func archiveRetention(repo Repository, catalog *backupinfo.Catalog, cfg *config.RetentionConfig, result *Result, dry *log.DryRunLogger) error {
	eligibleRanges := map[string][]archivepath.BackupRange{}
	survivingStarts := map[string][]archivepath.Segment{}
	referenced := map[string]bool{}

	for _, r := range catalog.Current() {
		id := archiveIDFor(catalog, r)
		if id == "" {
			continue
		}
		referenced[id] = true

		if !r.HasArchiveStart() {
			continue // "not a basis for retention" — defers to the neighboring range
		}
		survivingStarts[id] = append(survivingStarts[id], archivepath.Segment(r.ArchiveStart))

		if eligibleForArchiveType(r.Type, cfg.RetentionArchiveType) {
			eligibleRanges[id] = append(eligibleRanges[id], archivepath.BackupRange{
				Label:        r.Label,
				ArchiveStart: archivepath.Segment(r.ArchiveStart),
				ArchiveStop:  archivepath.Segment(r.ArchiveStop),
			})
		}
	}

	archiveIDs, err := repo.ListArchiveIDs()
	if err != nil {
		return err
	}

	for _, id := range archiveIDs {
		if err := pruneSegments(repo, id, eligibleRanges[id], result, dry); err != nil {
			return err
		}
		if err := sweepHistoryFiles(repo, id, survivingStarts[id], result, dry); err != nil {
			return err
		}
	}

	for _, id := range archiveIDs {
		if referenced[id] {
			continue
		}
		if dry.DryRun() {
			dry.Info(fmt.Sprintf("remove archive path: .../%s", id))
			continue
		}
		if err := repo.RemoveArchiveID(id); err != nil {
			return err
		}
		result.RemovedArchiveIDs = append(result.RemovedArchiveIDs, id)
		log.WithComponent("expire").Info().Msg(fmt.Sprintf("remove archive path: .../%s", id))
	}

	return nil
}

func pruneSegments(repo Repository, archiveID string, eligible []archivepath.BackupRange, result *Result, dry *log.DryRunLogger) error {
	ranges := archivepath.Retain(eligible)

	files, err := repo.ListSegments(archiveID)
	if err != nil {
		return err
	}
	sort.Strings(files) // lexical order: partial deletion leaves a coherent prefix

	for _, name := range files {
		seg, _ := archivepath.ParseSegmentFileName(name)
		if seg == "" || archivepath.Kept(ranges, seg) {
			continue
		}

		if dry.DryRun() {
			dry.Info("remove archive segment: " + archiveID + "/" + name)
			continue
		}
		if err := repo.RemoveSegment(archiveID, name); err != nil {
			return err
		}
		if result.RemovedSegments == nil {
			result.RemovedSegments = make(map[string]int)
		}
		result.RemovedSegments[archiveID]++
	}

	return nil
}

func sweepHistoryFiles(repo Repository, archiveID string, survivingStarts []archivepath.Segment, result *Result, dry *log.DryRunLogger) error {
	present, err := repo.ListHistoryFiles(archiveID)
	if err != nil {
		return err
	}

	for _, name := range archivepath.HistoryFilesToRemove(present, survivingStarts) {
		if dry.DryRun() {
			dry.Info("remove timeline history file: " + archiveID + "/" + name)
			continue
		}
		if err := repo.RemoveHistoryFile(archiveID, name); err != nil {
			return err
		}
		if result.RemovedHistoryFiles == nil {
			result.RemovedHistoryFiles = make(map[string]int)
		}
		result.RemovedHistoryFiles[archiveID]++
	}

	return nil
}
