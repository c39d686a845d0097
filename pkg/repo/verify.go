package repo

import (
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
)

// VerifyReport is the outcome of a read-only Verify pass: backup
// directories present on disk that the catalog no longer (or never)
// references, and catalog entries whose directory has gone missing.
type VerifyReport struct {
	OrphanedDirs []string // on disk, not in backup.info
	MissingDirs  []string // in backup.info, not on disk
}

// Verify cross-checks catalog against the set of backup-label directories
// actually present in the repository. It mutates nothing; remediation
// (removing an orphan, expiring a missing-directory record) is left to the
// caller.
func Verify(catalog *backupinfo.Catalog, onDiskDirs []string) VerifyReport {
	cataloged := map[string]bool{}
	for _, l := range catalog.LabelList(nil) {
		cataloged[l] = true
	}

	onDisk := map[string]bool{}
	for _, d := range onDiskDirs {
		onDisk[d] = true
	}

	var report VerifyReport
	for _, d := range onDiskDirs {
		if !cataloged[d] {
			report.OrphanedDirs = append(report.OrphanedDirs, d)
		}
	}
	for l := range cataloged {
		if !onDisk[l] {
			report.MissingDirs = append(report.MissingDirs, l)
		}
	}

	sort.Strings(report.OrphanedDirs)
	sort.Strings(report.MissingDirs)
	return report
}
