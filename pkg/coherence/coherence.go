// Package coherence implements the cross-file agreement checks callable
// from any command that opens the repository: archive.info against
// backup.info, and either catalog's current identity against the live
// cluster.
package coherence

import (
	"fmt"
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// PgHistory requires that, for every historyId present in either history,
// the triple (historyId, pgVersion, systemId) is identical in both.
// Catalog/control version are backup.info-only fields and are not part of
// this comparison.
func PgHistory(archiveHistory, backupHistory *infopg.History) error {
	archiveByID := indexByHistoryID(archiveHistory)
	backupByID := indexByHistoryID(backupHistory)

	ids := make(map[int]bool)
	for id := range archiveByID {
		ids[id] = true
	}
	for id := range backupByID {
		ids[id] = true
	}

	sorted := make([]int, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	for _, id := range sorted {
		a, aok := archiveByID[id]
		b, bok := backupByID[id]

		if !aok || !bok {
			return rerrors.NewFormatError("archive and backup history lists do not match")
		}
		if a.PgVersionStr != b.PgVersionStr || a.SystemID != b.SystemID {
			return rerrors.NewFormatError("archive and backup history lists do not match")
		}
	}

	return nil
}

func indexByHistoryID(h *infopg.History) map[int]infopg.Entry {
	out := make(map[int]infopg.Entry)
	for _, e := range h.Entries() {
		out[e.HistoryID] = e
	}
	return out
}

// PgControl is the identity read directly from the live cluster's control
// file (or, for a query-based check, from a connection to the cluster).
type PgControl struct {
	PgVersion      string
	SystemID       uint64
	CatalogVersion int
	ControlVersion int
}

// PathCheck carries the query-based data-directory path comparison; Active
// is false for a control-file-only check, where no path is queried.
type PathCheck struct {
	Active     bool
	Configured string
	Queried    string
}

// PgLive requires that the catalog's current history entry matches the
// live cluster's pgVersion, systemId, catalogVersion, and controlVersion;
// for a query-based check it additionally requires the queried
// data-directory path to match the configured one.
func PgLive(current infopg.Entry, live PgControl, path PathCheck) error {
	if current.PgVersionStr != live.PgVersion || current.SystemID != live.SystemID {
		return rerrors.NewDbMismatchError(
			fmt.Sprintf("database version %q / system-id %d does not match the configured cluster",
				live.PgVersion, live.SystemID))
	}

	if current.CatalogVersion != live.CatalogVersion || current.ControlVersion != live.ControlVersion {
		return rerrors.NewDbMismatchError("database catalog or control version does not match the configured cluster")
	}

	if path.Active && path.Configured != path.Queried {
		return rerrors.NewDbMismatchError(
			fmt.Sprintf("queried data directory %q does not match configured path %q", path.Queried, path.Configured))
	}

	return nil
}
