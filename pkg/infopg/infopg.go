// Package infopg implements the cluster-identity history shared by
// archive.info and backup.info: an ordered, append-only list of cluster
// identities. Each cluster lifecycle change (version upgrade, system-id
// change) appends a new entry; historyId is monotonically increasing.
package infopg

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// Entry is one historical cluster identity. CatalogVersion and
// ControlVersion are present for backup.info, absent for archive.info.
type Entry struct {
	HistoryID      int
	PgVersionStr   string
	SystemID       uint64
	CatalogVersion int
	ControlVersion int
}

// History is the append-only, ordered list of Entry values.
type History struct {
	entries []Entry
}

// New returns an empty history.
func New() *History {
	return &History{}
}

// Entries returns a copy of the entries in ascending historyId order.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].HistoryID < out[j].HistoryID })
	return out
}

// Current returns the entry with the greatest historyId. The list is
// empty only before the first Set call, and Current fails until then.
func (h *History) Current() (Entry, error) {
	if len(h.entries) == 0 {
		return Entry{}, rerrors.NewAssertError("infopg history is empty")
	}

	best := h.entries[0]
	for _, e := range h.entries[1:] {
		if e.HistoryID > best.HistoryID {
			best = e
		}
	}
	return best, nil
}

// Find returns the entry with the given historyId.
func (h *History) Find(historyID int) (Entry, error) {
	for _, e := range h.entries {
		if e.HistoryID == historyID {
			return e, nil
		}
	}
	return Entry{}, rerrors.NewFormatError(fmt.Sprintf("history id %d not found", historyID))
}

// sameIdentity reports whether e matches the given attributes, ignoring
// HistoryID.
func sameIdentity(e Entry, pgVersionStr string, systemID uint64, catalogVersion, controlVersion int) bool {
	return e.PgVersionStr == pgVersionStr &&
		e.SystemID == systemID &&
		e.CatalogVersion == catalogVersion &&
		e.ControlVersion == controlVersion
}

// Set is the upgrade primitive: if the list is empty, append with
// historyId=1; otherwise replace the current entry in place if all
// attributes match the new identity, else append with
// historyId = current.historyId + 1.
func (h *History) Set(pgVersionStr string, systemID uint64, catalogVersion, controlVersion int) Entry {
	if len(h.entries) == 0 {
		e := Entry{
			HistoryID:      1,
			PgVersionStr:   pgVersionStr,
			SystemID:       systemID,
			CatalogVersion: catalogVersion,
			ControlVersion: controlVersion,
		}
		h.entries = append(h.entries, e)
		return e
	}

	current, _ := h.Current()
	if sameIdentity(current, pgVersionStr, systemID, catalogVersion, controlVersion) {
		return current
	}

	e := Entry{
		HistoryID:      current.HistoryID + 1,
		PgVersionStr:   pgVersionStr,
		SystemID:       systemID,
		CatalogVersion: catalogVersion,
		ControlVersion: controlVersion,
	}
	h.entries = append(h.entries, e)
	return e
}

// ArchiveID returns the "<pgVersion>-<historyId>" bucket name for entry.
func ArchiveID(pgVersionStr string, historyID int) string {
	return fmt.Sprintf("%s-%d", pgVersionStr, historyID)
}

// dbEntryJSON is the JSON shape of one [db:history] entry. The catalog and
// control versions carry omitempty, so they are left out when zero, as they
// are for archive.info.
type dbEntryJSON struct {
	PgVersion      string `json:"db-version"`
	SystemID       uint64 `json:"db-system-id"`
	CatalogVersion int    `json:"db-catalog-version,omitempty"`
	ControlVersion int    `json:"db-control-version,omitempty"`
}

// Save writes [db] (the current entry) then [db:history] (every entry,
// ascending by historyId) into tree.
func (h *History) Save(tree *ini.Tree) error {
	current, err := h.Current()
	if err != nil {
		return err
	}

	tree.Set("db", "db-id", json.RawMessage(fmt.Sprintf("%d", current.HistoryID)))
	tree.Set("db", "db-version", json.RawMessage(fmt.Sprintf("%q", current.PgVersionStr)))
	tree.Set("db", "db-system-id", json.RawMessage(fmt.Sprintf("%d", current.SystemID)))
	tree.Set("db", "db-catalog-version", json.RawMessage(fmt.Sprintf("%d", current.CatalogVersion)))
	tree.Set("db", "db-control-version", json.RawMessage(fmt.Sprintf("%d", current.ControlVersion)))

	sorted := h.Entries()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HistoryID < sorted[j].HistoryID })

	for _, e := range sorted {
		entryJSON, err := json.Marshal(dbEntryJSON{
			PgVersion:      e.PgVersionStr,
			SystemID:       e.SystemID,
			CatalogVersion: e.CatalogVersion,
			ControlVersion: e.ControlVersion,
		})
		if err != nil {
			return err
		}
		tree.Set("db:history", fmt.Sprintf("%d", e.HistoryID), entryJSON)
	}

	return nil
}

// Load parses [db:history] from tree into a History.
func Load(tree *ini.Tree) (*History, error) {
	h := New()

	for _, key := range tree.Keys("db:history") {
		raw, _ := tree.Get("db:history", key)

		var entry dbEntryJSON
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, rerrors.NewFormatError(
				fmt.Sprintf("db:history/%s: %v", key, err))
		}

		var historyID int
		if _, err := fmt.Sscanf(key, "%d", &historyID); err != nil {
			return nil, rerrors.NewFormatError(
				fmt.Sprintf("db:history key %q is not an integer", key))
		}

		h.entries = append(h.entries, Entry{
			HistoryID:      historyID,
			PgVersionStr:   entry.PgVersion,
			SystemID:       entry.SystemID,
			CatalogVersion: entry.CatalogVersion,
			ControlVersion: entry.ControlVersion,
		})
	}

	return h, nil
}
