// Package backupinfo implements the backup.info catalog: a cluster-identity
// history plus a map from backup label to backup record, plus an optional
// cipher sub-passphrase used to encrypt backup contents.
package backupinfo

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

const cipherSection = "cipher"
const cipherPassKey = "cipher-pass"
const currentSection = "backup:current"

// Catalog is the backup.info catalog.
type Catalog struct {
	History    *infopg.History
	current    map[string]Record
	cipherPass string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{History: infopg.New(), current: make(map[string]Record)}
}

// CipherPass returns the sub-passphrase used to encrypt backup contents,
// or "" if backups are unencrypted.
func (c *Catalog) CipherPass() string {
	return c.cipherPass
}

// SetCipherPass sets the backup-contents sub-passphrase.
func (c *Catalog) SetCipherPass(pass string) {
	c.cipherPass = pass
}

// Current returns every record, sorted ascending by label.
func (c *Catalog) Current() []Record {
	labels := make([]string, 0, len(c.current))
	for l := range c.current {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	out := make([]Record, len(labels))
	for i, l := range labels {
		out[i] = c.current[l]
	}
	return out
}

// Find returns the record for label l, or a FormatError if absent.
func (c *Catalog) Find(l string) (Record, error) {
	r, ok := c.current[l]
	if !ok {
		return Record{}, rerrors.NewFormatError(fmt.Sprintf("backup %q does not exist", l))
	}
	return r, nil
}

// Add inserts record keyed by its label. It requires HistoryID to be
// present in History and, for diff/incr records, Prior to already be a
// member of Current().
func (c *Catalog) Add(record Record) error {
	if _, err := c.History.Find(record.HistoryID); err != nil {
		return rerrors.NewFormatError(
			fmt.Sprintf("backup %q references unknown history id %d", record.Label, record.HistoryID))
	}

	if record.Type != label.Full {
		if record.Prior == "" {
			return rerrors.NewAssertError(
				fmt.Sprintf("backup %q of type %s has no prior", record.Label, record.Type))
		}
		if _, ok := c.current[record.Prior]; !ok {
			return rerrors.NewFormatError(
				fmt.Sprintf("backup %q prior %q is not in current backups", record.Label, record.Prior))
		}
	} else if record.Prior != "" || record.Reference != nil {
		return rerrors.NewAssertError(
			fmt.Sprintf("full backup %q must not set prior/reference", record.Label))
	}

	if c.current == nil {
		c.current = make(map[string]Record)
	}
	c.current[record.Label] = record
	return nil
}

// Delete removes label l from current[]. References held by surviving
// records are left dangling — a historical reference resolved by the
// expiration engine's archive-range layer, not by this catalog.
func (c *Catalog) Delete(l string) {
	delete(c.current, l)
}

// LabelList returns labels matching typeFilter (nil = all), sorted
// ascending.
func (c *Catalog) LabelList(typeFilter map[label.Type]bool) []string {
	var out []string
	for _, r := range c.Current() {
		if typeFilter == nil || typeFilter[r.Type] {
			out = append(out, r.Label)
		}
	}
	return out
}

// PgSet delegates to History.Set, clearing current[] iff the new identity
// differs from the old — protecting against cross-cluster cross-talk when
// a stanza is repointed at a different cluster.
func (c *Catalog) PgSet(pgVersion string, systemID uint64, catalogVersion, controlVersion int) infopg.Entry {
	before, beforeErr := c.History.Current()
	entry := c.History.Set(pgVersion, systemID, catalogVersion, controlVersion)

	identityChanged := beforeErr != nil || before.HistoryID != entry.HistoryID
	if identityChanged {
		c.current = make(map[string]Record)
	}

	return entry
}

// PgCheck verifies the live-cluster identity against the current history
// entry: version/system-id mismatch is a BackupMismatchError; catalog/
// control mismatch is the same error kind with a corruption hint.
func (c *Catalog) PgCheck(pgVersion string, systemID uint64, catalogVersion, controlVersion int) error {
	current, err := c.History.Current()
	if err != nil {
		return err
	}

	if current.PgVersionStr != pgVersion || current.SystemID != systemID {
		return rerrors.NewBackupMismatchError(
			"database version or system-id does not match backup.info")
	}

	if current.CatalogVersion != catalogVersion || current.ControlVersion != controlVersion {
		return &rerrors.Error{
			Kind:    rerrors.KindBackupMismatch,
			Message: "database catalog or control version does not match backup.info",
			Hint:    "this may indicate corruption, is this the correct stanza?",
		}
	}

	return nil
}

// recordJSON is the on-disk shape of one backup.info.current entry.
type recordJSON struct {
	BackrestFormat    int      `json:"backrest-format"`
	BackrestVersion   string   `json:"backrest-version"`
	HistoryID         int      `json:"db-id"`
	ArchiveStart      string   `json:"archive-start,omitempty"`
	ArchiveStop       string   `json:"archive-stop,omitempty"`
	LsnStart          string   `json:"lsn-start,omitempty"`
	LsnStop           string   `json:"lsn-stop,omitempty"`
	TimestampStart    int64    `json:"backup-timestamp-start"`
	TimestampStop     int64    `json:"backup-timestamp-stop"`
	Type              string   `json:"backup-type"`
	Prior             string   `json:"backup-prior,omitempty"`
	Reference         []string `json:"backup-reference,omitempty"`
	InfoSize          int64    `json:"backup-info-size"`
	InfoSizeDelta     int64    `json:"backup-info-size-delta"`
	InfoRepoSize      int64    `json:"backup-info-repo-size"`
	InfoRepoSizeDelta int64    `json:"backup-info-repo-size-delta"`
	Error             string   `json:"backup-error,omitempty"`
	Options           Options  `json:"option"`
}

func toJSON(r Record) recordJSON {
	return recordJSON{
		BackrestFormat:    r.BackrestFormat,
		BackrestVersion:   r.BackrestVersion,
		HistoryID:         r.HistoryID,
		ArchiveStart:      r.ArchiveStart,
		ArchiveStop:       r.ArchiveStop,
		LsnStart:          r.LsnStart,
		LsnStop:           r.LsnStop,
		TimestampStart:    r.TimestampStart,
		TimestampStop:     r.TimestampStop,
		Type:              string(r.Type),
		Prior:             r.Prior,
		Reference:         r.Reference,
		InfoSize:          r.InfoSize,
		InfoSizeDelta:     r.InfoSizeDelta,
		InfoRepoSize:      r.InfoRepoSize,
		InfoRepoSizeDelta: r.InfoRepoSizeDelta,
		Error:             r.Error,
		Options:           r.Options,
	}
}

func fromJSON(l string, j recordJSON) Record {
	return Record{
		Label:             l,
		Type:              label.Type(j.Type),
		BackrestFormat:    j.BackrestFormat,
		BackrestVersion:   j.BackrestVersion,
		HistoryID:         j.HistoryID,
		ArchiveStart:      j.ArchiveStart,
		ArchiveStop:       j.ArchiveStop,
		LsnStart:          j.LsnStart,
		LsnStop:           j.LsnStop,
		TimestampStart:    j.TimestampStart,
		TimestampStop:     j.TimestampStop,
		Prior:             j.Prior,
		Reference:         j.Reference,
		InfoSize:          j.InfoSize,
		InfoSizeDelta:     j.InfoSizeDelta,
		InfoRepoSize:      j.InfoRepoSize,
		InfoRepoSizeDelta: j.InfoRepoSizeDelta,
		Error:             j.Error,
		Options:           j.Options,
	}
}

// Save renders the catalog into tree: [backup:current] (labels ascending,
// single-line JSON objects), [db], [db:history], and an optional [cipher]
// section.
func (c *Catalog) Save(tree *ini.Tree) error {
	for _, r := range c.Current() {
		raw, err := json.Marshal(toJSON(r))
		if err != nil {
			return err
		}
		tree.Set(currentSection, r.Label, raw)
	}

	if err := c.History.Save(tree); err != nil {
		return err
	}

	if c.cipherPass != "" {
		raw, err := json.Marshal(c.cipherPass)
		if err != nil {
			return err
		}
		tree.Set(cipherSection, cipherPassKey, raw)
	}

	return nil
}

// Load parses tree into a Catalog.
func Load(tree *ini.Tree) (*Catalog, error) {
	history, err := infopg.Load(tree)
	if err != nil {
		return nil, err
	}

	c := &Catalog{History: history, current: make(map[string]Record)}

	for _, l := range tree.Keys(currentSection) {
		raw, _ := tree.Get(currentSection, l)

		var j recordJSON
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, rerrors.NewFormatError(
				fmt.Sprintf("backup:current/%s: %v", l, err))
		}

		c.current[l] = fromJSON(l, j)
	}

	if raw, ok := tree.Get(cipherSection, cipherPassKey); ok {
		if err := json.Unmarshal(raw, &c.cipherPass); err != nil {
			return nil, rerrors.NewFormatError("cipher/cipher-pass is not a JSON string")
		}
	}

	return c, nil
}
