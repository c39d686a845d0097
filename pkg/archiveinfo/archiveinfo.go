// Package archiveinfo implements the archive.info catalog: a
// cluster-identity history plus an optional cipher sub-passphrase used to
// encrypt the WAL stream.
package archiveinfo

import (
	"encoding/json"

	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

const cipherSection = "cipher"
const cipherPassKey = "cipher-pass"

// Catalog is the archive.info catalog.
type Catalog struct {
	History    *infopg.History
	cipherPass string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{History: infopg.New()}
}

// CipherPass returns the sub-passphrase used to encrypt WAL segments, or
// "" if the archive is unencrypted.
func (c *Catalog) CipherPass() string {
	return c.cipherPass
}

// SetCipherPass sets the WAL-stream sub-passphrase.
func (c *Catalog) SetCipherPass(pass string) {
	c.cipherPass = pass
}

// PgSet delegates to History.Set.
func (c *Catalog) PgSet(pgVersion string, systemID uint64, catalogVersion, controlVersion int) infopg.Entry {
	return c.History.Set(pgVersion, systemID, catalogVersion, controlVersion)
}

// PgCheck verifies pgVersion/systemID against the current history entry,
// returning the matching historyId or BackupMismatchError.
func (c *Catalog) PgCheck(pgVersion string, systemID uint64) (int, error) {
	current, err := c.History.Current()
	if err != nil {
		return 0, err
	}

	if current.PgVersionStr != pgVersion || current.SystemID != systemID {
		return 0, rerrors.NewBackupMismatchError(
			"database version or system-id does not match archive.info")
	}

	return current.HistoryID, nil
}

// Save renders the catalog into tree: [db], [db:history], and an optional
// [cipher] section. archive.info has no backup:current section; that is
// enforced simply by Catalog not carrying one.
func (c *Catalog) Save(tree *ini.Tree) error {
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

	c := &Catalog{History: history}

	if raw, ok := tree.Get(cipherSection, cipherPassKey); ok {
		if err := json.Unmarshal(raw, &c.cipherPass); err != nil {
			return nil, rerrors.NewFormatError("cipher/cipher-pass is not a JSON string")
		}
	}

	return c, nil
}
