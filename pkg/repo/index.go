// Package repo implements the repository-registry layer above the core
// catalogs: a small embedded discovery cache mapping stanza names to the
// repository that last served them, and the stanza lifecycle transitions
// (create/delete/upgrade) that drive the catalogs' primitives.
//
// The index is never authoritative. The catalogs on disk are the source of
// truth; RepoIndex exists only so a multi-repository caller doesn't have to
// re-stat every repository to find which one holds a given stanza.
package repo

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketStanzas = []byte("stanzas")

// StanzaLocation is the cached last-known whereabouts of one stanza within
// one repository.
type StanzaLocation struct {
	RepoKey     string `json:"repoKey"`
	CatalogPath string `json:"catalogPath"`
	HistoryID   int    `json:"historyId"`
}

// RepoIndex is a bbolt-backed discovery cache, one file per manager/CLI
// host. It is safe for concurrent use; bbolt serializes writers and allows
// concurrent readers.
type RepoIndex struct {
	db *bolt.DB
}

// OpenIndex opens (creating if absent) the index file at path.
func OpenIndex(path string) (*RepoIndex, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening repo index %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStanzas)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RepoIndex{db: db}, nil
}

// Close closes the underlying database file.
func (r *RepoIndex) Close() error {
	return r.db.Close()
}

// Remember records where stanza was last found.
func (r *RepoIndex) Remember(stanza string, loc StanzaLocation) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(loc)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStanzas).Put([]byte(stanza), data)
	})
}

// Lookup returns the cached location for stanza, and false if the index has
// never seen it. A miss (or a stale hit the caller discovers is wrong) is
// not an error: the caller falls back to scanning configured repositories.
func (r *RepoIndex) Lookup(stanza string) (StanzaLocation, bool, error) {
	var loc StanzaLocation
	found := false

	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketStanzas).Get([]byte(stanza))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &loc)
	})
	if err != nil {
		return StanzaLocation{}, false, err
	}

	return loc, found, nil
}

// Forget removes stanza from the index, e.g. after DeleteStanza.
func (r *RepoIndex) Forget(stanza string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStanzas).Delete([]byte(stanza))
	})
}

// List returns every stanza name the index currently remembers, in no
// particular order — a cache listing, not a repository enumeration.
func (r *RepoIndex) List() ([]string, error) {
	var out []string
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStanzas).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}
