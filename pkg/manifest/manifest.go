// Package manifest implements the per-backup description of every path,
// file, and link copied into a backup, with checksums and cross-backup
// file references filled in as the backup proceeds.
package manifest

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

const (
	BackrestFormat  = 5
	BackrestVersion = "2.45"

	pgDataTarget = "pg_data"
	tblspcDir    = "pg_tblspc"
)

// Manifest is the per-backup description of every path, file, and link in
// the cluster at copy time.
type Manifest struct {
	Label          string
	Type           label.Type
	Prior          string
	Reference      []string
	TimestampStart int64
	TimestampStop  int64

	PgVersion      string
	HistoryID      int
	SystemID       uint64
	CatalogVersion int
	ControlVersion int

	BackrestFormat  int
	BackrestVersion string
	Options         Options

	DBs map[string]DBEntry

	targets     []Target
	targetIndex map[string]int
	Paths       map[string]PathRecord
	Files       map[string]FileRecord
	Links       map[string]LinkRecord

	pathDefault attrDefault
	fileDefault attrDefault
	linkDefault linkAttrDefault

	sealed bool
}

// New returns an empty manifest ready for Build.
func New() *Manifest {
	return &Manifest{
		BackrestFormat:  BackrestFormat,
		BackrestVersion: BackrestVersion,
		DBs:             make(map[string]DBEntry),
		targetIndex:     make(map[string]int),
		Paths:           make(map[string]PathRecord),
		Files:           make(map[string]FileRecord),
		Links:           make(map[string]LinkRecord),
	}
}

func (m *Manifest) addTarget(t Target) {
	if i, ok := m.targetIndex[t.Name]; ok {
		m.targets[i] = t
		return
	}
	m.targetIndex[t.Name] = len(m.targets)
	m.targets = append(m.targets, t)
}

// Targets returns the root entries in insertion order (pg_data first).
func (m *Manifest) Targets() []Target {
	out := make([]Target, len(m.targets))
	copy(out, m.targets)
	return out
}

// Build walks the cluster's data directory via storage and populates the
// manifest's four tables. pgDataPath is the absolute on-disk path of
// pg_data, used only to reject links that resolve back inside it.
func Build(storage Storage, pgDataPath, pgVersion string, historyID int, systemID uint64,
	timestampStart int64, online, checksumPage bool, excludes []string, tablespaceMap map[string]string) (*Manifest, error) {

	m := New()
	m.PgVersion = pgVersion
	m.HistoryID = historyID
	m.SystemID = systemID
	m.TimestampStart = timestampStart
	m.Options.Online = online
	m.Options.ChecksumPage = checksumPage

	m.addTarget(Target{Name: pgDataTarget, Type: TargetTypePath})

	excludeSet := buildExcludeSet(excludes)

	if err := m.walk(storage, pgDataTarget, pgDataTarget, pgDataPath, excludeSet, tablespaceMap); err != nil {
		return nil, err
	}

	m.fillDefaults()

	return m, nil
}

// walk recursively lists root (manifest-key prefix keyPrefix) and records
// path/file/link entries. pgDataPath never changes across the recursion:
// it is always the original cluster data directory, used to reject any
// link (including one found inside a tablespace) that resolves back into
// it. When a tablespace link is discovered under pg_tblspc, its
// destination is walked too, keyed under "pg_tblspc/<oid>/...".
func (m *Manifest) walk(storage Storage, keyPrefix, root, pgDataPath string, excludeSet map[string]bool, tablespaceMap map[string]string) error {
	entries, err := storage.List(root)
	if err != nil {
		return err
	}

	for _, e := range entries {
		base := filepath.Base(e.Name)
		if excludeSet[base] {
			continue
		}

		key := e.Name
		if keyPrefix != root {
			key = keyPrefix + strings.TrimPrefix(e.Name, root)
		}

		switch e.Type {
		case EntryPath:
			m.Paths[key] = PathRecord{User: e.User, Group: e.Group, Mode: e.Mode}

		case EntryFile:
			m.Files[key] = FileRecord{
				Size:      e.Size,
				Timestamp: e.Timestamp,
				User:      e.User,
				Group:     e.Group,
				Mode:      e.Mode,
			}

		case EntryLink:
			if linkInsidePgData(e.Destination, pgDataPath) {
				return rerrors.NewAssertError("link " + key + " targets inside pg_data")
			}

			m.Links[key] = LinkRecord{Destination: e.Destination, User: e.User, Group: e.Group}

			relName := strings.TrimPrefix(e.Name, root+"/")
			if oid, ok := tablespaceOID(relName); ok {
				name := tablespaceMap[oid]
				tsKey := tblspcDir + "/" + oid
				m.addTarget(Target{
					Name:           tsKey,
					Type:           TargetTypeLink,
					Path:           e.Destination,
					TablespaceID:   oid,
					TablespaceName: name,
				})

				if err := m.walk(storage, tsKey, e.Destination, pgDataPath, excludeSet, tablespaceMap); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func linkInsidePgData(destination, pgDataPath string) bool {
	if pgDataPath == "" || destination == "" {
		return false
	}
	dest := filepath.Clean(destination)
	root := filepath.Clean(pgDataPath)
	return dest == root || strings.HasPrefix(dest, root+string(filepath.Separator))
}

// tablespaceOID reports whether key is "pg_tblspc/<oid>" and returns oid.
func tablespaceOID(key string) (string, bool) {
	prefix := tblspcDir + "/"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	if strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// fillDefaults computes the majority {user, group, mode} for paths and
// files, and {user, group} for links; save reads these fields back when
// writing the default sections.
func (m *Manifest) fillDefaults() {
	m.pathDefault = majorityAttr(m.Paths)
	m.fileDefault = majorityFileAttr(m.Files)
	m.linkDefault = majorityLinkAttr(m.Links)
}

func majorityAttr(paths map[string]PathRecord) attrDefault {
	users := map[string]int{}
	groups := map[string]int{}
	modes := map[string]int{}
	for _, p := range paths {
		users[p.User]++
		groups[p.Group]++
		modes[p.Mode]++
	}
	return attrDefault{User: mode(users), Group: mode(groups), Mode: mode(modes)}
}

func majorityFileAttr(files map[string]FileRecord) attrDefault {
	users := map[string]int{}
	groups := map[string]int{}
	modes := map[string]int{}
	for _, f := range files {
		users[f.User]++
		groups[f.Group]++
		modes[f.Mode]++
	}
	return attrDefault{User: mode(users), Group: mode(groups), Mode: mode(modes)}
}

func majorityLinkAttr(links map[string]LinkRecord) linkAttrDefault {
	users := map[string]int{}
	groups := map[string]int{}
	for _, l := range links {
		users[l.User]++
		groups[l.Group]++
	}
	return linkAttrDefault{User: mode(users), Group: mode(groups)}
}

// mode returns the highest-count key, breaking ties by lexical order for
// determinism.
func mode(counts map[string]int) string {
	best := ""
	bestN := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best = k
			bestN = counts[k]
		}
	}
	return best
}
