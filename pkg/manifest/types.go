package manifest

// TargetType distinguishes a backup's root entries.
type TargetType string

const (
	TargetTypePath TargetType = "path"
	TargetTypeLink TargetType = "link"
)

// Target is one root entry of the backup: always "pg_data" (a path target),
// plus optional link targets for config files and tablespaces.
type Target struct {
	Name           string
	Type           TargetType
	Path           string // link destination; empty for pg_data
	TablespaceID   string
	TablespaceName string
}

// PathRecord carries the ownership/permission attributes of one directory.
type PathRecord struct {
	User  string
	Group string
	Mode  string
}

// FileRecord carries the full per-file record. Checksum/RepoSize/bundle
// fields are zero-valued until FileUpdate runs after the copy phase.
type FileRecord struct {
	Checksum          string
	Size              int64
	Timestamp         int64
	Reference         string
	ChecksumPage      bool
	ChecksumPageSet   bool
	ChecksumPageError []int
	RepoSize          int64
	RepoSizeSet       bool
	BundleID          int
	BundleOffset      int64
	BundleSet         bool
	RemoteChecksum    string
	User              string
	Group             string
	Mode              string
	Master            bool
}

// LinkRecord carries one symlink's destination and ownership.
type LinkRecord struct {
	Destination string
	User        string
	Group       string
}

// DBEntry is one database's identity, keyed by name in [db].
type DBEntry struct {
	DBID           int
	DBLastSystemID uint64
}

// Options mirrors the backup-time options captured on the manifest.
type Options struct {
	ArchiveCheck  bool
	ArchiveCopy   bool
	BackupStandby bool
	ChecksumPage  bool
	Compress      bool
	Hardlink      bool
	Online        bool
}

// attrDefault is the majority-vote {user, group, mode} triple omitted from
// individual path/file records that match it.
type attrDefault struct {
	User  string
	Group string
	Mode  string
}

// linkAttrDefault is the majority-vote {user, group} pair for links (links
// carry no mode).
type linkAttrDefault struct {
	User  string
	Group string
}
