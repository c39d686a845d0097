package backupinfo

import "github.com/cuemby/pgbackrest-repo/pkg/label"

// Options mirrors the backup-time options captured on a Record.
type Options struct {
	ArchiveCheck  bool `json:"option-archive-check"`
	ArchiveCopy   bool `json:"option-archive-copy"`
	BackupStandby bool `json:"option-backup-standby"`
	ChecksumPage  bool `json:"option-checksum-page"`
	Compress      bool `json:"option-compress"`
	Hardlink      bool `json:"option-hardlink"`
	Online        bool `json:"option-online"`
}

// Record is one entry of backup.info.current.
type Record struct {
	Label           string
	Type            label.Type
	BackrestFormat  int
	BackrestVersion string
	HistoryID       int
	ArchiveStart    string
	ArchiveStop     string
	LsnStart        string
	LsnStop         string
	TimestampStart  int64
	TimestampStop   int64
	Prior           string   // "" for full backups
	Reference       []string // transitive parent-chain labels; nil for full
	InfoSize        int64
	InfoSizeDelta   int64
	InfoRepoSize    int64
	InfoRepoSizeDelta int64
	Error           string
	Options         Options
}

// HasArchiveStart reports whether this record carries a recorded WAL
// start position; some records omit it.
func (r Record) HasArchiveStart() bool {
	return r.ArchiveStart != ""
}
