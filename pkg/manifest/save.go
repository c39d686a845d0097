package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

const (
	sectionBackup       = "backup"
	sectionBackupDB     = "backup:db"
	sectionBackupOption = "backup:option"
	sectionBackupTarget = "backup:target"
	sectionDB           = "db"
	sectionFile         = "target:file"
	sectionFileDefault  = "target:file:default"
	sectionLink         = "target:link"
	sectionLinkDefault  = "target:link:default"
	sectionPath         = "target:path"
	sectionPathDefault  = "target:path:default"
)

func jsonRaw(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func setJSON(tree *ini.Tree, section, key string, v any) error {
	raw, err := jsonRaw(v)
	if err != nil {
		return err
	}
	tree.Set(section, key, raw)
	return nil
}

type pathJSON struct {
	User  string `json:"user,omitempty"`
	Group string `json:"group,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

type fileJSON struct {
	Checksum       string `json:"checksum"`
	Size           int64  `json:"size"`
	Timestamp      int64  `json:"timestamp"`
	Reference      string `json:"reference,omitempty"`
	ChecksumPage   *bool  `json:"checksum-page,omitempty"`
	ChecksumErrors []int  `json:"checksum-page-error,omitempty"`
	RepoSize       *int64 `json:"repo-size,omitempty"`
	BundleID       *int   `json:"bni,omitempty"`
	BundleOffset   *int64 `json:"bno,omitempty"`
	RemoteChecksum string `json:"rck,omitempty"`
	User           string `json:"user,omitempty"`
	Group          string `json:"group,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Master         bool   `json:"master,omitempty"`
}

type linkJSON struct {
	Destination string `json:"destination"`
	User        string `json:"user,omitempty"`
	Group       string `json:"group,omitempty"`
}

type targetJSON struct {
	Type           string `json:"type"`
	Path           string `json:"path,omitempty"`
	TablespaceID   string `json:"tablespace-id,omitempty"`
	TablespaceName string `json:"tablespace-name,omitempty"`
}

type dbEntryJSON struct {
	DBID           int    `json:"db-id"`
	DBLastSystemID uint64 `json:"db-last-system-id"`
}

// Seal renders the manifest into paths, writing the copy file first then
// the primary, matching catalog save ordering. Once Seal succeeds, every
// update operation fails with AssertError.
func Seal(m *Manifest, paths ini.PairPaths, opts ini.CipherOptions) error {
	tree := ini.NewTree()
	if err := save(m, tree); err != nil {
		return err
	}
	if err := ini.SavePair(paths, tree, opts); err != nil {
		return err
	}
	m.sealed = true
	return nil
}

// LoadPair loads a sealed manifest from its primary/copy pair, falling
// back to the copy file on any error.
func LoadPair(paths ini.PairPaths, opts ini.CipherOptions) (*Manifest, bool, error) {
	result, err := ini.LoadPair(paths, opts)
	if err != nil {
		return nil, false, err
	}

	m, err := Load(result.Tree)
	if err != nil {
		return nil, false, err
	}
	return m, result.UsedCopy, nil
}

func save(m *Manifest, tree *ini.Tree) error {
	if err := setJSON(tree, sectionBackup, "backup-label", m.Label); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackup, "backup-type", string(m.Type)); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackup, "backup-timestamp-start", m.TimestampStart); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackup, "backup-timestamp-stop", m.TimestampStop); err != nil {
		return err
	}
	if m.Prior != "" {
		if err := setJSON(tree, sectionBackup, "backup-prior", m.Prior); err != nil {
			return err
		}
	}
	if len(m.Reference) > 0 {
		if err := setJSON(tree, sectionBackup, "backup-reference", m.Reference); err != nil {
			return err
		}
	}

	if err := setJSON(tree, sectionBackupDB, "db-id", m.HistoryID); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupDB, "db-version", m.PgVersion); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupDB, "db-system-id", m.SystemID); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupDB, "db-catalog-version", m.CatalogVersion); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupDB, "db-control-version", m.ControlVersion); err != nil {
		return err
	}

	if err := setJSON(tree, sectionBackupOption, "archive-check", m.Options.ArchiveCheck); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "archive-copy", m.Options.ArchiveCopy); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "backup-standby", m.Options.BackupStandby); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "checksum-page", m.Options.ChecksumPage); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "compress", m.Options.Compress); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "hardlink", m.Options.Hardlink); err != nil {
		return err
	}
	if err := setJSON(tree, sectionBackupOption, "online", m.Options.Online); err != nil {
		return err
	}

	for _, t := range m.targets {
		tj := targetJSON{Type: string(t.Type), Path: t.Path, TablespaceID: t.TablespaceID, TablespaceName: t.TablespaceName}
		if err := setJSON(tree, sectionBackupTarget, t.Name, tj); err != nil {
			return err
		}
	}

	for name, db := range m.DBs {
		if err := setJSON(tree, sectionDB, name, dbEntryJSON{DBID: db.DBID, DBLastSystemID: db.DBLastSystemID}); err != nil {
			return err
		}
	}

	for name, f := range m.Files {
		fj := fileJSON{
			Checksum:       f.Checksum,
			Size:           f.Size,
			Timestamp:      f.Timestamp,
			Reference:      f.Reference,
			ChecksumErrors: f.ChecksumPageError,
			RemoteChecksum: f.RemoteChecksum,
			Master:         f.Master,
		}
		if f.ChecksumPageSet {
			v := f.ChecksumPage
			fj.ChecksumPage = &v
		}
		if f.RepoSizeSet {
			v := f.RepoSize
			fj.RepoSize = &v
		}
		if f.BundleSet {
			id, off := f.BundleID, f.BundleOffset
			fj.BundleID = &id
			fj.BundleOffset = &off
		}
		if f.User != m.fileDefault.User {
			fj.User = f.User
		}
		if f.Group != m.fileDefault.Group {
			fj.Group = f.Group
		}
		if f.Mode != m.fileDefault.Mode {
			fj.Mode = f.Mode
		}
		if err := setJSON(tree, sectionFile, name, fj); err != nil {
			return err
		}
	}

	if err := setJSON(tree, sectionFileDefault, "user", m.fileDefault.User); err != nil {
		return err
	}
	if err := setJSON(tree, sectionFileDefault, "group", m.fileDefault.Group); err != nil {
		return err
	}
	if err := setJSON(tree, sectionFileDefault, "mode", m.fileDefault.Mode); err != nil {
		return err
	}

	for name, l := range m.Links {
		lj := linkJSON{Destination: l.Destination}
		if l.User != m.linkDefault.User {
			lj.User = l.User
		}
		if l.Group != m.linkDefault.Group {
			lj.Group = l.Group
		}
		if err := setJSON(tree, sectionLink, name, lj); err != nil {
			return err
		}
	}

	if err := setJSON(tree, sectionLinkDefault, "user", m.linkDefault.User); err != nil {
		return err
	}
	if err := setJSON(tree, sectionLinkDefault, "group", m.linkDefault.Group); err != nil {
		return err
	}

	for name, p := range m.Paths {
		pj := pathJSON{}
		if p.User != m.pathDefault.User {
			pj.User = p.User
		}
		if p.Group != m.pathDefault.Group {
			pj.Group = p.Group
		}
		if p.Mode != m.pathDefault.Mode {
			pj.Mode = p.Mode
		}
		if err := setJSON(tree, sectionPath, name, pj); err != nil {
			return err
		}
	}

	if err := setJSON(tree, sectionPathDefault, "user", m.pathDefault.User); err != nil {
		return err
	}
	if err := setJSON(tree, sectionPathDefault, "group", m.pathDefault.Group); err != nil {
		return err
	}
	if err := setJSON(tree, sectionPathDefault, "mode", m.pathDefault.Mode); err != nil {
		return err
	}

	return nil
}

// Load parses tree into a Manifest. Unknown sections and unknown keys
// within known sections are ignored for forward compatibility.
func Load(tree *ini.Tree) (*Manifest, error) {
	m := New()

	if raw, ok := tree.Get(sectionBackup, "backup-label"); ok {
		_ = json.Unmarshal(raw, &m.Label)
	}
	if raw, ok := tree.Get(sectionBackup, "backup-type"); ok {
		var t string
		_ = json.Unmarshal(raw, &t)
		m.Type = label.Type(t)
	}
	if raw, ok := tree.Get(sectionBackup, "backup-timestamp-start"); ok {
		_ = json.Unmarshal(raw, &m.TimestampStart)
	}
	if raw, ok := tree.Get(sectionBackup, "backup-timestamp-stop"); ok {
		_ = json.Unmarshal(raw, &m.TimestampStop)
	}
	if raw, ok := tree.Get(sectionBackup, "backup-prior"); ok {
		_ = json.Unmarshal(raw, &m.Prior)
	}
	if raw, ok := tree.Get(sectionBackup, "backup-reference"); ok {
		_ = json.Unmarshal(raw, &m.Reference)
	}

	if raw, ok := tree.Get(sectionBackupDB, "db-id"); ok {
		_ = json.Unmarshal(raw, &m.HistoryID)
	}
	if raw, ok := tree.Get(sectionBackupDB, "db-version"); ok {
		_ = json.Unmarshal(raw, &m.PgVersion)
	}
	if raw, ok := tree.Get(sectionBackupDB, "db-system-id"); ok {
		_ = json.Unmarshal(raw, &m.SystemID)
	}
	if raw, ok := tree.Get(sectionBackupDB, "db-catalog-version"); ok {
		_ = json.Unmarshal(raw, &m.CatalogVersion)
	}
	if raw, ok := tree.Get(sectionBackupDB, "db-control-version"); ok {
		_ = json.Unmarshal(raw, &m.ControlVersion)
	}

	loadOptionBool(tree, "archive-check", &m.Options.ArchiveCheck)
	loadOptionBool(tree, "archive-copy", &m.Options.ArchiveCopy)
	loadOptionBool(tree, "backup-standby", &m.Options.BackupStandby)
	loadOptionBool(tree, "checksum-page", &m.Options.ChecksumPage)
	loadOptionBool(tree, "compress", &m.Options.Compress)
	loadOptionBool(tree, "hardlink", &m.Options.Hardlink)
	loadOptionBool(tree, "online", &m.Options.Online)

	for _, name := range tree.Keys(sectionBackupTarget) {
		raw, _ := tree.Get(sectionBackupTarget, name)
		var tj targetJSON
		if err := json.Unmarshal(raw, &tj); err != nil {
			return nil, rerrors.NewFormatError(fmt.Sprintf("backup:target/%s: %v", name, err))
		}
		m.addTarget(Target{
			Name: name, Type: TargetType(tj.Type), Path: tj.Path,
			TablespaceID: tj.TablespaceID, TablespaceName: tj.TablespaceName,
		})
	}

	for _, name := range tree.Keys(sectionDB) {
		raw, _ := tree.Get(sectionDB, name)
		var dj dbEntryJSON
		if err := json.Unmarshal(raw, &dj); err != nil {
			return nil, rerrors.NewFormatError(fmt.Sprintf("db/%s: %v", name, err))
		}
		m.DBs[name] = DBEntry{DBID: dj.DBID, DBLastSystemID: dj.DBLastSystemID}
	}

	loadDefaultStr(tree, sectionPathDefault, "user", &m.pathDefault.User)
	loadDefaultStr(tree, sectionPathDefault, "group", &m.pathDefault.Group)
	loadDefaultStr(tree, sectionPathDefault, "mode", &m.pathDefault.Mode)

	for _, name := range tree.Keys(sectionPath) {
		raw, _ := tree.Get(sectionPath, name)
		var pj pathJSON
		if err := json.Unmarshal(raw, &pj); err != nil {
			return nil, rerrors.NewFormatError(fmt.Sprintf("target:path/%s: %v", name, err))
		}
		m.Paths[name] = resolvePath(pj, m.pathDefault)
	}

	loadDefaultStr(tree, sectionFileDefault, "user", &m.fileDefault.User)
	loadDefaultStr(tree, sectionFileDefault, "group", &m.fileDefault.Group)
	loadDefaultStr(tree, sectionFileDefault, "mode", &m.fileDefault.Mode)

	for _, name := range tree.Keys(sectionFile) {
		raw, _ := tree.Get(sectionFile, name)
		var fj fileJSON
		if err := json.Unmarshal(raw, &fj); err != nil {
			return nil, rerrors.NewFormatError(fmt.Sprintf("target:file/%s: %v", name, err))
		}
		m.Files[name] = resolveFile(fj, m.fileDefault)
	}

	loadDefaultStr(tree, sectionLinkDefault, "user", &m.linkDefault.User)
	loadDefaultStr(tree, sectionLinkDefault, "group", &m.linkDefault.Group)

	for _, name := range tree.Keys(sectionLink) {
		raw, _ := tree.Get(sectionLink, name)
		var lj linkJSON
		if err := json.Unmarshal(raw, &lj); err != nil {
			return nil, rerrors.NewFormatError(fmt.Sprintf("target:link/%s: %v", name, err))
		}
		m.Links[name] = resolveLink(lj, m.linkDefault)
	}

	m.sealed = true
	return m, nil
}

func loadOptionBool(tree *ini.Tree, key string, dst *bool) {
	if raw, ok := tree.Get(sectionBackupOption, key); ok {
		_ = json.Unmarshal(raw, dst)
	}
}

func loadDefaultStr(tree *ini.Tree, section, key string, dst *string) {
	if raw, ok := tree.Get(section, key); ok {
		_ = json.Unmarshal(raw, dst)
	}
}

func resolvePath(pj pathJSON, def attrDefault) PathRecord {
	r := PathRecord{User: def.User, Group: def.Group, Mode: def.Mode}
	if pj.User != "" {
		r.User = pj.User
	}
	if pj.Group != "" {
		r.Group = pj.Group
	}
	if pj.Mode != "" {
		r.Mode = pj.Mode
	}
	return r
}

func resolveFile(fj fileJSON, def attrDefault) FileRecord {
	r := FileRecord{
		Checksum:       fj.Checksum,
		Size:           fj.Size,
		Timestamp:      fj.Timestamp,
		Reference:      fj.Reference,
		ChecksumPageError: fj.ChecksumErrors,
		RemoteChecksum: fj.RemoteChecksum,
		Master:         fj.Master,
		User:           def.User,
		Group:          def.Group,
		Mode:           def.Mode,
	}
	if fj.ChecksumPage != nil {
		r.ChecksumPage = *fj.ChecksumPage
		r.ChecksumPageSet = true
	}
	if fj.RepoSize != nil {
		r.RepoSize = *fj.RepoSize
		r.RepoSizeSet = true
	}
	if fj.BundleID != nil && fj.BundleOffset != nil {
		r.BundleID = *fj.BundleID
		r.BundleOffset = *fj.BundleOffset
		r.BundleSet = true
	}
	if fj.User != "" {
		r.User = fj.User
	}
	if fj.Group != "" {
		r.Group = fj.Group
	}
	if fj.Mode != "" {
		r.Mode = fj.Mode
	}
	return r
}

func resolveLink(lj linkJSON, def linkAttrDefault) LinkRecord {
	r := LinkRecord{Destination: lj.Destination, User: def.User, Group: def.Group}
	if lj.User != "" {
		r.User = lj.User
	}
	if lj.Group != "" {
		r.Group = lj.Group
	}
	return r
}

// PgValidate checks that the manifest's {historyId, pgVersion, systemId}
// appear together in history. A mismatch does not panic: the caller
// should mark the owning backup invalid and skip it rather than treat
// this as fatal.
func PgValidate(m *Manifest, history *infopg.History) error {
	entry, err := history.Find(m.HistoryID)
	if err != nil {
		return rerrors.NewFormatError(
			fmt.Sprintf("manifest history id %d not present in catalog history", m.HistoryID))
	}

	if entry.PgVersionStr != m.PgVersion || entry.SystemID != m.SystemID {
		return rerrors.NewFormatError(
			fmt.Sprintf("manifest identity (pgVersion=%s, systemId=%d) does not match history entry %d",
				m.PgVersion, m.SystemID, entry.HistoryID))
	}

	return nil
}
