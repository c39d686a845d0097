package manifest

import "github.com/cuemby/pgbackrest-repo/pkg/rerrors"

func (m *Manifest) checkMutable() error {
	if m.sealed {
		return rerrors.NewAssertError("manifest is sealed, no further updates allowed")
	}
	return nil
}

// FileUpdateOpts carries the copy-phase fields filled in after Build.
type FileUpdateOpts struct {
	RepoSize       *int64
	ChecksumPage   *bool
	ChecksumErrors []int
	BundleID       *int
	BundleOffset   *int64
	RemoteChecksum string
}

// FileUpdate fills in the copy-phase metadata for an existing file record.
func (m *Manifest) FileUpdate(name, checksum string, size, timestamp int64, opts FileUpdateOpts) error {
	if err := m.checkMutable(); err != nil {
		return err
	}

	f, ok := m.Files[name]
	if !ok {
		return rerrors.NewFormatError("file " + name + " is not in the manifest")
	}

	f.Checksum = checksum
	f.Size = size
	f.Timestamp = timestamp

	if opts.RepoSize != nil {
		f.RepoSize = *opts.RepoSize
		f.RepoSizeSet = true
	}
	if opts.ChecksumPage != nil {
		f.ChecksumPage = *opts.ChecksumPage
		f.ChecksumPageSet = true
	}
	if opts.ChecksumErrors != nil {
		f.ChecksumPageError = opts.ChecksumErrors
	}
	if opts.BundleID != nil && opts.BundleOffset != nil {
		f.BundleID = *opts.BundleID
		f.BundleOffset = *opts.BundleOffset
		f.BundleSet = true
	}
	if opts.RemoteChecksum != "" {
		f.RemoteChecksum = opts.RemoteChecksum
	}

	m.Files[name] = f
	return nil
}

// LinkUpdate repairs a link's destination after a dereference.
func (m *Manifest) LinkUpdate(name, newDestination string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}

	l, ok := m.Links[name]
	if !ok {
		return rerrors.NewFormatError("link " + name + " is not in the manifest")
	}
	l.Destination = newDestination
	m.Links[name] = l
	return nil
}

// TargetUpdate repairs a path target's on-disk path after a dereference.
func (m *Manifest) TargetUpdate(name, newPath string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}

	i, ok := m.targetIndex[name]
	if !ok {
		return rerrors.NewFormatError("target " + name + " is not in the manifest")
	}
	m.targets[i].Path = newPath
	return nil
}

// FileRemove drops a file record.
func (m *Manifest) FileRemove(name string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	delete(m.Files, name)
	return nil
}

// LinkRemove drops a link record.
func (m *Manifest) LinkRemove(name string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	delete(m.Links, name)
	return nil
}

// TargetRemove drops a target (and its index entry).
func (m *Manifest) TargetRemove(name string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	i, ok := m.targetIndex[name]
	if !ok {
		return nil
	}
	m.targets = append(m.targets[:i], m.targets[i+1:]...)
	delete(m.targetIndex, name)
	for n, idx := range m.targetIndex {
		if idx > i {
			m.targetIndex[n] = idx - 1
		}
	}
	return nil
}

// ReferencePass rewrites Reference on files that are byte-identical (same
// name, size, and checksum) to a file already resolved in one of priors,
// nearest backup first. The resolved reference always names the backup
// that actually owns the bytes on disk, following any existing reference
// chain in the prior manifest rather than pointing at an intermediate
// backup that itself only holds a reference.
func (m *Manifest) ReferencePass(priors []*Manifest) error {
	if err := m.checkMutable(); err != nil {
		return err
	}

	for name, f := range m.Files {
		if f.Checksum == "" {
			continue
		}

		for _, prior := range priors {
			pf, ok := prior.Files[name]
			if !ok || pf.Checksum != f.Checksum || pf.Size != f.Size {
				continue
			}

			owner := prior.Label
			if pf.Reference != "" {
				owner = pf.Reference
			}
			f.Reference = owner
			m.Files[name] = f
			break
		}
	}

	return nil
}
