package ini

import (
	"fmt"
	"os"

	"github.com/cuemby/pgbackrest-repo/pkg/cipher"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
	"github.com/cuemby/pgbackrest-repo/pkg/metrics"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// PairPaths names the primary and copy files of an atomic metadata pair.
type PairPaths struct {
	Primary string
	Copy    string
}

// CipherOptions configures optional symmetric decryption of a metadata
// file. Cipher is "" for plaintext.
type CipherOptions struct {
	Cipher     string
	Passphrase []byte
}

func readFile(path string, opts CipherOptions) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.Cipher == "" {
		return raw, nil
	}
	return cipher.Decrypt(raw, opts.Passphrase)
}

func writeFile(path string, plain []byte, opts CipherOptions) error {
	out := plain
	if opts.Cipher != "" {
		var err error
		out, err = cipher.Encrypt(plain, opts.Passphrase)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o640)
}

// LoadPairResult is the outcome of LoadPair.
type LoadPairResult struct {
	Tree    *Tree
	UsedCopy bool
}

// LoadPair loads and verifies paths.Primary, falling back to paths.Copy on
// any error (missing file, format error, checksum mismatch, decrypt
// failure). If both fail, the caller sees a FileMissingError chaining both
// underlying errors. When both load successfully but their canonical
// bytes differ, a soft warning is logged (the primary wins).
func LoadPair(paths PairPaths, opts CipherOptions) (*LoadPairResult, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CatalogLoadDuration, paths.Primary)

	primaryRaw, primaryErr := readFile(paths.Primary, opts)
	var primaryTree *Tree
	if primaryErr == nil {
		primaryTree, primaryErr = Verify(primaryRaw)
	}

	if primaryErr == nil {
		checkCopyMismatch(paths, opts, primaryTree)
		return &LoadPairResult{Tree: primaryTree}, nil
	}

	copyRaw, copyErr := readFile(paths.Copy, opts)
	var copyTree *Tree
	if copyErr == nil {
		copyTree, copyErr = Verify(copyRaw)
	}

	if copyErr != nil {
		return nil, rerrors.NewFileMissingError(
			fmt.Sprintf("unable to load %s or %s", paths.Primary, paths.Copy),
			fmt.Errorf("primary: %w; copy: %w", primaryErr, copyErr))
	}

	log.WithComponent("ini").Warn().
		Str("file", paths.Primary).
		Err(primaryErr).
		Msg("falling back to copy file")
	metrics.CatalogCopyFallbackTotal.WithLabelValues(paths.Primary).Inc()

	return &LoadPairResult{Tree: copyTree, UsedCopy: true}, nil
}

// checkCopyMismatch logs a soft warning when both primary and copy verify
// individually but carry different content.
func checkCopyMismatch(paths PairPaths, opts CipherOptions, primaryTree *Tree) {
	copyRaw, err := readFile(paths.Copy, opts)
	if err != nil {
		return
	}
	copyTree, err := Verify(copyRaw)
	if err != nil {
		return
	}

	primaryChecksum, err1 := primaryTree.Checksum()
	copyChecksum, err2 := copyTree.Checksum()
	if err1 != nil || err2 != nil {
		return
	}

	if primaryChecksum != copyChecksum {
		log.WithComponent("ini").Warn().
			Str("file", paths.Primary).
			Msg(fmt.Sprintf("%s.copy does not match %s", paths.Primary, paths.Primary))
	}
}

// SavePair writes tree as paths.Copy first, then paths.Primary, so that a
// reader always observes either the old or the new consistent pair.
func SavePair(paths PairPaths, tree *Tree, opts CipherOptions) error {
	encoded, err := Encode(tree)
	if err != nil {
		return err
	}

	if err := writeFile(paths.Copy, encoded, opts); err != nil {
		return fmt.Errorf("writing %s: %w", paths.Copy, err)
	}
	if err := writeFile(paths.Primary, encoded, opts); err != nil {
		return fmt.Errorf("writing %s: %w", paths.Primary, err)
	}

	return nil
}
