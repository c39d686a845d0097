// Package label implements the backup-label grammar, the only
// authority on backup type. A label is one of
//
//	YYYYMMDD-HHMMSSF                      (full)
//	YYYYMMDD-HHMMSSF_YYYYMMDD-HHMMSSD      (differential)
//	YYYYMMDD-HHMMSSF_YYYYMMDD-HHMMSSI      (incremental)
package label

import (
	"regexp"

	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// Type is a backup flavor.
type Type string

const (
	Full  Type = "full"
	Diff  Type = "diff"
	Incr  Type = "incr"
)

var grammar = regexp.MustCompile(`^[0-9]{8}-[0-9]{6}F(_[0-9]{8}-[0-9]{6}[DI])?$`)

// Info is the parsed form of a backup label.
type Info struct {
	Label      string
	Type       Type
	ParentFull string // set for Diff/Incr; equals Label for Full
}

// Validate reports whether label matches the grammar, returning
// OptionInvalidValueError on mismatch.
func Validate(l string) error {
	switch len(l) {
	case 16, 33:
	default:
		return rerrors.NewOptionInvalidValueError(
			"'" + l + "' is not a valid backup label format")
	}

	if !grammar.MatchString(l) {
		return rerrors.NewOptionInvalidValueError(
			"'" + l + "' is not a valid backup label format")
	}

	return nil
}

// Parse validates and decomposes a backup label.
func Parse(l string) (Info, error) {
	if err := Validate(l); err != nil {
		return Info{}, err
	}

	info := Info{Label: l}

	switch l[len(l)-1] {
	case 'F':
		info.Type = Full
		info.ParentFull = l
	case 'D':
		info.Type = Diff
		info.ParentFull = l[:16]
	case 'I':
		info.Type = Incr
		info.ParentFull = l[:16]
	}

	return info, nil
}

// IsFull reports whether l is a syntactically valid full-backup label.
func IsFull(l string) bool {
	info, err := Parse(l)
	return err == nil && info.Type == Full
}
