// Package rerrors defines the error kinds surfaced by the repository core.
// Errors carry a Kind for programmatic dispatch, a Message, an optional
// Hint (rendered as a "HINT:" suffix, matching BackupMismatchError and
// DbMismatchError), and an optional wrapped Cause.
package rerrors

import "fmt"

// Kind identifies one of the repository core's error kinds.
type Kind string

const (
	KindFileMissing        Kind = "FileMissingError"
	KindChecksum           Kind = "ChecksumError"
	KindFormat             Kind = "FormatError"
	KindBackupMismatch     Kind = "BackupMismatchError"
	KindDbMismatch         Kind = "DbMismatchError"
	KindBackupSetInvalid   Kind = "BackupSetInvalidError"
	KindOptionInvalidValue Kind = "OptionInvalidValueError"
	KindPathNotEmpty       Kind = "PathNotEmptyError"
	KindStop               Kind = "StopError"
	KindPgRunning          Kind = "PgRunningError"
	KindAssert             Kind = "AssertError"
)

// Error is the error type returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Hint != "" {
		msg += "\nHINT: " + e.Hint
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &Error{Kind: KindChecksum}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func new(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewFileMissingError(message string, cause error) *Error {
	return new(KindFileMissing, message, cause)
}

func NewChecksumError(message string) *Error {
	return new(KindChecksum, message, nil)
}

func NewFormatError(message string) *Error {
	return new(KindFormat, message, nil)
}

// NewBackupMismatchError builds a catalog/cluster identity mismatch error
// with the standard "is this the correct stanza?" hint.
func NewBackupMismatchError(message string) *Error {
	return &Error{Kind: KindBackupMismatch, Message: message, Hint: "is this the correct stanza?"}
}

// NewDbMismatchError builds a live-cluster mismatch error with the standard
// path/port hint.
func NewDbMismatchError(message string) *Error {
	return &Error{
		Kind:    KindDbMismatch,
		Message: message,
		Hint:    "the path and port likely reference different clusters",
	}
}

func NewBackupSetInvalidError(message string) *Error {
	return new(KindBackupSetInvalid, message, nil)
}

func NewOptionInvalidValueError(message string) *Error {
	return new(KindOptionInvalidValue, message, nil)
}

func NewPathNotEmptyError(message string) *Error {
	return new(KindPathNotEmpty, message, nil)
}

func NewStopError(message string) *Error {
	return new(KindStop, message, nil)
}

func NewPgRunningError(message string) *Error {
	return new(KindPgRunning, message, nil)
}

func NewAssertError(message string) *Error {
	return new(KindAssert, message, nil)
}
