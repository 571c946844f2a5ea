package volfs

import (
	"errors"
	"fmt"
)

// Kind classifies a volfs error so callers can branch on failure mode
// without parsing messages.
type Kind int

const (
	// InvalidArgument means a filename failed validation, or the volume
	// parameters given to Open do not fit in totalBytes.
	InvalidArgument Kind = iota
	// NotFound means no live entry has the requested name.
	NotFound
	// AlreadyExists means a live entry with the requested name exists.
	AlreadyExists
	// NoSpace means the inode table is full, or there are not enough free blocks.
	NoSpace
	// Corrupt means a chain walk encountered an impossible node value.
	Corrupt
	// Io means a backing-file read or write failed.
	Io
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case NoSpace:
		return "NoSpace"
	case Corrupt:
		return "Corrupt"
	case Io:
		return "Io"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the uniform error type returned by every public volfs API.
//
// Use [errors.Is] against the exported sentinels (ErrInvalidArgument,
// ErrNotFound, ErrAlreadyExists, ErrNoSpace, ErrCorrupt, ErrIo) to classify
// a failure, or inspect Kind directly after an [errors.As].
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "createFile", "writeFile"
	Name string // filename involved, if any
	Err  error  // wrapped cause, e.g. an *os.PathError for Io
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += " (name=" + e.Name + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel matching e.Kind, so that
// errors.Is(err, volfs.ErrNotFound) works without exposing *Error fields.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*sentinelError)
	if !ok {
		return false
	}
	return sentinel.kind == e.Kind
}

// sentinelError is a comparable marker used only for errors.Is matching;
// it is never returned directly from the API.
type sentinelError struct {
	kind Kind
}

func (s *sentinelError) Error() string { return s.kind.String() }

// Exported sentinels for errors.Is(err, volfs.ErrXxx) classification.
var (
	ErrInvalidArgument error = &sentinelError{InvalidArgument}
	ErrNotFound        error = &sentinelError{NotFound}
	ErrAlreadyExists   error = &sentinelError{AlreadyExists}
	ErrNoSpace         error = &sentinelError{NoSpace}
	ErrCorrupt         error = &sentinelError{Corrupt}
	ErrIo              error = &sentinelError{Io}
)

func newErr(kind Kind, op, name string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// reports false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
